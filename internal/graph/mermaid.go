package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/modkit/internal/ctxlog"
)

// DebugFilename is the diagnostic artifact written under <root>/debug/.
const DebugFilename = "module_dependencies.mmd"

// Mermaid renders the graph as a Mermaid flowchart for human inspection.
// Node labels are namespace-stripped short names; top-level modules render
// as rectangles, nested ones as rounded nodes. One arrow per dependency
// edge, pointing from the dependent module to its prerequisite.
func Mermaid(g *Graph, namespace string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("config:\n")
	sb.WriteString("  theme: default\n")
	sb.WriteString("  flowchart:\n")
	sb.WriteString("    curve: basis\n")
	sb.WriteString("---\n")
	sb.WriteString("flowchart TD\n")

	names := g.Names()
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	for _, name := range sorted {
		short := shortName(namespace, name)
		id := strings.ReplaceAll(short, ".", "_")
		if strings.Contains(short, ".") {
			fmt.Fprintf(&sb, "    %s(%s)\n", id, short)
		} else {
			fmt.Fprintf(&sb, "    %s[%s]\n", id, short)
		}
	}

	for _, name := range names {
		src := strings.ReplaceAll(shortName(namespace, name), ".", "_")
		for _, dep := range g.Deps(name) {
			dst := strings.ReplaceAll(shortName(namespace, dep), ".", "_")
			fmt.Fprintf(&sb, "    %s --> %s\n", src, dst)
		}
	}

	return sb.String()
}

// WriteDebug writes the Mermaid artifact to <rootDir>/debug/. The artifact
// is purely diagnostic; callers treat a write failure as non-fatal.
func WriteDebug(ctx context.Context, g *Graph, namespace, rootDir string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	debugDir := filepath.Join(rootDir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug directory: %w", err)
	}

	path := filepath.Join(debugDir, DebugFilename)
	if err := os.WriteFile(path, []byte(Mermaid(g, namespace)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write dependency diagram: %w", err)
	}

	logger.Info("Dependency diagram written.", "path", path)
	return path, nil
}

// shortName strips the namespace prefix for display.
func shortName(namespace, name string) string {
	if strings.HasPrefix(name, namespace+".") {
		return name[len(namespace)+1:]
	}
	return name
}
