// Package discovery enumerates the modules of a module tree: every directory
// holding a module.hcl manifest, filtered by dotted-name patterns.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
)

// Module is a discovered, importable unit of the tree. Modules are immutable
// after discovery; a reload runs discovery again.
type Module struct {
	// Name is the fully-qualified dotted name, e.g. "studio.core.scene".
	Name string

	// Dir is the module's directory on disk.
	Dir string

	// Manifest is the parsed module.hcl. The root module carries an empty
	// manifest when the root directory has none.
	Manifest *manifest.Manifest
}

// Options configures a discovery pass.
type Options struct {
	// Namespace is the root module name; discovered names are
	// namespace-prefixed. Defaults to the base name of the root path.
	Namespace string

	// Patterns filter submodules by dotted name; see NewMatcher.
	Patterns []string

	// HostVersion, when set, is checked against each manifest's
	// requires_host constraint. Incompatible modules are skipped with a
	// warning.
	HostVersion string
}

// Scan walks the tree under root and returns the matching modules in
// deterministic walk order. Enumeration is best-effort: unreadable
// directories are skipped, and modules with invalid manifests or unsatisfied
// host constraints are logged and dropped rather than failing the scan.
func Scan(ctx context.Context, root string, opts Options) ([]*Module, error) {
	logger := ctxlog.FromContext(ctx)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve module tree root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("failed to read module tree root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("module tree root %s is not a directory", absRoot)
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespace = filepath.Base(absRoot)
	}

	matcher, err := NewMatcher(namespace, opts.Patterns)
	if err != nil {
		return nil, err
	}

	var hostVersion *semver.Version
	if opts.HostVersion != "" {
		hostVersion, err = semver.NewVersion(opts.HostVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid host version %q: %w", opts.HostVersion, err)
		}
	}

	var modules []*Module
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Best-effort enumeration: unreadable paths contribute
			// no modules.
			logger.Debug("Skipping unreadable path.", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		base := d.Name()
		if path != absRoot && (strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		name := moduleName(namespace, absRoot, path)
		isRoot := path == absRoot

		manifestPath := filepath.Join(path, manifest.Filename)
		if _, err := os.Stat(manifestPath); err != nil {
			if isRoot {
				// The root module always exists, manifest or not.
				modules = append(modules, &Module{Name: name, Dir: path, Manifest: &manifest.Manifest{}})
			}
			return nil
		}

		if !matcher.Match(name) {
			return nil
		}

		m, err := manifest.Load(ctx, manifestPath)
		if err != nil {
			logger.Warn("Skipping module with invalid manifest.", "module", name, "error", err)
			return nil
		}

		if ok, err := m.HostCompatible(hostVersion); err != nil {
			logger.Warn("Skipping module with invalid host constraint.", "module", name, "error", err)
			return nil
		} else if !ok {
			logger.Warn("Skipping module incompatible with host version.",
				"module", name, "requires_host", m.RequiresHost, "host", opts.HostVersion)
			return nil
		}

		for _, t := range m.Types {
			t.Module = name
		}

		modules = append(modules, &Module{Name: name, Dir: path, Manifest: m})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk module tree: %w", walkErr)
	}

	logger.Debug("Module discovery complete.", "root", absRoot, "count", len(modules))
	return modules, nil
}

// moduleName converts a directory path under root into a fully-qualified
// dotted module name.
func moduleName(namespace, root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return namespace
	}
	return namespace + "." + strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}
