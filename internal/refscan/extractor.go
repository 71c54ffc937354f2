package refscan

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Reference is a raw cross-module reference found in source text. Path is
// the dotted module path as written, possibly with leading dots for a
// relative reference. Member is set when the source addresses a named member
// of the imported module, which may itself be a module.
type Reference struct {
	Path   string
	Member string
}

// Extractor turns source text into raw references. Implementations must not
// execute the source.
type Extractor interface {
	Extract(filename string, src []byte) ([]Reference, error)
}

// DefaultSourceGlob selects the script files scanned when a manifest does
// not declare its own source globs.
const DefaultSourceGlob = "*.lua"

// SourceFiles resolves the manifest's source globs against the module
// directory, returning a sorted, duplicate-free list of script files.
func SourceFiles(dir string, globs []string) ([]string, error) {
	if len(globs) == 0 {
		globs = []string{DefaultSourceGlob}
	}

	seen := make(map[string]struct{})
	var files []string
	for _, g := range globs {
		pattern := filepath.Join(dir, filepath.FromSlash(g))
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid source glob %q: %w", g, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; !dup {
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// Resolve maps raw references found in the given importer module to
// discovered module names. Edge semantics: the importer depends on every
// returned module. The importer itself is never returned.
//
// Absolute paths already inside the namespace must match a discovered module
// exactly; bare paths are tried as namespace-qualified prefixes, so a
// reference to "core.scene.cut" links the importer to "ns.core",
// "ns.core.scene" and "ns.core.scene.cut" — whichever of those exist.
// Relative paths resolve leading dots against the importer's own name.
func Resolve(importer string, refs []Reference, namespace string, discovered map[string]bool) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if name == importer || !discovered[name] {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	for _, ref := range refs {
		if strings.HasPrefix(ref.Path, ".") {
			resolved, ok := resolveRelative(importer, ref.Path)
			if !ok {
				continue
			}
			add(resolved)
			if ref.Member != "" {
				add(resolved + "." + ref.Member)
			}
			continue
		}

		if ref.Path == namespace || strings.HasPrefix(ref.Path, namespace+".") {
			add(ref.Path)
			if ref.Member != "" {
				add(ref.Path + "." + ref.Member)
			}
			continue
		}

		parts := strings.Split(ref.Path, ".")
		for i := 1; i <= len(parts); i++ {
			add(namespace + "." + strings.Join(parts[:i], "."))
		}
		if ref.Member != "" {
			add(namespace + "." + ref.Path + "." + ref.Member)
		}
	}

	return out
}

// resolveRelative resolves a leading-dot path against the importer's dotted
// name: each dot strips one trailing name component. Over-deep references
// are dropped.
func resolveRelative(importer, path string) (string, bool) {
	level := 0
	for level < len(path) && path[level] == '.' {
		level++
	}
	rest := path[level:]

	parts := strings.Split(importer, ".")
	if level > len(parts)-1 {
		return "", false
	}
	base := strings.Join(parts[:len(parts)-level], ".")
	if rest == "" {
		return base, true
	}
	return base + "." + rest, true
}
