package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/discovery"
	"github.com/vk/modkit/internal/manifest"
)

// BuildOptions controls graph construction.
type BuildOptions struct {
	// Namespace is the root module name; unqualified manifest
	// dependencies are resolved against it.
	Namespace string

	// Strict turns dangling references (a declared dependency or type
	// reference naming something outside the discovered set) into build
	// errors instead of logged warnings.
	Strict bool
}

// Build merges all dependency signals into one graph over the discovered
// modules:
//
//   - scanned holds, per module, the in-tree modules its sources reference
//     (already resolved against the discovered set);
//   - manifest reference fields add an edge from the referencing type's
//     module to the referenced type's owning module, unless both types live
//     in the same module;
//   - manifest depends_on entries add hard prerequisites, qualified with the
//     namespace when not already.
//
// Every discovered module keeps a graph entry even with zero dependencies,
// the root module included.
func Build(ctx context.Context, modules []*discovery.Module, scanned map[string][]string, opts BuildOptions) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	g := New()
	g.Add(opts.Namespace)
	for _, m := range modules {
		g.Add(m.Name)
	}

	var types []*manifest.CompositeType
	for _, m := range modules {
		types = append(types, m.Manifest.Types...)
	}
	index := manifest.NewTypeIndex(opts.Namespace, types)

	for _, m := range modules {
		for _, dep := range scanned[m.Name] {
			if err := addEdge(g, m.Name, dep); err != nil {
				return nil, err
			}
		}

		if err := typeEdges(g, m, index, opts, logger); err != nil {
			return nil, err
		}

		if err := declaredEdges(g, m, opts, logger); err != nil {
			return nil, err
		}
	}

	logger.Debug("Dependency graph built.", "nodes", g.Len())
	return g, nil
}

// typeEdges adds edges for reference fields of the module's composite types.
func typeEdges(g *Graph, m *discovery.Module, index *manifest.TypeIndex, opts BuildOptions, logger *slog.Logger) error {
	for _, t := range m.Manifest.Types {
		for _, f := range t.Fields {
			if !f.IsReference() {
				continue
			}
			target, ok := index.Resolve(t.Module, f.TypeRef)
			if !ok {
				if opts.Strict {
					return fmt.Errorf("type %s field %s references unknown type %q", t.QualifiedName(), f.Name, f.TypeRef)
				}
				logger.Warn("Dropping reference to unknown composite type.",
					"type", t.QualifiedName(), "field", f.Name, "ref", f.TypeRef)
				continue
			}
			if target.Module == m.Name || !g.Has(target.Module) {
				continue
			}
			if err := addEdge(g, m.Name, target.Module); err != nil {
				return err
			}
		}
	}
	return nil
}

// declaredEdges adds edges for the manifest's explicit depends_on list.
func declaredEdges(g *Graph, m *discovery.Module, opts BuildOptions, logger *slog.Logger) error {
	for _, dep := range m.Manifest.DependsOn {
		full := qualify(opts.Namespace, dep)
		if !g.Has(full) {
			if opts.Strict {
				return fmt.Errorf("module %s declares unknown dependency %q", m.Name, dep)
			}
			logger.Warn("Dropping declared dependency outside the discovered set.",
				"module", m.Name, "dependency", full)
			continue
		}
		if full == m.Name {
			continue
		}
		if err := addEdge(g, m.Name, full); err != nil {
			return err
		}
	}
	return nil
}

func addEdge(g *Graph, name, dep string) error {
	if err := g.AddDep(name, dep); err != nil {
		return fmt.Errorf("failed to record dependency %s -> %s: %w", dep, name, err)
	}
	return nil
}

// qualify prepends the namespace to a module name that is not already
// qualified with it.
func qualify(namespace, name string) string {
	if name == namespace || len(name) > len(namespace)+1 && name[:len(namespace)+1] == namespace+"." {
		return name
	}
	return namespace + "." + name
}
