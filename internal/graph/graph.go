package graph

import "fmt"

// Graph is a directed dependency graph over module names. Deps(m) lists the
// modules m depends on, i.e. the modules that must load before m. Node and
// edge insertion order is preserved so that every downstream pass is
// deterministic for an unchanged module set.
//
// The resolution pipeline is single-threaded, so the graph does no locking.
type Graph struct {
	names  []string
	index  map[string]int
	deps   map[string][]string
	depSet map[string]map[string]struct{}
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		index:  make(map[string]int),
		deps:   make(map[string][]string),
		depSet: make(map[string]map[string]struct{}),
	}
}

// Add inserts a node. Adding an existing node does nothing, so isolated
// modules keep an entry with an empty dependency set.
func (g *Graph) Add(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.names)
	g.names = append(g.names, name)
	g.depSet[name] = make(map[string]struct{})
}

// AddDep records that name depends on dep (dep must load before name).
// Self-edges and edges touching unknown nodes are rejected; duplicate edges
// are ignored.
func (g *Graph) AddDep(name, dep string) error {
	if name == dep {
		return fmt.Errorf("self-referential dependency not allowed: %s", name)
	}
	if _, ok := g.index[name]; !ok {
		return fmt.Errorf("dependent node not found: %s", name)
	}
	if _, ok := g.index[dep]; !ok {
		return fmt.Errorf("dependency node not found: %s", dep)
	}
	if _, dup := g.depSet[name][dep]; dup {
		return nil
	}
	g.depSet[name][dep] = struct{}{}
	g.deps[name] = append(g.deps[name], dep)
	return nil
}

// Has reports whether the node exists.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// Names returns all nodes in insertion order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Deps returns the modules name depends on, in edge insertion order.
func (g *Graph) Deps(name string) []string {
	src := g.deps[name]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Len returns the node count.
func (g *Graph) Len() int {
	return len(g.names)
}
