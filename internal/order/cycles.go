package order

import "github.com/vk/modkit/internal/graph"

// stronglyConnected runs Tarjan's algorithm and returns the components with
// more than one member, i.e. the actual cycles. Used for diagnostics only;
// the fallback ordering does not depend on it.
func stronglyConnected(g *graph.Graph) [][]string {
	names := g.Names()

	index := 0
	indices := make(map[string]int, len(names))
	lowlink := make(map[string]int, len(names))
	onStack := make(map[string]bool, len(names))
	var stack []string
	var components [][]string

	var connect func(n string)
	connect = func(n string) {
		indices[n] = index
		lowlink[n] = index
		index++
		stack = append(stack, n)
		onStack[n] = true

		for _, dep := range g.Deps(n) {
			if _, seen := indices[dep]; !seen {
				connect(dep)
				if lowlink[dep] < lowlink[n] {
					lowlink[n] = lowlink[dep]
				}
			} else if onStack[dep] {
				if indices[dep] < lowlink[n] {
					lowlink[n] = indices[dep]
				}
			}
		}

		if lowlink[n] == indices[n] {
			var component []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == n {
					break
				}
			}
			if len(component) > 1 {
				components = append(components, component)
			}
		}
	}

	for _, n := range names {
		if _, seen := indices[n]; !seen {
			connect(n)
		}
	}

	return components
}
