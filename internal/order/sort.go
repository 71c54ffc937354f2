package order

import (
	"context"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/graph"
)

// Result is the outcome of a sort pass.
type Result struct {
	// Order contains every graph node exactly once, prerequisites first.
	Order []string

	// Cycles lists the strongly-connected components of size > 1 when the
	// graph is cyclic. Diagnostic only.
	Cycles [][]string

	// Fallback is true when the bucket heuristic produced the order.
	Fallback bool
}

// Sort produces a load order for the graph. It never fails: when the graph
// has a cycle the strict topological sort is abandoned, the cycles are
// reported, and the bucket policy decides the order instead.
func Sort(ctx context.Context, g *graph.Graph, pol *Policy) Result {
	logger := ctxlog.FromContext(ctx)

	if order, ok := topological(g); ok {
		return Result{Order: order}
	}

	cycles := stronglyConnected(g)
	for i, cycle := range cycles {
		logger.Warn("Circular module dependency detected.", "cycle", i+1, "members", cycle)
	}
	logger.Warn("Falling back to priority-bucket ordering.", "cycles", len(cycles))

	return Result{
		Order:    pol.Order(g),
		Cycles:   cycles,
		Fallback: true,
	}
}

// topological runs Kahn's algorithm. The adjacency lists point from a module
// to its prerequisites, so in-degree counts a node's dependents; draining
// the queue therefore yields dependents before dependencies, and the final
// sequence is reversed so prerequisites come first. Tie-break among
// simultaneously-ready nodes is graph insertion order (FIFO queue seeded in
// node order), keeping the result stable across runs. Returns false when a
// cycle leaves nodes unplaced.
func topological(g *graph.Graph) ([]string, bool) {
	names := g.Names()

	indeg := make(map[string]int, len(names))
	for _, n := range names {
		for _, dep := range g.Deps(n) {
			indeg[dep]++
		}
	}

	var queue []string
	for _, n := range names {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]string, 0, len(names))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		for _, dep := range g.Deps(n) {
			indeg[dep]--
			if indeg[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(names) {
		return nil, false
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, true
}

// AppendMissing adds, in their original order, any discovered modules the
// sorted sequence does not contain. A module can only go missing if graph
// construction dropped it; the load order must still be a permutation of the
// discovered set.
func AppendMissing(order []string, discovered []string) []string {
	present := make(map[string]struct{}, len(order))
	for _, n := range order {
		present[n] = struct{}{}
	}
	for _, n := range discovered {
		if _, ok := present[n]; !ok {
			order = append(order, n)
			present[n] = struct{}{}
		}
	}
	return order
}
