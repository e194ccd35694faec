package graph

import (
	"sort"

	"codedoc/internal/model"
)

// TopologicalSort resolves cycles in g (mutating it) and returns its
// nodes in dependency-first order: if A depends on B, B precedes A.
// Leaves (nodes with no outstanding dependencies) are queued first and
// popped in sorted order so the result is stable across runs. If
// ResolveCycles somehow leaves a residual cycle, it falls back to a
// sorted node list rather than failing the run.
func TopologicalSort(g model.DependencyGraph) []string {
	ResolveCycles(g)

	nodes := g.Nodes()
	sort.Strings(nodes)

	predecessors := make(map[string][]string, len(nodes))
	outDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		succs := g.Successors(n)
		outDegree[n] = len(succs)
		for _, s := range succs {
			predecessors[s] = append(predecessors[s], n)
		}
	}

	var queue []string
	for _, n := range nodes {
		if outDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		sort.Strings(queue)
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		for _, p := range predecessors[n] {
			outDegree[p]--
			if outDegree[p] == 0 {
				queue = append(queue, p)
			}
		}
	}

	if len(order) != len(nodes) {
		return nodes
	}
	return order
}
