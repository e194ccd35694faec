package graph

import (
	"sort"

	"codedoc/internal/model"
)

type tarjanState struct {
	g       model.DependencyGraph
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
}

// stronglyConnectedComponents runs Tarjan's algorithm and returns
// every SCC of size greater than one; a self-loop (SCC of size one)
// does not count as a cycle.
func stronglyConnectedComponents(g model.DependencyGraph) [][]string {
	st := &tarjanState{
		g:       g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}

	nodes := g.Nodes()
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := st.index[n]; !visited {
			st.strongConnect(n)
		}
	}
	return st.sccs
}

func (st *tarjanState) strongConnect(node string) {
	st.index[node] = st.counter
	st.lowlink[node] = st.counter
	st.counter++
	st.stack = append(st.stack, node)
	st.onStack[node] = true

	successors := st.g.Successors(node)
	sort.Strings(successors)
	for _, succ := range successors {
		if _, visited := st.index[succ]; !visited {
			st.strongConnect(succ)
			if st.lowlink[succ] < st.lowlink[node] {
				st.lowlink[node] = st.lowlink[succ]
			}
		} else if st.onStack[succ] {
			if st.index[succ] < st.lowlink[node] {
				st.lowlink[node] = st.index[succ]
			}
		}
	}

	if st.lowlink[node] == st.index[node] {
		var scc []string
		for {
			n := st.stack[len(st.stack)-1]
			st.stack = st.stack[:len(st.stack)-1]
			st.onStack[n] = false
			scc = append(scc, n)
			if n == node {
				break
			}
		}
		if len(scc) > 1 {
			st.sccs = append(st.sccs, scc)
		}
	}
}

// ResolveCycles repeatedly detects SCCs in g and, for each, removes
// the lexicographically-greatest (caller, callee) edge among the
// SCC's internal edges, until no cycle remains. The rule is
// deterministic and order-independent, so runs over an unchanged
// repository yield identical graphs. maxPasses bounds pathological
// inputs.
func ResolveCycles(g model.DependencyGraph) (removed int) {
	const maxPasses = 10000
	for pass := 0; pass < maxPasses; pass++ {
		sccs := stronglyConnectedComponents(g)
		if len(sccs) == 0 {
			return removed
		}
		for _, scc := range sccs {
			caller, callee, ok := greatestInternalEdge(g, scc)
			if !ok {
				continue
			}
			g.RemoveEdge(caller, callee)
			removed++
		}
	}
	return removed
}

// greatestInternalEdge returns the lexicographically-greatest
// (caller, callee) edge with both endpoints in scc.
func greatestInternalEdge(g model.DependencyGraph, scc []string) (string, string, bool) {
	inSCC := make(map[string]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}

	var bestCaller, bestCallee string
	found := false
	for _, n := range scc {
		for _, succ := range g.Successors(n) {
			if !inSCC[succ] {
				continue
			}
			if !found || n > bestCaller || (n == bestCaller && succ > bestCallee) {
				bestCaller, bestCallee = n, succ
				found = true
			}
		}
	}
	return bestCaller, bestCallee, found
}
