package model

import "sort"

// DependencyGraph maps a component id to the set of component ids it
// depends on directly. A -> B means A depends on B.
type DependencyGraph map[string]map[string]struct{}

// NewDependencyGraph returns an empty graph.
func NewDependencyGraph() DependencyGraph {
	return make(DependencyGraph)
}

// AddNode ensures id has an entry, even with no outgoing edges.
func (g DependencyGraph) AddNode(id string) {
	if _, ok := g[id]; !ok {
		g[id] = make(map[string]struct{})
	}
}

// AddEdge records that from depends on to, registering either node
// that is not in the graph yet.
func (g DependencyGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g[from][to] = struct{}{}
}

// RemoveEdge deletes a single from->to edge, used by cycle resolution.
func (g DependencyGraph) RemoveEdge(from, to string) {
	if edges, ok := g[from]; ok {
		delete(edges, to)
	}
}

// Successors returns the sorted list of nodes id depends on.
func (g DependencyGraph) Successors(id string) []string {
	edges := g[id]
	out := make([]string, 0, len(edges))
	for target := range edges {
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// Nodes returns every node id registered in the graph.
func (g DependencyGraph) Nodes() []string {
	out := make([]string, 0, len(g))
	for id := range g {
		out = append(out, id)
	}
	return out
}
