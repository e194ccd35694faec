package cluster

import "codedoc/internal/model"

// communityHint computes a cheap, local grouping signal over the
// leaf-restricted dependency graph: connected components under the
// undirected closure of resolved edges between members of ids. The
// groupings bias the clustering prompt without replacing the model's
// own judgment.
func communityHint(ids []string, g model.DependencyGraph) map[string]int {
	members := make(map[string]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}

	adjacency := make(map[string][]string, len(ids))
	addEdge := func(a, b string) {
		if members[a] && members[b] {
			adjacency[a] = append(adjacency[a], b)
			adjacency[b] = append(adjacency[b], a)
		}
	}
	for _, id := range ids {
		for _, succ := range g.Successors(id) {
			addEdge(id, succ)
		}
	}

	community := make(map[string]int, len(ids))
	nextID := 0
	for _, id := range ids {
		if _, assigned := community[id]; assigned {
			continue
		}
		// BFS over this component.
		queue := []string{id}
		community[id] = nextID
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, n := range adjacency[cur] {
				if _, ok := community[n]; !ok {
					community[n] = nextID
					queue = append(queue, n)
				}
			}
		}
		nextID++
	}
	return community
}
