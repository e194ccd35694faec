package graph

import (
	"path"
	"sort"

	"codedoc/internal/model"
)

// BuildResult is the output of Build: the resolved dependency graph,
// the component registry it was resolved against, and every edge the
// extractors produced (resolved or not) for diagnostics.
type BuildResult struct {
	Graph    model.DependencyGraph
	Registry *Registry
	Edges    []model.CallEdge
}

// Build resolves each extracted CallEdge's callee against the
// component registry and assembles the natural-direction dependency
// graph (an edge A -> B means "A depends on B"). Only resolved edges
// between two registered components become graph edges; everything
// else is retained in Edges with Resolved=false for diagnostics.
func Build(components []model.Component, rawEdges []model.CallEdge) BuildResult {
	reg := newRegistry(components)
	g := model.NewDependencyGraph()
	for _, c := range components {
		g.AddNode(c.ID)
	}

	resolved := make([]model.CallEdge, 0, len(rawEdges))
	seen := make(map[[3]string]bool)

	for _, e := range rawEdges {
		callerID := e.Caller
		if _, ok := reg.Get(callerID); !ok {
			// Caller itself isn't a registered component (e.g. a
			// package-scope call); keep for diagnostics only.
			resolved = append(resolved, e)
			continue
		}

		calleeID, ok := resolveCallee(reg, callerID, e.Callee)
		if !ok {
			e.Resolved = false
			resolved = append(resolved, e)
			continue
		}

		e.Callee = calleeID
		e.Resolved = true
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		g.AddEdge(callerID, calleeID)
		resolved = append(resolved, e)
	}

	return BuildResult{Graph: g, Registry: reg, Edges: resolved}
}

// resolveCallee maps a callee reference (already a full id, or a bare
// name produced by an extractor) to a registered component id. Ties
// among same-named candidates are broken by: same file as caller,
// then same directory, then lexicographically smallest id, so
// resolution is deterministic across runs.
func resolveCallee(reg *Registry, callerID, callee string) (string, bool) {
	if _, ok := reg.Get(callee); ok {
		return callee, true
	}

	candidates := reg.byName[callee]
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	caller, _ := reg.Get(callerID)
	var callerDir string
	if caller != nil {
		callerDir = path.Dir(caller.RelativePath)
	}

	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	if caller != nil {
		for _, id := range sorted {
			if c, ok := reg.Get(id); ok && c.RelativePath == caller.RelativePath {
				return id, true
			}
		}
		for _, id := range sorted {
			if c, ok := reg.Get(id); ok && path.Dir(c.RelativePath) == callerDir {
				return id, true
			}
		}
	}

	return sorted[0], true
}
