package graph

import (
	"sort"
	"strings"

	"codedoc/internal/model"
)

const largeLeafSetThreshold = 400

// permittedLeafKinds are the component kinds the clusterer is allowed
// to treat as a leaf by default; Go and class-free repositories widen
// the set in validLeafKinds.
var permittedLeafKinds = map[model.Kind]bool{
	model.KindClass:     true,
	model.KindInterface: true,
	model.KindStruct:    true,
}

func hasGoComponents(components []*model.Component) bool {
	for _, c := range components {
		if strings.HasSuffix(strings.ToLower(c.RelativePath), ".go") {
			return true
		}
	}
	return false
}

func validLeafKinds(components []*model.Component) map[model.Kind]bool {
	available := make(map[model.Kind]bool)
	for _, c := range components {
		available[c.Kind] = true
	}

	valid := make(map[model.Kind]bool, len(permittedLeafKinds)+2)
	for k := range permittedLeafKinds {
		valid[k] = true
	}

	if hasGoComponents(components) {
		valid[model.KindFunction] = true
		valid[model.KindMethod] = true
		return valid
	}

	hasClassLike := false
	for k := range permittedLeafKinds {
		if available[k] {
			hasClassLike = true
			break
		}
	}
	if !hasClassLike {
		valid[model.KindFunction] = true
	}
	return valid
}

// Leaves identifies leaf components of the (already cycle-resolved)
// dependency graph: components no other component depends on. Results
// are filtered to permittedLeafKinds (extended for Go/function-only
// repositories), constructor methods are normalized to their enclosing
// type, and large non-Go leaf sets are pruned to only the nodes that
// are not themselves a dependency of another leaf — the large-repo
// safeguard from get_leaf_nodes, preserved verbatim for Go repos to
// keep function-level coverage.
func Leaves(g model.DependencyGraph, reg *Registry) []string {
	nodes := g.Nodes()
	leafSet := make(map[string]bool, len(nodes))
	dependedOn := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		for _, s := range g.Successors(n) {
			dependedOn[s] = true
		}
	}
	for _, n := range nodes {
		if !dependedOn[n] {
			leafSet[n] = true
		}
	}

	components := reg.All()
	valid := validLeafKinds(components)
	isGo := hasGoComponents(components)

	filter := func(candidates map[string]bool) []string {
		keptSet := make(map[string]bool)
		for id := range candidates {
			if strings.TrimSpace(id) == "" {
				continue
			}
			norm := normalizeConstructorID(id)
			c, ok := reg.Get(norm)
			if !ok {
				continue
			}
			if !valid[c.Kind] || hasErrorLikeName(c.Name) {
				continue
			}
			keptSet[norm] = true
		}
		kept := make([]string, 0, len(keptSet))
		for id := range keptSet {
			kept = append(kept, id)
		}
		sort.Strings(kept)
		return kept
	}

	kept := filter(leafSet)

	if len(kept) >= largeLeafSetThreshold && !isGo {
		pruned := make(map[string]bool, len(leafSet))
		for id := range leafSet {
			pruned[id] = true
		}
		for _, n := range nodes {
			for _, dep := range g.Successors(n) {
				delete(pruned, dep)
			}
		}
		kept = filter(pruned)
	}

	return kept
}

// errorLikeKeywords prune error/exception helper types from the leaf
// set.
var errorLikeKeywords = []string{"error", "exception", "failed", "invalid"}

func hasErrorLikeName(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range errorLikeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// normalizeConstructorID collapses a "...__init__" leaf id to its
// enclosing type's id, mirroring get_leaf_nodes' concise_leaf_nodes
// merge so a class is represented once rather than once per
// constructor.
func normalizeConstructorID(id string) string {
	const suffix = ".__init__"
	if strings.HasSuffix(id, suffix) {
		return strings.TrimSuffix(id, suffix)
	}
	return id
}
