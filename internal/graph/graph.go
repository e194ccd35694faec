// Package graph builds the repository dependency graph from extracted
// components and call edges, resolves edges against the component
// registry, breaks cycles deterministically, and computes the
// dependency-first processing order and leaf-component set that feed
// the clusterer and the documentation orchestrator.
package graph

import "codedoc/internal/model"

// Registry is the resolved component lookup built alongside the graph.
type Registry struct {
	byID   map[string]*model.Component
	byName map[string][]string // bare name -> ids sharing that name
}

func newRegistry(components []model.Component) *Registry {
	r := &Registry{
		byID:   make(map[string]*model.Component, len(components)),
		byName: make(map[string][]string),
	}
	for i := range components {
		c := &components[i]
		r.byID[c.ID] = c
		r.byName[c.Name] = append(r.byName[c.Name], c.ID)
	}
	return r
}

// Get returns the component with id, and whether it was found.
func (r *Registry) Get(id string) (*model.Component, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Len returns the number of registered components.
func (r *Registry) Len() int { return len(r.byID) }

// All returns every registered component, unordered.
func (r *Registry) All() []*model.Component {
	out := make([]*model.Component, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}
