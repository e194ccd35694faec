package graph

import (
	"os"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"codedoc/internal/errors"
	"codedoc/internal/model"
)

// LoadSCIPIndex reads and unmarshals a SCIP index file. SCIP is an
// optional secondary edge-resolution source: its absence never fails
// an analysis run.
func LoadSCIPIndex(path string) (*scippb.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.UnresolvedReference, "failed to read SCIP index", err)
	}
	var idx scippb.Index
	if err := proto.Unmarshal(data, &idx); err != nil {
		return nil, errors.Wrap(errors.UnresolvedReference, "failed to parse SCIP index", err)
	}
	return &idx, nil
}

// documentDefinitions indexes, per relative file path, the display
// names of symbols SCIP recorded a definition occurrence for.
func documentDefinitions(idx *scippb.Index) map[string]map[string]bool {
	defsByDoc := make(map[string]map[string]bool, len(idx.Documents))
	for _, doc := range idx.Documents {
		names := make(map[string]bool)
		for _, sym := range doc.Symbols {
			name := sym.DisplayName
			if name == "" {
				continue
			}
			names[name] = true
		}
		defsByDoc[doc.RelativePath] = names
	}
	return defsByDoc
}

// CrossCheckUnresolved corroborates edges the extractor-based resolver
// could not match against the component registry: if SCIP recorded a
// same-named symbol definition in the caller's own file, the edge is
// marked Resolved as a cross-check signal. This never introduces a
// new callee id; it only confirms or leaves alone the extractor's
// best effort, keeping SCIP strictly a secondary source.
func CrossCheckUnresolved(idx *scippb.Index, reg *Registry, edges []model.CallEdge) []model.CallEdge {
	if idx == nil {
		return edges
	}
	defsByDoc := documentDefinitions(idx)

	out := make([]model.CallEdge, len(edges))
	for i, e := range edges {
		out[i] = e
		if e.Resolved {
			continue
		}
		caller, ok := reg.Get(e.Caller)
		if !ok {
			continue
		}
		names, ok := defsByDoc[caller.RelativePath]
		if !ok {
			continue
		}
		if names[e.Callee] {
			out[i].Resolved = true
		}
	}
	return out
}
