package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codedoc/internal/graph"
	"codedoc/internal/llmclient"
	"codedoc/internal/model"
)

func newComponents(ids ...string) []model.Component {
	out := make([]model.Component, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Component{
			ID:           id,
			Name:         id,
			Kind:         model.KindFunction,
			FilePath:     "/repo/" + id + ".go",
			RelativePath: id + ".go",
			SourceCode:   "func " + id + "() {}",
		})
	}
	return out
}

// scriptedServer replies with successive bodies from responses on each
// call, looping on the last one if exhausted.
func scriptedServer(t *testing.T, responses ...string) *httptest.Server {
	t.Helper()
	calls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := calls
		if idx >= len(responses) {
			idx = len(responses) - 1
		}
		calls++
		content := responses[idx]
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func newChain(srv *httptest.Server) *llmclient.FallbackChain {
	client := llmclient.NewClient(srv.URL, "test-key", 5*time.Second)
	return llmclient.NewFallbackChain(client, "primary-model", nil, nil)
}

func TestBuildUnderBudgetEmitsSingleLeaf(t *testing.T) {
	srv := scriptedServer(t, "should never be called")
	defer srv.Close()

	components := newComponents("a", "b")
	br := graph.Build(components, nil)

	c := &Clusterer{
		Chain:   newChain(srv),
		Budgets: model.TokenBudgets{MaxTokensPerModule: 1_000_000, MaxOutputTokens: 1000, MaxRecursionDepth: 5},
	}

	root, err := c.Build(context.Background(), br.Registry, br.Graph, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !root.IsLeaf() {
		t.Error("expected root to stay a leaf when under budget")
	}
	if len(root.Components) != 2 {
		t.Errorf("Components = %v, want 2 entries", root.Components)
	}
}

func TestBuildPartitionsIntoModules(t *testing.T) {
	response := `Reasoning text.
<GROUPED_COMPONENTS>
{
  "alpha": {"path": "alpha", "components": ["a", "b"]},
  "beta": {"path": "beta", "components": ["c"]}
}
</GROUPED_COMPONENTS>`
	// Recursive sub-level calls get no further grouping, so each child
	// degrades to a leaf.
	srv := scriptedServer(t, response, "no further grouping")
	defer srv.Close()

	components := newComponents("a", "b", "c")
	br := graph.Build(components, nil)

	c := &Clusterer{
		Chain:   newChain(srv),
		Budgets: model.TokenBudgets{MaxTokensPerModule: 1, MaxOutputTokens: 1000, MaxRecursionDepth: 5},
	}

	root, err := c.Build(context.Background(), br.Registry, br.Graph, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if root.IsLeaf() {
		t.Fatal("expected root to have children after partitioning")
	}
	if len(root.Children) != 2 {
		t.Fatalf("got %d children, want 2", len(root.Children))
	}
	alpha, ok := root.Children["alpha"]
	if !ok || !alpha.IsLeaf() || len(alpha.Components) != 2 {
		t.Errorf("alpha child wrong: %+v", alpha)
	}
	beta, ok := root.Children["beta"]
	if !ok || !beta.IsLeaf() || len(beta.Components) != 1 {
		t.Errorf("beta child wrong: %+v", beta)
	}
}

func TestBuildAssignsOmittedIDsToMiscellaneous(t *testing.T) {
	response := `<GROUPED_COMPONENTS>
{
  "alpha": {"path": "alpha", "components": ["a"]}
}
</GROUPED_COMPONENTS>`
	srv := scriptedServer(t, response, "no further grouping")
	defer srv.Close()

	components := newComponents("a", "b")
	br := graph.Build(components, nil)

	c := &Clusterer{
		Chain:   newChain(srv),
		Budgets: model.TokenBudgets{MaxTokensPerModule: 1, MaxOutputTokens: 1000, MaxRecursionDepth: 5},
	}

	root, err := c.Build(context.Background(), br.Registry, br.Graph, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	misc, ok := root.Children[miscellaneousName]
	if !ok {
		t.Fatal("expected a Miscellaneous child for the omitted id")
	}
	if len(misc.Components) != 1 || misc.Components[0] != "b" {
		t.Errorf("Miscellaneous components = %v, want [b]", misc.Components)
	}
}

func TestBuildMalformedResponseDegradesToLeaf(t *testing.T) {
	srv := scriptedServer(t, "no sentinel tags here at all")
	defer srv.Close()

	components := newComponents("a", "b")
	br := graph.Build(components, nil)

	c := &Clusterer{
		Chain:   newChain(srv),
		Budgets: model.TokenBudgets{MaxTokensPerModule: 1, MaxOutputTokens: 1000, MaxRecursionDepth: 5},
	}

	root, err := c.Build(context.Background(), br.Registry, br.Graph, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Build should degrade gracefully, not error: %v", err)
	}
	if !root.IsLeaf() {
		t.Error("expected degrade-to-leaf on malformed response")
	}
	if len(root.Components) != 2 {
		t.Errorf("Components = %v, want both ids kept", root.Components)
	}
}

func TestBuildStopsAtDepthCap(t *testing.T) {
	response := `<GROUPED_COMPONENTS>
{
  "alpha": {"path": "alpha", "components": ["a"]},
  "beta": {"path": "beta", "components": ["b"]}
}
</GROUPED_COMPONENTS>`
	srv := scriptedServer(t, response)
	defer srv.Close()

	components := newComponents("a", "b")
	br := graph.Build(components, nil)

	c := &Clusterer{
		Chain:   newChain(srv),
		Budgets: model.TokenBudgets{MaxTokensPerModule: 1, MaxOutputTokens: 1000, MaxRecursionDepth: 0},
	}

	root, err := c.Build(context.Background(), br.Registry, br.Graph, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !root.IsLeaf() {
		t.Error("expected depth cap at 0 to force an immediate leaf regardless of budget")
	}
}

func TestBuildModelCallErrorDegradesToLeaf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	components := newComponents("a", "b")
	br := graph.Build(components, nil)

	c := &Clusterer{
		Chain:   newChain(srv),
		Budgets: model.TokenBudgets{MaxTokensPerModule: 1, MaxOutputTokens: 1000, MaxRecursionDepth: 5},
	}

	root, err := c.Build(context.Background(), br.Registry, br.Graph, []string{"a", "b"})
	if err != nil {
		t.Fatalf("Build should never surface a model call failure: %v", err)
	}
	if !root.IsLeaf() {
		t.Error("expected degrade-to-leaf when every model in the chain fails")
	}
}
