package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"codedoc/internal/graph"
	"codedoc/internal/llmclient"
	"codedoc/internal/logging"
	"codedoc/internal/model"
)

func newComponent(id, relPath string) model.Component {
	return model.Component{
		ID:           id,
		Name:         id,
		Kind:         model.KindFunction,
		FilePath:     relPath,
		RelativePath: relPath,
		SourceCode:   "func " + id + "() {}",
	}
}

var moduleNameRE = regexp.MustCompile(`module named "?([A-Za-z0-9_]+)"?|the ([A-Za-z0-9_]+) module`)

// fakeModelServer is a single stand-in LLM endpoint for a whole
// orchestrator run. Agent tool loops are driven by counting prior
// assistant turns in the request history; overview synthesis calls
// (which carry no tools) are answered directly with an <OVERVIEW>
// wrapped body, mirroring the module or repository name found in the
// prompt.
func fakeModelServer(t *testing.T, docsDir string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			Tools []any `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		assistantTurns := 0
		var lastUserContent string
		for _, m := range req.Messages {
			if m.Role == "assistant" {
				assistantTurns++
			}
			if m.Role == "user" {
				lastUserContent = m.Content
			}
		}

		var msg llmclient.Message
		if len(req.Tools) > 0 {
			if assistantTurns == 0 {
				name := moduleName(lastUserContent)
				createArgs, _ := json.Marshal(map[string]string{
					"command":   "create",
					"path":      filepath.Join(docsDir, name+".md"),
					"file_text": "# " + name + "\n\nGenerated body for " + name + ".\n",
				})
				msg = llmclient.Message{
					Role: "assistant",
					ToolCalls: []llmclient.ToolCall{
						{ID: "call-1", Type: "function", Function: llmclient.ToolCallFunc{Name: "str_replace_editor", Arguments: string(createArgs)}},
					},
				}
			} else {
				msg = llmclient.Message{Role: "assistant", Content: "documentation complete"}
			}
		} else {
			name := moduleName(lastUserContent)
			msg = llmclient.Message{Role: "assistant", Content: "<OVERVIEW>\nOverview of " + name + ".\n</OVERVIEW>"}
		}

		resp := map[string]any{
			"choices": []map[string]any{{"message": msg}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func moduleName(content string) string {
	m := moduleNameRE.FindStringSubmatch(content)
	if m == nil {
		return "unknown"
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func newOrchestrator(t *testing.T, reg *graph.Registry, g model.DependencyGraph, tree *model.ModuleNode) (*Orchestrator, string) {
	t.Helper()
	repoRoot := t.TempDir()
	docsDir := t.TempDir()
	return &Orchestrator{
		RepoRoot:       repoRoot,
		DocsDir:        docsDir,
		RepositoryName: "sample-repo",
		Registry:       reg,
		Graph:          g,
		Tree:           tree,
		Budgets:        model.TokenBudgets{MaxTokensPerModule: 12000, MaxTokensPerLeafModule: 16000, MaxOutputTokens: 4096, MaxRecursionDepth: 4},
		Logger:         logging.NewLogger(logging.Config{Level: logging.ErrorLevel}),
	}, docsDir
}

func TestRunProducesLeafModuleAndRepositoryOverview(t *testing.T) {
	components := []model.Component{newComponent("a", "a.go")}
	br := graph.Build(components, nil)

	tree := model.NewModuleNode("widgets", nil)
	tree.Components = []string{"a"}

	o, docsDir := newOrchestrator(t, br.Registry, br.Graph, tree)

	srv := fakeModelServer(t, docsDir)
	defer srv.Close()
	o.Chain = llmclient.NewFallbackChain(llmclient.NewClient(srv.URL, "test-key", 5*time.Second), "primary-model", nil, nil)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(docsDir, "widgets.md")); err != nil {
		t.Errorf("expected widgets.md to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(docsDir, "overview.md")); err != nil {
		t.Errorf("expected overview.md to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(docsDir, "metadata.json")); err != nil {
		t.Errorf("expected metadata.json to be written: %v", err)
	}
}

func TestRunProcessesChildrenBeforeModuleOverview(t *testing.T) {
	components := []model.Component{newComponent("a", "a.go"), newComponent("b", "b.go")}
	br := graph.Build(components, nil)

	root := model.NewModuleNode("root", nil)
	alpha := model.NewModuleNode("alpha", []string{"root"})
	alpha.Components = []string{"a"}
	beta := model.NewModuleNode("beta", []string{"root"})
	beta.Components = []string{"b"}
	root.Children["alpha"] = alpha
	root.Children["beta"] = beta

	o, docsDir := newOrchestrator(t, br.Registry, br.Graph, root)
	srv := fakeModelServer(t, docsDir)
	defer srv.Close()
	o.Chain = llmclient.NewFallbackChain(llmclient.NewClient(srv.URL, "test-key", 5*time.Second), "primary-model", nil, nil)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{"alpha", "beta", "root", "overview"} {
		if _, err := os.Stat(filepath.Join(docsDir, name+".md")); err != nil {
			t.Errorf("expected %s.md to be written: %v", name, err)
		}
	}

	rootData, err := os.ReadFile(filepath.Join(docsDir, "root.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !contains(string(rootData), "Overview of root") {
		t.Errorf("root.md = %q, want an overview body", string(rootData))
	}
}

func TestRunSkipsAlreadyWrittenArtifacts(t *testing.T) {
	components := []model.Component{newComponent("a", "a.go")}
	br := graph.Build(components, nil)

	tree := model.NewModuleNode("widgets", nil)
	tree.Components = []string{"a"}

	o, docsDir := newOrchestrator(t, br.Registry, br.Graph, tree)

	if err := os.WriteFile(filepath.Join(docsDir, "widgets.md"), []byte("pre-existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docsDir, "overview.md"), []byte("pre-existing overview"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := fakeModelServer(t, docsDir)
	defer srv.Close()
	o.Chain = llmclient.NewFallbackChain(llmclient.NewClient(srv.URL, "test-key", 5*time.Second), "primary-model", nil, nil)

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(docsDir, "widgets.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pre-existing" {
		t.Error("expected the pre-existing widgets.md to be left untouched")
	}
}

func TestRunAbortsOnModelFailure(t *testing.T) {
	components := []model.Component{newComponent("a", "a.go")}
	br := graph.Build(components, nil)

	tree := model.NewModuleNode("widgets", nil)
	tree.Components = []string{"a"}

	failingSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer failingSrv.Close()

	o, docsDir := newOrchestrator(t, br.Registry, br.Graph, tree)
	o.Chain = llmclient.NewFallbackChain(llmclient.NewClient(failingSrv.URL, "test-key", 5*time.Second), "primary-model", nil, nil)

	err := o.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to fail when every model call fails")
	}

	if _, statErr := os.Stat(filepath.Join(docsDir, "overview.md")); statErr == nil {
		t.Error("overview.md should not be written when the leaf agent call fails first")
	}
}

func contains(haystack, needle string) bool {
	return len(needle) == 0 || indexOf(haystack, needle) >= 0
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
