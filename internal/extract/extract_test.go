package extract

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"codedoc/internal/model"
)

func TestComponentID(t *testing.T) {
	tests := []struct {
		relPath   string
		enclosing string
		name      string
		want      string
	}{
		{"a.py", "", "f", "a.f"},
		{"src/pkg/a.py", "", "f", "src.pkg.a.f"},
		{"src/pkg/a.py", "Foo", "bar", "src.pkg.a.Foo.bar"},
		{"dir\\sub\\a.go", "", "Run", "dir.sub.a.Run"},
	}
	for _, tt := range tests {
		if got := ComponentID(tt.relPath, tt.enclosing, tt.name); got != tt.want {
			t.Errorf("ComponentID(%q, %q, %q) = %q, want %q", tt.relPath, tt.enclosing, tt.name, got, tt.want)
		}
	}
}

func TestLanguageForPath(t *testing.T) {
	tests := []struct {
		path string
		want Language
		ok   bool
	}{
		{"main.go", LangGo, true},
		{"app.py", LangPython, true},
		{"component.vue", LangVue, true},
		{"Header.TSX", LangTypeScript, true},
		{"index.php", LangPHP, true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForPath(tt.path)
		if ok != tt.ok || got != tt.want {
			t.Errorf("LanguageForPath(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPHPShouldSkipTemplates(t *testing.T) {
	skipped := []string{
		"resources/views/home.blade.php",
		"app/templates/page.phtml",
		"legacy/page.twig.php",
		"src/Views/render.php",
	}
	for _, p := range skipped {
		if !phpShouldSkip(p) {
			t.Errorf("phpShouldSkip(%q) = false, want true", p)
		}
	}
	if phpShouldSkip("app/Http/Controllers/UserController.php") {
		t.Error("controller file must not be skipped")
	}
}

func TestGoStrategyNormalizesMethodReceivers(t *testing.T) {
	source := `package pkg

type S struct{}

func (s *S) Do() {}

func (s S) Do2() {}
`
	strat, ok := Dispatch(LangGo)
	if !ok {
		t.Fatal("no Go strategy")
	}
	res, err := strat.Extract(context.Background(), "/repo/pkg/s.go", "pkg/s.go", []byte(source))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	byID := make(map[string]model.Component, len(res.Components))
	for _, c := range res.Components {
		byID[c.ID] = c
	}

	if c, ok := byID["pkg.s.S"]; !ok || c.Kind != model.KindStruct {
		t.Errorf("missing struct component pkg.s.S, got %v", byID)
	}
	if c, ok := byID["pkg.s.S.Do"]; !ok || c.Kind != model.KindMethod || c.EnclosingClass != "S" {
		t.Errorf("pointer-receiver method not normalized: %+v", c)
	}
	if c, ok := byID["pkg.s.S.Do2"]; !ok || c.Kind != model.KindMethod {
		t.Errorf("value-receiver method missing: %+v", c)
	}
}

func TestGoStrategyEmitsCallEdges(t *testing.T) {
	source := `package pkg

func f() {
	g()
}

func g() {}
`
	strat, _ := Dispatch(LangGo)
	res, err := strat.Extract(context.Background(), "/repo/pkg/a.go", "pkg/a.go", []byte(source))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	found := false
	for _, e := range res.Edges {
		if e.Caller == "pkg.a.f" && e.Callee == "g" && e.Kind == model.EdgeCalls {
			found = true
		}
	}
	if !found {
		t.Errorf("edges = %+v, want pkg.a.f -calls-> g", res.Edges)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func relPaths(entries []FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestDiscoverFindsSupportedFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "sub/b.go", "package sub")
	writeFile(t, root, "notes.txt", "not source")
	writeFile(t, root, "node_modules/dep/index.js", "ignored")

	entries, err := Discover(root, nil, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"a.go", "sub/b.go"}
	if !reflect.DeepEqual(relPaths(entries), want) {
		t.Errorf("entries = %v, want %v", relPaths(entries), want)
	}
}

func TestDiscoverAppliesExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "sub/b.go", "package sub")

	entries, err := Discover(root, nil, []string{"sub/"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"a.go"}
	if !reflect.DeepEqual(relPaths(entries), want) {
		t.Errorf("entries = %v, want %v", relPaths(entries), want)
	}
}

func TestDiscoverAppliesIncludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	writeFile(t, root, "sub/b.go", "package sub")

	entries, err := Discover(root, []string{"sub/"}, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"sub/b.go"}
	if !reflect.DeepEqual(relPaths(entries), want) {
		t.Errorf("entries = %v, want %v", relPaths(entries), want)
	}
}

func TestDiscoverSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a")
	target := filepath.Join(root, "a.go")
	link := filepath.Join(root, "link.go")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	entries, err := Discover(root, nil, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"a.go"}
	if !reflect.DeepEqual(relPaths(entries), want) {
		t.Errorf("entries = %v, want symlink skipped: %v", relPaths(entries), want)
	}
}

func TestRunExtractsAcrossFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package a\n\nfunc A() {}\n")
	writeFile(t, root, "b.go", "package a\n\nfunc B() {}\n")

	entries, err := Discover(root, nil, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	res, err := Run(context.Background(), root, entries, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	ids := make(map[string]bool)
	for _, c := range res.Components {
		ids[c.ID] = true
	}
	if !ids["a.A"] || !ids["b.B"] {
		t.Errorf("components = %v, want a.A and b.B", ids)
	}
}
