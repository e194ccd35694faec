package graph

import (
	"reflect"
	"testing"

	"codedoc/internal/model"
)

func comp(id, name string, kind model.Kind, relPath string) model.Component {
	return model.Component{
		ID:           id,
		Name:         name,
		Kind:         kind,
		FilePath:     "/repo/" + relPath,
		RelativePath: relPath,
		SourceCode:   "source of " + id,
	}
}

func TestBuildResolvesEdgesByUnqualifiedName(t *testing.T) {
	components := []model.Component{
		comp("a.f", "f", model.KindFunction, "a.py"),
		comp("b.g", "g", model.KindFunction, "b.py"),
	}
	edges := []model.CallEdge{
		{Caller: "a.f", Callee: "g", Kind: model.EdgeCalls, Line: 1},
	}

	br := Build(components, edges)

	succs := br.Graph.Successors("a.f")
	if !reflect.DeepEqual(succs, []string{"b.g"}) {
		t.Errorf("Successors(a.f) = %v, want [b.g]", succs)
	}
	if len(br.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(br.Edges))
	}
	if !br.Edges[0].Resolved || br.Edges[0].Callee != "b.g" {
		t.Errorf("edge = %+v, want resolved callee b.g", br.Edges[0])
	}
}

func TestBuildDeduplicatesEdgeTriples(t *testing.T) {
	components := []model.Component{
		comp("a.f", "f", model.KindFunction, "a.py"),
		comp("b.g", "g", model.KindFunction, "b.py"),
	}
	edges := []model.CallEdge{
		{Caller: "a.f", Callee: "g", Kind: model.EdgeCalls, Line: 1},
		{Caller: "a.f", Callee: "g", Kind: model.EdgeCalls, Line: 7},
		{Caller: "a.f", Callee: "b.g", Kind: model.EdgeReferences, Line: 9},
	}

	br := Build(components, edges)

	seen := make(map[[3]string]int)
	for _, e := range br.Edges {
		seen[e.Key()]++
	}
	for key, n := range seen {
		if n > 1 {
			t.Errorf("edge triple %v survives %d times, want 1", key, n)
		}
	}
	if len(br.Edges) != 2 {
		t.Errorf("len(Edges) = %d, want 2 (calls + references)", len(br.Edges))
	}
}

func TestBuildRetainsUnresolvedEdges(t *testing.T) {
	components := []model.Component{
		comp("a.f", "f", model.KindFunction, "a.py"),
	}
	edges := []model.CallEdge{
		{Caller: "a.f", Callee: "missing_symbol", Kind: model.EdgeCalls},
	}

	br := Build(components, edges)

	if len(br.Edges) != 1 || br.Edges[0].Resolved {
		t.Fatalf("Edges = %+v, want one unresolved edge", br.Edges)
	}
	if len(br.Graph.Successors("a.f")) != 0 {
		t.Error("unresolved edge must not populate the graph")
	}
}

func TestResolveCalleePreferSameFileThenSameDir(t *testing.T) {
	components := []model.Component{
		comp("pkg.a.Caller", "Caller", model.KindClass, "pkg/a.py"),
		comp("pkg.a.Helper", "Helper", model.KindClass, "pkg/a.py"),
		comp("pkg.b.Helper", "Helper", model.KindClass, "pkg/b.py"),
		comp("other.c.Helper", "Helper", model.KindClass, "other/c.py"),
	}
	edges := []model.CallEdge{
		{Caller: "pkg.a.Caller", Callee: "Helper", Kind: model.EdgeCalls},
	}

	br := Build(components, edges)

	succs := br.Graph.Successors("pkg.a.Caller")
	if !reflect.DeepEqual(succs, []string{"pkg.a.Helper"}) {
		t.Errorf("Successors = %v, want same-file pkg.a.Helper", succs)
	}
}

func TestResolveCyclesBreaksThreeCycleDeterministically(t *testing.T) {
	g := model.NewDependencyGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	removed := ResolveCycles(g)

	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	// The lexicographically-greatest (caller, callee) edge in the SCC
	// is (c, a).
	if len(g.Successors("c")) != 0 {
		t.Errorf("Successors(c) = %v, want edge c->a removed", g.Successors("c"))
	}
	if len(g.Successors("a")) != 1 || len(g.Successors("b")) != 1 {
		t.Error("edges a->b and b->c must survive cycle resolution")
	}
	if again := ResolveCycles(g); again != 0 {
		t.Errorf("second ResolveCycles removed %d edges, want 0", again)
	}
}

func TestResolveCyclesRetainsSelfLoop(t *testing.T) {
	g := model.NewDependencyGraph()
	g.AddEdge("a", "a")

	if removed := ResolveCycles(g); removed != 0 {
		t.Errorf("removed = %d, want 0 (SCC of size 1 is not a cycle)", removed)
	}
	if len(g.Successors("a")) != 1 {
		t.Error("self-referential edge must be retained")
	}
}

func TestTopologicalSortDependencyFirst(t *testing.T) {
	g := model.NewDependencyGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	order := TopologicalSort(g)

	want := []string{"c", "b", "a"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestTopologicalSortAfterCycleResolution(t *testing.T) {
	g := model.NewDependencyGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	order := TopologicalSort(g)

	if len(order) != 3 {
		t.Fatalf("order = %v, want all three nodes", order)
	}
	position := make(map[string]int, 3)
	for i, id := range order {
		position[id] = i
	}
	for from, succs := range g {
		for to := range succs {
			if position[to] > position[from] {
				t.Errorf("%s depends on %s but sorts before it: %v", from, to, order)
			}
		}
	}
}

func TestLeavesAppliesGoExtensions(t *testing.T) {
	components := []model.Component{
		comp("pkg.s.S", "S", model.KindStruct, "pkg/s.go"),
		comp("pkg.s.S.Do", "Do", model.KindMethod, "pkg/s.go"),
		comp("pkg.s.S.Do2", "Do2", model.KindMethod, "pkg/s.go"),
	}
	br := Build(components, nil)

	leaves := Leaves(br.Graph, br.Registry)

	want := []string{"pkg.s.S", "pkg.s.S.Do", "pkg.s.S.Do2"}
	if !reflect.DeepEqual(leaves, want) {
		t.Errorf("leaves = %v, want %v", leaves, want)
	}
}

func TestLeavesFiltersNonGoFunctions(t *testing.T) {
	components := []model.Component{
		comp("a.Foo", "Foo", model.KindClass, "a.py"),
		comp("a.helper", "helper", model.KindFunction, "a.py"),
	}
	br := Build(components, nil)

	leaves := Leaves(br.Graph, br.Registry)

	want := []string{"a.Foo"}
	if !reflect.DeepEqual(leaves, want) {
		t.Errorf("leaves = %v, want class-only %v", leaves, want)
	}
}

func TestLeavesAllowsFunctionsWhenNoClassLikeKinds(t *testing.T) {
	components := []model.Component{
		comp("util.parse", "parse", model.KindFunction, "util.c"),
		comp("util.render", "render", model.KindFunction, "util.c"),
	}
	br := Build(components, nil)

	leaves := Leaves(br.Graph, br.Registry)

	want := []string{"util.parse", "util.render"}
	if !reflect.DeepEqual(leaves, want) {
		t.Errorf("leaves = %v, want %v", leaves, want)
	}
}

func TestLeavesMergesConstructorsAndDropsErrorLikeNames(t *testing.T) {
	components := []model.Component{
		comp("a.Foo", "Foo", model.KindClass, "a.py"),
		comp("a.Foo.__init__", "__init__", model.KindMethod, "a.py"),
		comp("a.ParseError", "ParseError", model.KindClass, "a.py"),
	}
	br := Build(components, nil)

	leaves := Leaves(br.Graph, br.Registry)

	want := []string{"a.Foo"}
	if !reflect.DeepEqual(leaves, want) {
		t.Errorf("leaves = %v, want constructor merged and error type dropped: %v", leaves, want)
	}
}

func TestLeavesExcludesDependedOnComponents(t *testing.T) {
	components := []model.Component{
		comp("a.Top", "Top", model.KindClass, "a.py"),
		comp("a.Base", "Base", model.KindClass, "a.py"),
	}
	edges := []model.CallEdge{
		{Caller: "a.Top", Callee: "Base", Kind: model.EdgeExtends},
	}
	br := Build(components, edges)

	leaves := Leaves(br.Graph, br.Registry)

	want := []string{"a.Top"}
	if !reflect.DeepEqual(leaves, want) {
		t.Errorf("leaves = %v, want only the un-depended-on %v", leaves, want)
	}
}
