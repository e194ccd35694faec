package extract

import (
	"context"
	"testing"

	"codedoc/internal/model"
)

const sampleSFC = `<template>
  <transition>
    <MyChild @click="handleClick" :title="pageTitle">{{msg}}</MyChild>
  </transition>
</template>
<script lang="ts">
import MyChild from './MyChild.vue'
function handleClick() {}
const pageTitle = ref('t')
const msg = ref('m')
</script>
`

func extractSFC(t *testing.T) Result {
	t.Helper()
	strat, ok := Dispatch(LangVue)
	if !ok {
		t.Fatal("no Vue strategy")
	}
	res, err := strat.Extract(context.Background(), "/repo/src/Page.vue", "src/Page.vue", []byte(sampleSFC))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return res
}

func TestVueTemplateEdges(t *testing.T) {
	res := extractSFC(t)

	type edge struct {
		callee string
		kind   model.EdgeKind
	}
	want := map[edge]bool{
		{"MyChild", model.EdgeUsesComponent}: false,
		{"handleClick", model.EdgeCalls}:     false,
		{"pageTitle", model.EdgeReferences}:  false,
		{"msg", model.EdgeReferences}:        false,
	}
	for _, e := range res.Edges {
		if e.Caller != "src.Page.Page" {
			continue
		}
		key := edge{e.Callee, e.Kind}
		if _, expected := want[key]; expected {
			want[key] = true
		}
		if e.Callee == "transition" && e.Kind == model.EdgeUsesComponent {
			t.Error("built-in <transition> must not produce a uses_component edge")
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("missing edge %s -%s-> %s", "src.Page.Page", key.kind, key.callee)
		}
	}
}

func TestVueScriptLineOffsetAppliedOnce(t *testing.T) {
	res := extractSFC(t)

	for _, c := range res.Components {
		if c.Name == "handleClick" {
			// function handleClick() {} sits on line 8 of the .vue file.
			if c.StartLine != 8 {
				t.Errorf("handleClick StartLine = %d, want 8", c.StartLine)
			}
			return
		}
	}
	t.Error("handleClick component not extracted from the script block")
}

func TestVueReactivityAnnotation(t *testing.T) {
	res := extractSFC(t)

	found := 0
	for _, c := range res.Components {
		if c.Kind != model.KindVariable {
			continue
		}
		if c.Name == "pageTitle" || c.Name == "msg" {
			if c.Attributes["reactivity"] != "ref" {
				t.Errorf("%s reactivity = %v, want ref", c.Name, c.Attributes["reactivity"])
			}
			found++
		}
	}
	if found != 2 {
		t.Errorf("found %d reactive variables, want 2", found)
	}
}

func TestVueComponentEmitted(t *testing.T) {
	res := extractSFC(t)

	if len(res.Components) == 0 || res.Components[0].Kind != model.KindVueComponent {
		t.Fatalf("first component = %+v, want the vue_component", res.Components)
	}
	sfc := res.Components[0]
	if sfc.Name != "Page" || sfc.StartLine != 1 {
		t.Errorf("sfc = %+v, want Page starting at line 1", sfc)
	}
}
