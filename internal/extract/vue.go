package extract

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"codedoc/internal/model"
)

// vueBuiltinTags are template elements that never refer to a sibling
// component and are excluded from uses_component edges.
var vueBuiltinTags = map[string]bool{
	"slot": true, "component": true, "transition": true,
	"transition-group": true, "keep-alive": true, "teleport": true,
	"suspense": true, "template": true, "router-view": true, "router-link": true,
}

var vueBlockPattern = regexp.MustCompile(`(?is)<(script|template)([^>]*)>(.*?)</(script|template)>`)
var vueTagPattern = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9-]*)`)
var vueLangAttrPattern = regexp.MustCompile(`lang\s*=\s*["']([^"']+)["']`)

// Template directive values and interpolations only produce edges when
// they are a single plain identifier; expressions are skipped.
var vueEventPattern = regexp.MustCompile(`@[A-Za-z][A-Za-z0-9-]*(?:\.[A-Za-z]+)*\s*=\s*"([A-Za-z_$][A-Za-z0-9_$]*)"`)
var vueBindPattern = regexp.MustCompile(`\s:[A-Za-z][A-Za-z0-9-]*\s*=\s*"([A-Za-z_$][A-Za-z0-9_$]*)"`)
var vueInterpolationPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*\}\}`)

// vueReactivityFns are the composition-API initializers whose result
// marks a script variable as reactive state.
var vueReactivityFns = []string{"ref", "reactive", "computed", "readonly", "shallowRef", "shallowReactive", "toRef", "toRefs"}

var vueVarPattern = regexp.MustCompile(`(?m)^\s*(?:const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*[(<]`)

// vueStrategy is a hand-rolled single-file-component scanner: there is
// no tree-sitter Vue grammar in this ecosystem, so the <script> and
// <template> block boundaries are found with a permissive regex and
// <script> content is handed off to the shared TS/JS strategy with its
// line offset applied, rather than re-implementing a JS/TS parser.
type vueStrategy struct{}

func (s *vueStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	text := string(source)
	var res Result

	componentName := vueComponentName(relPath)
	sfc := model.Component{
		ID:           ComponentID(relPath, "", componentName),
		Name:         componentName,
		Kind:         model.KindVueComponent,
		FilePath:     absPath,
		RelativePath: relPath,
		StartLine:    1,
		EndLine:      strings.Count(text, "\n") + 1,
	}

	for _, m := range vueBlockPattern.FindAllStringSubmatchIndex(text, -1) {
		tagStart, tagEnd := m[2], m[3]
		attrs := text[tagEnd:m[4]]
		bodyStart, bodyEnd := m[6], m[7]
		tag := text[tagStart:tagEnd]
		body := text[bodyStart:bodyEnd]
		lineOffset := strings.Count(text[:bodyStart], "\n")

		switch tag {
		case "script":
			lang := LangJavaScript
			if lm := vueLangAttrPattern.FindStringSubmatch(attrs); lm != nil && strings.Contains(strings.ToLower(lm[1]), "ts") {
				lang = LangTypeScript
			}
			scriptResult, err := newTSStrategy(lang).extractWithOffset(ctx, absPath, relPath, []byte(body), lineOffset)
			if err == nil {
				res.Components = append(res.Components, scriptResult.Components...)
				res.Edges = append(res.Edges, scriptResult.Edges...)
			}
			res.Components = append(res.Components, vueScriptVariables(body, absPath, relPath, lineOffset)...)
			res.Components = append(res.Components, vueMacroComponents(body, &sfc, absPath, lineOffset)...)
		case "template":
			sfc.SourceCode = body
			for _, usedName := range vueTemplateComponentRefs(body) {
				res.Edges = append(res.Edges, model.CallEdge{
					Caller: sfc.ID,
					Callee: usedName,
					Kind:   model.EdgeUsesComponent,
					Line:   lineOffset + 1,
				})
			}
			res.Edges = append(res.Edges, vueTemplateDirectiveEdges(body, sfc.ID, lineOffset)...)
		}
	}

	res.Components = append([]model.Component{sfc}, res.Components...)
	return res, nil
}

func vueComponentName(relPath string) string {
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// vueTemplateComponentRefs returns the distinct tag names in body that
// look like component references (PascalCase or kebab-case with a
// hyphen) rather than native HTML elements, excluding Vue built-ins.
func vueTemplateComponentRefs(body string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range vueTagPattern.FindAllStringSubmatch(body, -1) {
		tag := m[1]
		lower := strings.ToLower(tag)
		if vueBuiltinTags[lower] {
			continue
		}
		isPascal := tag[0] >= 'A' && tag[0] <= 'Z'
		isKebab := strings.Contains(tag, "-")
		if !isPascal && !isKebab {
			continue
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// vueTemplateDirectiveEdges emits calls edges for @event="handler"
// directives and references edges for :prop="binding" and
// {{ interpolation }} occurrences whose value is a plain identifier.
func vueTemplateDirectiveEdges(body, callerID string, lineOffset int) []model.CallEdge {
	var edges []model.CallEdge
	seen := make(map[[3]string]bool)
	emit := func(callee string, kind model.EdgeKind, offset int) {
		e := model.CallEdge{
			Caller: callerID,
			Callee: callee,
			Kind:   kind,
			Line:   lineOffset + strings.Count(body[:offset], "\n") + 1,
		}
		if seen[e.Key()] {
			return
		}
		seen[e.Key()] = true
		edges = append(edges, e)
	}
	for _, m := range vueEventPattern.FindAllStringSubmatchIndex(body, -1) {
		emit(body[m[2]:m[3]], model.EdgeCalls, m[0])
	}
	for _, m := range vueBindPattern.FindAllStringSubmatchIndex(body, -1) {
		emit(body[m[2]:m[3]], model.EdgeReferences, m[0])
	}
	for _, m := range vueInterpolationPattern.FindAllStringSubmatchIndex(body, -1) {
		emit(body[m[2]:m[3]], model.EdgeReferences, m[0])
	}
	return edges
}

// vueScriptVariables finds top-level variables initialized by a known
// reactivity function and emits them as variable components annotated
// with the reactivity flavor.
func vueScriptVariables(body, absPath, relPath string, lineOffset int) []model.Component {
	reactive := make(map[string]bool, len(vueReactivityFns))
	for _, fn := range vueReactivityFns {
		reactive[fn] = true
	}

	var out []model.Component
	for _, m := range vueVarPattern.FindAllStringSubmatchIndex(body, -1) {
		varName := body[m[2]:m[3]]
		initFn := body[m[4]:m[5]]
		if !reactive[initFn] {
			continue
		}
		line := lineOffset + strings.Count(body[:m[0]], "\n") + 1
		out = append(out, model.Component{
			ID:           ComponentID(relPath, "", varName),
			Name:         varName,
			Kind:         model.KindVariable,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    line,
			EndLine:      line,
			Attributes:   map[string]any{"reactivity": initFn},
		})
	}
	return out
}

// vueMacroComponents emits vue_props / vue_emits components for the
// compiler-macro invocations in the script block and annotates
// defineExpose on the SFC component itself.
func vueMacroComponents(body string, sfc *model.Component, absPath string, lineOffset int) []model.Component {
	var out []model.Component
	macro := func(name string, kind model.Kind, suffix string) {
		i := strings.Index(body, name)
		if i < 0 {
			return
		}
		line := lineOffset + strings.Count(body[:i], "\n") + 1
		out = append(out, model.Component{
			ID:           sfc.ID + "." + suffix,
			Name:         sfc.Name + "." + suffix,
			Kind:         kind,
			FilePath:     absPath,
			RelativePath: sfc.RelativePath,
			StartLine:    line,
			EndLine:      line,
			Attributes:   map[string]any{"macro": name},
		})
	}
	macro("defineProps", model.KindVueProps, "props")
	macro("defineEmits", model.KindVueEmits, "emits")
	if strings.Contains(body, "defineExpose") {
		sfc.Attributes = addAttr(sfc.Attributes, "exposes", true)
	}
	return out
}

func addAttr(attrs map[string]any, key string, value any) map[string]any {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	attrs[key] = value
	return attrs
}
