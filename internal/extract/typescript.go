package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"codedoc/internal/model"
)

// maxTraversalDepth bounds TypeScript AST recursion to prevent stack
// overflow on pathological generated ASTs.
const maxTraversalDepth = 500

// tsStrategy handles JavaScript and TypeScript with a shared grammar
// dispatch; Vue delegates its <script> block to this strategy too.
type tsStrategy struct {
	lang Language
}

func newTSStrategy(lang Language) *tsStrategy {
	return &tsStrategy{lang: lang}
}

func (s *tsStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	return s.extractWithOffset(ctx, absPath, relPath, source, 0)
}

// extractWithOffset is the same extraction, with every emitted line
// number shifted by lineOffset. Used by the Vue strategy to translate
// <script> block-local line numbers into SFC-file line numbers.
func (s *tsStrategy) extractWithOffset(ctx context.Context, absPath, relPath string, source []byte, lineOffset int) (Result, error) {
	parser := sitter.NewParser()
	if s.lang == LangTypeScript {
		parser.SetLanguage(typescript.GetLanguage())
	} else {
		parser.SetLanguage(javascript.GetLanguage())
	}
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()

	var res Result

	classNodes := boundedFind(root, set("class_declaration"), maxTraversalDepth)
	for _, n := range classNodes {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		base := tsClassBases(n, source)
		c := model.Component{
			ID:           ComponentID(relPath, "", name),
			Name:         name,
			Kind:         model.KindClass,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    startLine(n) + lineOffset,
			EndLine:      endLine(n) + lineOffset,
			SourceCode:   nodeText(n, source),
			BaseTypes:    base,
		}
		res.Components = append(res.Components, c)
		for _, b := range base {
			res.Edges = append(res.Edges, model.CallEdge{Caller: c.ID, Callee: b, Kind: model.EdgeExtends, Line: c.StartLine})
		}

		for _, m := range findNodes(n, set("method_definition")) {
			mn := m.ChildByFieldName("name")
			if mn == nil {
				continue
			}
			mname := nodeText(mn, source)
			res.Components = append(res.Components, model.Component{
				ID:             ComponentID(relPath, name, mname),
				Name:           mname,
				Kind:           model.KindMethod,
				FilePath:       absPath,
				RelativePath:   relPath,
				StartLine:      startLine(m) + lineOffset,
				EndLine:        endLine(m) + lineOffset,
				SourceCode:     nodeText(m, source),
				EnclosingClass: name,
			})
		}
	}

	for _, n := range boundedFind(root, set("interface_declaration"), maxTraversalDepth) {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		res.Components = append(res.Components, model.Component{
			ID:           ComponentID(relPath, "", name),
			Name:         name,
			Kind:         model.KindInterface,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    startLine(n) + lineOffset,
			EndLine:      endLine(n) + lineOffset,
			SourceCode:   nodeText(n, source),
		})
	}

	for _, n := range boundedFind(root, set("function_declaration"), maxTraversalDepth) {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		res.Components = append(res.Components, model.Component{
			ID:           ComponentID(relPath, "", name),
			Name:         name,
			Kind:         model.KindFunction,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    startLine(n) + lineOffset,
			EndLine:      endLine(n) + lineOffset,
			SourceCode:   nodeText(n, source),
		})
	}

	for _, n := range boundedFind(root, set("call_expression"), maxTraversalDepth) {
		calleeNode := n.ChildByFieldName("function")
		if calleeNode == nil {
			continue
		}
		calleeName := lastSelectorPart(nodeText(calleeNode, source))
		caller := tsEnclosingDef(n, source, relPath)
		if caller == "" {
			continue
		}
		res.Edges = append(res.Edges, model.CallEdge{
			Caller: caller,
			Callee: calleeName,
			Kind:   model.EdgeCalls,
			Line:   startLine(n) + lineOffset,
		})
	}

	return res, nil
}

func tsClassBases(n *sitter.Node, source []byte) []string {
	heritage := firstChildOfType(n, "class_heritage")
	if heritage == nil {
		return nil
	}
	var out []string
	for _, id := range findNodes(heritage, set("identifier", "type_identifier")) {
		out = append(out, nodeText(id, source))
	}
	return out
}

func tsEnclosingDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "function_declaration", "method_definition", "arrow_function", "function_expression")
	if def == nil {
		return ""
	}
	switch def.Type() {
	case "method_definition":
		mn := def.ChildByFieldName("name")
		if mn == nil {
			return ""
		}
		cls := enclosingOfType(def, "class_declaration")
		className := ""
		if cls != nil {
			if cn := cls.ChildByFieldName("name"); cn != nil {
				className = nodeText(cn, source)
			}
		}
		return ComponentID(relPath, className, nodeText(mn, source))
	case "function_declaration":
		nn := def.ChildByFieldName("name")
		if nn == nil {
			return ""
		}
		return ComponentID(relPath, "", nodeText(nn, source))
	default:
		return ""
	}
}

// boundedFind is findNodes with an explicit recursion-depth cap,
// returning whatever it found up to maxDepth rather than failing.
func boundedFind(root *sitter.Node, types map[string]bool, maxDepth int) []*sitter.Node {
	if root == nil {
		return nil
	}
	var out []*sitter.Node
	var walk func(*sitter.Node, int)
	walk = func(n *sitter.Node, depth int) {
		if n == nil || depth > maxDepth {
			return
		}
		if types[n.Type()] {
			out = append(out, n)
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			walk(n.Child(i), depth+1)
		}
	}
	walk(root, 0)
	return out
}
