package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"codedoc/internal/model"
)

// cStrategy extracts free functions and struct definitions from C
// sources. C has no classes, so every function is a top-level
// KindFunction; the graph builder treats pure-C repositories'
// functions as permitted leaf components.
type cStrategy struct{}

func (s *cStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(c.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()

	var res Result

	for _, n := range findNodes(root, set("function_definition")) {
		declarator := n.ChildByFieldName("declarator")
		if declarator == nil {
			continue
		}
		name := cDeclaratorName(declarator, source)
		if name == "" {
			continue
		}
		res.Components = append(res.Components, model.Component{
			ID:           ComponentID(relPath, "", name),
			Name:         name,
			Kind:         model.KindFunction,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    startLine(n),
			EndLine:      endLine(n),
			SourceCode:   nodeText(n, source),
		})
	}

	for _, n := range findNodes(root, set("struct_specifier")) {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		res.Components = append(res.Components, model.Component{
			ID:           ComponentID(relPath, "", name),
			Name:         name,
			Kind:         model.KindStruct,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    startLine(n),
			EndLine:      endLine(n),
			SourceCode:   nodeText(n, source),
		})
	}

	for _, n := range findNodes(root, set("call_expression")) {
		calleeNode := n.ChildByFieldName("function")
		if calleeNode == nil {
			continue
		}
		calleeName := nodeText(calleeNode, source)
		caller := cEnclosingDef(n, source, relPath)
		if caller == "" {
			continue
		}
		res.Edges = append(res.Edges, model.CallEdge{Caller: caller, Callee: calleeName, Kind: model.EdgeCalls, Line: startLine(n)})
	}

	return res, nil
}

// cDeclaratorName unwraps pointer_declarator/function_declarator
// wrappers to find the innermost identifier, e.g. "*foo(...)" -> "foo".
// The C++ strategy shares it, so the member-declarator node kinds
// (field_identifier, destructor_name, qualified out-of-line names) are
// recognized too; the C grammar simply never produces them.
func cDeclaratorName(n *sitter.Node, source []byte) string {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "destructor_name", "operator_name":
			return nodeText(n, source)
		case "qualified_identifier":
			if inner := n.ChildByFieldName("name"); inner != nil {
				n = inner
				continue
			}
			return ""
		case "function_declarator", "pointer_declarator", "parenthesized_declarator", "reference_declarator":
			if inner := n.ChildByFieldName("declarator"); inner != nil {
				n = inner
				continue
			}
			return ""
		default:
			return ""
		}
	}
	return ""
}

func cEnclosingDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "function_definition")
	if def == nil {
		return ""
	}
	declarator := def.ChildByFieldName("declarator")
	if declarator == nil {
		return ""
	}
	name := cDeclaratorName(declarator, source)
	if name == "" {
		return ""
	}
	return ComponentID(relPath, "", name)
}
