package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"codedoc/internal/model"
)

// cppStrategy extracts classes/structs, their methods, and free
// functions, plus call and constructor-invocation edges.
type cppStrategy struct{}

func (s *cppStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()

	var res Result
	classKinds := map[string]model.Kind{
		"class_specifier":  model.KindClass,
		"struct_specifier": model.KindStruct,
	}

	for nodeType, kind := range classKinds {
		for _, n := range findNodes(root, set(nodeType)) {
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, source)
			base := cppBaseClasses(n, source)
			c := model.Component{
				ID:           ComponentID(relPath, "", name),
				Name:         name,
				Kind:         kind,
				FilePath:     absPath,
				RelativePath: relPath,
				StartLine:    startLine(n),
				EndLine:      endLine(n),
				SourceCode:   nodeText(n, source),
				BaseTypes:    base,
			}
			res.Components = append(res.Components, c)
			for _, b := range base {
				res.Edges = append(res.Edges, model.CallEdge{Caller: c.ID, Callee: b, Kind: model.EdgeExtends, Line: c.StartLine})
			}

			for _, m := range findNodes(n, set("function_definition")) {
				declarator := cppFunctionDeclarator(m)
				if declarator == nil {
					continue
				}
				mname := cDeclaratorName(declarator, source)
				if mname == "" {
					continue
				}
				res.Components = append(res.Components, model.Component{
					ID:             ComponentID(relPath, name, mname),
					Name:           mname,
					Kind:           model.KindMethod,
					FilePath:       absPath,
					RelativePath:   relPath,
					StartLine:      startLine(m),
					EndLine:        endLine(m),
					SourceCode:     nodeText(m, source),
					EnclosingClass: name,
				})
			}
		}
	}

	for _, n := range findNodes(root, set("function_definition")) {
		if enclosingOfType(n, "class_specifier", "struct_specifier") != nil {
			continue
		}
		declarator := cppFunctionDeclarator(n)
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

	for _, n := range findNodes(root, set("call_expression", "new_expression")) {
		var calleeName string
		if n.Type() == "call_expression" {
			calleeNode := n.ChildByFieldName("function")
			if calleeNode == nil {
				continue
			}
			calleeName = lastSelectorPart(nodeText(calleeNode, source))
		} else {
			typeNode := n.ChildByFieldName("type")
			if typeNode == nil {
				continue
			}
			calleeName = nodeText(typeNode, source)
		}
		caller := cppEnclosingDef(n, source, relPath)
		if caller == "" {
			continue
		}
		res.Edges = append(res.Edges, model.CallEdge{Caller: caller, Callee: calleeName, Kind: model.EdgeCalls, Line: startLine(n)})
	}

	return res, nil
}

func cppBaseClasses(n *sitter.Node, source []byte) []string {
	clause := firstChildOfType(n, "base_class_clause")
	if clause == nil {
		return nil
	}
	var out []string
	for _, id := range findNodes(clause, set("type_identifier")) {
		out = append(out, nodeText(id, source))
	}
	return out
}

func cppFunctionDeclarator(fn *sitter.Node) *sitter.Node {
	declarator := fn.ChildByFieldName("declarator")
	for declarator != nil && declarator.Type() != "function_declarator" {
		if inner := declarator.ChildByFieldName("declarator"); inner != nil {
			declarator = inner
			continue
		}
		break
	}
	return declarator
}

func cppEnclosingDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "function_definition")
	if def == nil {
		return ""
	}
	declarator := cppFunctionDeclarator(def)
	if declarator == nil {
		return ""
	}
	name := cDeclaratorName(declarator, source)
	if name == "" {
		return ""
	}
	className := ""
	if cls := enclosingOfType(def, "class_specifier", "struct_specifier"); cls != nil {
		if cn := cls.ChildByFieldName("name"); cn != nil {
			className = nodeText(cn, source)
		}
	}
	return ComponentID(relPath, className, name)
}
