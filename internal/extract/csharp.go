package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"codedoc/internal/model"
)

// csharpStrategy captures classes, interfaces, structs, and records,
// their method members, and base-list/invocation edges.
type csharpStrategy struct{}

func (s *csharpStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()

	var res Result
	typeKinds := map[string]model.Kind{
		"class_declaration":     model.KindClass,
		"interface_declaration": model.KindInterface,
		"struct_declaration":    model.KindStruct,
		"record_declaration":    model.KindRecord,
		"enum_declaration":      model.KindEnum,
	}

	for nodeType, kind := range typeKinds {
		for _, n := range findNodes(root, set(nodeType)) {
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, source)
			base := csharpBaseList(n, source)
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
				res.Edges = append(res.Edges, model.CallEdge{Caller: c.ID, Callee: b, Kind: model.EdgeImplements, Line: c.StartLine})
			}

			for _, m := range findNodes(n, set("method_declaration", "constructor_declaration")) {
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
					StartLine:      startLine(m),
					EndLine:        endLine(m),
					SourceCode:     nodeText(m, source),
					EnclosingClass: name,
				})
			}
		}
	}

	for _, n := range findNodes(root, set("invocation_expression", "object_creation_expression")) {
		var calleeName string
		if n.Type() == "invocation_expression" {
			fn := n.ChildByFieldName("function")
			if fn == nil {
				continue
			}
			calleeName = lastSelectorPart(nodeText(fn, source))
		} else {
			tn := n.ChildByFieldName("type")
			if tn == nil {
				continue
			}
			calleeName = nodeText(tn, source)
		}
		caller := csharpEnclosingDef(n, source, relPath)
		if caller == "" {
			continue
		}
		res.Edges = append(res.Edges, model.CallEdge{Caller: caller, Callee: calleeName, Kind: model.EdgeCalls, Line: startLine(n)})
	}

	return res, nil
}

func csharpBaseList(n *sitter.Node, source []byte) []string {
	bases := firstChildOfType(n, "base_list")
	if bases == nil {
		return nil
	}
	var out []string
	for _, id := range findNodes(bases, set("identifier")) {
		out = append(out, nodeText(id, source))
	}
	return out
}

func csharpEnclosingDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "method_declaration", "constructor_declaration")
	if def == nil {
		return ""
	}
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	cls := enclosingOfType(def, "class_declaration", "struct_declaration", "interface_declaration", "record_declaration")
	className := ""
	if cls != nil {
		if cn := cls.ChildByFieldName("name"); cn != nil {
			className = nodeText(cn, source)
		}
	}
	return ComponentID(relPath, className, nodeText(nameNode, source))
}
