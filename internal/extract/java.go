package extract

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"codedoc/internal/model"
)

// javaStrategy captures classes, interfaces, enums, records, and
// annotations as first-class kinds, plus extends/implements and
// method-invocation/constructor edges.
type javaStrategy struct{}

func (s *javaStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()

	var res Result
	typeDeclTypes := map[string]model.Kind{
		"class_declaration":           model.KindClass,
		"interface_declaration":       model.KindInterface,
		"enum_declaration":            model.KindEnum,
		"record_declaration":          model.KindRecord,
		"annotation_type_declaration": model.KindAnnotation,
	}

	for nodeType, kind := range typeDeclTypes {
		for _, n := range findNodes(root, set(nodeType)) {
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, source)
			c := model.Component{
				ID:           ComponentID(relPath, "", name),
				Name:         name,
				Kind:         kind,
				FilePath:     absPath,
				RelativePath: relPath,
				StartLine:    startLine(n),
				EndLine:      endLine(n),
				SourceCode:   nodeText(n, source),
				BaseTypes:    javaSuperAndInterfaces(n, source),
			}
			res.Components = append(res.Components, c)
			implemented := make(map[string]bool)
			if ifaces := n.ChildByFieldName("interfaces"); ifaces != nil {
				for _, id := range findNodes(ifaces, set("type_identifier")) {
					implemented[nodeText(id, source)] = true
				}
			}
			for _, b := range c.BaseTypes {
				edgeKind := model.EdgeExtends
				if implemented[b] {
					edgeKind = model.EdgeImplements
				}
				res.Edges = append(res.Edges, model.CallEdge{Caller: c.ID, Callee: b, Kind: edgeKind, Line: c.StartLine})
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

	for _, n := range findNodes(root, set("method_invocation", "object_creation_expression")) {
		var calleeName string
		if n.Type() == "method_invocation" {
			mn := n.ChildByFieldName("name")
			if mn == nil {
				continue
			}
			calleeName = nodeText(mn, source)
		} else {
			tn := n.ChildByFieldName("type")
			if tn == nil {
				continue
			}
			calleeName = nodeText(tn, source)
		}
		caller := javaEnclosingDef(n, source, relPath)
		if caller == "" {
			continue
		}
		kind := model.EdgeCalls
		res.Edges = append(res.Edges, model.CallEdge{Caller: caller, Callee: calleeName, Kind: kind, Line: startLine(n)})
	}

	return res, nil
}

func javaSuperAndInterfaces(n *sitter.Node, source []byte) []string {
	var out []string
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		for _, id := range findNodes(sc, set("type_identifier")) {
			out = append(out, nodeText(id, source))
		}
	}
	if ifaces := n.ChildByFieldName("interfaces"); ifaces != nil {
		for _, id := range findNodes(ifaces, set("type_identifier")) {
			out = append(out, nodeText(id, source))
		}
	}
	return out
}

func javaEnclosingDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "method_declaration", "constructor_declaration")
	if def == nil {
		return ""
	}
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	cls := enclosingOfType(def, "class_declaration", "interface_declaration", "enum_declaration", "record_declaration")
	className := ""
	if cls != nil {
		if cn := cls.ChildByFieldName("name"); cn != nil {
			className = nodeText(cn, source)
		}
	}
	return ComponentID(relPath, className, nodeText(nameNode, source))
}
