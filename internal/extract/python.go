package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"codedoc/internal/model"
)

// pythonStrategy extracts Python classes, functions, and methods via
// the tree-sitter Python grammar, driven through the same generic
// traversal engine as every other grammar-backed language.
type pythonStrategy struct{}

func (s *pythonStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()

	var res Result

	for _, n := range findNodes(root, set("class_definition")) {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		base := pythonClassBases(n, source)
		c := model.Component{
			ID:           ComponentID(relPath, "", name),
			Name:         name,
			Kind:         model.KindClass,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    startLine(n),
			EndLine:      endLine(n),
			SourceCode:   nodeText(n, source),
			Docstring:    pythonDocstring(n, source),
			BaseTypes:    base,
		}
		c.HasDoc = c.Docstring != ""
		res.Components = append(res.Components, c)

		for _, b := range base {
			res.Edges = append(res.Edges, model.CallEdge{
				Caller: c.ID,
				Callee: b,
				Kind:   model.EdgeExtends,
				Line:   startLine(n),
			})
		}
	}

	for _, n := range findNodes(root, set("function_definition")) {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		enclosing := pythonEnclosingClassName(n, source)
		kind := model.KindFunction
		if enclosing != "" {
			kind = model.KindMethod
		}
		c := model.Component{
			ID:             ComponentID(relPath, enclosing, name),
			Name:           name,
			Kind:           kind,
			FilePath:       absPath,
			RelativePath:   relPath,
			StartLine:      startLine(n),
			EndLine:        endLine(n),
			SourceCode:     nodeText(n, source),
			Docstring:      pythonDocstring(n, source),
			Parameters:     pythonParameters(n, source),
			EnclosingClass: enclosing,
		}
		c.HasDoc = c.Docstring != ""
		res.Components = append(res.Components, c)
	}

	for _, n := range findNodes(root, set("call")) {
		calleeNode := n.ChildByFieldName("function")
		if calleeNode == nil {
			continue
		}
		calleeName := lastSelectorPart(nodeText(calleeNode, source))
		caller := pythonEnclosingDef(n, source, relPath)
		if caller == "" {
			continue
		}
		res.Edges = append(res.Edges, model.CallEdge{
			Caller: caller,
			Callee: calleeName,
			Kind:   model.EdgeCalls,
			Line:   startLine(n),
		})
	}

	return res, nil
}

func pythonClassBases(n *sitter.Node, source []byte) []string {
	superclasses := n.ChildByFieldName("superclasses")
	if superclasses == nil {
		return nil
	}
	var out []string
	count := int(superclasses.ChildCount())
	for i := 0; i < count; i++ {
		c := superclasses.Child(i)
		if c != nil && c.Type() == "identifier" {
			out = append(out, nodeText(c, source))
		}
	}
	return out
}

func pythonDocstring(def *sitter.Node, source []byte) string {
	body := def.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Type() != "expression_statement" {
		return ""
	}
	if first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str == nil || str.Type() != "string" {
		return ""
	}
	return strings.Trim(strings.TrimSpace(nodeText(str, source)), "\"'")
}

func pythonParameters(fn *sitter.Node, source []byte) []model.Parameter {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []model.Parameter
	count := int(params.ChildCount())
	for i := 0; i < count; i++ {
		p := params.Child(i)
		if p == nil {
			continue
		}
		switch p.Type() {
		case "identifier":
			out = append(out, model.Parameter{Name: nodeText(p, source)})
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			nameNode := firstChildOfType(p, "identifier")
			typeNode := p.ChildByFieldName("type")
			param := model.Parameter{}
			if nameNode != nil {
				param.Name = nodeText(nameNode, source)
			}
			if typeNode != nil {
				param.Type = nodeText(typeNode, source)
			}
			if param.Name != "" {
				out = append(out, param)
			}
		}
	}
	return out
}

// pythonEnclosingClassName returns the bare name of the nearest class
// containing fn, or "" if fn is module-level.
func pythonEnclosingClassName(fn *sitter.Node, source []byte) string {
	cls := enclosingOfType(fn, "class_definition")
	if cls == nil {
		return ""
	}
	nameNode := cls.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return nodeText(nameNode, source)
}

// pythonEnclosingDef returns the ComponentID of the function or
// method that textually contains n.
func pythonEnclosingDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "function_definition")
	if def == nil {
		return ""
	}
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nodeText(nameNode, source)
	enclosing := pythonEnclosingClassName(def, source)
	return ComponentID(relPath, enclosing, name)
}
