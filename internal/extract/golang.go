package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"codedoc/internal/model"
)

// goStrategy extracts Go functions, methods, and type declarations.
// Method receivers are normalized (pointer stripped, generics
// stripped) before forming the Type.method id.
type goStrategy struct{}

func (s *goStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()

	var res Result
	byID := make(map[string]*model.Component)

	// Pass 1: type declarations (struct/interface) and top-level functions/methods.
	for _, n := range findNodes(root, set("type_declaration")) {
		spec := firstChildOfType(n, "type_spec")
		if spec == nil {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		kind := model.KindStruct
		if firstChildOfType(spec, "interface_type") != nil {
			kind = model.KindInterface
		}
		c := model.Component{
			ID:           ComponentID(relPath, "", name),
			Name:         name,
			Kind:         kind,
			FilePath:     absPath,
			RelativePath: relPath,
			StartLine:    startLine(n),
			EndLine:      endLine(n),
			SourceCode:   nodeText(n, source),
			Docstring:    strings.TrimSpace(precedingComment(n, source, "comment")),
		}
		c.HasDoc = c.Docstring != ""
		byID[c.ID] = &c
		res.Components = append(res.Components, c)
	}

	for _, n := range findNodes(root, set("function_declaration", "method_declaration")) {
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, source)
		enclosing := ""
		kind := model.KindFunction
		if n.Type() == "method_declaration" {
			kind = model.KindMethod
			enclosing = goReceiverType(n, source)
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
			Docstring:      strings.TrimSpace(precedingComment(n, source, "comment")),
			Parameters:     goParameters(n, source),
			EnclosingClass: enclosing,
		}
		c.HasDoc = c.Docstring != ""
		byID[c.ID] = &c
		res.Components = append(res.Components, c)
	}

	// Pass 2: call sites.
	for _, n := range findNodes(root, set("call_expression")) {
		calleeNode := n.ChildByFieldName("function")
		if calleeNode == nil {
			continue
		}
		calleeName := lastSelectorPart(nodeText(calleeNode, source))
		caller := enclosingGoDef(n, source, relPath)
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

// goReceiverType returns the normalized receiver type name of a
// method_declaration: pointer and generic-parameter syntax stripped.
func goReceiverType(method *sitter.Node, source []byte) string {
	receiver := method.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	// receiver is a parameter_list with one parameter_declaration.
	count := int(receiver.ChildCount())
	for i := 0; i < count; i++ {
		param := receiver.Child(i)
		if param == nil || param.Type() != "parameter_declaration" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		return goExtractTypeName(typeNode, source)
	}
	return ""
}

func goExtractTypeName(typeNode *sitter.Node, source []byte) string {
	n := typeNode
	if n.Type() == "pointer_type" && n.ChildCount() > 0 {
		// pointer_type := "*" type; the pointee is the last child.
		if inner := n.Child(int(n.ChildCount()) - 1); inner != nil {
			n = inner
		}
	}
	name := nodeText(n, source)
	// strip generic instantiation, e.g. Foo[T] -> Foo
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return strings.TrimPrefix(name, "*")
}

func goParameters(fn *sitter.Node, source []byte) []model.Parameter {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []model.Parameter
	count := int(params.ChildCount())
	for i := 0; i < count; i++ {
		decl := params.Child(i)
		if decl == nil || decl.Type() != "parameter_declaration" {
			continue
		}
		typeNode := decl.ChildByFieldName("type")
		typeName := ""
		if typeNode != nil {
			typeName = nodeText(typeNode, source)
		}
		nameCount := int(decl.ChildCount())
		found := false
		for j := 0; j < nameCount; j++ {
			child := decl.Child(j)
			if child != nil && child.Type() == "identifier" {
				out = append(out, model.Parameter{Name: nodeText(child, source), Type: typeName})
				found = true
			}
		}
		if !found {
			out = append(out, model.Parameter{Type: typeName})
		}
	}
	return out
}

// enclosingGoDef returns the ComponentID of the function or method
// that textually contains n, or "" at package scope.
func enclosingGoDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "function_declaration", "method_declaration")
	if def == nil {
		return ""
	}
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	name := nodeText(nameNode, source)
	enclosing := ""
	if def.Type() == "method_declaration" {
		enclosing = goReceiverType(def, source)
	}
	return ComponentID(relPath, enclosing, name)
}

// lastSelectorPart reduces "pkg.Foo" or "recv.Method" to "Foo"/"Method";
// the caller's enclosing component carries the qualifying context and
// global resolution happens in the graph builder.
func lastSelectorPart(expr string) string {
	if i := strings.LastIndexByte(expr, '.'); i >= 0 {
		return expr[i+1:]
	}
	return expr
}
