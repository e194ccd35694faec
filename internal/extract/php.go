package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"codedoc/internal/model"
)

// templateSkipSuffixes and templateSkipDirs exclude view-template
// files that happen to carry a .php extension but hold no analyzable
// component structure.
var templateSkipSuffixes = []string{".blade.php", ".phtml", ".twig.php"}
var templateSkipDirs = []string{"views/", "templates/", "resources/views/"}

func phpShouldSkip(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, suf := range templateSkipSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	for _, dir := range templateSkipDirs {
		if strings.Contains(lower, dir) {
			return true
		}
	}
	return false
}

// namespaceResolver converts short type references to fully-qualified
// names using a file's namespace and use declarations.
type namespaceResolver struct {
	namespace string
	uses      map[string]string // short name -> fully-qualified name
}

func newNamespaceResolver(root *sitter.Node, source []byte) *namespaceResolver {
	r := &namespaceResolver{uses: make(map[string]string)}
	if ns := firstChildOfType(root, "namespace_definition"); ns != nil {
		if nameNode := ns.ChildByFieldName("name"); nameNode != nil {
			r.namespace = nodeText(nameNode, source)
		}
	}
	for _, use := range findNodes(root, set("namespace_use_declaration")) {
		for _, clause := range findNodes(use, set("namespace_use_clause")) {
			nameNode := clause.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			fq := nodeText(nameNode, source)
			short := fq
			if i := strings.LastIndexByte(fq, '\\'); i >= 0 {
				short = fq[i+1:]
			}
			if aliasNode := clause.ChildByFieldName("alias"); aliasNode != nil {
				short = nodeText(aliasNode, source)
			}
			r.uses[short] = fq
		}
	}
	return r
}

func (r *namespaceResolver) resolve(name string) string {
	if name == "" {
		return name
	}
	if strings.HasPrefix(name, "\\") {
		return strings.TrimPrefix(name, "\\")
	}
	if fq, ok := r.uses[name]; ok {
		return fq
	}
	if r.namespace != "" {
		return r.namespace + "\\" + name
	}
	return name
}

// phpStrategy extracts PHP classes, interfaces, traits, enums, their
// methods, and call/instantiation edges, resolving base types and
// callee names against the file's namespace/use context.
type phpStrategy struct{}

func (s *phpStrategy) Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error) {
	if phpShouldSkip(relPath) {
		return Result{}, nil
	}
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Result{}, nil
	}
	root := tree.RootNode()
	resolver := newNamespaceResolver(root, source)

	var res Result
	typeKinds := map[string]model.Kind{
		"class_declaration":     model.KindClass,
		"interface_declaration": model.KindInterface,
		"trait_declaration":     model.KindTrait,
		"enum_declaration":      model.KindEnum,
	}

	for nodeType, kind := range typeKinds {
		for _, n := range findNodes(root, set(nodeType)) {
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := nodeText(nameNode, source)
			base := phpBaseTypes(n, source, resolver)
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
				edgeKind := model.EdgeExtends
				if nodeType == "interface_declaration" {
					edgeKind = model.EdgeImplements
				}
				res.Edges = append(res.Edges, model.CallEdge{Caller: c.ID, Callee: b, Kind: edgeKind, Line: c.StartLine})
			}

			for _, m := range findNodes(n, set("method_declaration")) {
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

	for _, n := range findNodes(root, set("function_definition")) {
		if enclosingOfType(n, "class_declaration", "interface_declaration", "trait_declaration") != nil {
			continue
		}
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
			StartLine:    startLine(n),
			EndLine:      endLine(n),
			SourceCode:   nodeText(n, source),
		})
	}

	for _, n := range findNodes(root, set("function_call_expression", "object_creation_expression")) {
		var calleeName string
		if n.Type() == "function_call_expression" {
			fn := n.ChildByFieldName("function")
			if fn == nil {
				continue
			}
			calleeName = resolver.resolve(lastSelectorPart(nodeText(fn, source)))
		} else {
			tn := n.ChildByFieldName("class")
			if tn == nil {
				continue
			}
			calleeName = resolver.resolve(nodeText(tn, source))
		}
		caller := phpEnclosingDef(n, source, relPath)
		if caller == "" {
			continue
		}
		res.Edges = append(res.Edges, model.CallEdge{Caller: caller, Callee: calleeName, Kind: model.EdgeCalls, Line: startLine(n)})
	}

	return res, nil
}

func phpBaseTypes(n *sitter.Node, source []byte, resolver *namespaceResolver) []string {
	var out []string
	if base := n.ChildByFieldName("base_clause"); base != nil {
		for _, id := range findNodes(base, set("name", "qualified_name")) {
			out = append(out, resolver.resolve(nodeText(id, source)))
		}
	}
	if iface := firstChildOfType(n, "class_interface_clause"); iface != nil {
		for _, id := range findNodes(iface, set("name", "qualified_name")) {
			out = append(out, resolver.resolve(nodeText(id, source)))
		}
	}
	return out
}

func phpEnclosingDef(n *sitter.Node, source []byte, relPath string) string {
	def := enclosingOfType(n, "method_declaration", "function_definition")
	if def == nil {
		return ""
	}
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	className := ""
	if cls := enclosingOfType(def, "class_declaration", "interface_declaration", "trait_declaration"); cls != nil {
		if cn := cls.ChildByFieldName("name"); cn != nil {
			className = nodeText(cn, source)
		}
	}
	return ComponentID(relPath, className, nodeText(nameNode, source))
}
