package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// findNodes returns every descendant of root (root included) whose
// node type is in types, in document order.
func findNodes(root *sitter.Node, types map[string]bool) []*sitter.Node {
	if root == nil || len(types) == 0 {
		return nil
	}
	var out []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if types[n.Type()] {
			out = append(out, n)
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return out
}

// set builds a membership map from a variadic list of node-type names.
func set(types ...string) map[string]bool {
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// nodeText returns the verbatim source span of n.
func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return string(source[n.StartByte():n.EndByte()])
}

// startLine returns n's 1-indexed start line.
func startLine(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// endLine returns n's 1-indexed end line.
func endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

// firstChildOfType returns the first direct child of n matching any
// name in types, or nil.
func firstChildOfType(n *sitter.Node, types ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	want := set(types...)
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c != nil && want[c.Type()] {
			return c
		}
	}
	return nil
}

// enclosingOfType walks n's ancestor chain looking for the nearest
// enclosing node whose type is in types.
func enclosingOfType(n *sitter.Node, types ...string) *sitter.Node {
	want := set(types...)
	for p := n.Parent(); p != nil; p = p.Parent() {
		if want[p.Type()] {
			return p
		}
	}
	return nil
}

// precedingComment returns the immediately preceding sibling's text
// if its node type is in commentTypes, else "".
func precedingComment(n *sitter.Node, source []byte, commentTypes ...string) string {
	want := set(commentTypes...)
	parent := n.Parent()
	if parent == nil {
		return ""
	}
	count := int(parent.ChildCount())
	for i := 0; i < count; i++ {
		if parent.Child(i) == n {
			if i == 0 {
				return ""
			}
			prev := parent.Child(i - 1)
			if prev != nil && want[prev.Type()] && endLine(prev) == startLine(n)-1 {
				return nodeText(prev, source)
			}
			return ""
		}
	}
	return ""
}
