// Package cst wraps the external tree-sitter C parser behind the
// read-only node API the macro engine and the sandboxed `upp` runtime
// depend on. Node identity, byte ranges, and field access all mirror
// what tree-sitter already exposes natively (see MatAtBread/upp's own
// JS macros under original_source/, which call .childForFieldName,
// .text, .type, .startIndex directly on tree-sitter nodes); this
// package only adds stable per-parse ids and a Go-typed surface.
package cst

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Node is a read-only reference into the latest parse of a Tree. Node
// values are invalidated the moment the owning Tree is replaced by a
// re-parse; callers must not cache a Node across a phase boundary.
type Node struct {
	tree *Tree
	raw  *sitter.Node
	id   int
}

// Type returns the grammar node type, e.g. "compound_statement".
func (n *Node) Type() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.Type()
}

// Text returns the substring of the current source buffer this node
// spans.
func (n *Node) Text() string {
	if n == nil || n.raw == nil {
		return ""
	}
	return n.raw.Content(n.tree.source)
}

// StartByte returns the inclusive start offset of the node in the
// current source buffer.
func (n *Node) StartByte() int {
	if n == nil || n.raw == nil {
		return 0
	}
	return int(n.raw.StartByte())
}

// EndByte returns the exclusive end offset of the node in the current
// source buffer.
func (n *Node) EndByte() int {
	if n == nil || n.raw == nil {
		return 0
	}
	return int(n.raw.EndByte())
}

// ID is a stable identifier for this node within one parse. It is
// meaningless across re-parses.
func (n *Node) ID() int {
	if n == nil {
		return -1
	}
	return n.id
}

// Raw exposes the underlying tree-sitter node for packages (such as
// query) that must hand it to the tree-sitter C API directly.
func (n *Node) Raw() *sitter.Node {
	if n == nil {
		return nil
	}
	return n.raw
}

// Tree returns the Tree this node belongs to.
func (n *Node) Tree() *Tree {
	if n == nil {
		return nil
	}
	return n.tree
}

// Parent returns the enclosing node, or nil at the root.
func (n *Node) Parent() *Node {
	if n == nil || n.raw == nil {
		return nil
	}
	return n.tree.wrap(n.raw.Parent())
}

// ChildCount returns the number of direct children, named and
// anonymous (punctuation, keywords).
func (n *Node) ChildCount() int {
	if n == nil || n.raw == nil {
		return 0
	}
	return int(n.raw.ChildCount())
}

// Child returns the i-th direct child, or nil if out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || n.raw == nil || i < 0 || i >= n.ChildCount() {
		return nil
	}
	return n.tree.wrap(n.raw.Child(i))
}

// NamedChildCount returns the number of named (non-punctuation)
// children.
func (n *Node) NamedChildCount() int {
	if n == nil || n.raw == nil {
		return 0
	}
	return int(n.raw.NamedChildCount())
}

// NamedChild returns the i-th named child, or nil if out of range.
func (n *Node) NamedChild(i int) *Node {
	if n == nil || n.raw == nil || i < 0 || i >= n.NamedChildCount() {
		return nil
	}
	return n.tree.wrap(n.raw.NamedChild(i))
}

// Children returns every direct child in order.
func (n *Node) Children() []*Node {
	count := n.ChildCount()
	out := make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// NamedChildren returns every named direct child in order.
func (n *Node) NamedChildren() []*Node {
	count := n.NamedChildCount()
	out := make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// LastNamedChild returns the final named child, or nil if there are
// none.
func (n *Node) LastNamedChild() *Node {
	count := n.NamedChildCount()
	if count == 0 {
		return nil
	}
	return n.NamedChild(count - 1)
}

// FieldName returns the child bound to the given grammar field, or
// nil if the field is absent on this node.
func (n *Node) FieldName(name string) *Node {
	if n == nil || n.raw == nil {
		return nil
	}
	return n.tree.wrap(n.raw.ChildByFieldName(name))
}

// NextSibling returns the next sibling in the parent's child list,
// named or not, or nil at the end.
func (n *Node) NextSibling() *Node {
	if n == nil || n.raw == nil {
		return nil
	}
	return n.tree.wrap(n.raw.NextSibling())
}

// NextNamedSibling returns the next named sibling, or nil at the end.
func (n *Node) NextNamedSibling() *Node {
	if n == nil || n.raw == nil {
		return nil
	}
	return n.tree.wrap(n.raw.NextNamedSibling())
}

// IsNamed reports whether this node is a named (non-punctuation) node.
func (n *Node) IsNamed() bool {
	if n == nil || n.raw == nil {
		return false
	}
	return n.raw.IsNamed()
}

// IsComment reports whether this node is a comment, per the host
// grammar's "comment" node type.
func (n *Node) IsComment() bool {
	return n != nil && n.Type() == "comment"
}

// IsPreprocessor reports whether this node is a preprocessor
// directive (#include, #define, etc).
func (n *Node) IsPreprocessor() bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "preproc_include", "preproc_def", "preproc_function_def",
		"preproc_call", "preproc_ifdef", "preproc_if":
		return true
	default:
		return false
	}
}
