package sandbox

import "github.com/upplang/uppc/internal/cst"

// jsNode is the JS-facing view of a CST node. Field names mirror the
// property names macro bodies address directly — type, text,
// startIndex, endIndex, level, childCount, namedChildCount — while the
// navigation helpers (parent, children, namedChildren, lastNamedChild,
// childForFieldName, child, nextSibling, ...) are exported methods,
// which goja exposes as callable functions, so macros call them with
// parentheses (n.parent(), not n.parent). A runtime-wide
// FieldNameMapper (see bridge.go) lowercases the first letter of both
// so Go's exported-identifier rule produces the JS names macros
// expect.
type jsNode struct {
	Type            string
	Text            string
	StartIndex      int
	EndIndex        int
	Level           int
	ChildCount      int
	NamedChildCount int

	raw  *cst.Node
	host *Bridge
}

func (n *jsNode) ChildForFieldName(name string) *jsNode {
	if n == nil {
		return nil
	}
	return n.host.wrap(n.raw.FieldName(name), n.Level+1)
}

func (n *jsNode) Child(i int) *jsNode {
	if n == nil {
		return nil
	}
	return n.host.wrap(n.raw.Child(i), n.Level+1)
}

func (n *jsNode) NamedChild(i int) *jsNode {
	if n == nil {
		return nil
	}
	return n.host.wrap(n.raw.NamedChild(i), n.Level+1)
}

func (n *jsNode) Parent() *jsNode {
	if n == nil {
		return nil
	}
	lvl := n.Level - 1
	if lvl < 0 {
		lvl = 0
	}
	return n.host.wrap(n.raw.Parent(), lvl)
}

func (n *jsNode) Children() []*jsNode {
	if n == nil {
		return nil
	}
	kids := n.raw.Children()
	out := make([]*jsNode, len(kids))
	for i, k := range kids {
		out[i] = n.host.wrap(k, n.Level+1)
	}
	return out
}

func (n *jsNode) NamedChildren() []*jsNode {
	if n == nil {
		return nil
	}
	kids := n.raw.NamedChildren()
	out := make([]*jsNode, len(kids))
	for i, k := range kids {
		out[i] = n.host.wrap(k, n.Level+1)
	}
	return out
}

func (n *jsNode) LastNamedChild() *jsNode {
	if n == nil {
		return nil
	}
	return n.host.wrap(n.raw.LastNamedChild(), n.Level+1)
}

func (n *jsNode) NextSibling() *jsNode {
	if n == nil {
		return nil
	}
	return n.host.wrap(n.raw.NextSibling(), n.Level)
}

func (n *jsNode) NextNamedSibling() *jsNode {
	if n == nil {
		return nil
	}
	return n.host.wrap(n.raw.NextNamedSibling(), n.Level)
}

// raw is exposed internally (lowercase, so goja never reflects it)
// for native upp functions that need the underlying *cst.Node, e.g.
// consume, replace, findEnclosing.
func (n *jsNode) node() *cst.Node {
	if n == nil {
		return nil
	}
	return n.raw
}
