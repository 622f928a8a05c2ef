package engine

import "github.com/upplang/uppc/internal/cst"

// scopeContainers are the grammar node types a context-node search
// never climbs past: once the walk reaches one, the candidate found
// just below it is the answer.
var scopeContainers = map[string]bool{
	"translation_unit":   true,
	"compound_statement": true,
}

// statementLike are node types that already stand on their own as a
// statement, declaration, or top-level form; the search stops
// climbing once it reaches one of these, rather than continuing up
// to its parent block.
var statementLike = map[string]bool{
	"declaration":            true,
	"field_declaration":      true,
	"function_definition":    true,
	"expression_statement":   true,
	"if_statement":           true,
	"for_statement":          true,
	"while_statement":        true,
	"do_statement":           true,
	"return_statement":       true,
	"break_statement":        true,
	"continue_statement":     true,
	"goto_statement":         true,
	"labeled_statement":      true,
	"switch_statement":       true,
	"case_statement":         true,
	"preproc_include":        true,
	"preproc_def":            true,
	"preproc_function_def":   true,
	"preproc_call":           true,
	"preproc_ifdef":          true,
	"preproc_if":             true,
	"type_definition":        true,
	"struct_specifier":       true,
	"enum_specifier":         true,
	"union_specifier":        true,
	"parameter_declaration":  true,
	"linkage_specification":  true,
}

// BindContext resolves the context node for an invocation spanning
// [invStart, invEnd) of root's tree, per §4.1's dual rule:
//
//   - if the invocation sits inside a declaration/statement that
//     already opened before it (it occupies a specifier position),
//     bind to that enclosing construct;
//   - otherwise bind to the next sibling statement, declaration, or
//     top-level form.
//
// Both reduce to the same walk: find the narrowest named node
// starting at or after invEnd, then climb while the parent also
// started at or before invStart (meaning the invocation is nested
// inside it, not merely preceding it), stopping at a scope boundary
// or once the current candidate is already statement-like. Returns
// nil if no node follows the invocation.
func BindContext(root *cst.Node, invStart, invEnd int) *cst.Node {
	leaf := narrowestNodeAtOrAfter(root, invEnd)
	if leaf == nil {
		return nil
	}
	node := leaf
	for {
		if statementLike[node.Type()] {
			break
		}
		parent := node.Parent()
		if parent == nil || scopeContainers[parent.Type()] {
			break
		}
		if parent.StartByte() <= invStart {
			node = parent
			continue
		}
		if statementLike[parent.Type()] {
			node = parent
		}
		break
	}
	return node
}

// narrowestNodeAtOrAfter finds the named node with the smallest
// StartByte >= at, preferring the most specific (smallest span) node
// among ties at that start position.
func narrowestNodeAtOrAfter(root *cst.Node, at int) *cst.Node {
	var best *cst.Node
	var bestSpan int
	cst.Walk(root, func(n *cst.Node) {
		if !n.IsNamed() {
			return
		}
		if n.StartByte() < at {
			return
		}
		span := n.EndByte() - n.StartByte()
		switch {
		case best == nil:
			best, bestSpan = n, span
		case n.StartByte() < best.StartByte():
			best, bestSpan = n, span
		case n.StartByte() == best.StartByte() && span < bestSpan:
			best, bestSpan = n, span
		}
	})
	return best
}
