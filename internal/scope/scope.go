// Package scope implements the engine's lightweight identifier
// resolver: definition discovery, lexical scope walking, reference
// enumeration, and type-expression extraction backing the sandbox's
// getDefinition/findReferences/getType/getFunctionSignature calls.
// These are intentionally approximate (§4.5): they satisfy the macro
// API's needs, not full host-language semantic analysis.
package scope

import (
	"strings"

	"github.com/upplang/uppc/internal/cst"
)

var scopeBearing = map[string]bool{
	"compound_statement": true,
	"function_definition": true,
	"translation_unit":    true,
	"struct_specifier":    true,
	"union_specifier":     true,
	"enum_specifier":      true,
}

var declaratorWrappers = map[string]bool{
	"pointer_declarator":       true,
	"array_declarator":        true,
	"init_declarator":         true,
	"parenthesized_declarator": true,
	"function_declarator":      true,
}

// scopeBoundary is the subset of scopeBearing that findDefinitionInScope
// treats as opaque when descending: a nested block, record, or enum body
// starts a scope of its own and is never searched from outside it.
// function_definition is deliberately excluded — its signature (the
// function name itself) lives directly in the enclosing scope, with
// only its compound_statement body forming an actual boundary.
var scopeBoundary = map[string]bool{
	"compound_statement": true,
	"struct_specifier":   true,
	"union_specifier":    true,
	"enum_specifier":     true,
}

// IsDefinitionIdentifier reports whether n is an identifier that
// introduces a name: the innermost identifier of a declarator, a
// parameter declaration, a field declarator, or a type definition.
func IsDefinitionIdentifier(n *cst.Node) bool {
	if n == nil || (n.Type() != "identifier" && n.Type() != "field_identifier" && n.Type() != "type_identifier") {
		return false
	}
	p := n.Parent()
	for p != nil && declaratorWrappers[p.Type()] {
		p = p.Parent()
	}
	if p == nil {
		return false
	}
	switch p.Type() {
	case "declaration", "parameter_declaration", "field_declaration",
		"type_definition", "function_definition", "struct_specifier",
		"union_specifier", "enum_specifier":
		return true
	}
	return false
}

// enclosingScope returns the nearest scope-bearing ancestor of n,
// or the translation unit if none closer exists.
func enclosingScope(n *cst.Node) *cst.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if scopeBearing[p.Type()] {
			return p
		}
	}
	return nil
}

// Resolve walks outward from a reference identifier through enclosing
// scopes looking for a definition with the same spelling, returning
// the nearest one (lexical shadowing) or nil.
func Resolve(ref *cst.Node) *cst.Node {
	if ref == nil {
		return nil
	}
	name := ref.Text()
	for s := enclosingScope(ref); s != nil; s = enclosingScope(s) {
		if def := findDefinitionInScope(s, name, ref); def != nil {
			return def
		}
	}
	return nil
}

// findDefinitionInScope looks for the innermost definition of name
// directly within scope (not descending into nested scope-bearing
// children, since those form their own scope), preferring the
// textually closest preceding definition to approximate shadowing by
// re-declaration within the same block.
func findDefinitionInScope(scopeNode *cst.Node, name string, before *cst.Node) *cst.Node {
	var best *cst.Node
	var walk func(n *cst.Node)
	walk = func(n *cst.Node) {
		if n == nil {
			return
		}
		if n != scopeNode && scopeBoundary[n.Type()] {
			return
		}
		if IsDefinitionIdentifier(n) && n.Text() == name {
			if n.StartByte() <= before.StartByte() {
				if best == nil || n.StartByte() > best.StartByte() {
					best = n
				}
			} else if best == nil {
				// A definition later in the same scope (e.g. a forward
				// function declarator) still counts when nothing earlier
				// matched.
				best = n
			}
		}
		for _, c := range n.NamedChildren() {
			walk(c)
		}
	}
	walk(scopeNode)
	return best
}

// FindReferences enumerates every identifier in the translation unit
// that resolves (via Resolve) to def.
func FindReferences(root, def *cst.Node) []*cst.Node {
	var out []*cst.Node
	name := def.Text()
	cst.Walk(root, func(n *cst.Node) {
		if n.Type() != "identifier" && n.Type() != "field_identifier" {
			return
		}
		if n.Text() != name {
			return
		}
		if IsDefinitionIdentifier(n) {
			if n.ID() == def.ID() {
				out = append(out, n)
			}
			return
		}
		if r := Resolve(n); r != nil && r.ID() == def.ID() {
			out = append(out, n)
		}
	})
	return out
}

// GetType extracts a textual type expression for a definition
// identifier by ascending its declarator wrappers (collecting pointer
// stars and array brackets into a suffix) and reading the enclosing
// declaration's type field plus any qualifier/storage-class prefix.
// Falls back to "void *" when the structure isn't recognized.
func GetType(def *cst.Node) string {
	if def == nil {
		return "void *"
	}
	suffix := ""
	n := def
	for p := n.Parent(); p != nil; p = n.Parent() {
		switch p.Type() {
		case "pointer_declarator":
			suffix = "*" + suffix
			n = p
			continue
		case "array_declarator":
			suffix = suffix + "[]"
			n = p
			continue
		case "init_declarator", "parenthesized_declarator":
			n = p
			continue
		}
		break
	}
	decl := n.Parent()
	for decl != nil && decl.Type() != "declaration" && decl.Type() != "parameter_declaration" &&
		decl.Type() != "field_declaration" {
		decl = decl.Parent()
	}
	if decl == nil {
		return "void *"
	}
	typeNode := decl.FieldName("type")
	if typeNode == nil {
		return "void *"
	}
	var prefix []string
	for _, c := range decl.NamedChildren() {
		if c.ID() == typeNode.ID() {
			break
		}
		switch c.Type() {
		case "type_qualifier", "storage_class_specifier":
			prefix = append(prefix, c.Text())
		}
	}
	parts := append(append([]string{}, prefix...), typeNode.Text())
	result := strings.Join(parts, " ")
	if suffix != "" {
		result += " " + suffix
	}
	return result
}

// FunctionSignature is the decomposed shape getFunctionSignature
// returns to macros. Params is the parenthesized parameter list
// verbatim (e.g. "(int x, char *y)"), since macros splice it directly
// after a generated name to rebuild a declaration.
type FunctionSignature struct {
	ReturnType string
	Name       string
	Params     string
}

// GetFunctionSignature extracts a function definition's return type,
// name, and parenthesized parameter list (names included, verbatim).
func GetFunctionSignature(fn *cst.Node) FunctionSignature {
	var sig FunctionSignature
	if fn == nil || fn.Type() != "function_definition" {
		return sig
	}
	if t := fn.FieldName("type"); t != nil {
		sig.ReturnType = t.Text()
	}
	declarator := fn.FieldName("declarator")
	for declarator != nil && declarator.Type() == "pointer_declarator" {
		sig.ReturnType += "*"
		declarator = declarator.FieldName("declarator")
	}
	if declarator == nil {
		return sig
	}
	if id := declarator.FieldName("declarator"); id != nil {
		sig.Name = id.Text()
	}
	if params := declarator.FieldName("parameters"); params != nil {
		sig.Params = params.Text()
	}
	return sig
}
