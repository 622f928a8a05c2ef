package engine

import (
	"github.com/upplang/uppc/internal/diagnostics"
)

// Definition is one macro registered by an `@define name(params) { body }`
// block. Body is the opaque scripting-language source captured verbatim
// between the outer braces; it is handed to the sandbox unparsed.
type Definition struct {
	Name   string
	Params []string
	Body   string
	Start  int // byte offset of '@' in the original source
	End    int // byte offset just past the closing '}'
}

// Registry interns macro definitions by name and answers arity
// questions for the invocation scanner.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition, 8)}
}

// Register adds or replaces a macro definition.
func (r *Registry) Register(d *Definition) {
	r.defs[d.Name] = d
}

// Lookup returns the definition for name, if any.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// All returns every registered definition, in no particular order.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// ExtractDefinitions performs the lexical prepass of §6: it locates
// every `@define name(paramList) { body }` block in source, interns
// each into a Registry, and returns source with those blocks removed
// (replaced with nothing, collapsing the span entirely so later byte
// offsets describe only host-language text and invocation sites).
//
// This runs once, before the phase loop, because definitions are not
// part of the host program; nothing downstream re-scans for them.
func ExtractDefinitions(source []byte) (*Registry, []byte, []diagnostics.Diagnostic) {
	reg := NewRegistry()
	var diags []diagnostics.Diagnostic

	type span struct{ start, end int }
	var spans []span

	var st skipState
	i := 0
	for i < len(source) {
		if !st.live() {
			i += st.advance(source, i)
			continue
		}
		if source[i] != '@' || i+1 >= len(source) || !hasPrefix(source, i+1, "define") {
			i += st.advance(source, i)
			continue
		}
		start := i
		j := i + 1 + len("define")
		if j >= len(source) || isIdentCont(source[j]) {
			// "@definexyz" is a different, unrecognized sigil; not ours.
			i += st.advance(source, i)
			continue
		}
		j = skipSpace(source, j)
		if j >= len(source) || !isIdentStart(source[j]) {
			diags = append(diags, diagnostics.New(diagnostics.KindSyntaxAtBoundary, "",
				diagnostics.PositionAt(source, start),
				"malformed @define: expected a macro name"))
			i = j
			continue
		}
		name, j2 := readIdent(source, j)
		j = skipSpace(source, j2)
		if j >= len(source) || source[j] != '(' {
			diags = append(diags, diagnostics.New(diagnostics.KindSyntaxAtBoundary, "",
				diagnostics.PositionAt(source, start),
				"malformed @define %s: expected a parameter list", name))
			i = j
			continue
		}
		parenEnd := matchBalanced(source, j, '(', ')')
		if parenEnd < 0 {
			diags = append(diags, diagnostics.New(diagnostics.KindSyntaxAtBoundary, "",
				diagnostics.PositionAt(source, j),
				"malformed @define %s: unbalanced parameter list", name))
			break
		}
		params := splitArgs(string(source[j+1 : parenEnd-1]))

		j = skipSpace(source, parenEnd)
		if j >= len(source) || source[j] != '{' {
			diags = append(diags, diagnostics.New(diagnostics.KindSyntaxAtBoundary, "",
				diagnostics.PositionAt(source, j),
				"malformed @define %s: expected a body block", name))
			i = j
			continue
		}
		braceEnd := matchBalanced(source, j, '{', '}')
		if braceEnd < 0 {
			diags = append(diags, diagnostics.New(diagnostics.KindSyntaxAtBoundary, "",
				diagnostics.PositionAt(source, j),
				"malformed @define %s: unbalanced body", name))
			break
		}
		body := string(source[j+1 : braceEnd-1])

		reg.Register(&Definition{
			Name:   name,
			Params: params,
			Body:   body,
			Start:  start,
			End:    braceEnd,
		})
		spans = append(spans, span{start, braceEnd})
		i = braceEnd
	}

	if len(spans) == 0 {
		return reg, source, diags
	}

	cleaned := make([]byte, 0, len(source))
	cursor := 0
	for _, sp := range spans {
		cleaned = append(cleaned, source[cursor:sp.start]...)
		cursor = sp.end
	}
	cleaned = append(cleaned, source[cursor:]...)

	return reg, cleaned, diags
}

func hasPrefix(source []byte, at int, word string) bool {
	if at+len(word) > len(source) {
		return false
	}
	return string(source[at:at+len(word)]) == word
}
