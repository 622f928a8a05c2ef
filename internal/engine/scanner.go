package engine

import "github.com/upplang/uppc/internal/diagnostics"

// Invocation is one `@name` or `@name(args)` site discovered by a
// lexical scan of a (definition-stripped) source buffer.
type Invocation struct {
	Name string
	Args []string // raw, unevaluated argument source substrings

	// Start/End are the byte range this invocation occupies in the
	// buffer it was scanned from, including a trailing ';' when one
	// immediately follows (only whitespace between).
	Start int
	End   int
}

// ScanInvocations performs the lexical scan of §4.1: it walks source
// looking for '@name' or '@name(args)' sites outside of string/char
// literals and comments, in source order.
func ScanInvocations(source []byte) []Invocation {
	var out []Invocation
	var st skipState
	i := 0
	for i < len(source) {
		if !st.live() {
			i += st.advance(source, i)
			continue
		}
		if source[i] != '@' {
			i += st.advance(source, i)
			continue
		}
		start := i
		j := i + 1
		if j >= len(source) || !isIdentStart(source[j]) {
			i += st.advance(source, i)
			continue
		}
		name, j2 := readIdent(source, j)
		j = j2

		var args []string
		hasParens := j < len(source) && source[j] == '('
		if hasParens {
			parenEnd := matchBalanced(source, j, '(', ')')
			if parenEnd < 0 {
				// Unbalanced argument list: not a recognized invocation,
				// leave the '@' for the reader and move on one byte.
				i += st.advance(source, i)
				continue
			}
			args = splitArgs(string(source[j+1 : parenEnd-1]))
			j = parenEnd
		}

		end := j
		k := skipSpace(source, j)
		if k < len(source) && source[k] == ';' {
			end = k + 1
		}

		out = append(out, Invocation{
			Name:  name,
			Args:  args,
			Start: start,
			End:   end,
		})
		i = end
	}
	return out
}

// CheckArity reports an arity-mismatch diagnostic if inv's argument
// count does not match the definition's parameter count. A bare
// `@name` invocation carries zero arguments, same as `@name()`.
func CheckArity(inv Invocation, def *Definition, file string, source []byte) *diagnostics.Diagnostic {
	if len(inv.Args) != len(def.Params) {
		d := diagnostics.New(diagnostics.KindArityMismatch, file,
			diagnostics.PositionAt(source, inv.Start),
			"arity mismatch: expected %d, got %d", len(def.Params), len(inv.Args))
		return &d
	}
	return nil
}

// Mask returns a copy of source with every invocation span in invs
// blanked to spaces, preserving newlines so byte offsets outside the
// spans keep reporting correct line numbers. The host grammar parses
// the masked buffer; context-node binding walks the resulting tree
// and maps straight back to the original buffer's offsets, since
// masking never changes length.
func Mask(source []byte, invs []Invocation) []byte {
	out := make([]byte, len(source))
	copy(out, source)
	for _, inv := range invs {
		for k := inv.Start; k < inv.End; k++ {
			if out[k] != '\n' {
				out[k] = ' '
			}
		}
	}
	return out
}
