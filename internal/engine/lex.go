// Package engine implements the lexical side of the macro expansion
// engine: the prepass that lifts @define blocks and invocation sites
// out of raw text ahead of parsing, arity checking, masking, and the
// context-node binder. Sandboxed evaluation lives in package sandbox
// and the phase loop in package driver.
package engine

// skipState tracks whether a byte-position lexical scan is currently
// inside a string literal, character literal, line comment, or block
// comment, so that scans for '@' or brace/paren balancing ignore
// sigils that appear inside those regions.
type skipState struct {
	inString bool
	inChar   bool
	inLine   bool
	inBlock  bool
}

// advance updates state for the byte at i and reports how many bytes
// to skip forward (1 normally, 2 for a recognized two-byte sequence
// such as an escape or comment opener/closer).
func (s *skipState) advance(src []byte, i int) int {
	if s.inLine {
		if src[i] == '\n' {
			s.inLine = false
		}
		return 1
	}
	if s.inBlock {
		if src[i] == '*' && i+1 < len(src) && src[i+1] == '/' {
			s.inBlock = false
			return 2
		}
		return 1
	}
	if s.inString {
		if src[i] == '\\' && i+1 < len(src) {
			return 2
		}
		if src[i] == '"' {
			s.inString = false
		}
		return 1
	}
	if s.inChar {
		if src[i] == '\\' && i+1 < len(src) {
			return 2
		}
		if src[i] == '\'' {
			s.inChar = false
		}
		return 1
	}
	switch {
	case src[i] == '"':
		s.inString = true
	case src[i] == '\'':
		s.inChar = true
	case src[i] == '/' && i+1 < len(src) && src[i+1] == '/':
		s.inLine = true
		return 2
	case src[i] == '/' && i+1 < len(src) && src[i+1] == '*':
		s.inBlock = true
		return 2
	}
	return 1
}

// live reports whether position i is outside any string, char, or
// comment region, i.e. a sigil found here is significant.
func (s *skipState) live() bool {
	return !(s.inString || s.inChar || s.inLine || s.inBlock)
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isHorizSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// readIdent reads a maximal identifier starting at i, returning it
// and the offset just past it. i must satisfy isIdentStart.
func readIdent(src []byte, i int) (string, int) {
	j := i + 1
	for j < len(src) && isIdentCont(src[j]) {
		j++
	}
	return string(src[i:j]), j
}

// skipSpace advances past horizontal/vertical whitespace starting at
// i and returns the new offset.
func skipSpace(src []byte, i int) int {
	for i < len(src) && isHorizSpace(src[i]) {
		i++
	}
	return i
}

// matchBalanced scans a balanced (…) or {…} region starting at i,
// which must index the opening byte. It returns the offset just past
// the matching close, or -1 if the region never closes. Content
// inside string/char literals and comments is ignored for balancing
// purposes.
func matchBalanced(src []byte, i int, open, close byte) int {
	if i >= len(src) || src[i] != open {
		return -1
	}
	depth := 0
	var st skipState
	for i < len(src) {
		if st.live() {
			switch src[i] {
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
		i += st.advance(src, i)
	}
	return -1
}

// splitArgs splits the interior of a parenthesized argument list
// (without the outer parens) into comma-separated raw substrings at
// depth zero, trimming surrounding whitespace (newlines included)
// from each.
// An empty or all-whitespace interior yields zero arguments.
func splitArgs(src string) []string {
	trimmed := trimSpace(src)
	if trimmed == "" {
		return nil
	}
	var args []string
	depth := 0
	start := 0
	var st skipState
	b := []byte(src)
	for i := 0; i < len(b); {
		if st.live() {
			switch b[i] {
			case '(', '[', '{':
				depth++
			case ')', ']', '}':
				depth--
			case ',':
				if depth == 0 {
					args = append(args, trimSpace(src[start:i]))
					start = i + 1
				}
			}
		}
		i += st.advance(b, i)
	}
	args = append(args, trimSpace(src[start:]))
	return args
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && isHorizSpace(s[i]) {
		i++
	}
	for j > i && isHorizSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}
