package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/upplang/uppc/internal/cst"
)

// Pattern is a compiled matchReplace pattern: ordinary host-language
// syntax with $name (and $name__NOT_Type) placeholders standing in
// for a captured subtree.
type Pattern struct {
	root        *cst.Node
	tree        *cst.Tree
	captureName map[string]string // placeholder identifier -> capture name
	forbidType  map[string]string // placeholder identifier -> forbidden node type, if any
}

// Compile parses a matchReplace pattern string. Placeholders are
// rewritten to ordinary identifiers before parsing (tree-sitter's C
// grammar has no notion of a capture sigil), then parsed inside a
// throwaway function body so statement- and expression-level patterns
// both parse validly.
func Compile(parser *cst.Parser, patternSrc string) (*Pattern, error) {
	rewritten, names, forbid := rewritePlaceholders(patternSrc)
	wrapped := "void __upp_pattern__(){" + rewritten + "}"

	tree, err := parser.Parse(context.Background(), []byte(wrapped))
	if err != nil {
		return nil, err
	}

	fn := tree.Root().NamedChild(0)
	if fn == nil || fn.Type() != "function_definition" {
		return nil, fmt.Errorf("matchReplace: pattern did not parse as a statement or expression: %q", patternSrc)
	}
	body := fn.FieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return nil, fmt.Errorf("matchReplace: empty pattern")
	}
	root := body.NamedChild(0)

	return &Pattern{
		root:        root,
		tree:        tree,
		captureName: names,
		forbidType:  forbid,
	}, nil
}

// placeholderPrefix is the synthesized identifier prefix standing in
// for every `$name` token; ordinal suffixes keep distinct captures
// distinct even when grammar rules would otherwise merge identical
// identifier text.
const placeholderPrefix = "__upp_capture_"

func rewritePlaceholders(src string) (string, map[string]string, map[string]string) {
	names := make(map[string]string)
	forbid := make(map[string]string)
	var out strings.Builder
	ordinal := 0
	i := 0
	b := []byte(src)
	for i < len(b) {
		if b[i] != '$' || i+1 >= len(b) || !isIdentStartByte(b[i+1]) {
			out.WriteByte(b[i])
			i++
			continue
		}
		j := i + 1
		start := j
		for j < len(b) && isIdentContByte(b[j]) {
			j++
		}
		token := string(b[start:j])
		capName := token
		forbidType := ""
		if idx := strings.Index(token, "__NOT_"); idx >= 0 {
			capName = token[:idx]
			forbidType = token[idx+len("__NOT_"):]
		}
		placeholder := placeholderPrefix + strconv.Itoa(ordinal)
		ordinal++
		names[placeholder] = capName
		if forbidType != "" {
			forbid[placeholder] = forbidType
		}
		out.WriteString(placeholder)
		i = j
	}
	return out.String(), names, forbid
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentContByte(b byte) bool {
	return isIdentStartByte(b) || (b >= '0' && b <= '9')
}

// PatternMatch is one matchReplace match: the whole matched subtree
// plus its named captures.
type PatternMatch struct {
	Node     *cst.Node
	Captures map[string]*cst.Node
}

// Find walks root looking for every subtree matching p, returning one
// match per hit. A descendant of an already-matched node is still
// tried independently (matchReplace does not dedupe overlapping
// matches; the caller's builder decides what to do with each).
func (p *Pattern) Find(root *cst.Node) []PatternMatch {
	var out []PatternMatch
	cst.Walk(root, func(n *cst.Node) {
		captures := make(map[string]*cst.Node)
		if p.match(p.root, n, captures) {
			out = append(out, PatternMatch{Node: n, Captures: captures})
		}
	})
	return out
}

func (p *Pattern) match(pat, cand *cst.Node, captures map[string]*cst.Node) bool {
	if pat == nil || cand == nil {
		return pat == cand
	}
	if pat.Type() == "identifier" {
		if name, ok := p.captureName[pat.Text()]; ok {
			if forbidden, has := p.forbidType[pat.Text()]; has && cand.Type() == forbidden {
				return false
			}
			captures[name] = cand
			return true
		}
	}
	if pat.Type() != cand.Type() {
		return false
	}
	if pat.ChildCount() == 0 {
		return pat.Text() == cand.Text()
	}
	if pat.ChildCount() != cand.ChildCount() {
		return false
	}
	for i := 0; i < pat.ChildCount(); i++ {
		if !p.match(pat.Child(i), cand.Child(i), captures) {
			return false
		}
	}
	return true
}
