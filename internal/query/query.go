// Package query provides the two pattern-matching facilities the
// sandbox exposes as upp.query and upp.matchReplace: native
// tree-sitter queries for the former, and a hand-rolled structural
// matcher with $capture placeholders for the latter (the examples
// this engine is grounded on use a pattern dialect tree-sitter's own
// query language cannot express, e.g. `$then__NOT_compound_statement`
// negative-type constraints).
package query

import (
	sitter "github.com/smacker/go-tree-sitter"
	sitterc "github.com/smacker/go-tree-sitter/c"

	"github.com/upplang/uppc/internal/cst"
)

// Match is one result of running a tree-sitter query: every named
// capture in the pattern. The matched node itself is only available
// when the pattern captures it by name.
type Match struct {
	Captures map[string]*cst.Node
}

// Run compiles pattern as a tree-sitter query against the C grammar
// and executes it over root, returning one Match per query match in
// tree order. Captures repeated within a single pattern keep only the
// first node bound to each capture name.
func Run(pattern string, root *cst.Node) ([]Match, error) {
	lang := sitterc.GetLanguage()
	q, err := sitter.NewQuery([]byte(pattern), lang)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()

	rawRoot := root.Raw()
	qc.Exec(q, rawRoot)

	var matches []Match
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		captures := make(map[string]*cst.Node, len(m.Captures))
		for _, c := range m.Captures {
			name := q.CaptureNameForId(c.Index)
			if _, exists := captures[name]; exists {
				continue
			}
			captures[name] = root.Tree().Wrap(c.Node)
		}
		matches = append(matches, Match{Captures: captures})
	}
	return matches, nil
}
