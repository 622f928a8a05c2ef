// Package editbuf implements the surgical-edit reconciler: it collects
// replacements and insertions submitted against one source buffer and
// applies them atomically, in a single pass, at the end of a phase.
package editbuf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/upplang/uppc/internal/cst"
	"github.com/upplang/uppc/internal/diagnostics"
)

// Edit is one submitted replacement or insertion against byte offsets
// of the buffer in effect at submission time.
type Edit struct {
	Start       int
	End         int
	Replacement string
	Ordinal     int
}

func (e Edit) isInsertion() bool { return e.Start == e.End }

// Conflict describes two edits whose ranges overlap.
type Conflict struct {
	A, B Edit
}

// Buffer accumulates edits across one phase and reconciles them into
// a new source buffer.
type Buffer struct {
	edits   []Edit
	ordinal int
}

// Submit records one edit. Start must be <= End.
func (b *Buffer) Submit(start, end int, replacement string) Edit {
	e := Edit{Start: start, End: end, Replacement: replacement, Ordinal: b.ordinal}
	b.ordinal++
	b.edits = append(b.edits, e)
	return e
}

// Len reports how many edits are pending.
func (b *Buffer) Len() int { return len(b.edits) }

// Reset clears all pending edits, for reuse across phases.
func (b *Buffer) Reset() {
	b.edits = nil
	b.ordinal = 0
}

// Apply reconciles every pending edit against source and returns the
// new buffer. It returns a *ConflictError if any two non-insertion
// edits overlap; in that case the source is returned unchanged. The
// returned diagnostics are warnings for dropped insertions.
//
// Reconciliation follows §4.3: replacements are sorted by start and
// checked pairwise for overlap, insertions are anchored to the
// replacement containing their point (dropped with a warning if one
// exists) or ordered by submission ordinal among the insertions at a
// shared point, and the result is assembled in a single ascending
// walk of the buffer.
func (b *Buffer) Apply(source string) (string, []diagnostics.Diagnostic, error) {
	var replacements, insertions []Edit
	for _, e := range b.edits {
		if e.isInsertion() {
			insertions = append(insertions, e)
		} else {
			replacements = append(replacements, e)
		}
	}

	sort.SliceStable(replacements, func(i, j int) bool {
		return replacements[i].Start < replacements[j].Start
	})

	for i := 1; i < len(replacements); i++ {
		prev, cur := replacements[i-1], replacements[i]
		if cur.Start < prev.End {
			return source, nil, &ConflictError{A: prev, B: cur}
		}
	}

	sort.SliceStable(insertions, func(i, j int) bool {
		if insertions[i].Start != insertions[j].Start {
			return insertions[i].Start < insertions[j].Start
		}
		return insertions[i].Ordinal < insertions[j].Ordinal
	})

	var warnings []diagnostics.Diagnostic
	var freeInsertions []Edit // insertions not inside any replacement, queued before the next replacement

	for _, ins := range insertions {
		idx, inside := replacementContaining(replacements, ins.Start)
		if inside {
			warnings = append(warnings, diagnostics.Warning(
				diagnostics.KindEditConflict, "", diagnostics.Position{},
				"insertion at byte %d dropped: subsumed by replacement [%d,%d)",
				ins.Start, replacements[idx].Start, replacements[idx].End,
			))
			continue
		}
		freeInsertions = append(freeInsertions, ins)
	}

	var out strings.Builder
	cursor := 0
	replIdx := 0
	freeIdx := 0

	flushFreeBefore := func(point int) {
		for freeIdx < len(freeInsertions) && freeInsertions[freeIdx].Start <= point {
			ins := freeInsertions[freeIdx]
			if ins.Start >= cursor {
				out.WriteString(source[cursor:ins.Start])
				cursor = ins.Start
			}
			out.WriteString(ins.Replacement)
			freeIdx++
		}
	}

	for replIdx < len(replacements) {
		r := replacements[replIdx]
		flushFreeBefore(r.Start)
		if r.Start >= cursor {
			out.WriteString(source[cursor:r.Start])
		}
		out.WriteString(r.Replacement)
		cursor = r.End
		replIdx++
	}
	flushFreeBefore(len(source))
	if cursor < len(source) {
		out.WriteString(source[cursor:])
	}

	return out.String(), warnings, nil
}

func replacementContaining(replacements []Edit, point int) (int, bool) {
	for i, r := range replacements {
		if point > r.Start && point < r.End {
			return i, true
		}
	}
	return 0, false
}

// ConflictError is returned by Apply when two non-insertion edits
// overlap.
type ConflictError struct {
	A, B Edit
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("edit-conflict: [%d,%d) overlaps [%d,%d)", e.A.Start, e.A.End, e.B.Start, e.B.End)
}

// HoistOffset computes the insertion point for hoisted text: the end
// of the longest contiguous run of leading comment/preprocessor
// children at the translation-unit root, per §4.4.
func HoistOffset(root *cst.Node) int {
	if root == nil {
		return 0
	}
	offset := 0
	for _, child := range root.Children() {
		if child.IsComment() || child.IsPreprocessor() {
			offset = child.EndByte()
			continue
		}
		break
	}
	return offset
}
