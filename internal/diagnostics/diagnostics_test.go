package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderText(t *testing.T) {
	d := New(KindArityMismatch, "foo.c", Position{Line: 3, Column: 5}, "expected %d, got %d", 2, 1)
	assert.Equal(t, "foo.c:3:5: arity-mismatch: expected 2, got 1", d.RenderText())
}

func TestRenderTextDefaultsFileName(t *testing.T) {
	d := New(KindSandboxError, "", Position{Line: 1, Column: 1}, "boom")
	assert.Equal(t, "<input>:1:1: sandbox-error: boom", d.RenderText())
}

func TestBagHasErrors(t *testing.T) {
	var bag Bag
	require.False(t, bag.HasErrors())

	bag.Add(Warning(KindSyntaxAtBoundary, "a.c", Position{1, 1}, "just a warning"))
	require.False(t, bag.HasErrors())

	bag.Add(New(KindEditConflict, "a.c", Position{2, 2}, "conflict"))
	require.True(t, bag.HasErrors())
	require.Len(t, bag.All(), 2)
}

func TestBagRenderText(t *testing.T) {
	var bag Bag
	bag.Add(New(KindUnresolvedMacro, "a.c", Position{1, 1}, "macro '%s' not found", "foo"))
	bag.Add(New(KindIterationLimit, "a.c", Position{1, 1}, "exceeded max phases"))
	out := bag.RenderText()
	assert.Contains(t, out, "unresolved-macro: macro 'foo' not found")
	assert.Contains(t, out, "iteration-limit: exceeded max phases")
}
