package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upplang/uppc/internal/cst"
)

func TestCompileAndFindStatementPattern(t *testing.T) {
	parser := cst.NewParser()
	pat, err := Compile(parser, "$a + $b;")
	require.NoError(t, err)

	tree, err := parser.Parse(context.Background(), []byte(`
int f() {
    x + y;
    foo(z);
    return 0;
}
`))
	require.NoError(t, err)

	matches := pat.Find(tree.Root())
	require.Len(t, matches, 1)
	assert.Equal(t, "x", matches[0].Captures["a"].Text())
	assert.Equal(t, "y", matches[0].Captures["b"].Text())
	assert.Equal(t, "expression_statement", matches[0].Node.Type())
}

func TestCompileAndFindRejectsForbiddenCaptureType(t *testing.T) {
	parser := cst.NewParser()
	pat, err := Compile(parser, "if ($cond__NOT_call_expression) return 1;")
	require.NoError(t, err)

	tree, err := parser.Parse(context.Background(), []byte(`
int f() {
    if (x) return 1;
    if (g()) return 1;
}
`))
	require.NoError(t, err)

	matches := pat.Find(tree.Root())
	require.Len(t, matches, 1)
	assert.Equal(t, "x", matches[0].Captures["cond"].Text())
}

func TestCompileRejectsEmptyPattern(t *testing.T) {
	parser := cst.NewParser()
	_, err := Compile(parser, "")
	assert.Error(t, err)
}
