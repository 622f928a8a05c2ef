package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upplang/uppc/internal/cst"
)

func TestRunCapturesDeclarationType(t *testing.T) {
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(`
struct Point { int x; int y; };
Point origin;
int total;
`))
	require.NoError(t, err)

	matches, err := Run(`(declaration type: (type_identifier) @type) @decl`, tree.Root())
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, m := range matches {
		decl, ok := m.Captures["decl"]
		require.True(t, ok)
		assert.Equal(t, "declaration", decl.Type())
		typ, ok := m.Captures["type"]
		require.True(t, ok)
		assert.Equal(t, "Point", typ.Text())
	}
}

func TestRunNoMatches(t *testing.T) {
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(`int x;`))
	require.NoError(t, err)

	matches, err := Run(`(struct_specifier) @s`, tree.Root())
	require.NoError(t, err)
	assert.Empty(t, matches)
}
