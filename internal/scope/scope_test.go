package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upplang/uppc/internal/cst"
)

func findFirst(root *cst.Node, text string, typ string) *cst.Node {
	var found *cst.Node
	cst.Walk(root, func(n *cst.Node) {
		if found != nil {
			return
		}
		if n.Type() == typ && n.Text() == text {
			found = n
		}
	})
	return found
}

func TestResolveFindsLocalDeclaration(t *testing.T) {
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(`
int f() {
    int x = 1;
    return x;
}
`))
	require.NoError(t, err)

	ref := findFirst(tree.Root(), "x", "identifier")
	require.NotNil(t, ref)
	// ref here is the first "x", the declaration itself; find the
	// second occurrence, inside the return statement.
	var xs []*cst.Node
	cst.Walk(tree.Root(), func(n *cst.Node) {
		if n.Type() == "identifier" && n.Text() == "x" {
			xs = append(xs, n)
		}
	})
	require.Len(t, xs, 2)

	def := Resolve(xs[1])
	require.NotNil(t, def)
	assert.Equal(t, xs[0].ID(), def.ID())
	assert.True(t, IsDefinitionIdentifier(def))
}

func TestGetTypeSimpleAndPointer(t *testing.T) {
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(`
int f() {
    int x = 1;
    char *name = 0;
    return x;
}
`))
	require.NoError(t, err)

	xDef := findFirst(tree.Root(), "x", "identifier")
	require.NotNil(t, xDef)
	assert.Equal(t, "int", GetType(xDef))

	nameDef := findFirst(tree.Root(), "name", "identifier")
	require.NotNil(t, nameDef)
	assert.Equal(t, "char *", GetType(nameDef))
}

func TestFindReferencesAcrossScope(t *testing.T) {
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(`
int f() {
    int counter = 0;
    counter = counter + 1;
    return counter;
}
`))
	require.NoError(t, err)

	def := findFirst(tree.Root(), "counter", "identifier")
	require.NotNil(t, def)

	refs := FindReferences(tree.Root(), def)
	// counter appears 4 times total; every one resolves to the same def.
	assert.Len(t, refs, 4)
}

func TestGetFunctionSignature(t *testing.T) {
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(`
int add(int a, int b) {
    return a + b;
}
`))
	require.NoError(t, err)

	var fn *cst.Node
	cst.Walk(tree.Root(), func(n *cst.Node) {
		if fn == nil && n.Type() == "function_definition" {
			fn = n
		}
	})
	require.NotNil(t, fn)

	sig := GetFunctionSignature(fn)
	assert.Equal(t, "int", sig.ReturnType)
	assert.Equal(t, "add", sig.Name)
	assert.Equal(t, "(int a, int b)", sig.Params)
}

func TestResolveFindsFunctionNameAcrossFunctionBoundary(t *testing.T) {
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(`
int dist(int x) {
    return x;
}
int main() {
    return dist(1);
}
`))
	require.NoError(t, err)

	var defIdent, callIdent *cst.Node
	cst.Walk(tree.Root(), func(n *cst.Node) {
		if n.Type() != "identifier" || n.Text() != "dist" {
			return
		}
		if n.Parent() != nil && n.Parent().Type() == "function_declarator" {
			defIdent = n
			return
		}
		callIdent = n
	})
	require.NotNil(t, defIdent, "function name identifier not found")
	require.NotNil(t, callIdent, "call-site identifier not found")

	assert.True(t, IsDefinitionIdentifier(defIdent))

	resolved := Resolve(callIdent)
	require.NotNil(t, resolved)
	assert.Equal(t, defIdent.ID(), resolved.ID())

	refs := FindReferences(tree.Root(), defIdent)
	require.Len(t, refs, 2)
}
