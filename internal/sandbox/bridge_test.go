package sandbox

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upplang/uppc/internal/cst"
	"github.com/upplang/uppc/internal/diagnostics"
)

func newBridge(t *testing.T, src string) (*Bridge, *cst.Tree) {
	t.Helper()
	parser := cst.NewParser()
	tree, err := parser.Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	b := New(parser, "test.c")
	b.SetTree(tree)
	return b, tree
}

func indexOf(t *testing.T, src, sub string) int {
	t.Helper()
	i := strings.Index(src, sub)
	require.GreaterOrEqual(t, i, 0, "substring %q not found in source", sub)
	return i
}

func TestEvaluateConsumeAndReplace(t *testing.T) {
	src := "void f() {\n    int x = 10;\n}\n"
	b, tree := newBridge(t, src)

	declStart := indexOf(t, src, "int x = 10;")
	declEnd := declStart + len("int x = 10;")

	body := &Body{Name: "m", Source: `
		var node = upp.consume("declaration");
		upp.replace(node, "int x = 42;");
		return "done";
	`}

	result := b.Evaluate(body, tree.Root(), declStart, declStart, nil)
	require.Empty(t, result.Diagnostics)
	assert.False(t, result.Aborted)
	assert.True(t, result.HasReturn)
	assert.Equal(t, "done", result.ReturnText)

	require.Len(t, result.Edits, 2)
	assert.Equal(t, declStart, result.Edits[0].Start)
	assert.Equal(t, declEnd, result.Edits[0].End)
	assert.Equal(t, "", result.Edits[0].Text)
	assert.Equal(t, declStart, result.Edits[1].Start)
	assert.Equal(t, declEnd, result.Edits[1].End)
	assert.Equal(t, "int x = 42;", result.Edits[1].Text)
}

func TestEvaluateConsumeTypeMismatch(t *testing.T) {
	src := "void f() {\n    int x = 10;\n}\n"
	b, tree := newBridge(t, src)
	declStart := indexOf(t, src, "int x = 10;")

	body := &Body{Name: "m", Source: `
		return upp.consume("compound_statement").text;
	`}

	result := b.Evaluate(body, tree.Root(), declStart, declStart, nil)
	require.True(t, result.Aborted)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, diagnostics.KindConsumeTypeMismatch, result.Diagnostics[0].Kind)
}

func TestEvaluateHoistAndCreateUniqueIdentifier(t *testing.T) {
	src := "int x;\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		var id = upp.createUniqueIdentifier("tmp");
		upp.hoist("int " + id + ";");
		return id;
	`}

	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.Empty(t, result.Diagnostics)
	assert.True(t, result.HasReturn)
	assert.Equal(t, "tmp_1", result.ReturnText)
	require.Len(t, result.Hoists, 1)
	assert.Equal(t, "int tmp_1;", result.Hoists[0])

	// A second invocation in the same run gets a fresh suffix.
	result2 := b.Evaluate(body, tree.Root(), 0, 0, nil)
	assert.Equal(t, "tmp_2", result2.ReturnText)
}

func TestEvaluateErrorAbortsWithDiagnostic(t *testing.T) {
	src := "int x;\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		upp.error(upp.contextNode, "bad thing");
	`}

	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.True(t, result.Aborted)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, diagnostics.KindUserError, result.Diagnostics[0].Kind)
	assert.Contains(t, result.Diagnostics[0].Message, "bad thing")
}

func TestEvaluateRegisterTransformQueuesAndRuns(t *testing.T) {
	src := "int x;\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		upp.registerTransform(function() {
			upp.hoist("int y;");
		});
	`}

	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.Empty(t, result.Diagnostics)
	assert.Equal(t, 1, b.PendingTransformCount())

	transforms := b.TakeTransforms()
	require.Len(t, transforms, 1)
	assert.Equal(t, 0, b.PendingTransformCount())

	tr := b.RunTransform(transforms[0])
	require.Empty(t, tr.Diagnostics)
	require.Len(t, tr.Hoists, 1)
	assert.Equal(t, "int y;", tr.Hoists[0])
}

func TestEvaluateWalkVisitsEveryNode(t *testing.T) {
	src := "int add(int a, int b) { return a + b; }\n"
	b, tree := newBridge(t, src)

	want := 0
	cst.Walk(tree.Root(), func(n *cst.Node) { want++ })

	body := &Body{Name: "m", Source: `
		var count = 0;
		upp.walk(upp.root, function(n) { count++; });
		return String(count);
	`}
	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.Empty(t, result.Diagnostics)
	require.True(t, result.HasReturn)
	assert.Equal(t, want, atoi(t, result.ReturnText))
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, c := range s {
		require.True(t, c >= '0' && c <= '9', "not a digit string: %q", s)
		n = n*10 + int(c-'0')
	}
	return n
}

func TestEvaluateQueryCapturesDeclarationType(t *testing.T) {
	src := "struct Point { int x; int y; };\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		var matches = upp.query("(field_declaration type: (primitive_type) @type) @decl", upp.root);
		return String(matches.length);
	`}
	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.Empty(t, result.Diagnostics)
	assert.Equal(t, "2", result.ReturnText)
}

func TestEvaluateMatchReplaceSubstitutesCaptures(t *testing.T) {
	src := "int f() {\n    x + y;\n    return 0;\n}\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		upp.matchReplace(upp.root, "$a + $b;", function(caps) {
			return caps.b.text + " + " + caps.a.text + ";";
		});
	`}
	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.Empty(t, result.Diagnostics)
	require.Len(t, result.Edits, 1)
	assert.Equal(t, "y + x;", result.Edits[0].Text)
}

func TestEvaluateFindEnclosingAndIsDescendant(t *testing.T) {
	src := "int f() {\n    int x = 1;\n}\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		var node = upp.consume("declaration");
		var fn = upp.findEnclosing(node, "function_definition");
		return (fn !== null).toString() + "," + upp.isDescendant(fn, node).toString();
	`}
	declStart := indexOf(t, src, "int x = 1;")
	result := b.Evaluate(body, tree.Root(), declStart, declStart, nil)
	require.Empty(t, result.Diagnostics)
	assert.Equal(t, "true,true", result.ReturnText)
}

func TestEvaluateFindReferencesGetDefinitionGetType(t *testing.T) {
	src := "int f() {\n    int counter = 0;\n    counter = counter + 1;\n    return counter;\n}\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		var decl = upp.consume("declaration");
		var declarator = decl.childForFieldName("declarator");
		var idNode = declarator.childForFieldName("declarator");
		var refs = upp.findReferences(idNode);
		var def = upp.getDefinition(refs[refs.length - 1]);
		var sameDef = (def.startIndex === idNode.startIndex && def.endIndex === idNode.endIndex);
		return refs.length + "," + upp.getType(idNode) + "," + sameDef.toString();
	`}
	declStart := indexOf(t, src, "int counter = 0;")
	result := b.Evaluate(body, tree.Root(), declStart, declStart, nil)
	require.Empty(t, result.Diagnostics)
	assert.Equal(t, "4,int,true", result.ReturnText)
}

func TestEvaluateGetFunctionSignature(t *testing.T) {
	src := "int add(int a, int b) { return a + b; }\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: `
		var fn = null;
		upp.walk(upp.root, function(n) {
			if (fn === null && n.type === "function_definition") fn = n;
		});
		var sig = upp.getFunctionSignature(fn);
		return sig.returnType + "|" + sig.name + "|" + sig.params;
	`}
	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.Empty(t, result.Diagnostics)
	assert.Equal(t, "int|add|(int a, int b)", result.ReturnText)
}

func TestEvaluateCodeTaggedTemplate(t *testing.T) {
	src := "int x;\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: "var name = 'counter'; return upp.code`int ${name} = 0;`;"}
	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	require.Empty(t, result.Diagnostics)
	assert.Equal(t, "int counter = 0;", result.ReturnText)
}

func TestEvaluateInvalidMacroBodySandboxError(t *testing.T) {
	src := "int x;\n"
	b, tree := newBridge(t, src)

	body := &Body{Name: "m", Source: "this is not valid javascript ("}
	result := b.Evaluate(body, tree.Root(), 0, 0, nil)
	assert.True(t, result.Aborted)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, diagnostics.KindSandboxError, result.Diagnostics[0].Kind)
}
