package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanInvocationsBareAndArgs(t *testing.T) {
	src := []byte(`@forward;
int add(int a, int b) { return a + b; }
@trap(my_handler) int z = 10;
`)
	invs := ScanInvocations(src)
	require.Len(t, invs, 2)

	assert.Equal(t, "forward", invs[0].Name)
	assert.Empty(t, invs[0].Args)
	assert.Equal(t, byte(';'), src[invs[0].End-1])

	assert.Equal(t, "trap", invs[1].Name)
	assert.Equal(t, []string{"my_handler"}, invs[1].Args)
}

func TestScanInvocationsSplitsMultipleArgs(t *testing.T) {
	src := []byte(`@method("Point", 1 + 2)`)
	invs := ScanInvocations(src)
	require.Len(t, invs, 1)
	assert.Equal(t, []string{`"Point"`, "1 + 2"}, invs[0].Args)
}

func TestScanInvocationsIgnoresSigilInStringsAndComments(t *testing.T) {
	src := []byte(`// @fake()
const char *s = "@also_fake()";
@real();
`)
	invs := ScanInvocations(src)
	require.Len(t, invs, 1)
	assert.Equal(t, "real", invs[0].Name)
}

func TestCheckArityMismatch(t *testing.T) {
	def := &Definition{Name: "method", Params: []string{"targetType"}}
	inv := Invocation{Name: "method", Args: nil}
	diag := CheckArity(inv, def, "test.c", []byte("@method"))
	require.NotNil(t, diag)
	assert.Equal(t, "arity-mismatch", string(diag.Kind))
}

func TestCheckArityMatches(t *testing.T) {
	def := &Definition{Name: "forward", Params: nil}
	inv := Invocation{Name: "forward", Args: nil}
	diag := CheckArity(inv, def, "test.c", []byte("@forward"))
	assert.Nil(t, diag)
}

func TestMaskPreservesLengthAndNewlines(t *testing.T) {
	src := []byte("int x;\n@trap(h) int y = 1;\nint z;\n")
	invs := ScanInvocations(src)
	require.Len(t, invs, 1)

	masked := Mask(src, invs)
	require.Len(t, masked, len(src))

	for i := invs[0].Start; i < invs[0].End; i++ {
		if src[i] == '\n' {
			assert.Equal(t, byte('\n'), masked[i])
		} else {
			assert.Equal(t, byte(' '), masked[i])
		}
	}
	assert.Equal(t, "int x;\n", string(masked[:invs[0].Start]))
}
