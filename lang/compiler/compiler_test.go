package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/corvid/lang/compiler"
	"github.com/mna/corvid/lang/lexer"
	"github.com/mna/corvid/lang/parser"
)

func compile(t *testing.T, src string) (*compiler.Result, error) {
	t.Helper()
	lex := lexer.New(src, nil)
	chunk, err := parser.New(lex).Parse()
	require.NoError(t, err)
	return compiler.New(nil).Compile(chunk)
}

func TestCompileAssignsRegistersAndConstants(t *testing.T) {
	res, err := compile(t, `function add(a, b) { return a + b; }`)
	require.NoError(t, err)
	def := res.Funcs["add"]
	require.NotNil(t, def)
	assert.Equal(t, 2, def.NumParams)
	assert.Equal(t, 3, def.NumRegs) // a, b, and the ADD result temporary
	assert.Len(t, def.Code, 2)      // ADD then RET
	assert.Empty(t, def.Consts)
}

func TestCompileDedupesNumberConstants(t *testing.T) {
	res, err := compile(t, `function f() { var a = 7; var b = 7; return a + b; }`)
	require.NoError(t, err)
	def := res.Funcs["f"]
	require.NotNil(t, def)
	assert.Len(t, def.Consts, 1, "the two literal 7s should share one constant pool slot")
}

func TestCompileDuplicateFunctionIsAnError(t *testing.T) {
	_, err := compile(t, `
function f() { return 1; }
function f() { return 2; }
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestCompileBreakOutsideLoopIsAnError(t *testing.T) {
	_, err := compile(t, `function f() { break; }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "break outside of a loop")
}

func TestCompileContinueOutsideLoopIsAnError(t *testing.T) {
	_, err := compile(t, `function f() { continue; }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "continue outside of a loop")
}

func TestCompileUndefinedVariableIsAnError(t *testing.T) {
	_, err := compile(t, `function f() { return x; }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable")
}

func TestCompileForwardReference(t *testing.T) {
	// g is declared after f but f calls it; the two-pass compile must
	// resolve this without error.
	res, err := compile(t, `
function f() { return g(); }
function g() { return 1; }
`)
	require.NoError(t, err)
	assert.Contains(t, res.Order, "f")
	assert.Contains(t, res.Order, "g")
}

func TestCompileClosureCapturesUpvalue(t *testing.T) {
	res, err := compile(t, `
function make_counter() {
  var n = 0;
  return function() { n = n + 1; return n; };
}
`)
	require.NoError(t, err)
	def := res.Funcs["make_counter"]
	require.NotNil(t, def)
	// the anonymous closure is stored as a FuncDef constant of make_counter
	found := false
	for _, c := range def.Consts {
		if c.Tag().String() == "function" {
			found = true
		}
	}
	assert.True(t, found, "expected make_counter's constant pool to hold the nested closure's FuncDef")
}
