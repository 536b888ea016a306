package corvid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/corvid/lang/corvid"
	"github.com/mna/corvid/lang/object"
)

func run(t *testing.T, src string) (object.Value, error) {
	t.Helper()
	p := corvid.New(corvid.Config{})
	require.NoError(t, p.CompileString("test.cor", src))
	return p.Call("main")
}

func TestFibonacciRecursion(t *testing.T) {
	v, err := run(t, `
function fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2); }
function main() { return fib(10); }
`)
	require.NoError(t, err)
	assert.Equal(t, object.TagNumber, v.Tag())
	assert.Equal(t, float64(55), v.Number())
}

func TestClosuresCaptureByReference(t *testing.T) {
	v, err := run(t, `
function make_counter() {
  var n = 0;
  return function() { n = n + 1; return n; };
}
function main() { var c = make_counter(); c(); c(); return c(); }
`)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.Number())
}

func TestArrayElementMutation(t *testing.T) {
	v, err := run(t, `function main() { var a = [10,20,30]; a[1] = 99; return a[0] + a[1] + a[2]; }`)
	require.NoError(t, err)
	assert.Equal(t, float64(139), v.Number())
}

func TestMapLookupFailure(t *testing.T) {
	_, err := run(t, `function main() { var m = { "x" : 1 }; return m["y"]; }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not in map")
}

func TestBreakWithUpvalueClose(t *testing.T) {
	v, err := run(t, `
function main() {
  var i = 0; var f = null;
  while (1) {
    var x = i; f = function(){ return x; };
    i = i + 1; if (i == 3) break;
  }
  return f();
}
`)
	require.NoError(t, err)
	assert.Equal(t, float64(2), v.Number())
}

func TestGCSafetyUnderContainerConstruction(t *testing.T) {
	p := corvid.New(corvid.Config{GCThreshold: 1})
	src := `
function build() {
  return ["s0","s1","s2","s3","s4","s5","s6","s7","s8","s9"];
}
function main() { return build(); }
`
	require.NoError(t, p.CompileString("gc.cor", src))
	v, err := p.Call("main")
	require.NoError(t, err)
	require.Equal(t, object.TagArray, v.Tag())
	arr := v.Array()
	require.Equal(t, 10, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		item, ok := arr.Get(i)
		require.True(t, ok)
		assert.Equal(t, object.TagString, item.Tag())
	}
}

func TestUndefinedFunction(t *testing.T) {
	p := corvid.New(corvid.Config{})
	require.NoError(t, p.CompileString("empty.cor", `function main() { return 1; }`))
	_, err := p.Call("does_not_exist")
	assert.Error(t, err)
	assert.Equal(t, err, p.Err())
}

func TestRegisterNative(t *testing.T) {
	p := corvid.New(corvid.Config{})
	p.RegisterNative("double", func(args []object.Value) (object.Value, error) {
		return object.Number(args[0].Number() * 2), nil
	})
	require.NoError(t, p.CompileString("native.cor", `function main() { return double(21); }`))
	v, err := p.Call("main")
	require.NoError(t, err)
	assert.Equal(t, float64(42), v.Number())
}

func TestPinProtectsUnreachableObject(t *testing.T) {
	p := corvid.New(corvid.Config{})
	require.NoError(t, p.CompileString("pin.cor", `function main() { return "orphan"; }`))
	v, err := p.Call("main")
	require.NoError(t, err)
	p.Pin(v)
	p.CollectGarbage()
	assert.Equal(t, "orphan", v.String_().Go())
	p.Unpin(v)
}
