package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/corvid/lang/compiler"
	"github.com/mna/corvid/lang/object"
)

func TestEnsureStackRebasesOpenUpvalues(t *testing.T) {
	m := New(Config{InitialStackSize: 4, MaxCallDepth: 200}, object.NewGC())
	m.stack[2] = object.Number(7)
	uv := object.NewOpenUpvalue(&m.stack[2])
	m.open = append(m.open, openUpvalEntry{idx: 2, uv: uv})

	m.ensureStack(2000)

	assert.True(t, len(m.stack) >= 2000)
	assert.Equal(t, float64(7), uv.Get().Number(), "the upvalue must still read the value after the stack array was replaced")

	m.stack[2] = object.Number(99)
	assert.Equal(t, float64(99), uv.Get().Number(), "the upvalue must have been rebased onto the new backing array, not left pointing at the old one")
}

func addClosure() *object.Closure {
	def := &object.FuncDef{
		Name:      "add",
		NumParams: 2,
		NumRegs:   3,
		Code: []uint32{
			compiler.MakeABC(compiler.ADD, 2, 0, 1),
			compiler.MakeAU(compiler.RET, 2, 1),
		},
	}
	return object.NewClosure(def, nil)
}

func TestCallComputesAndReturns(t *testing.T) {
	m := New(DefaultConfig(), object.NewGC())
	result, err := m.Call(addClosure(), []object.Value{object.Number(3), object.Number(4)})
	require.NoError(t, err)
	assert.Equal(t, float64(7), result.Number())
}

func TestCallMissingArgsDefaultToNull(t *testing.T) {
	m := New(DefaultConfig(), object.NewGC())
	_, err := m.Call(addClosure(), []object.Value{object.Number(3)})
	require.Error(t, err, "adding a number to null must fail, not silently treat the missing arg as zero")
}

func TestCallReturnsNullWhenNoExplicitReturn(t *testing.T) {
	def := &object.FuncDef{
		Name:    "noop",
		NumRegs: 0,
		Code:    []uint32{compiler.MakeAU(compiler.RET, 0, 0)},
	}
	m := New(DefaultConfig(), object.NewGC())
	result, err := m.Call(object.NewClosure(def, nil), nil)
	require.NoError(t, err)
	assert.True(t, result.IsNull())
}

func TestExecCallOnNonCallableIsAnError(t *testing.T) {
	def := &object.FuncDef{
		Name:    "bad_call",
		NumRegs: 1,
		Code: []uint32{
			compiler.MakeAU(compiler.LDNULL, 0, 0),
			compiler.MakeABC(compiler.CALL, 0, 0, 0),
		},
	}
	m := New(DefaultConfig(), object.NewGC())
	_, err := m.Call(object.NewClosure(def, nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot call a null value")
}

func TestCallStackTooDeepIsAnError(t *testing.T) {
	m := New(Config{InitialStackSize: 64, MaxCallDepth: 2}, object.NewGC())
	m.frames = append(m.frames, &Frame{}, &Frame{})
	_, err := m.Call(addClosure(), []object.Value{object.Number(1), object.Number(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call stack too deep")
}

func TestProgramCounterRunningOffEndIsAnError(t *testing.T) {
	def := &object.FuncDef{Name: "empty", NumRegs: 0, Code: nil}
	m := New(DefaultConfig(), object.NewGC())
	_, err := m.Call(object.NewClosure(def, nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "program counter ran off the end")
}

func TestCloseUpvalsPartialThenFull(t *testing.T) {
	m := New(DefaultConfig(), object.NewGC())
	frame := &Frame{base: 0}
	for i := 0; i < 3; i++ {
		m.stack[i] = object.Number(float64(i))
		uv := object.NewOpenUpvalue(&m.stack[i])
		frame.openUpvals = append(frame.openUpvals, uv)
		m.open = append(m.open, openUpvalEntry{idx: i, uv: uv})
	}

	closedTop := frame.openUpvals[2]
	m.closeUpvals(frame, 1)
	assert.Len(t, frame.openUpvals, 2)
	assert.False(t, closedTop.IsOpen())
	assert.Len(t, m.open, 2, "the closed upvalue must be dropped from the rebase registry")

	m.closeUpvals(frame, 0)
	assert.Len(t, frame.openUpvals, 0)
	assert.Len(t, m.open, 0)
}

func TestFindOrCreateUpvalReusesExistingCell(t *testing.T) {
	m := New(DefaultConfig(), object.NewGC())
	frame := &Frame{base: 0}
	a := m.findOrCreateUpval(frame, 0)
	b := m.findOrCreateUpval(frame, 0)
	assert.Same(t, a, b, "capturing the same register twice in one frame must share the cell")
	assert.Len(t, frame.openUpvals, 1)
}

func TestWalkRootsCoversLiveFrameRegisters(t *testing.T) {
	m := New(DefaultConfig(), object.NewGC())
	str := object.NewString("root-me")
	m.frames = append(m.frames, &Frame{base: 0, numRegs: 2, closure: addClosure()})
	m.stack[0] = object.FromObject(str)

	var seen []object.Value
	m.WalkRoots(func(v object.Value) { seen = append(seen, v) })

	found := false
	for _, v := range seen {
		if v.Tag() == object.TagString && v.String_().Go() == "root-me" {
			found = true
		}
	}
	assert.True(t, found)
}
