// Package vm executes compiled corvid bytecode: a recursive-descent
// dispatch loop over register windows carved out of one shared,
// growable value stack, call frames, closure/upvalue construction and
// closing, and a GC root-walk driven from the live frame stack. The
// register model, call convention, and stack growth-with-rebase
// discipline mirror the reference implementation's vm.c.
package vm

import (
	"fmt"

	"github.com/mna/corvid/lang/compiler"
	"github.com/mna/corvid/lang/object"
)

// stackGrowStep matches the reference VM's ensure_stack_size, which
// grows in fixed 1024-value increments rather than doubling.
const stackGrowStep = 1024

// Error is a runtime error: a type mismatch, a call to a non-callable
// value, or an out-of-range index. Division and modulo by zero follow
// IEEE arithmetic and raise no error.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Config tunes VM resource limits.
type Config struct {
	InitialStackSize int
	GCThreshold      int
	MaxCallDepth     int
}

// DefaultConfig returns the VM's built-in defaults, overridden by
// corvid.Config when the host parses CORVID_* environment variables.
func DefaultConfig() Config {
	return Config{InitialStackSize: 1024, GCThreshold: 10000, MaxCallDepth: 200}
}

type openUpvalEntry struct {
	idx int
	uv  *object.Upvalue
}

// Frame is one active call's register window and captured-upvalue
// bookkeeping.
type Frame struct {
	closure    *object.Closure
	base       int // index into m.stack where this frame's registers begin
	numRegs    int
	openUpvals []*object.Upvalue // this frame's own open upvalues, creation order
}

// Machine is one corvid VM instance: a value stack, active call frames,
// the GC, and the set of currently open upvalue cells.
type Machine struct {
	cfg    Config
	stack  []object.Value
	frames []*Frame
	open   []openUpvalEntry // global registry, for rebase on stack growth

	gc *object.GC

	// ExtraRoots lets the host (lang/corvid) register additional GC
	// roots, e.g. values a native callable is mid-construction with.
	ExtraRoots func(push func(object.Value))
}

// New returns a Machine with a freshly allocated value stack and GC.
func New(cfg Config, gc *object.GC) *Machine {
	if cfg.InitialStackSize <= 0 {
		cfg.InitialStackSize = DefaultConfig().InitialStackSize
	}
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = DefaultConfig().MaxCallDepth
	}
	return &Machine{cfg: cfg, stack: make([]object.Value, cfg.InitialStackSize), gc: gc}
}

// WalkRoots implements object.Roots: every register of every active
// frame, every frame's closure, every open upvalue cell, plus any
// host-registered extra roots.
func (m *Machine) WalkRoots(push func(object.Value)) {
	top := 0
	if len(m.frames) > 0 {
		f := m.frames[len(m.frames)-1]
		top = f.base + f.numRegs
	}
	for i := 0; i < top && i < len(m.stack); i++ {
		push(m.stack[i])
	}
	for _, f := range m.frames {
		push(object.FromObject(f.closure))
	}
	for _, e := range m.open {
		push(object.FromObject(e.uv))
	}
	if m.ExtraRoots != nil {
		m.ExtraRoots(push)
	}
}

// ensureStack grows the value stack to at least n slots, in
// stackGrowStep increments, rebasing every open upvalue's slot pointer
// to the freshly copied backing array.
func (m *Machine) ensureStack(n int) {
	if n <= len(m.stack) {
		return
	}
	newSize := len(m.stack)
	for newSize < n {
		newSize += stackGrowStep
	}
	newStack := make([]object.Value, newSize)
	copy(newStack, m.stack)
	m.stack = newStack
	for _, e := range m.open {
		e.uv.Rebase(&m.stack[e.idx])
	}
}

// Call invokes a closure with the given arguments, the VM's external
// entry point (used by lang/corvid and by the CALL opcode alike).
func (m *Machine) Call(cl *object.Closure, args []object.Value) (object.Value, error) {
	if len(m.frames) >= m.cfg.MaxCallDepth {
		return object.Value{}, errf("call stack too deep")
	}
	base := 0
	if len(m.frames) > 0 {
		top := m.frames[len(m.frames)-1]
		base = top.base + top.numRegs
	}
	m.ensureStack(base + cl.Def.NumRegs)
	for i := 0; i < cl.Def.NumRegs; i++ {
		if i < cl.Def.NumParams && i < len(args) {
			m.stack[base+i] = args[i]
		} else {
			m.stack[base+i] = object.Null
		}
	}
	return m.runFrame(cl, base)
}

func (m *Machine) runFrame(cl *object.Closure, base int) (object.Value, error) {
	frame := &Frame{closure: cl, base: base, numRegs: cl.Def.NumRegs}
	m.frames = append(m.frames, frame)
	defer func() {
		m.closeUpvals(frame, 0)
		m.frames = m.frames[:len(m.frames)-1]
	}()

	code := cl.Def.Code
	pc := 0
	for {
		if pc < 0 || pc >= len(code) {
			return object.Null, errf("program counter ran off the end of %q", cl.Def.Name)
		}
		instr := code[pc]
		pc++
		op := compiler.DecodeOp(instr)
		a := compiler.DecodeA(instr)
		b := compiler.DecodeB(instr)
		cc := compiler.DecodeC(instr)

		switch op {
		case compiler.LDC:
			ci := compiler.ConstIndex(b)
			m.reg(frame, a, cl.Def.Consts[ci])
		case compiler.LDNULL:
			m.reg(frame, a, object.Null)
		case compiler.MOV:
			m.reg(frame, a, m.getReg(frame, b))
		case compiler.RET:
			u := compiler.DecodeU(instr)
			if u == 0 {
				return object.Null, nil
			}
			return m.getReg(frame, a), nil
		case compiler.CALL:
			if err := m.execCall(frame, a, b); err != nil {
				return object.Null, err
			}
		case compiler.GETEL:
			v, err := getElement(m.getReg(frame, b), m.getReg(frame, cc))
			if err != nil {
				return object.Null, err
			}
			m.reg(frame, a, v)
		case compiler.SETEL:
			if err := setElement(m.getReg(frame, a), m.getReg(frame, b), m.getReg(frame, cc)); err != nil {
				return object.Null, err
			}
		case compiler.NEWARRAY:
			n := compiler.DecodeU(instr)
			items := make([]object.Value, n)
			if n > 0 {
				copy(items, m.stack[frame.base+a+1:frame.base+a+1+n])
			}
			arr := object.NewArray(items)
			m.gc.Alloc(arr, m)
			m.reg(frame, a, object.FromObject(arr))
		case compiler.NEWMAP:
			n := compiler.DecodeU(instr)
			mv := object.NewMap()
			m.gc.Alloc(mv, m)
			for i := 0; i < n/2; i++ {
				k := m.stack[frame.base+a+1+2*i]
				v := m.stack[frame.base+a+1+2*i+1]
				if k.IsNull() {
					return object.Null, errf("can't use null as a map key")
				}
				mv.Set(k, v)
			}
			m.reg(frame, a, object.FromObject(mv))
		case compiler.CLOSURE:
			ci := compiler.ConstIndex(b)
			def := cl.Def.Consts[ci].FuncDef()
			newCl, err := m.makeClosure(frame, def)
			if err != nil {
				return object.Null, err
			}
			m.reg(frame, a, object.FromObject(newCl))
		case compiler.GETUPVAL:
			m.reg(frame, a, frame.closure.Upvals[b].Get())
		case compiler.SETUPVAL:
			frame.closure.Upvals[a].Set(m.getReg(frame, b))
		case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
			v, err := arith(op, m.getReg(frame, b), m.getReg(frame, cc))
			if err != nil {
				return object.Null, err
			}
			m.reg(frame, a, v)
		case compiler.NEG:
			v := m.getReg(frame, b)
			if v.Tag() != object.TagNumber {
				return object.Null, errf("cannot negate a %s", v.Tag())
			}
			m.reg(frame, a, object.Number(-v.Number()))
		case compiler.NOT:
			m.reg(frame, a, object.Bool(!m.getReg(frame, b).Truth()))
		case compiler.JMP:
			s := compiler.DecodeS(instr)
			if a > 0 {
				m.closeUpvals(frame, a)
			}
			pc += s
		case compiler.TEST:
			want := cc != 0
			if m.getReg(frame, a).Truth() == want {
				pc++
			}
		case compiler.CMP_EQ:
			m.reg(frame, a, object.Bool(object.Equal(m.getReg(frame, b), m.getReg(frame, cc))))
		case compiler.CMP_LT, compiler.CMP_LE:
			v, err := compare(op, m.getReg(frame, b), m.getReg(frame, cc))
			if err != nil {
				return object.Null, err
			}
			m.reg(frame, a, v)
		default:
			return object.Null, errf("illegal opcode %d", op)
		}
	}
}

func (m *Machine) getReg(f *Frame, i int) object.Value { return m.stack[f.base+i] }
func (m *Machine) reg(f *Frame, i int, v object.Value) { m.stack[f.base+i] = v }

// execCall dispatches a CALL instruction: base holds the callee,
// followed by argCount arguments; the result replaces the callee's
// register.
func (m *Machine) execCall(frame *Frame, base, argCount int) error {
	callee := m.getReg(frame, base)
	args := make([]object.Value, argCount)
	copy(args, m.stack[frame.base+base+1:frame.base+base+1+argCount])

	var result object.Value
	var err error
	switch callee.Tag() {
	case object.TagCFunc:
		result, err = callee.CFunc()(args)
	case object.TagClosure:
		result, err = m.Call(callee.Closure(), args)
	default:
		return errf("cannot call a %s value", callee.Tag())
	}
	if err != nil {
		return err
	}
	m.reg(frame, base, result)
	return nil
}

// makeClosure builds a Closure over def, resolving each upvalue
// descriptor against the frame constructing it (REG: capture one of the
// frame's own registers via find-or-create; OUTER: share a cell already
// captured by the frame's own closure).
func (m *Machine) makeClosure(frame *Frame, def *object.FuncDef) (*object.Closure, error) {
	upvals := make([]*object.Upvalue, len(def.Upvals))
	for i, d := range def.Upvals {
		switch d.Kind {
		case object.UpvalFromReg:
			upvals[i] = m.findOrCreateUpval(frame, d.Index)
		case object.UpvalFromOuter:
			if d.Index < 0 || d.Index >= len(frame.closure.Upvals) {
				return nil, errf("invalid upvalue reference")
			}
			upvals[i] = frame.closure.Upvals[d.Index]
		default:
			return nil, errf("unknown upvalue kind")
		}
	}
	cl := object.NewClosure(def, upvals)
	m.gc.Alloc(cl, m)
	return cl, nil
}

func (m *Machine) findOrCreateUpval(frame *Frame, regIdx int) *object.Upvalue {
	slotIdx := frame.base + regIdx
	for _, uv := range frame.openUpvals {
		if uv.Slot() == &m.stack[slotIdx] {
			return uv
		}
	}
	uv := object.NewOpenUpvalue(&m.stack[slotIdx])
	m.gc.Alloc(uv, m)
	frame.openUpvals = append(frame.openUpvals, uv)
	m.open = append(m.open, openUpvalEntry{idx: slotIdx, uv: uv})
	return uv
}

// closeUpvals closes frame's open upvalues. count == 0 means "close all
// remaining" (full frame exit via RET); otherwise the topmost count
// entries are closed, matching the well-nested block scope that emitted
// the closing JMP.
func (m *Machine) closeUpvals(frame *Frame, count int) {
	if len(frame.openUpvals) == 0 {
		return
	}
	n := count
	if n == 0 || n > len(frame.openUpvals) {
		n = len(frame.openUpvals)
	}
	start := len(frame.openUpvals) - n
	closing := frame.openUpvals[start:]
	for _, uv := range closing {
		uv.Close()
	}
	frame.openUpvals = frame.openUpvals[:start]

	filtered := m.open[:0]
	for _, e := range m.open {
		keep := true
		for _, uv := range closing {
			if e.uv == uv {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, e)
		}
	}
	m.open = filtered
}
