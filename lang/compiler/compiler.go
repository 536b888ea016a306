// Package compiler turns an AST into bytecode: a single pass per function
// over register allocation, constant pooling, jump patching and upvalue
// capture, following the reference compiler's algorithms (register-stack
// scanning, two-pass name-then-body compilation for forward references,
// block-scope snapshot/restore) generalized to the closure/upvalue
// machinery the newer object model requires.
package compiler

import (
	"fmt"
	"math"

	"github.com/mna/corvid/lang/ast"
	"github.com/mna/corvid/lang/object"
	"github.com/mna/corvid/lang/symtab"
	"github.com/mna/corvid/lang/token"
)

// Error is a compile-time error: too many registers/constants, an
// undefined variable or function, an out-of-range jump target, an
// invalid assignment target, continue/break outside a loop, or an
// internal consistency failure.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

const tmpVar = "" // the empty name marks a register as a scratch temporary

type reg struct {
	name     string
	captured bool // true once an inner function has captured this register
}

type blockScope struct {
	startLen int // len(fi.regs) at block entry, for snapshot/restore
}

type loopCtx struct {
	breakAddrs []int // pending JMP instructions to patch to the loop's end
	continueAt int   // backward-jump target for "continue"
	bodyStart  int   // len(fi.regs) when the loop body began, for break/continue close counts
}

// funcInfo tracks compilation state for one function (top-level or
// nested), mirroring the reference compiler's func_info stack.
type funcInfo struct {
	parent *funcInfo

	name      string
	numParams int

	regs    []reg
	numRegs int // high-water mark, becomes FuncDef.NumRegs

	consts     []object.Value
	constNums  map[uint64]int
	constBools map[bool]int
	constStrs  *symtab.Table
	constStrIx map[symtab.ID]int

	upvals   []object.UpvalDesc
	upvalIdx map[string]int // captured variable name -> upvalue index

	code   []uint32
	blocks []*blockScope
	loops  []*loopCtx

	srcloc *SrcLocEncoder
}

func newFuncInfo(parent *funcInfo, name string, numParams int) *funcInfo {
	return &funcInfo{
		parent:     parent,
		name:       name,
		numParams:  numParams,
		constNums:  map[uint64]int{},
		constBools: map[bool]int{},
		constStrs:  symtab.New(),
		constStrIx: map[symtab.ID]int{},
		upvalIdx:   map[string]int{},
		srcloc:     NewSrcLocEncoder(),
	}
}

func (fi *funcInfo) pc() int { return len(fi.code) }

func (fi *funcInfo) emit(pos token.Pos, instr uint32) int {
	fi.srcloc.Encode(pos)
	fi.code = append(fi.code, instr)
	return len(fi.code) - 1
}

func (fi *funcInfo) patchJump(at, target int) error {
	disp := target - at - 1
	if disp < MinSignedDisp || disp > MaxSignedDisp {
		return &Error{Msg: "jump target out of range"}
	}
	op := DecodeOp(fi.code[at])
	a := DecodeA(fi.code[at])
	fi.code[at] = MakeAS(op, a, disp)
	return nil
}

// The register file is a simple stack: named variables (params, block
// locals) occupy a prefix that lives for the scope's duration, and
// expression temporaries are pushed above them and popped once consumed,
// mirroring the reference compiler's "registers are a stack" discipline.

// mark returns the current top of the register stack, to be restored by
// popTo once temporaries allocated above it are no longer needed.
func (fi *funcInfo) mark() int { return len(fi.regs) }

// popTo truncates the register stack back to mark. Only ever used for
// temporaries, never for named variables, since a captured temporary
// would be unsound to discard.
func (fi *funcInfo) popTo(mark int) { fi.regs = fi.regs[:mark] }

// allocReg pushes one fresh register bound to name ("" for a scratch
// temporary) and returns its index.
func (fi *funcInfo) allocReg(pos token.Pos, name string) (int, error) {
	if len(fi.regs) >= MaxFuncRegs {
		return 0, &Error{Pos: pos, Msg: "too many registers in function"}
	}
	fi.regs = append(fi.regs, reg{name: name})
	if len(fi.regs) > fi.numRegs {
		fi.numRegs = len(fi.regs)
	}
	return len(fi.regs) - 1, nil
}

// allocContiguous pushes n consecutive fresh temporaries (used for a
// call's function+argument window, and for array/map literal element
// lists), returning the first index.
func (fi *funcInfo) allocContiguous(pos token.Pos, n int) (int, error) {
	first := len(fi.regs)
	if first+n > MaxFuncRegs {
		return 0, &Error{Pos: pos, Msg: "too many registers in function"}
	}
	for i := 0; i < n; i++ {
		fi.regs = append(fi.regs, reg{name: tmpVar})
	}
	if len(fi.regs) > fi.numRegs {
		fi.numRegs = len(fi.regs)
	}
	return first, nil
}

func (fi *funcInfo) findVar(name string) (int, bool) {
	for i := len(fi.regs) - 1; i >= 0; i-- {
		if fi.regs[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveVar looks up name as a local of fi, then, failing that, as an
// already-captured upvalue, then recurses into the enclosing function
// chain, threading a fresh UpvalDesc through every intermediate function
// so a variable three closures deep is reachable one hop at a time (the
// reference implementation's find_or_add_upval walked the same chain).
func resolveVar(fi *funcInfo, name string) (idx int, isUpval, found bool) {
	if idx, ok := fi.findVar(name); ok {
		return idx, false, true
	}
	if idx, ok := fi.upvalIdx[name]; ok {
		return idx, true, true
	}
	if fi.parent == nil {
		return 0, false, false
	}
	pidx, pIsUpval, pFound := resolveVar(fi.parent, name)
	if !pFound {
		return 0, false, false
	}
	kind := object.UpvalFromReg
	if pIsUpval {
		kind = object.UpvalFromOuter
	} else {
		fi.parent.regs[pidx].captured = true
	}
	idx = len(fi.upvals)
	fi.upvals = append(fi.upvals, object.UpvalDesc{Kind: kind, Index: pidx})
	fi.upvalIdx[name] = idx
	return idx, true, true
}

func (fi *funcInfo) enterBlock() *blockScope {
	b := &blockScope{startLen: len(fi.regs)}
	fi.blocks = append(fi.blocks, b)
	return b
}

// capturedSince counts how many registers from index from (inclusive) to
// the current top of the register stack were captured by an inner
// closure, i.e. how many open upvalue cells a jump unwinding that range
// must close.
func (fi *funcInfo) capturedSince(from int) int {
	n := 0
	for i := from; i < len(fi.regs); i++ {
		if fi.regs[i].captured {
			n++
		}
	}
	return n
}

// exitBlock restores the register map to its pre-block state and, if any
// register declared in the block was captured by an inner closure, emits
// a close-only JMP so the VM retires those upvalue cells before the
// scope's registers are reused.
func (fi *funcInfo) exitBlock(pos token.Pos) {
	b := fi.blocks[len(fi.blocks)-1]
	fi.blocks = fi.blocks[:len(fi.blocks)-1]

	closeCount := fi.capturedSince(b.startLen)
	fi.regs = fi.regs[:b.startLen]
	if closeCount > 0 {
		fi.emit(pos, MakeAS(JMP, closeCount, 0))
	}
}

// addConstNumber dedups number constants by IEEE-754 bit pattern.
func (fi *funcInfo) addConstNumber(n float64) int {
	key := math.Float64bits(n)
	if i, ok := fi.constNums[key]; ok {
		return i
	}
	i := len(fi.consts)
	fi.consts = append(fi.consts, object.Number(n))
	fi.constNums[key] = i
	return i
}

// addConstBool dedups boolean constants in their own table, kept apart
// from numbers so no float64 bit pattern can collide with a bool key.
func (fi *funcInfo) addConstBool(b bool) int {
	if i, ok := fi.constBools[b]; ok {
		return i
	}
	i := len(fi.consts)
	fi.consts = append(fi.consts, object.Bool(b))
	fi.constBools[b] = i
	return i
}

// addConstString dedups string constants by their interned symbol id, as
// the reference compiler's constant pool does.
func (fi *funcInfo) addConstString(s string) int {
	id := fi.constStrs.Intern(s)
	if i, ok := fi.constStrIx[id]; ok {
		return i
	}
	i := len(fi.consts)
	fi.consts = append(fi.consts, object.FromObject(object.NewString(s)))
	fi.constStrIx[id] = i
	return i
}

func (fi *funcInfo) addConstFuncDef(def *object.FuncDef) int {
	i := len(fi.consts)
	fi.consts = append(fi.consts, object.FromObject(def))
	return i
}

// addConstNative adds a native-function constant. Native identity is
// meaningless to dedup (two distinct registrations are never the same
// Go func value), so every reference gets its own pool slot.
func (fi *funcInfo) addConstNative(fn object.NativeFunc) int {
	i := len(fi.consts)
	fi.consts = append(fi.consts, object.CFunc(fn))
	return i
}

// Compiler compiles an AST Chunk into a set of FuncDefs, one per named
// (or nested anonymous) function.
type Compiler struct {
	named   map[string]*object.FuncDef
	natives map[string]object.NativeFunc
}

// New returns a Compiler. natives names the host-registered native
// callables (see corvid.RegisterNative) that source code may call or
// pass around as values, alongside corvid-defined functions.
func New(natives map[string]object.NativeFunc) *Compiler {
	return &Compiler{natives: natives}
}

// Result is the output of compiling a Chunk.
type Result struct {
	Funcs map[string]*object.FuncDef
	Order []string
}

// Compile compiles chunk's functions, in two passes per the reference
// compiler: first register every named function's signature (so forward
// references resolve), then compile each body.
func (c *Compiler) Compile(chunk *ast.Chunk) (*Result, error) {
	res := &Result{Funcs: map[string]*object.FuncDef{}}
	for _, fd := range chunk.Funcs {
		if _, dup := res.Funcs[fd.Name]; dup {
			return nil, &Error{Pos: fd.NamePos, Msg: fmt.Sprintf("function %q already declared", fd.Name)}
		}
		def := &object.FuncDef{Name: fd.Name, NumParams: len(fd.Params)}
		res.Funcs[fd.Name] = def
		res.Order = append(res.Order, fd.Name)
	}
	c.named = res.Funcs

	for _, fd := range chunk.Funcs {
		def := res.Funcs[fd.Name]
		fi := newFuncInfo(nil, fd.Name, len(fd.Params))
		if err := c.compileFuncBody(fi, fd.Params, fd.Body); err != nil {
			return nil, err
		}
		fi.finish(def)
	}
	return res, nil
}

// finish copies a completed funcInfo's accumulated state onto def.
func (fi *funcInfo) finish(def *object.FuncDef) {
	def.NumRegs = fi.numRegs
	def.Code = fi.code
	def.Consts = fi.consts
	def.Upvals = fi.upvals
	def.SrcLocs = fi.srcloc.Bytes()
}

func (c *Compiler) compileFuncBody(fi *funcInfo, params []string, body *ast.Block) error {
	for _, p := range params {
		if _, err := fi.allocReg(body.Pos(), p); err != nil {
			return err
		}
	}
	if err := c.compileBlockStmts(fi, body); err != nil {
		return err
	}
	if !blockAlwaysReturns(body) {
		fi.emit(body.Pos(), MakeAU(RET, 0, 0))
	}
	return nil
}

func blockAlwaysReturns(b *ast.Block) bool {
	if len(b.Stmts) == 0 {
		return false
	}
	_, ok := b.Stmts[len(b.Stmts)-1].(*ast.ReturnStmt)
	return ok
}
