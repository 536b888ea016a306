// Package corvid is the program façade: the host-facing entry point that
// wires the tokenizer, parser, compiler and VM into the single surface an
// embedder actually uses (compile source, register natives, call a
// top-level function, control the GC), mirroring the reference
// implementation's fh_program/fh_add_c_func/fh_call contract.
package corvid

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"

	"github.com/mna/corvid/lang/ast"
	"github.com/mna/corvid/lang/compiler"
	"github.com/mna/corvid/lang/lexer"
	"github.com/mna/corvid/lang/object"
	"github.com/mna/corvid/lang/parser"
	"github.com/mna/corvid/lang/token"
	"github.com/mna/corvid/lang/vm"
)

// NativeFunc is a host callable exposed to corvid source as an ordinary
// callable value, matching spec.md §6's register_native entry.
type NativeFunc = object.NativeFunc

// Config tunes VM resource limits, read once from the environment at New
// via CORVID_STACK_INIT, CORVID_GC_THRESHOLD and CORVID_MAX_CALL_DEPTH
// (all optional; unset variables keep the VM's built-in defaults).
type Config struct {
	StackInit    int `env:"CORVID_STACK_INIT"`
	GCThreshold  int `env:"CORVID_GC_THRESHOLD"`
	MaxCallDepth int `env:"CORVID_MAX_CALL_DEPTH"`
}

// LoadConfig parses Config from the environment, leaving zero fields for
// any variable that is unset (New then falls back to vm.DefaultConfig).
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment config: %w", err)
	}
	return cfg, nil
}

// CompileError is a compile-time failure: a source position and message,
// rendered by Error as "line:col: msg" (the file name is not included).
// Cause is not filled in by this package, so include-level errors are
// not chained.
type CompileError struct {
	Pos   token.Pos
	Msg   string
	Cause []*CompileError
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

// Program is one corvid VM instance: compiled functions, registered
// natives, the object heap, and the last error raised by a host API call
// (get_error(p) in the reference implementation).
type Program struct {
	cfg     Config
	gc      *object.GC
	machine *vm.Machine
	natives map[string]object.NativeFunc
	funcs   map[string]*object.FuncDef
	order   []string
	files   map[token.FileID]string

	lastErr error

	// pinned tracks values a native function is mid-construction with, so
	// WalkRoots can expose them to the GC even though they are not yet
	// reachable from any compiled function or the call stack.
	pinned []object.Value
}

// New returns a Program configured by cfg. A zero Config falls back to
// vm.DefaultConfig() field by field.
func New(cfg Config) *Program {
	p := &Program{
		cfg:     cfg,
		gc:      object.NewGC(),
		natives: map[string]object.NativeFunc{},
		funcs:   map[string]*object.FuncDef{},
		files:   map[token.FileID]string{},
	}
	vmCfg := vm.DefaultConfig()
	if cfg.StackInit > 0 {
		vmCfg.InitialStackSize = cfg.StackInit
	}
	if cfg.GCThreshold > 0 {
		vmCfg.GCThreshold = cfg.GCThreshold
	}
	if cfg.MaxCallDepth > 0 {
		vmCfg.MaxCallDepth = cfg.MaxCallDepth
	}
	p.gc.AllocThreshold = vmCfg.GCThreshold
	p.machine = vm.New(vmCfg, p.gc)
	p.machine.ExtraRoots = func(push func(object.Value)) {
		for _, v := range p.pinned {
			push(v)
		}
	}
	p.RegisterNative("gc", func(args []object.Value) (object.Value, error) {
		p.CollectGarbage()
		return object.Null, nil
	})
	return p
}

// FileName implements token.FileNames, resolving FileID 0 to the name
// passed to the most recent CompileString/CompileFile call.
func (p *Program) FileName(id token.FileID) string { return p.files[id] }

// Err returns the most recent error raised by a Program method, matching
// the reference implementation's get_error(p); it is cleared by the next
// successful call.
func (p *Program) Err() error { return p.lastErr }

// RegisterNative exposes fn to corvid source under name, callable and
// assignable exactly like a corvid-defined function.
func (p *Program) RegisterNative(name string, fn NativeFunc) {
	p.natives[name] = fn
}

// CompileString parses and compiles text (tagged as file id 0, named
// name for error messages), adding its functions to the Program's
// top-level namespace. A function already declared by a prior
// CompileString/CompileFile call is a compile error, matching the
// reference's "function already declared" behavior across includes.
func (p *Program) CompileString(name, text string) error {
	p.files[0] = name
	lex := lexer.New(text, nil)
	ps := parser.New(lex)
	chunk, err := ps.Parse()
	if err != nil {
		p.lastErr = toCompileError(err)
		return p.lastErr
	}
	return p.compileChunk(chunk)
}

// CompileFile reads and compiles the source file at path, adding its
// functions to the Program's top-level namespace.
func (p *Program) CompileFile(path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		p.lastErr = err
		return err
	}
	return p.CompileString(path, string(text))
}

func (p *Program) compileChunk(chunk *ast.Chunk) error {
	c := compiler.New(p.natives)
	res, err := c.Compile(chunk)
	if err != nil {
		p.lastErr = toCompileError(err)
		return p.lastErr
	}
	for _, name := range res.Order {
		if _, dup := p.funcs[name]; dup {
			p.lastErr = &CompileError{Msg: fmt.Sprintf("function %q already declared", name)}
			return p.lastErr
		}
		p.funcs[name] = res.Funcs[name]
		p.order = append(p.order, name)
	}
	p.lastErr = nil
	return nil
}

func toCompileError(err error) error {
	switch e := err.(type) {
	case *lexer.Error:
		return &CompileError{Pos: e.Pos, Msg: e.Msg}
	case *parser.Error:
		return &CompileError{Pos: e.Pos, Msg: e.Msg}
	case *compiler.Error:
		return &CompileError{Pos: e.Pos, Msg: e.Msg}
	default:
		return &CompileError{Msg: err.Error()}
	}
}

// Call looks up a compiled top-level function by name and runs it with
// args, matching the reference's call(p, func_name, args, n_args, out_ret).
func (p *Program) Call(name string, args ...object.Value) (object.Value, error) {
	def, ok := p.funcs[name]
	if !ok {
		err := fmt.Errorf("undefined function %q", name)
		p.lastErr = err
		return object.Null, err
	}
	cl := object.NewClosure(def, nil)
	p.gc.Alloc(cl, p.machine)
	result, err := p.machine.Call(cl, args)
	if err != nil {
		p.lastErr = err
		return object.Null, err
	}
	p.lastErr = nil
	return result, nil
}

// FuncDef returns the compiled definition of a top-level function, for
// the "-d" dump flag.
func (p *Program) FuncDef(name string) (*object.FuncDef, bool) {
	def, ok := p.funcs[name]
	return def, ok
}

// NewStringArray builds a corvid array of strings, used to pass a
// script's command-line arguments to its "main" function as spec.md §6
// requires.
func (p *Program) NewStringArray(ss []string) object.Value {
	items := make([]object.Value, len(ss))
	for i, s := range ss {
		str := object.NewString(s)
		p.gc.Alloc(str, p.machine)
		items[i] = object.FromObject(str)
	}
	arr := object.NewArray(items)
	p.gc.Alloc(arr, p.machine)
	return object.FromObject(arr)
}

// Display renders v for human-readable output, as the CLI does with a
// script's return value.
func (p *Program) Display(v object.Value) string {
	return display(v)
}

func display(v object.Value) string {
	switch v.Tag() {
	case object.TagNull:
		return "null"
	case object.TagBool:
		return fmt.Sprintf("%t", v.Bool())
	case object.TagNumber:
		return fmt.Sprintf("%g", v.Number())
	case object.TagString:
		return v.String_().Go()
	case object.TagArray:
		a := v.Array()
		parts := make([]string, a.Len())
		for i := range parts {
			item, _ := a.Get(i)
			parts[i] = display(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case object.TagMap:
		return "<map>"
	case object.TagClosure, object.TagCFunc:
		return "<function>"
	default:
		return v.Tag().String()
	}
}

// CollectGarbage runs one mark-and-sweep cycle immediately, matching the
// reference's fh_collect_garbage.
func (p *Program) CollectGarbage() { p.gc.Collect(p.machine) }

// HeapCount returns the number of currently live heap objects.
func (p *Program) HeapCount() int { return p.gc.Count() }

// Pin protects v's heap object (if any) from the next collection,
// regardless of reachability, matching the reference's pin(obj). Values
// without a heap object (null, bool, number, native function) are
// no-ops.
func (p *Program) Pin(v object.Value) {
	if o := v.Object(); o != nil {
		object.Pin(o)
	}
	p.pinned = append(p.pinned, v)
}

// Unpin reverses Pin.
func (p *Program) Unpin(v object.Value) {
	if o := v.Object(); o != nil {
		object.Unpin(o)
	}
	for i, pv := range p.pinned {
		if object.Equal(pv, v) {
			p.pinned = append(p.pinned[:i], p.pinned[i+1:]...)
			return
		}
	}
}
