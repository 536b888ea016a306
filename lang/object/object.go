package object

import (
	"github.com/dolthub/maphash"
)

// Object is implemented by every heap-allocated type: String, Array,
// Map, FuncDef, Closure, Upvalue. Every object embeds Header, which
// links it into the program-wide allocation list and carries its GC
// bits.
type Object interface {
	header() *Header
	tag() Tag
	// children appends this object's directly-reachable child values onto
	// dst and returns the result, used by the GC mark phase. Objects with
	// no children (String) return dst unchanged.
	children(dst []Value) []Value
}

// Header is embedded by every heap object. It links the object into the
// program-wide allocation list and carries the two GC bits (mark, pin).
type Header struct {
	next   Object
	marked bool
	pinned bool
}

func (h *Header) header() *Header { return h }

// Marked reports whether the object survived the most recent mark phase.
func (h *Header) Marked() bool { return h.marked }

// Pinned reports whether the object is protected from the next sweep
// regardless of reachability.
func (h *Header) Pinned() bool { return h.pinned }

// String is an immutable, length-prefixed, hashed byte string.
type String struct {
	Header
	s    string
	hash uint64
}

var hasher maphash.Hasher[string]

func init() { hasher = maphash.NewHasher[string]() }

// NewString constructs a String object (not yet linked into any heap;
// use GC.Alloc to register it).
func NewString(s string) *String {
	return &String{s: s, hash: hasher.Hash(s)}
}

func (s *String) tag() Tag                  { return TagString }
func (s *String) children(dst []Value) []Value { return dst }
func (s *String) Len() int                  { return len(s.s) }
func (s *String) Go() string                { return s.s }
func (s *String) Hash() uint64              { return s.hash }
func (s *String) Equal(o *String) bool {
	return s.hash == o.hash && s.s == o.s
}

// Array is a mutable, zero-based, integer-indexed sequence with
// amortized-doubling growth on append.
type Array struct {
	Header
	items []Value
}

// NewArray constructs an Array pre-populated with items (copied).
func NewArray(items []Value) *Array {
	a := &Array{items: make([]Value, len(items))}
	copy(a.items, items)
	return a
}

func (a *Array) tag() Tag { return TagArray }
func (a *Array) children(dst []Value) []Value {
	return append(dst, a.items...)
}
func (a *Array) Len() int { return len(a.items) }
func (a *Array) Get(i int) (Value, bool) {
	if i < 0 || i >= len(a.items) {
		return Value{}, false
	}
	return a.items[i], true
}
func (a *Array) Set(i int, v Value) bool {
	if i < 0 || i >= len(a.items) {
		return false
	}
	a.items[i] = v
	return true
}
func (a *Array) Append(v Value) { a.items = append(a.items, v) }

// FuncDef is an immutable compiled function: its name, parameter count,
// register count, instruction vector, constant pool, upvalue-capture
// descriptors and source-location map.
type FuncDef struct {
	Header
	Name       string
	NumParams  int
	NumRegs    int
	Code       []uint32
	Consts     []Value
	Upvals     []UpvalDesc
	SrcLocs    []byte // variable-length encoded, see lang/compiler
	SourceFile uint16
}

// UpvalKind distinguishes where a closure's upvalue cell is captured
// from when a CLOSURE instruction constructs it.
type UpvalKind uint8

const (
	UpvalFromReg   UpvalKind = iota // capture a register of the enclosing frame
	UpvalFromOuter                  // copy an upvalue cell of the enclosing closure
)

// UpvalDesc is one entry of a FuncDef's upvalue-capture list.
type UpvalDesc struct {
	Kind  UpvalKind
	Index int
}

func (f *FuncDef) tag() Tag { return TagFuncDef }
func (f *FuncDef) children(dst []Value) []Value {
	return append(dst, f.Consts...)
}

// Closure pairs a FuncDef with a vector of upvalue cells: the callable
// runtime entity.
type Closure struct {
	Header
	Def    *FuncDef
	Upvals []*Upvalue
}

// NewClosure constructs a Closure over def with the given upvalue cells.
func NewClosure(def *FuncDef, upvals []*Upvalue) *Closure {
	return &Closure{Def: def, Upvals: upvals}
}

func (c *Closure) tag() Tag { return TagClosure }
func (c *Closure) children(dst []Value) []Value {
	dst = append(dst, FromObject(c.Def))
	for _, u := range c.Upvals {
		dst = append(dst, FromObject(u))
	}
	return dst
}

// Upvalue is a movable handle to a value: open, it points at a live VM
// stack slot; closed, it owns an internal value slot.
type Upvalue struct {
	Header
	slot    *Value // non-nil while open: points into the VM stack
	storage Value  // owned value once closed
	// Next is an optional link field; the VM tracks open cells in its own
	// per-frame slices and does not set it.
	Next *Upvalue
}

// NewOpenUpvalue constructs an Upvalue currently open over slot.
func NewOpenUpvalue(slot *Value) *Upvalue {
	return &Upvalue{slot: slot}
}

func (u *Upvalue) tag() Tag { return TagUpval }
func (u *Upvalue) children(dst []Value) []Value {
	return append(dst, u.Get())
}

// IsOpen reports whether u still refers to a live stack slot.
func (u *Upvalue) IsOpen() bool { return u.slot != nil }

// Slot returns the stack slot pointer for an open upvalue (nil once
// closed); the VM compares it by identity when looking up an open cell.
func (u *Upvalue) Slot() *Value { return u.slot }

// Get returns the value currently referenced by u, whether open or
// closed.
func (u *Upvalue) Get() Value {
	if u.slot != nil {
		return *u.slot
	}
	return u.storage
}

// Set writes through u to whichever storage it currently references.
func (u *Upvalue) Set(v Value) {
	if u.slot != nil {
		*u.slot = v
		return
	}
	u.storage = v
}

// Close snapshots the current value into u's own storage and detaches it
// from the stack slot, matching close_upval in the reference VM.
func (u *Upvalue) Close() {
	if u.slot == nil {
		return
	}
	u.storage = *u.slot
	u.slot = nil
	u.Next = nil
}

// Rebase repoints an open upvalue at slot, the new address of the stack
// cell it captured after the VM has grown and copied its value stack. A
// no-op once u is closed.
func (u *Upvalue) Rebase(slot *Value) {
	if u.slot != nil {
		u.slot = slot
	}
}
