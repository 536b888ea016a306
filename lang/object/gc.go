package object

// Roots supplies the GC with everything reachable without traversal:
// the live region of the VM value stack, the active frames' closures,
// every open upvalue cell, and every host-owned transient root (values a
// native callable is mid-construction with). Implemented by lang/vm's
// Machine; lang/corvid's Program adds its roots through the Machine's
// ExtraRoots hook.
type Roots interface {
	// WalkRoots calls push for every root value, including pinned objects
	// (GC itself also checks the Pinned bit independently as a backstop,
	// since pinned objects may be mid-construction and not yet reachable
	// through any of the listed roots).
	WalkRoots(push func(Value))
}

// GC owns the program-wide list of every live heap object and implements
// tracing mark-and-sweep collection over a caller-supplied root set.
type GC struct {
	all   Object // head of the singly-linked allocation list
	count int
	// AllocThreshold triggers automatic collection from Alloc once count
	// exceeds it; zero disables automatic collection (explicit Collect
	// calls still work). Mirrors "natural points chosen by the implementation
	// after allocation when heap pressure crosses a threshold" (spec §4.6).
	AllocThreshold int
}

// NewGC returns a GC with no live objects.
func NewGC() *GC { return &GC{} }

// Alloc links o into the program's object list, returning it for chaining.
// The constructors in this package do not call it: only objects a caller
// passes through Alloc are tracked and can be swept.
func (g *GC) Alloc(o Object, roots Roots) Object {
	h := o.header()
	h.next = g.all
	g.all = o
	g.count++
	if g.AllocThreshold > 0 && g.count > g.AllocThreshold && roots != nil {
		g.Collect(roots)
	}
	return o
}

// Pin protects o from the next sweep regardless of reachability, for use
// while a native callable or the VM is mid-construction of a container
// whose elements are not yet all reachable from a declared root.
func Pin(o Object) { o.header().pinned = true }

// Unpin clears the pin set by Pin.
func Unpin(o Object) { o.header().pinned = false }

// Count returns the number of live objects currently tracked.
func (g *GC) Count() int { return g.count }

// Collect runs one mark-and-sweep cycle: mark every object reachable
// from roots (or pinned), then free everything else.
func (g *GC) Collect(roots Roots) {
	g.mark(roots)
	g.sweep()
}

func (g *GC) mark(roots Roots) {
	for o := g.all; o != nil; o = o.header().next {
		o.header().marked = false
	}

	var worklist []Object
	markOne := func(v Value) {
		d := v
		if d.tag < TagString {
			return // inline value, not a heap object
		}
		o := d.obj
		if o == nil || o.header().marked {
			return
		}
		o.header().marked = true
		worklist = append(worklist, o)
	}

	if roots != nil {
		roots.WalkRoots(markOne)
	}
	for o := g.all; o != nil; o = o.header().next {
		if o.header().pinned && !o.header().marked {
			o.header().marked = true
			worklist = append(worklist, o)
		}
	}

	for len(worklist) > 0 {
		o := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		var children []Value
		children = o.children(children)
		for _, c := range children {
			markOne(c)
		}
	}
}

func (g *GC) sweep() {
	var head Object
	var tail Object
	kept := 0
	for o := g.all; o != nil; {
		next := o.header().next
		if o.header().marked {
			o.header().marked = false
			o.header().next = nil
			if head == nil {
				head = o
			} else {
				tail.header().next = o
			}
			tail = o
			kept++
		}
		o = next
	}
	g.all = head
	g.count = kept
}
