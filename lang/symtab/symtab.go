// Package symtab implements the interned symbol table used by the
// compiler: a bijection between a string and a compact id, backed
// by an append-only byte arena. Interning is a linear scan, matching the
// reference implementation's trade-off of simplicity over speed for the
// expected identifier volumes of a script.
package symtab

import "github.com/mna/corvid/internal/buffer"

// ID is a symbol identifier: a small dense integer assigned in the order
// symbols are first interned.
type ID uint32

// Table interns strings into a compact id space.
type Table struct {
	arena   buffer.Bytes
	offsets []int // ID -> offset into arena
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{}
}

// Intern returns the ID for s, adding it to the table if not already
// present.
func (t *Table) Intern(s string) ID {
	if id, ok := t.Lookup(s); ok {
		return id
	}
	off := t.arena.AppendString(s)
	t.offsets = append(t.offsets, off)
	return ID(len(t.offsets) - 1)
}

// Lookup returns the ID already assigned to s, if any.
func (t *Table) Lookup(s string) (ID, bool) {
	for id, off := range t.offsets {
		if t.arena.StringAt(off) == s {
			return ID(id), true
		}
	}
	return 0, false
}

// Name returns the string interned under id. It panics if id is out of
// range, since that always indicates a compiler bug.
func (t *Table) Name(id ID) string {
	return t.arena.StringAt(t.offsets[id])
}

// Len returns the number of distinct interned symbols.
func (t *Table) Len() int { return len(t.offsets) }
