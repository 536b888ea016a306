// Package buffer implements the growable, never-shrinking byte buffer
// that backs the symbol table's string arena. It grows by doubling from a
// small initial chunk and never releases capacity, matching the allocation discipline of the reference
// implementation's buffer/stack types.
package buffer

// initialCap is the starting capacity for a freshly grown buffer, chosen
// to keep small scripts from reallocating more than once or twice.
const initialCap = 256

// Bytes is a growable, append-only byte buffer.
type Bytes struct {
	data []byte
}

// Len returns the number of bytes currently stored.
func (b *Bytes) Len() int { return len(b.data) }

// Bytes returns the underlying storage. The caller must not retain it
// across further appends.
func (b *Bytes) Bytes() []byte { return b.data }

// Append adds p to the end of the buffer and returns the offset at which
// it was written.
func (b *Bytes) Append(p []byte) int {
	off := len(b.data)
	if cap(b.data)-len(b.data) < len(p) {
		b.grow(len(p))
	}
	b.data = append(b.data, p...)
	return off
}

// AppendByte appends a single byte and returns its offset.
func (b *Bytes) AppendByte(c byte) int {
	off := len(b.data)
	if cap(b.data) == len(b.data) {
		b.grow(1)
	}
	b.data = append(b.data, c)
	return off
}

// AppendString appends a NUL-terminated copy of s, matching the packed
// string-arena layout used by the symbol table, and returns the offset of
// the first byte.
func (b *Bytes) AppendString(s string) int {
	off := b.Append([]byte(s))
	b.AppendByte(0)
	return off
}

func (b *Bytes) grow(atLeast int) {
	newCap := cap(b.data) * 2
	if newCap == 0 {
		newCap = initialCap
	}
	for newCap-len(b.data) < atLeast {
		newCap *= 2
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// StringAt reads a NUL-terminated string starting at offset off.
func (b *Bytes) StringAt(off int) string {
	end := off
	for end < len(b.data) && b.data[end] != 0 {
		end++
	}
	return string(b.data[off:end])
}
