package buffer

import "testing"

func TestAppendStringAndStringAt(t *testing.T) {
	var b Bytes
	off1 := b.AppendString("hello")
	off2 := b.AppendString("world")

	if got := b.StringAt(off1); got != "hello" {
		t.Fatalf("StringAt(off1) = %q, want %q", got, "hello")
	}
	if got := b.StringAt(off2); got != "world" {
		t.Fatalf("StringAt(off2) = %q, want %q", got, "world")
	}
}

func TestAppendReturnsWriteOffset(t *testing.T) {
	var b Bytes
	off := b.Append([]byte("abc"))
	if off != 0 {
		t.Fatalf("first Append offset = %d, want 0", off)
	}
	off2 := b.Append([]byte("de"))
	if off2 != 3 {
		t.Fatalf("second Append offset = %d, want 3", off2)
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
}

func TestGrowPastInitialCapacity(t *testing.T) {
	var b Bytes
	big := make([]byte, initialCap*3)
	for i := range big {
		big[i] = 'x'
	}
	off := b.Append(big)
	if off != 0 {
		t.Fatalf("offset = %d, want 0", off)
	}
	if b.Len() != len(big) {
		t.Fatalf("Len() = %d, want %d", b.Len(), len(big))
	}
	// appending after the growth must not corrupt prior data.
	b.AppendByte('y')
	if b.Bytes()[len(big)] != 'y' {
		t.Fatalf("byte appended after growth was not preserved")
	}
}
