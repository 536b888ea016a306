package symtab_test

import (
	"testing"

	"github.com/mna/corvid/lang/symtab"
)

func TestInternDedupesAndAssignsDenseIDs(t *testing.T) {
	tab := symtab.New()
	a := tab.Intern("foo")
	b := tab.Intern("bar")
	again := tab.Intern("foo")

	if a != again {
		t.Fatalf("interning the same string twice gave different ids: %d vs %d", a, again)
	}
	if a == b {
		t.Fatalf("distinct strings got the same id")
	}
	if tab.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tab.Len())
	}
}

func TestNameRoundTrip(t *testing.T) {
	tab := symtab.New()
	id := tab.Intern("hello")
	if got := tab.Name(id); got != "hello" {
		t.Fatalf("Name(%d) = %q, want %q", id, got, "hello")
	}
}

func TestLookupMissingSymbol(t *testing.T) {
	tab := symtab.New()
	tab.Intern("present")
	if _, ok := tab.Lookup("absent"); ok {
		t.Fatalf("Lookup found a symbol that was never interned")
	}
}
