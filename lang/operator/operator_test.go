package operator_test

import (
	"testing"

	"github.com/mna/corvid/lang/operator"
)

func TestGetPrefersBinaryOverPrefix(t *testing.T) {
	// "-" appears in both tables; Get must resolve it to the binary entry.
	e, ok := operator.Get("-")
	if !ok {
		t.Fatal("Get(\"-\") not found")
	}
	if e.Op != operator.OpSub {
		t.Fatalf("Get(\"-\") = %v, want OpSub", e.Op)
	}
}

func TestPrefixOpFindsUnaryMinus(t *testing.T) {
	e, ok := operator.PrefixOp("-")
	if !ok {
		t.Fatal("PrefixOp(\"-\") not found")
	}
	if e.Op != operator.OpNeg || e.Assoc != operator.Prefix {
		t.Fatalf("PrefixOp(\"-\") = %+v, want OpNeg/Prefix", e)
	}
}

func TestBinaryOpUnknownSpelling(t *testing.T) {
	if _, ok := operator.BinaryOp("=>"); ok {
		t.Fatal("BinaryOp matched a spelling that isn't in the table")
	}
}

func TestByOpRoundTrip(t *testing.T) {
	e, ok := operator.ByOp(operator.OpMul)
	if !ok {
		t.Fatal("ByOp(OpMul) not found")
	}
	if e.Name != "*" {
		t.Fatalf("ByOp(OpMul).Name = %q, want \"*\"", e.Name)
	}
}

func TestEffectivePrecAssociativity(t *testing.T) {
	left := operator.Entry{Prec: 50, Assoc: operator.Left}
	if left.EffectivePrec() != 50 {
		t.Fatalf("left-assoc EffectivePrec = %d, want 50", left.EffectivePrec())
	}
	right := operator.Entry{Prec: 50, Assoc: operator.Right}
	if right.EffectivePrec() != 49 {
		t.Fatalf("right-assoc EffectivePrec = %d, want 49", right.EffectivePrec())
	}
}
