package compiler

import (
	"strings"
	"testing"
)

func TestOpcodeString(t *testing.T) {
	for op := LDC; op < opcodeMax; op++ {
		if opcodeNames[op] == "" {
			t.Errorf("missing string representation of opcode %d", op)
		}
		if s := op.String(); strings.Contains(s, "illegal") {
			t.Errorf("invalid string representation of opcode %d", op)
		}
	}
	if s := opcodeMax.String(); s != "illegal op" {
		t.Errorf("expected out-of-range opcode to stringify as illegal op, got %q", s)
	}
}
