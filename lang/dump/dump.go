// Package dump renders a parsed Chunk or a compiled FuncDef as readable
// text, for the "-d" debug flag. It is intentionally terse: a debugging
// aid, not a stable serialization format.
package dump

import (
	"fmt"
	"strings"

	"github.com/mna/corvid/lang/ast"
	"github.com/mna/corvid/lang/compiler"
	"github.com/mna/corvid/lang/object"
)

// Chunk renders every function declaration in c as "function NAME(params)".
func Chunk(c *ast.Chunk) string {
	var sb strings.Builder
	for _, fn := range c.Funcs {
		fmt.Fprintf(&sb, "function %s(%s)\n", fn.Name, strings.Join(fn.Params, ", "))
	}
	return sb.String()
}

// FuncDef renders def's disassembled bytecode: one "PC OP A B C" line per
// instruction, followed by its constant pool.
func FuncDef(def *object.FuncDef) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s(%d params, %d regs)\n", nameOrAnon(def.Name), def.NumParams, def.NumRegs)
	for pc, instr := range def.Code {
		op := compiler.DecodeOp(instr)
		a := compiler.DecodeA(instr)
		switch op {
		case compiler.LDC, compiler.LDNULL, compiler.CLOSURE, compiler.RET, compiler.NEWARRAY, compiler.NEWMAP:
			fmt.Fprintf(&sb, "%4d  %-8s A=%d U=%d\n", pc, op, a, compiler.DecodeU(instr))
		case compiler.JMP:
			fmt.Fprintf(&sb, "%4d  %-8s A=%d S=%d\n", pc, op, a, compiler.DecodeS(instr))
		default:
			fmt.Fprintf(&sb, "%4d  %-8s A=%d B=%d C=%d\n", pc, op, a, compiler.DecodeB(instr), compiler.DecodeC(instr))
		}
	}
	for i, c := range def.Consts {
		fmt.Fprintf(&sb, "const %d: %s\n", i, constString(c))
	}
	return sb.String()
}

func nameOrAnon(name string) string {
	if name == "" {
		return "<anonymous>"
	}
	return name
}

func constString(v object.Value) string {
	switch v.Tag() {
	case object.TagNumber:
		return fmt.Sprintf("%g", v.Number())
	case object.TagBool:
		return fmt.Sprintf("%t", v.Bool())
	case object.TagString:
		return fmt.Sprintf("%q", v.String_().Go())
	case object.TagFuncDef:
		return fmt.Sprintf("<func %s>", nameOrAnon(v.FuncDef().Name))
	case object.TagCFunc:
		return "<native>"
	default:
		return v.Tag().String()
	}
}
