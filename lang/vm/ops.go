package vm

import (
	"math"

	"github.com/mna/corvid/lang/compiler"
	"github.com/mna/corvid/lang/object"
)

func getElement(container, key object.Value) (object.Value, error) {
	switch container.Tag() {
	case object.TagArray:
		if key.Tag() != object.TagNumber {
			return object.Null, errf("invalid array access (non-numeric index)")
		}
		v, ok := container.Array().Get(int(key.Number()))
		if !ok {
			return object.Null, errf("invalid array index")
		}
		return v, nil
	case object.TagMap:
		v, ok := container.Map().Get(key)
		if !ok {
			return object.Null, errf("key not in map")
		}
		return v, nil
	default:
		return object.Null, errf("invalid element access (non-container object)")
	}
}

func setElement(container, key, val object.Value) error {
	switch container.Tag() {
	case object.TagArray:
		if key.Tag() != object.TagNumber {
			return errf("invalid array access (non-numeric index)")
		}
		if !container.Array().Set(int(key.Number()), val) {
			return errf("invalid array index")
		}
		return nil
	case object.TagMap:
		if key.IsNull() {
			return errf("can't use null as a map key")
		}
		container.Map().Set(key, val)
		return nil
	default:
		return errf("invalid element access (non-container object)")
	}
}

func arith(op compiler.Opcode, b, c object.Value) (object.Value, error) {
	if b.Tag() != object.TagNumber || c.Tag() != object.TagNumber {
		return object.Null, errf("arithmetic on non-numeric values")
	}
	x, y := b.Number(), c.Number()
	switch op {
	case compiler.ADD:
		return object.Number(x + y), nil
	case compiler.SUB:
		return object.Number(x - y), nil
	case compiler.MUL:
		return object.Number(x * y), nil
	case compiler.DIV:
		return object.Number(x / y), nil
	case compiler.MOD:
		return object.Number(math.Mod(x, y)), nil
	default:
		return object.Null, errf("not an arithmetic opcode: %v", op)
	}
}

func compare(op compiler.Opcode, b, c object.Value) (object.Value, error) {
	if b.Tag() != object.TagNumber || c.Tag() != object.TagNumber {
		return object.Null, errf("comparison on non-numeric values")
	}
	x, y := b.Number(), c.Number()
	switch op {
	case compiler.CMP_LT:
		return object.Bool(x < y), nil
	case compiler.CMP_LE:
		return object.Bool(x <= y), nil
	default:
		return object.Null, errf("not a comparison opcode: %v", op)
	}
}
