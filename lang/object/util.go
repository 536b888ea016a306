package object

import (
	"math"
	"reflect"
)

func mathFloat64bits(f float64) uint64 { return math.Float64bits(f) }

// objAddr returns a stable integer identity for a heap object, used both
// by Map's hash function and anywhere object-identity equality needs a
// hashable surrogate. All Object implementations in this package are
// pointer types, so the interface's dynamic pointer value is a valid
// identity.
func objAddr(o Object) uintptr {
	return reflect.ValueOf(o).Pointer()
}
