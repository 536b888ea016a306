package object

import (
	"reflect"

	"github.com/dolthub/swiss"
)

// Map is corvid's key→value mapping. Keys may be any value except null.
// It is backed by a swiss-table map keyed on a hash of the corvid key
// value, with same-hash collisions chained in a small slice per bucket,
// since Go's built-in map requires comparable keys and Value embeds a
// func field (NativeFunc) that disqualifies it from ordinary map-key use.
type Map struct {
	Header
	table *swiss.Map[mapKey, []entry]
	count int
}

type mapKey uint64

type entry struct {
	key Value
	val Value
}

// NewMap constructs an empty Map.
func NewMap() *Map {
	return &Map{table: swiss.NewMap[mapKey, []entry](8)}
}

func (m *Map) tag() Tag { return TagMap }
func (m *Map) children(dst []Value) []Value {
	m.table.Iter(func(_ mapKey, bucket []entry) bool {
		for _, e := range bucket {
			dst = append(dst, e.key, e.val)
		}
		return false
	})
	return dst
}

// Len returns the number of entries in the map.
func (m *Map) Len() int { return m.count }

// hashValue computes the bucket key for v, consistent with object.Equal:
// any two values equal under Equal always hash identically.
func hashValue(v Value) mapKey {
	d := v.deref()
	switch d.tag {
	case TagNull:
		return 0
	case TagBool:
		if d.num != 0 {
			return 2
		}
		return 1
	case TagNumber:
		n := d.num
		if n == 0 {
			n = 0 // -0 and +0 are Equal, so they share a bucket
		}
		return mapKey(mathFloat64bits(n)) | (1 << 63)
	case TagCFunc:
		return mapKey(reflect.ValueOf(d.cf).Pointer())
	case TagString:
		return mapKey(d.obj.(*String).Hash())
	default:
		return mapKey(objAddr(d.obj))
	}
}

// Get looks up key, matching keys in the bucket by Equal to resolve any
// hash collision.
func (m *Map) Get(key Value) (Value, bool) {
	bucket, ok := m.table.Get(hashValue(key))
	if !ok {
		return Value{}, false
	}
	for _, e := range bucket {
		if Equal(e.key, key) {
			return e.val, true
		}
	}
	return Value{}, false
}

// Set inserts or overwrites key→val. The caller must ensure key is not
// null (the language forbids null map keys at the NEWMAP/SETEL
// instruction level, see lang/vm).
func (m *Map) Set(key, val Value) {
	h := hashValue(key)
	bucket, _ := m.table.Get(h)
	for i, e := range bucket {
		if Equal(e.key, key) {
			bucket[i].val = val
			m.table.Put(h, bucket)
			return
		}
	}
	m.table.Put(h, append(bucket, entry{key: key, val: val}))
	m.count++
}

// Delete removes key, reporting whether it was present.
func (m *Map) Delete(key Value) bool {
	h := hashValue(key)
	bucket, ok := m.table.Get(h)
	if !ok {
		return false
	}
	for i, e := range bucket {
		if Equal(e.key, key) {
			bucket = append(bucket[:i], bucket[i+1:]...)
			m.count--
			if len(bucket) == 0 {
				m.table.Delete(h)
			} else {
				m.table.Put(h, bucket)
			}
			return true
		}
	}
	return false
}

// Iterate calls fn for every entry, in unspecified order, matching the
// spec's "no insertion-order guarantee" requirement. Iteration stops
// early if fn returns false.
func (m *Map) Iterate(fn func(key, val Value) bool) {
	m.table.Iter(func(_ mapKey, bucket []entry) bool {
		for _, e := range bucket {
			if !fn(e.key, e.val) {
				return true
			}
		}
		return false
	})
}
