package pikl

// Dict is a dictionary with Python-shaped key equality for the value kinds
// this codec supports; it does not preserve insertion order. Adapted from ogórek.Dict (itself
// backed by github.com/aristanetworks/gomap) but trimmed down: this codec
// has no big.Int, no memoized cross-type numeric tower, and no
// ByteString/Bytes/string three-way ambiguity, so the equal/hash pair below
// only has to cover None, bool, int64, float64, string, Bytes and Tuple.

import (
	"fmt"
	"hash/maphash"
	"math"
	"sort"

	"github.com/aristanetworks/gomap"
)

// writeUint64 feeds the big-endian bytes of u into h, giving dictKeyHash a
// stable way to mix numeric and nested-hash values into a running hash.
func writeUint64(h *maphash.Hash, u uint64) {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
	h.Write(b[:])
}

// Dict is the native mapping value for pickle dicts. Its zero value is an
// unusable nil dictionary; use [NewDict].
type Dict struct {
	m *gomap.Map[any, any]
}

// NewDict returns a new, empty dictionary.
func NewDict() *Dict {
	return NewDictWithSizeHint(0)
}

// NewDictWithSizeHint returns a new, empty dictionary with preallocated
// space for size items.
func NewDictWithSizeHint(size int) *Dict {
	return &Dict{m: gomap.NewHint[any, any](size, dictKeyEqual, dictKeyHash)}
}

// Get returns the value associated with an equal key, and whether one was
// found.
func (d *Dict) Get(key any) (value any, ok bool) {
	return d.m.Get(key)
}

// Set associates key with value, replacing any existing equal key.
//
// Set panics if key's type is not one of the supported key kinds (see
// [Dict]'s doc comment).
func (d *Dict) Set(key, value any) {
	d.m.Set(key, value)
}

// Len returns the number of entries in the dictionary.
func (d *Dict) Len() int {
	if d.m == nil {
		return 0
	}
	return d.m.Len()
}

// Iter returns an iterator over all entries, in arbitrary order.
func (d *Dict) Iter() func(yield func(key, value any) bool) {
	if d.m == nil {
		return func(func(any, any) bool) {}
	}
	it := d.m.Iter()
	return func(yield func(any, any) bool) {
		for it.Next() {
			if !yield(it.Key(), it.Elem()) {
				return
			}
		}
	}
}

// Keys returns the dictionary's keys sorted by their formatted
// representation, so callers that need a deterministic order (tests,
// cmd/pikldump) don't depend on map iteration order.
func (d *Dict) Keys() []any {
	keys := make([]any, 0, d.Len())
	d.Iter()(func(k, _ any) bool {
		keys = append(keys, k)
		return true
	})
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%#v", keys[i]) < fmt.Sprintf("%#v", keys[j])
	})
	return keys
}

// dictKind classifies a supported key value for cross-type numeric
// equality (so int64(1), float64(1.0) are considered the same key, as
// Python's dict does).
type dictKind int

const (
	dictKindOther dictKind = iota
	dictKindNone
	dictKindBool
	dictKindInt
	dictKindFloat
	dictKindString
	dictKindBytes
	dictKindTuple
)

func dictKindOf(x any) dictKind {
	switch x.(type) {
	case None:
		return dictKindNone
	case bool:
		return dictKindBool
	case int64:
		return dictKindInt
	case float64:
		return dictKindFloat
	case string:
		return dictKindString
	case Bytes:
		return dictKindBytes
	case Tuple:
		return dictKindTuple
	default:
		return dictKindOther
	}
}

// numericValue extracts a float64 view of x for cross-numeric-kind
// comparison; ok is false for non-numeric kinds.
func numericValue(x any) (float64, bool) {
	switch v := x.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// dictKeyEqual implements the equality gomap.Map needs, matching Python's
// dict key equality for the kinds this codec supports: numbers compare
// across kind (True == 1 == 1.0), strings and byte strings never compare
// equal to each other, tuples compare element-wise.
func dictKeyEqual(a, b any) bool {
	ak, bk := dictKindOf(a), dictKindOf(b)

	if ak == dictKindNone || bk == dictKindNone {
		return ak == bk
	}
	aNum, aIsNum := numericValue(a)
	bNum, bIsNum := numericValue(b)
	if aIsNum && bIsNum {
		return aNum == bNum
	}
	if ak != bk {
		return false
	}
	switch ak {
	case dictKindString:
		return a.(string) == b.(string)
	case dictKindBytes:
		return a.(Bytes) == b.(Bytes)
	case dictKindTuple:
		at, bt := a.(Tuple), b.(Tuple)
		if len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !dictKeyEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// dictKeyHash implements the hash gomap.Map needs, consistent with
// dictKeyEqual: equal keys must hash equal.
func dictKeyHash(seed maphash.Seed, x any) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)

	if n, ok := numericValue(x); ok {
		// Integral floats must hash the same as the equal integer, so a
		// float key and an int key collide the way Python's does.
		if i := int64(n); float64(i) == n {
			writeUint64(&h, uint64(i))
		} else {
			writeUint64(&h, math.Float64bits(n))
		}
		return h.Sum64()
	}

	switch v := x.(type) {
	case None:
		h.WriteString("none")
	case string:
		h.WriteString("str:")
		h.WriteString(v)
	case Bytes:
		h.WriteString("bytes:")
		h.WriteString(string(v))
	case Tuple:
		h.WriteString("tuple")
		for _, e := range v {
			writeUint64(&h, dictKeyHash(seed, e))
		}
	default:
		panic(fmt.Sprintf("pikl: unhashable dict key type %T", x))
	}
	return h.Sum64()
}
