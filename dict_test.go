package pikl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDictNumericKeyEquality(t *testing.T) {
	d := NewDict()
	d.Set(int64(1), "from-int")
	d.Set(true, "from-bool") // True == 1, overwrites the int64(1) entry

	v, ok := d.Get(float64(1.0))
	require.True(t, ok, "float64(1.0) did not find the int64(1)/true entry")
	if v != "from-bool" {
		t.Fatalf("got %#v, want from-bool (last writer wins under equal keys)", v)
	}
	if d.Len() != 1 {
		t.Fatalf("got %d entries, want 1", d.Len())
	}
}

func TestDictStringAndBytesKeysDoNotCollide(t *testing.T) {
	d := NewDict()
	d.Set("a", "string-key")
	d.Set(Bytes("a"), "bytes-key")

	if d.Len() != 2 {
		t.Fatalf("got %d entries, want 2", d.Len())
	}
	sv, _ := d.Get("a")
	bv, _ := d.Get(Bytes("a"))
	if sv != "string-key" || bv != "bytes-key" {
		t.Fatalf("got sv=%#v bv=%#v", sv, bv)
	}
}

func TestDictTupleKeyEquality(t *testing.T) {
	d := NewDict()
	d.Set(Tuple{int64(1), "x"}, "first")

	v, ok := d.Get(Tuple{int64(1), "x"})
	if !ok || v != "first" {
		t.Fatalf("got %#v, %v", v, ok)
	}

	_, ok = d.Get(Tuple{int64(1), "y"})
	if ok {
		t.Fatal("expected no match for a differing tuple element")
	}
}

func TestDictNoneKeyOnlyEqualsNone(t *testing.T) {
	d := NewDict()
	d.Set(None{}, "nil-value")

	if _, ok := d.Get(int64(0)); ok {
		t.Fatal("None must not equal any numeric key")
	}
	if v, ok := d.Get(None{}); !ok || v != "nil-value" {
		t.Fatalf("got %#v, %v", v, ok)
	}
}

func TestDictKeysDeterministicOrder(t *testing.T) {
	d := NewDict()
	d.Set("b", 2)
	d.Set("a", 1)
	d.Set("c", 3)

	first := d.Keys()
	second := d.Keys()
	if len(first) != 3 {
		t.Fatalf("got %d keys, want 3", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Keys() not stable across calls: %v vs %v", first, second)
		}
	}
}

func TestDictUnhashableKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unhashable key type")
		}
	}()
	d := NewDict()
	d.Set(struct{ X int }{1}, "boom")
}
