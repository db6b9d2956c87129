package pikl

import (
	"reflect"
	"strconv"
	"testing"
)

func roundTrip(t *testing.T, v any) any {
	t.Helper()
	data, err := Dumps(v)
	if err != nil {
		t.Fatalf("Dumps(%#v): %s", v, err)
	}
	got, err := Loads(data)
	if err != nil {
		t.Fatalf("Loads(%x): %s", data, err)
	}
	return got
}

func TestRoundTripScalars(t *testing.T) {
	cases := []any{
		nil,
		true,
		false,
		int64(42),
		int64(-7),
		3.5,
		"hello",
		Bytes("bytes"),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		want := v
		if want == nil {
			want = None{}
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("roundtrip(%#v) = %#v", v, got)
		}
	}
}

func TestRoundTripTupleAndListCoercion(t *testing.T) {
	got := roundTrip(t, Tuple{int64(1), int64(2), "three"})
	want := Tuple{int64(1), int64(2), "three"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}

	// Go slices (list-like) encode the same way as Tuple and decode back as
	// Tuple: the documented list/tuple asymmetry.
	got = roundTrip(t, []any{int64(1), int64(2)})
	want = Tuple{int64(1), int64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
}

func TestRoundTripMap(t *testing.T) {
	got := roundTrip(t, map[string]any{"a": int64(1), "b": int64(2)})
	d, ok := got.(*Dict)
	if !ok {
		t.Fatalf("got %#v, want *Dict", got)
	}
	if v, _ := d.Get("a"); v != int64(1) {
		t.Fatalf("dict[a] = %#v", v)
	}
	if v, _ := d.Get("b"); v != int64(2) {
		t.Fatalf("dict[b] = %#v", v)
	}
}

func TestRoundTripBatchedDict(t *testing.T) {
	m := make(map[string]any, 2500)
	for i := 0; i < 2500; i++ {
		m["k"+strconv.Itoa(i)] = int64(i)
	}
	got := roundTrip(t, m)
	d, ok := got.(*Dict)
	if !ok {
		t.Fatalf("got %#v, want *Dict", got)
	}
	if d.Len() != len(m) {
		t.Fatalf("got %d entries, want %d", d.Len(), len(m))
	}
	for k, v := range m {
		got, ok := d.Get(k)
		if !ok || got != v {
			t.Fatalf("dict[%s] = %#v, %v; want %#v, true", k, got, ok, v)
		}
	}
}

type greeting struct {
	Name string
	Age  int64
}

func (greeting) PickleClass() Class { return Class{Module: "example", Name: "Greeting"} }

func TestRoundTripClassOf(t *testing.T) {
	registry := NewClassRegistry()
	registry.Allow("example", "Greeting")

	data, err := Dumps(greeting{Name: "Ada", Age: 30})
	if err != nil {
		t.Fatal(err)
	}
	v, err := (Config{Registry: registry}).Loads(data)
	if err != nil {
		t.Fatal(err)
	}
	inst, ok := v.(*Instance)
	if !ok {
		t.Fatalf("got %#v, want *Instance", v)
	}
	if inst.Class != (Class{Module: "example", Name: "Greeting"}) {
		t.Fatalf("got class %#v", inst.Class)
	}
	if inst.State["Name"] != "Ada" || inst.State["Age"] != int64(30) {
		t.Fatalf("got state %#v", inst.State)
	}
}

type customState struct{}

func (customState) HasCustomState() bool { return true }

func TestUnpickleableCustomStateRejected(t *testing.T) {
	_, err := Dumps(customState{})
	if err != errUnpickleableState {
		t.Fatalf("got %v, want errUnpickleableState", err)
	}
}

func TestUnpickleableTypeRejected(t *testing.T) {
	_, err := Dumps(make(chan int))
	if _, ok := err.(*TypeError); !ok {
		t.Fatalf("got %T (%v), want *TypeError", err, err)
	}
}

func TestRecursionGuard(t *testing.T) {
	var build func(depth int) any
	build = func(depth int) any {
		if depth == 0 {
			return int64(0)
		}
		return []any{build(depth - 1)}
	}
	deep := build(defaultMaxDepth + 10)
	_, err := Dumps(deep)
	if err != errRecursionLimit {
		t.Fatalf("got %v, want errRecursionLimit", err)
	}
}
