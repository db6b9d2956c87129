package pikl

import (
	"errors"
	"reflect"
	"testing"
)

func feedAll(t *testing.T, p *Parser, data []byte, chunk int) (any, error) {
	t.Helper()
	for len(data) > 0 {
		n := chunk
		if n <= 0 || n > len(data) {
			n = len(data)
		}
		consumed, status, err := p.Feed(data[:n])
		if err != nil {
			return nil, err
		}
		data = data[consumed:]
		if status == Done {
			v, _ := p.ResultTaken()
			return v, nil
		}
		if consumed == 0 && n == len(data) {
			// avoid infinite loop if nothing was consumed and nothing left to add
			break
		}
	}
	t.Fatalf("ran out of input before DONE")
	return nil, nil
}

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser(NewNativeCallbacks(nil))
	if err != nil {
		t.Fatalf("NewParser: %s", err)
	}
	return p
}

func TestScenarioNone(t *testing.T) {
	p := newTestParser(t)
	v, err := feedAll(t, p, []byte("N."), -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(None); !ok {
		t.Fatalf("got %#v, want None", v)
	}
}

func TestScenarioBool(t *testing.T) {
	for _, tc := range []struct {
		data []byte
		want bool
	}{
		{[]byte("\x88."), true},
		{[]byte("\x89."), false},
	} {
		p := newTestParser(t)
		v, err := feedAll(t, p, tc.data, -1)
		if err != nil {
			t.Fatal(err)
		}
		if v != tc.want {
			t.Fatalf("got %#v, want %v", v, tc.want)
		}
	}
}

func TestScenarioInt(t *testing.T) {
	p := newTestParser(t)
	v, err := feedAll(t, p, []byte("J\x2a\x00\x00\x00."), -1)
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(42) {
		t.Fatalf("got %#v, want 42", v)
	}

	p2 := newTestParser(t)
	v2, err := feedAll(t, p2, []byte("I42\n."), -1)
	if err != nil {
		t.Fatal(err)
	}
	if v2 != int64(42) {
		t.Fatalf("got %#v, want 42", v2)
	}
}

func TestScenarioTuple(t *testing.T) {
	p := newTestParser(t)
	data := []byte("(J\x01\x00\x00\x00J\x02\x00\x00\x00t.")
	v, err := feedAll(t, p, data, -1)
	if err != nil {
		t.Fatal(err)
	}
	want := Tuple{int64(1), int64(2)}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %#v, want %#v", v, want)
	}
}

func TestScenarioDict(t *testing.T) {
	p := newTestParser(t)
	data := []byte("}(U\x01aJ\x01\x00\x00\x00u.")
	v, err := feedAll(t, p, data, -1)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := v.(*Dict)
	if !ok {
		t.Fatalf("got %#v, want *Dict", v)
	}
	got, ok := d.Get(Bytes("a"))
	if !ok || got != int64(1) {
		t.Fatalf("dict[a] = %#v, %v; want 1, true", got, ok)
	}
}

func TestScenarioInstance(t *testing.T) {
	registry := NewClassRegistry()
	registry.Allow("M", "C")
	p, err := NewParser(NewNativeCallbacks(registry))
	if err != nil {
		t.Fatal(err)
	}
	// MARK, GLOBAL M\nC\n, OBJ, EMPTY_DICT, MARK, "x" 7, SETITEMS, BUILD, STOP
	data := []byte("(cM\nC\no}(U\x01xJ\x07\x00\x00\x00ub.")
	v, err := feedAll(t, p, data, -1)
	if err != nil {
		t.Fatal(err)
	}
	inst, ok := v.(*Instance)
	if !ok {
		t.Fatalf("got %#v, want *Instance", v)
	}
	if inst.Class != (Class{Module: "M", Name: "C"}) {
		t.Fatalf("got class %#v", inst.Class)
	}
	if inst.State["x"] != int64(7) {
		t.Fatalf("got state %#v", inst.State)
	}
}

func TestChunkInvariance(t *testing.T) {
	data := []byte("(cM\nC\no}(U\x01xJ\x07\x00\x00\x00ub.")
	registry := NewClassRegistry()
	registry.Allow("M", "C")

	whole, err := Config{Registry: registry}.Loads(data)
	if err != nil {
		t.Fatal(err)
	}

	for _, chunk := range []int{1, 2, 3, 7} {
		p, err := NewParser(NewNativeCallbacks(registry))
		if err != nil {
			t.Fatal(err)
		}
		v, err := feedAll(t, p, append([]byte(nil), data...), chunk)
		if err != nil {
			t.Fatalf("chunk size %d: %s", chunk, err)
		}
		if !reflect.DeepEqual(v, whole) {
			t.Fatalf("chunk size %d: got %#v, want %#v", chunk, v, whole)
		}
	}
}

func TestFeedWantMoreThenDone(t *testing.T) {
	p := newTestParser(t)
	first := []byte("(J\x01\x00\x00\x00t")
	n, status, err := p.Feed(first)
	if err != nil {
		t.Fatal(err)
	}
	if status != WantMore || n != len(first) {
		t.Fatalf("got n=%d status=%s, want full consume + want-more", n, status)
	}
	n, status, err = p.Feed([]byte("."))
	if err != nil {
		t.Fatal(err)
	}
	if status != Done || n != 1 {
		t.Fatalf("got n=%d status=%s, want done", n, status)
	}
	v, ok := p.Result()
	if !ok {
		t.Fatal("Result() not ok")
	}
	want := Tuple{int64(1)}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("got %#v, want %#v", v, want)
	}
}

func TestRejectForeignOpcode(t *testing.T) {
	p := newTestParser(t)
	_, status, err := p.Feed([]byte("\xffQ"))
	if status != Err {
		t.Fatalf("got status %s, want Err", status)
	}
	var opErr *OpcodeError
	if !errors.As(err, &opErr) {
		t.Fatalf("got err %v, want *OpcodeError", err)
	}
	if opErr.Key != 0xff {
		t.Fatalf("got key %#x, want 0xff", opErr.Key)
	}
}

func TestOddSetitemsIsParseError(t *testing.T) {
	p := newTestParser(t)
	data := []byte("}(U\x01aU\x01bU\x01cu.")
	_, status, err := p.Feed(data)
	if status != Err {
		t.Fatalf("got status %s, want Err", status)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("got err %v, want *ParseError", err)
	}
}

func TestStopWithWrongDepthIsStackError(t *testing.T) {
	p := newTestParser(t)
	data := []byte("NN.")
	_, status, err := p.Feed(data)
	if status != Err {
		t.Fatalf("got status %s, want Err", status)
	}
	var stackErr *StackError
	if !errors.As(err, &stackErr) {
		t.Fatalf("got err %v, want *StackError", err)
	}
}

func TestNoMarkErrorOnBareTuple(t *testing.T) {
	p := newTestParser(t)
	_, status, err := p.Feed([]byte("t"))
	if status != Err {
		t.Fatalf("got status %s, want Err", status)
	}
	var noMark *NoMarkError
	if !errors.As(err, &noMark) {
		t.Fatalf("got err %v, want *NoMarkError", err)
	}
}

// TestDeallocOnRejectedGroup covers the three places where markPopSlice
// hands a parse error's caller a group of values it popped but never put
// to use: the odd-length and empty-dict-below-mark branches of SETITEMS,
// and the not-exactly-one-value branch of OBJ. Every popped handle must
// still reach Dealloc, mirroring chutneyparse.c's stack_dealloc calls in
// dict_setitems/load_object before they return a parse error.
func TestDeallocOnRejectedGroup(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		// empty dict, MARK, "a" "b" "c", SETITEMS, STOP: odd count (3)
		// rejects the group of 3; the dict itself is freed on Close.
		{"odd setitems", "}(U\x01aU\x01bU\x01cu.", 4},
		// MARK, "a" "b", SETITEMS with no dict below the mark: rejects
		// the group of 2; nothing else is left on the stack.
		{"empty dict below mark", "(U\x01aU\x01bu.", 2},
		// MARK, None, None, OBJ: rejects the group of 2 (want exactly 1).
		{"obj not singleton", "(NNo.", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var freed []any
			cb := NewNativeCallbacks(nil)
			cb.Dealloc = func(v any) { freed = append(freed, v) }

			p, err := NewParser(cb)
			if err != nil {
				t.Fatal(err)
			}
			_, status, ferr := p.Feed([]byte(tt.data))
			if status != Err || ferr == nil {
				t.Fatalf("expected error, got status=%s err=%v", status, ferr)
			}
			var parseErr *ParseError
			if !errors.As(ferr, &parseErr) {
				t.Fatalf("got err %v, want *ParseError", ferr)
			}
			p.Close()
			if len(freed) != tt.want {
				t.Fatalf("got %d deallocs, want %d", len(freed), tt.want)
			}
		})
	}
}

func TestOwnershipCleanupOnError(t *testing.T) {
	var freed []any
	cb := NewNativeCallbacks(nil)
	cb.Dealloc = func(v any) { freed = append(freed, v) }

	p, err := NewParser(cb)
	if err != nil {
		t.Fatal(err)
	}
	// Push two values, then hit STOP with depth 2: StackError.
	_, status, ferr := p.Feed([]byte("NN."))
	if status != Err || ferr == nil {
		t.Fatalf("expected error, got status=%s err=%v", status, ferr)
	}
	p.Close()
	if len(freed) != 2 {
		t.Fatalf("got %d deallocs, want 2", len(freed))
	}
}
