package pikl

import (
	"fmt"
	"reflect"
	"sort"
)

// defaultMaxDepth bounds recursion the same way chutney.c's save() checks
// Py_GetRecursionLimit() before descending into a container: a guard
// against unbounded or cyclic structures, not a meaningful domain limit.
const defaultMaxDepth = 1000

// DumperConfig controls [Dumper] behavior.
type DumperConfig struct {
	// MaxDepth bounds container nesting depth. Zero means defaultMaxDepth.
	MaxDepth int
}

// Dumper walks a Go value with reflect and drives an [Emitter] to encode
// it, the value-visit counterpart to [Parser]. Grounded on chutney.c's
// save() dispatcher (None/bool/int/float/string/unicode/tuple-or-list/dict
// cases) and encode.go's reflect-based type switch for extending that
// dispatch to arbitrary Go kinds.
type Dumper struct {
	e     *Emitter
	cfg   DumperConfig
	depth int
}

// NewDumper returns a Dumper that writes through e.
func NewDumper(e *Emitter, cfg DumperConfig) *Dumper {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	return &Dumper{e: e, cfg: cfg}
}

// Dump visits v and writes it, terminated by STOP.
func (d *Dumper) Dump(v any) error {
	if err := d.visit(v); err != nil {
		return err
	}
	d.e.SaveStop()
	return d.e.Err()
}

func (d *Dumper) visit(v any) error {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > d.cfg.MaxDepth {
		return errRecursionLimit
	}

	if v == nil {
		d.e.SaveNone()
		return d.e.Err()
	}

	switch x := v.(type) {
	case None:
		d.e.SaveNone()
		return d.e.Err()
	case bool:
		d.e.SaveBool(x)
		return d.e.Err()
	case Bytes:
		d.e.SaveString([]byte(x))
		return d.e.Err()
	case string:
		d.e.SaveUTF8([]byte(x))
		return d.e.Err()
	case Tuple:
		return d.visitSequence([]any(x))
	case *Dict:
		return d.visitDict(x)
	case *Instance:
		return d.visitInstance(x.Class, x.State)
	case Class:
		d.e.SaveGlobal(x.Module, x.Name)
		return d.e.Err()
	}

	if s, ok := v.(Stateful); ok && s.HasCustomState() {
		return errUnpickleableState
	}
	if c, ok := v.(ClassOf); ok {
		return d.visitClassOf(c)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		d.e.SaveBool(rv.Bool())
		return d.e.Err()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		d.e.SaveInt(rv.Int())
		return d.e.Err()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > (1<<63 - 1) {
			return &TypeError{Type: rv.Type().String()}
		}
		d.e.SaveInt(int64(u))
		return d.e.Err()
	case reflect.Float32, reflect.Float64:
		d.e.SaveFloat(rv.Float())
		return d.e.Err()
	case reflect.String:
		d.e.SaveUTF8([]byte(rv.String()))
		return d.e.Err()
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			d.e.SaveString(b)
			return d.e.Err()
		}
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return d.visitSequence(values)
	case reflect.Map:
		return d.visitReflectMap(rv)
	case reflect.Struct:
		return d.visitStruct(rv)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			d.e.SaveNone()
			return d.e.Err()
		}
		return d.visit(rv.Elem().Interface())
	default:
		return &TypeError{Type: rv.Type().String()}
	}
}

func (d *Dumper) visitSequence(values []any) error {
	d.e.SaveMark()
	for _, v := range values {
		if err := d.visit(v); err != nil {
			return err
		}
	}
	d.e.SaveTuple()
	return d.e.Err()
}

// visitDict writes EMPTY_DICT followed by its pairs in batches of at most
// batchSize, chutney.c's save() PyDict_Check branch (CHUTNEY_BATCHSIZE).
func (d *Dumper) visitDict(dict *Dict) error {
	d.e.SaveEmptyDict()
	return d.visitPairs(dict.Keys(), func(k any) (any, bool) { return dict.Get(k) })
}

func (d *Dumper) visitReflectMap(rv reflect.Value) error {
	d.e.SaveEmptyDict()
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%#v", keys[i].Interface()) < fmt.Sprintf("%#v", keys[j].Interface())
	})
	anyKeys := make([]any, len(keys))
	for i, k := range keys {
		anyKeys[i] = k.Interface()
	}
	return d.visitPairs(anyKeys, func(k any) (any, bool) {
		return rv.MapIndex(reflect.ValueOf(k)).Interface(), true
	})
}

func (d *Dumper) visitPairs(keys []any, get func(any) (any, bool)) error {
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		d.e.SaveMark()
		for _, k := range keys[start:end] {
			v, ok := get(k)
			if !ok {
				continue
			}
			if err := d.visit(k); err != nil {
				return err
			}
			if err := d.visit(v); err != nil {
				return err
			}
		}
		d.e.SaveSetItems()
		if err := d.e.Err(); err != nil {
			return err
		}
	}
	return d.e.Err()
}

func (d *Dumper) visitStruct(rv reflect.Value) error {
	t := rv.Type()
	state := make(map[string]any)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, skip := structFieldName(f)
		if skip {
			continue
		}
		state[name] = rv.Field(i).Interface()
	}
	return d.visitInstance(Class{Module: "builtins", Name: t.Name()}, state)
}

// structFieldName returns a field's pickle attribute name, honoring a
// `pikl:"name"` tag and a `pikl:"-"` skip marker, mirroring
// encode.go's getStructTags convention.
func structFieldName(f reflect.StructField) (name string, skip bool) {
	tag := f.Tag.Get("pikl")
	if tag == "-" {
		return "", true
	}
	if tag != "" {
		return tag, false
	}
	return f.Name, false
}

func (d *Dumper) visitClassOf(c ClassOf) error {
	cls := c.PickleClass()
	state := make(map[string]any)
	rv := reflect.ValueOf(c)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := structFieldName(f)
			if skip {
				continue
			}
			state[name] = rv.Field(i).Interface()
		}
	}
	return d.visitInstance(cls, state)
}

// visitInstance writes GLOBAL(class) + OBJ + state BUILD, the "instance"
// shape of spec.md §4.2, grounded on chutneyparse.c's load_global/
// load_object/object_build sequence read in reverse (encode instead of
// decode).
func (d *Dumper) visitInstance(cls Class, state map[string]any) error {
	d.e.SaveMark()
	d.e.SaveGlobal(cls.Module, cls.Name)
	d.e.SaveObj()
	if err := d.e.Err(); err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	anyKeys := make([]any, len(keys))
	for i, k := range keys {
		anyKeys[i] = k
	}
	if err := d.visitPairsForStruct(anyKeys, state); err != nil {
		return err
	}
	d.e.SaveBuild()
	return d.e.Err()
}

func (d *Dumper) visitPairsForStruct(keys []any, state map[string]any) error {
	d.e.SaveEmptyDict()
	return d.visitPairs(keys, func(k any) (any, bool) {
		v, ok := state[k.(string)]
		return v, ok
	})
}
