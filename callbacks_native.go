package pikl

import "fmt"

// ClassRegistry is an explicit allow-list of (module, name) pairs a GLOBAL
// opcode is permitted to resolve to, the codec's only answer to Python
// pickle's best-known exploit: GLOBAL naming an arbitrary importable
// callable. Its zero value is usable and starts empty, meaning no class
// resolves and every GLOBAL opcode fails closed.
//
// Grounded on chutney.c's creators table, which only ever binds a fixed,
// compiled-in set of Python wrapper constructors rather than resolving
// names dynamically; the registry generalizes that "only what was
// explicitly wired in" posture to a caller-extensible table.
type ClassRegistry struct {
	classes map[Class]bool
}

// NewClassRegistry returns an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[Class]bool)}
}

// Allow adds (module, name) to the set of classes GLOBAL may resolve.
func (r *ClassRegistry) Allow(module, name string) {
	if r.classes == nil {
		r.classes = make(map[Class]bool)
	}
	r.classes[Class{Module: module, Name: name}] = true
}

// Allowed reports whether (module, name) was previously registered via
// Allow.
func (r *ClassRegistry) Allowed(module, name string) bool {
	return r.classes[Class{Module: module, Name: name}]
}

// NewNativeCallbacks returns the reference [Callbacks] table: it
// materializes the native Go value domain documented in doc.go (None,
// bool, int64, float64, [Bytes], string, [Tuple], *[Dict], *[Instance]) and
// resolves GLOBAL only against registry. Passing a nil registry is
// equivalent to an empty one: every GLOBAL fails.
//
// Grounded on ogórek's Decoder load* methods for the value domain, and on
// chutney.c's creators table for the shape of a from-scratch callback
// binding.
func NewNativeCallbacks(registry *ClassRegistry) *Callbacks {
	if registry == nil {
		registry = NewClassRegistry()
	}
	return &Callbacks{
		Dealloc: func(v any) {},

		MakeNone:  func() (any, error) { return None{}, nil },
		MakeBool:  func(v bool) (any, error) { return v, nil },
		MakeInt:   func(v int64) (any, error) { return v, nil },
		MakeFloat: func(v float64) (any, error) { return v, nil },

		MakeString:  func(b []byte) (any, error) { return Bytes(b), nil },
		MakeUnicode: func(b []byte) (any, error) { return string(b), nil },

		MakeTuple: func(values []any) (any, error) {
			t := make(Tuple, len(values))
			copy(t, values)
			return t, nil
		},

		MakeEmptyDict: func() (any, error) { return NewDict(), nil },
		DictSetItems: func(dict any, pairs []any) error {
			d, ok := dict.(*Dict)
			if !ok {
				return &TypeError{Type: fmt.Sprintf("%T", dict)}
			}
			for i := 0; i < len(pairs); i += 2 {
				d.Set(pairs[i], pairs[i+1])
			}
			return nil
		},

		ResolveGlobal: func(module, name string) (any, error) {
			if !registry.Allowed(module, name) {
				return nil, fmt.Errorf("pikl: class %s.%s is not in the allow-list", module, name)
			}
			return Class{Module: module, Name: name}, nil
		},
		MakeObject: func(cls any) (any, error) {
			c, ok := cls.(Class)
			if !ok {
				return nil, &TypeError{Type: fmt.Sprintf("%T", cls)}
			}
			return &Instance{Class: c, State: make(map[string]any)}, nil
		},
		ObjectBuild: func(obj any, state any) error {
			inst, ok := obj.(*Instance)
			if !ok {
				return &TypeError{Type: fmt.Sprintf("%T", obj)}
			}
			switch s := state.(type) {
			case *Dict:
				s.Iter()(func(k, v any) bool {
					switch key := k.(type) {
					case string:
						inst.State[key] = v
					case Bytes:
						inst.State[string(key)] = v
					}
					return true
				})
			case nil:
			default:
				return &TypeError{Type: fmt.Sprintf("%T", state)}
			}
			return nil
		},
	}
}
