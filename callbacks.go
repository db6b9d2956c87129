package pikl

// Callbacks is the host-value-construction interface the parser uses to
// materialize values, mirroring chutney.h's chutney_load_callbacks /
// chutney.c's creators table. Every value the parser pushes onto its
// operand stack was returned by one of these functions; the parser never
// constructs a host value any other way, and never reenters itself from a
// callback.
//
// A MakeXxx/ResolveGlobal callback returning a non-nil error is surfaced to
// the caller as [CallbackError] and aborts the parse. Returning (nil, nil)
// is treated the same as the C API's NULL-without-exception-set case: it is
// also surfaced as CallbackError, since the parser must always either have
// a value to push or a reason it doesn't.
//
// MakeTuple, DictSetItems and ObjectBuild take ownership of every handle
// they are passed regardless of whether they succeed: on failure the
// callback itself is responsible for releasing them via Dealloc (the
// parser does not call Dealloc a second time on inputs it has handed off).
type Callbacks struct {
	// Dealloc releases a handle the parser will not use again: every value
	// remaining on the operand stack when the parser aborts on error, and
	// tuple/dict-pair elements a failed MakeTuple/DictSetItems must give
	// back. Required.
	Dealloc func(v any)

	MakeNone  func() (any, error)
	MakeBool  func(v bool) (any, error)
	MakeInt   func(v int64) (any, error)
	MakeFloat func(v float64) (any, error)

	// MakeString materializes a pickle byte string (SHORT_BINSTRING/
	// BINSTRING).
	MakeString func(b []byte) (any, error)
	// MakeUnicode materializes a pickle unicode string (BINUNICODE).
	MakeUnicode func(b []byte) (any, error)

	// MakeTuple takes ownership of every element of values, in order,
	// regardless of outcome.
	MakeTuple func(values []any) (any, error)

	MakeEmptyDict func() (any, error)
	// DictSetItems applies the key/value pairs in pairs (laid out
	// key0, value0, key1, value1, ...) to dict, which remains on the
	// operand stack afterwards. It takes ownership of every pair element
	// regardless of outcome.
	DictSetItems func(dict any, pairs []any) error

	// ResolveGlobal resolves a (module, name) pair to a class reference.
	// It MUST NOT trigger a dynamic module import or otherwise execute
	// code outside an explicit, already-known allow-list: this is the
	// codec's sole defense against arbitrary code execution via GLOBAL,
	// per spec.md §9's safety posture.
	ResolveGlobal func(module, name string) (any, error)
	// MakeObject builds a new instance from a resolved class reference,
	// taking ownership of cls.
	MakeObject func(cls any) (any, error)
	// ObjectBuild applies state to obj, which remains on the operand
	// stack on success. It takes ownership of state regardless of
	// outcome.
	ObjectBuild func(obj any, state any) error
}

// validate reports the first required callback that is nil, mirroring the
// assert(callbacks->x != NULL) sequence chutney_load_init runs before
// accepting a callback table.
func (c *Callbacks) validate() error {
	required := []struct {
		name string
		set  bool
	}{
		{"Dealloc", c.Dealloc != nil},
		{"MakeNone", c.MakeNone != nil},
		{"MakeBool", c.MakeBool != nil},
		{"MakeInt", c.MakeInt != nil},
		{"MakeFloat", c.MakeFloat != nil},
		{"MakeString", c.MakeString != nil},
		{"MakeUnicode", c.MakeUnicode != nil},
		{"MakeTuple", c.MakeTuple != nil},
		{"MakeEmptyDict", c.MakeEmptyDict != nil},
		{"DictSetItems", c.DictSetItems != nil},
		{"ResolveGlobal", c.ResolveGlobal != nil},
		{"MakeObject", c.MakeObject != nil},
		{"ObjectBuild", c.ObjectBuild != nil},
	}
	for _, r := range required {
		if !r.set {
			return &CallbackError{Callback: r.name, Err: errMissingCallback}
		}
	}
	return nil
}
