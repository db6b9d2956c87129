package pikl

// None is the native representation of Python's None, mirroring
// ogórek.None.
type None struct{}

// Bytes is a Python byte string (str under Python 2, bytes under Python 3),
// distinct from [string] which always round-trips as pickle unicode. This
// mirrors ogórek.Bytes/ogórek.ByteString, collapsed to a single type
// because this codec does not distinguish pickle protocol versions on
// decode.
type Bytes string

// Tuple is an ordered sequence, mirroring ogórek.Tuple. Both Python tuples
// and lists decode to Tuple, and both Go slices and Tuple encode to pickle
// TUPLE: this codec does not model the tuple/list distinction (see doc.go).
type Tuple []any

// Class identifies a Python class by module and (possibly dotted,
// attribute-access) name, mirroring ogórek.Class. Resolution on decode
// never imports a module; see [ClassRegistry].
type Class struct {
	Module, Name string
}

// Instance is a plain attribute-mapping object built from a resolved
// [Class] and a flat key/value state, the "instance" value kind of
// spec.md §4.2. It is what [Callbacks.MakeObject]/[Callbacks.ObjectBuild]
// produce by default and what the visit driver emits GLOBAL/OBJ/BUILD for.
type Instance struct {
	Class Class
	State map[string]any
}

// ClassOf lets a Go value opt into being encoded as an "instance": a value
// implementing ClassOf is visited as GLOBAL(Class)+OBJ followed by its
// exported fields as the BUILD state, unless it also implements
// [Stateful] and reports a custom state hook, in which case it is
// rejected as unpickleable instead.
type ClassOf interface {
	PickleClass() Class
}

// Stateful lets a value report whether it relies on a user-controlled
// state hook (the Python __getstate__/__reduce__ family) rather than a
// plain attribute mapping. spec.md §4.2 requires the visit driver to
// refuse such values rather than guess at their semantics, since replaying
// a custom reduction safely is exactly the capability this codec declines
// to offer: a value whose HasCustomState returns true is always rejected
// with "unpickleable", never partially encoded.
type Stateful interface {
	HasCustomState() bool
}
