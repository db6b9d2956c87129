// Package pikl implements a safe, restricted codec for a subset of Python's
// pickle wire format (protocols 0-2).
//
// Unlike stock pickle, parsing never executes arbitrary code: the parser
// never imports a module and never calls an arbitrary constructor. It
// materializes values exclusively through a fixed [Callbacks] table supplied
// by the caller, so the set of things a pickle stream can cause to happen is
// exactly the set of things the callback table is willing to do.
//
// Use [NewParser] to build a value incrementally from a stream:
//
//	p, err := pikl.NewParser(callbacks)
//	for {
//		n, status, err := p.Feed(chunk)
//		chunk = chunk[n:]
//		...
//	}
//	v, ok := p.Result()
//
// or [Load]/[Loads] for a single value from an [io.Reader] or an in-memory
// buffer using the built-in native
// Go value domain. Use [Dump]/[Dumps] to encode a Go value back to the wire
// format.
//
// # Supported wire subset
//
//	Python           Go (native callback table)
//	------           --------------------------
//	None             pikl.None
//	bool             bool
//	int              int64
//	float            float64
//	bytes/str        pikl.Bytes
//	unicode          string
//	tuple, list      pikl.Tuple            (+)
//	dict             *pikl.Dict
//	class/instance   pikl.Class / *pikl.Instance
//
// (+) Python lists and tuples are both encoded as pickle TUPLE and both
// decode to [Tuple]; this codec does not distinguish them, and does not
// preserve shared or cyclic references. See the package-level Non-goals in
// the project's design notes for the full list of pickle features
// deliberately left unsupported: PUT/GET memoization, REDUCE, persistent
// IDs, arbitrary-precision integers, the extension registry, and
// __reduce__/__setstate__-style customization hooks. A stream that uses any
// of these, or any opcode outside the supported set, is rejected with
// [OpcodeError] rather than partially interpreted.
package pikl
