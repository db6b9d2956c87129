package pikl

// Pickle opcodes this codec understands, named the way CPython's
// pickletools/Modules/_pickle.c names them. Only this subset is ever
// accepted by the parser or produced by the emitter; every other pickle
// opcode (PUT, BINPUT, GET, BINGET, REDUCE, PERSID, BINPERSID, LONG,
// LONG1/4, DICT, LIST, APPEND(S), INST, NEWOBJ, the extension-registry
// opcodes, PROTO, FRAME, and the protocol-4 memoizing opcodes) is
// intentionally unimplemented: it falls through to [OpcodeError] in the
// parser's OPCODE state, and is never emitted.
const (
	opMark           byte = '(' // push mark object
	opStop           byte = '.' // every pickle ends with STOP
	opNone           byte = 'N' // push None
	opNewtrue        byte = '\x88' // push True
	opNewfalse       byte = '\x89' // push False
	opInt            byte = 'I' // push int/bool; ASCII decimal argument
	opBinint         byte = 'J' // push four-byte little-endian signed int
	opBinint2        byte = 'M' // push two-byte little-endian unsigned int
	opBinfloat       byte = 'G' // push float; eight-byte big-endian IEEE-754 argument
	opShortBinstring byte = 'U' // push byte string; one-byte length + bytes
	opBinstring      byte = 'T' // push byte string; four-byte LE length + bytes
	opBinunicode     byte = 'X' // push unicode string; four-byte LE length + UTF-8 bytes
	opTuple          byte = 't' // pop to MARK, push tuple
	opEmptyDict      byte = '}' // push empty dict
	opSetitems       byte = 'u' // pop key/value pairs to MARK into dict below MARK
	opGlobal         byte = 'c' // push resolved (module, name); two NL-terminated args
	opObj            byte = 'o' // pop class ref to MARK, push new instance
	opBuild          byte = 'b' // pop state, apply to object below it on the stack
)

// ASCII encodings of bool under the INT opcode, used by protocols that
// predate NEWTRUE/NEWFALSE. Not emitted by this codec (which always uses
// NEWTRUE/NEWFALSE) but still accepted on decode, since INT is otherwise
// used for it.
const (
	intTrueLine  = "01"
	intFalseLine = "00"
)

// batchSize bounds the number of key/value pairs emitted under a single
// SETITEMS group, limiting peak operand-stack growth while parsing a large
// dict.
const batchSize = 1000
