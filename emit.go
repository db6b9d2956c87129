package pikl

import (
	"encoding/binary"
	"io"
	"math"
	"strconv"
)

// Emitter writes the fixed byte sequences the restricted opcode set
// defines, one primitive per opcode family, directly grounded on
// chutneygen.c's chutney_save_* functions (each of which writes exactly
// one opcode plus its fixed-layout argument and nothing else).
type Emitter struct {
	w   io.Writer
	err error
}

// NewEmitter wraps w. Every Save* method is a no-op once a prior call has
// failed; check [Emitter.Err] once after a sequence of calls instead of
// after each one, mirroring chutneygen.c's style of letting a single
// failed fwrite short-circuit the rest of a dump.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Err returns the first write error encountered, if any.
func (e *Emitter) Err() error { return e.err }

func (e *Emitter) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *Emitter) writeByte(b byte) {
	e.write([]byte{b})
}

func (e *Emitter) SaveStop() { e.writeByte(opStop) }
func (e *Emitter) SaveMark() { e.writeByte(opMark) }
func (e *Emitter) SaveNone() { e.writeByte(opNone) }

func (e *Emitter) SaveBool(v bool) {
	if v {
		e.writeByte(opNewtrue)
	} else {
		e.writeByte(opNewfalse)
	}
}

// SaveInt writes BININT2 when v fits two unsigned bytes, BININT when it
// fits a signed 32-bit word, and otherwise falls back to the ASCII INT
// opcode (spec decision: out-of-range int64 values use INT rather than a
// new opcode), matching chutney_save_int's BININT2-vs-BININT choice plus
// the documented fallback for the wider Go int64 domain.
func (e *Emitter) SaveInt(v int64) {
	switch {
	case v >= 0 && v <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = opBinint2
		binary.LittleEndian.PutUint16(buf[1:], uint16(v))
		e.write(buf)
	case v >= math.MinInt32 && v <= math.MaxInt32:
		buf := make([]byte, 5)
		buf[0] = opBinint
		binary.LittleEndian.PutUint32(buf[1:], uint32(int32(v)))
		e.write(buf)
	default:
		e.writeByte(opInt)
		e.write([]byte(strconv.FormatInt(v, 10)))
		e.write([]byte{'\n'})
	}
}

// SaveFloat always writes BINFLOAT as IEEE-754 big-endian, per SPEC_FULL.md
// decision (d): regardless of host layout, the wire format is always
// big-endian, unlike chutneygen.c's native-layout-plus-swap approach.
func (e *Emitter) SaveFloat(v float64) {
	if detectFloatLayout() == floatLayoutUnsupported {
		if e.err == nil {
			e.err = errBadFloatPlatform
		}
		return
	}
	buf := make([]byte, 9)
	buf[0] = opBinfloat
	binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v))
	e.write(buf)
}

// SaveString writes SHORT_BINSTRING when b fits an unsigned byte length,
// otherwise BINSTRING with a 4-byte little-endian length.
func (e *Emitter) SaveString(b []byte) {
	if len(b) <= 0xff {
		e.writeByte(opShortBinstring)
		e.writeByte(byte(len(b)))
		e.write(b)
		return
	}
	e.saveLengthPrefixed(opBinstring, b)
}

// SaveUTF8 writes BINUNICODE: a 4-byte little-endian byte length followed
// by the UTF-8 encoded payload.
func (e *Emitter) SaveUTF8(b []byte) {
	e.saveLengthPrefixed(opBinunicode, b)
}

func (e *Emitter) saveLengthPrefixed(op byte, b []byte) {
	buf := make([]byte, 5)
	buf[0] = op
	binary.LittleEndian.PutUint32(buf[1:], uint32(len(b)))
	e.write(buf)
	e.write(b)
}

// SaveTuple writes the TUPLE opcode alone; the caller is responsible for
// having already emitted MARK and the element values.
func (e *Emitter) SaveTuple() { e.writeByte(opTuple) }

func (e *Emitter) SaveEmptyDict() { e.writeByte(opEmptyDict) }

// SaveSetItems writes the SETITEMS opcode alone; the caller is responsible
// for having already emitted MARK and the key/value pairs.
func (e *Emitter) SaveSetItems() { e.writeByte(opSetitems) }

// SaveGlobal writes the GLOBAL opcode followed by the module and name,
// each newline-terminated, matching s_global_module/load_global's
// two-line-reader pairing in chutneyparse.c.
func (e *Emitter) SaveGlobal(module, name string) {
	e.writeByte(opGlobal)
	e.write([]byte(module))
	e.write([]byte{'\n'})
	e.write([]byte(name))
	e.write([]byte{'\n'})
}

// SaveObj writes the OBJ opcode alone; the caller is responsible for
// having already emitted MARK and the single class reference.
func (e *Emitter) SaveObj() { e.writeByte(opObj) }

// SaveBuild writes the BUILD opcode alone; the caller is responsible for
// having already emitted the object and its state value.
func (e *Emitter) SaveBuild() { e.writeByte(opBuild) }
