package pikl

import (
	"bytes"
	"math"
	"strconv"

	"encoding/binary"
)

// parserState is the machine's current accumulator mode, mirroring
// chutneyparse.c's CHUTNEY_S_OPCODE/CHUTNEY_S_BUF_NL/CHUTNEY_S_BUF_CNT.
type parserState int

const (
	stateOpcode parserState = iota
	stateBufNL
	stateBufCnt
	stateDone
)

// continuation is the single extension point chutneyparse.c calls
// "completion": the action to run once an accumulator finishes collecting
// bytes. It inspects p.buf and either pushes a value, or chains to another
// accumulator state (e.g. GLOBAL's module-line continuation sets up a
// second BUF_NL read for the class name).
type continuation func(p *Parser) error

// Parser is a resumable, push-driven pickle decoder: an operand stack, a
// mark stack, a byte-collection buffer and a continuation pointer, exactly
// the state chutney_load_state carries. Feed bytes to it in any chunking
// via [Parser.Feed]; it consumes as much as it can and tells you whether it
// needs more.
//
// A Parser must not be fed from within one of its own callbacks: the
// callback table must not reenter the Parser instance that is calling it.
// Distinct Parser instances share no state and may be driven from
// different goroutines concurrently.
type Parser struct {
	callbacks *Callbacks

	state parserState
	cont  continuation

	operand []any
	mark    []int

	buf     []byte
	bufWant int

	// global holds the module name accumulated by GLOBAL's first line,
	// while the second line (the class name) is being read.
	global string

	pos int64 // bytes consumed so far, for error reporting

	err error // sticky: once set, further Feed calls return it immediately
}

// NewParser constructs a Parser around the given callback table. It
// returns an error if a required callback is missing.
func NewParser(callbacks *Callbacks) (*Parser, error) {
	if err := callbacks.validate(); err != nil {
		return nil, err
	}
	return &Parser{
		callbacks: callbacks,
		state:     stateOpcode,
		operand:   make([]any, 0, 256),
	}, nil
}

// Feed advances the parser by consuming a prefix of data and reports how
// many bytes it consumed, and the resulting [Status]. Call Feed again with
// the unconsumed remainder (data[n:]) to continue; WantMore simply means
// the chunk ran out mid-opcode or mid-accumulator, not that anything is
// wrong. Once Feed returns Done or Err, further calls return the same
// status and error without consuming anything.
func (p *Parser) Feed(data []byte) (n int, status Status, err error) {
	if p.err != nil {
		return 0, Err, p.err
	}
	if p.state == stateDone {
		return 0, Done, nil
	}

	i := 0
	for i < len(data) {
		switch p.state {
		case stateOpcode:
			b := data[i]
			i++
			p.pos++
			done, err := p.dispatch(b)
			if err != nil {
				p.err = err
				return i, Err, err
			}
			if done {
				p.state = stateDone
				return i, Done, nil
			}

		case stateBufNL:
			idx := bytes.IndexByte(data[i:], '\n')
			if idx < 0 {
				p.buf = append(p.buf, data[i:]...)
				p.pos += int64(len(data) - i)
				i = len(data)
				continue
			}
			p.buf = append(p.buf, data[i:i+idx]...)
			i += idx + 1
			p.pos += int64(idx + 1)
			if err := p.runContinuation(); err != nil {
				p.err = err
				return i, Err, err
			}

		case stateBufCnt:
			need := p.bufWant - len(p.buf)
			avail := len(data) - i
			take := need
			if avail < take {
				take = avail
			}
			p.buf = append(p.buf, data[i:i+take]...)
			i += take
			p.pos += int64(take)
			if len(p.buf) == p.bufWant {
				if err := p.runContinuation(); err != nil {
					p.err = err
					return i, Err, err
				}
			}
		}

		if p.state == stateDone {
			return i, Done, nil
		}
	}
	return i, WantMore, nil
}

// Result returns the decoded value once Feed has returned Done. It returns
// (nil, false) otherwise.
func (p *Parser) Result() (any, bool) {
	if p.state != stateDone || len(p.operand) != 1 {
		return nil, false
	}
	return p.operand[0], true
}

// Close releases every handle still owned by the parser (the operand
// stack), via Callbacks.Dealloc. Safe to call in any state: fresh,
// mid-stream, after an error, or after Done. Result leaves the decoded
// value on the stack, so Close releases it; ResultTaken removes it first,
// so Close will not release it.
func (p *Parser) Close() {
	for _, v := range p.operand {
		p.callbacks.Dealloc(v)
	}
	p.operand = nil
	p.mark = nil
	p.buf = nil
}

// ResultTaken removes and returns the sole operand-stack entry, the
// ownership-transferring counterpart to Result: after this call Close will
// not release the returned value.
func (p *Parser) ResultTaken() (any, bool) {
	v, ok := p.Result()
	if ok {
		p.operand = p.operand[:0]
	}
	return v, ok
}

func (p *Parser) runContinuation() error {
	cont := p.cont
	p.cont = nil
	p.state = stateOpcode
	err := cont(p)
	p.buf = p.buf[:0]
	return err
}

func (p *Parser) enterBufNL(cont continuation) {
	p.state = stateBufNL
	p.cont = cont
}

func (p *Parser) enterBufCnt(want int, cont continuation) {
	p.state = stateBufCnt
	p.bufWant = want
	p.cont = cont
}

// markPush records the current operand depth, chutneyparse.c's mark_push.
// Growth is a fixed +20-entry chunk per spec.md §4.4 / §9(b), not Go
// slice-append's doubling policy.
func (p *Parser) markPush() {
	if len(p.mark) == cap(p.mark) {
		grown := make([]int, len(p.mark), cap(p.mark)+20)
		copy(grown, p.mark)
		p.mark = grown
	}
	p.mark = append(p.mark, len(p.operand))
}

// markPopSlice pops the most recent mark and returns every operand above
// it, chutneyparse.c's stack_pop_mark. The caller takes ownership of the
// returned slice's contents.
func (p *Parser) markPopSlice() ([]any, error) {
	if len(p.mark) == 0 {
		return nil, errNoMark
	}
	m := p.mark[len(p.mark)-1]
	p.mark = p.mark[:len(p.mark)-1]
	values := p.operand[m:]
	p.operand = p.operand[:m]
	return values, nil
}

func (p *Parser) popN(n int) ([]any, error) {
	if len(p.operand) < n {
		return nil, errStackUnderflow
	}
	k := len(p.operand) - n
	values := p.operand[k:]
	p.operand = p.operand[:k]
	return values, nil
}

// dispatch handles a single OPCODE-state byte, mirroring chutney_load's
// CHUTNEY_S_OPCODE switch. done is true only for STOP.
func (p *Parser) dispatch(b byte) (done bool, err error) {
	switch b {
	case opStop:
		if len(p.operand) != 1 {
			return false, &StackError{Op: b, Err: errStopNotSingleton}
		}
		return true, nil

	case opMark:
		p.markPush()
		return false, nil

	case opNone:
		v, err := p.callbacks.MakeNone()
		return false, p.pushCB("MakeNone", v, err)

	case opNewtrue:
		v, err := p.callbacks.MakeBool(true)
		return false, p.pushCB("MakeBool", v, err)
	case opNewfalse:
		v, err := p.callbacks.MakeBool(false)
		return false, p.pushCB("MakeBool", v, err)

	case opInt:
		p.enterBufNL(contInt)
		return false, nil
	case opBinint:
		p.enterBufCnt(4, contBinInt)
		return false, nil
	case opBinint2:
		p.enterBufCnt(2, contBinInt2)
		return false, nil
	case opBinfloat:
		p.enterBufCnt(8, contBinFloat)
		return false, nil

	case opShortBinstring:
		p.enterBufCnt(1, contShortBinStringLen)
		return false, nil
	case opBinstring:
		p.enterBufCnt(4, contBinStringLen)
		return false, nil
	case opBinunicode:
		p.enterBufCnt(4, contBinUnicodeLen)
		return false, nil

	case opTuple:
		values, err := p.markPopSlice()
		if err != nil {
			return false, &NoMarkError{Op: b}
		}
		v, err := p.callbacks.MakeTuple(values)
		return false, p.pushCB("MakeTuple", v, err)

	case opEmptyDict:
		v, err := p.callbacks.MakeEmptyDict()
		return false, p.pushCB("MakeEmptyDict", v, err)

	case opSetitems:
		return false, p.doSetitems()

	case opGlobal:
		p.enterBufNL(contGlobalModule)
		return false, nil

	case opObj:
		return false, p.doObj()

	case opBuild:
		return false, p.doBuild()

	default:
		return false, &OpcodeError{Key: b, Pos: p.pos}
	}
}

func (p *Parser) pushCB(name string, v any, err error) error {
	if err != nil {
		return &CallbackError{Callback: name, Err: err}
	}
	if v == nil {
		return &CallbackError{Callback: name}
	}
	p.operand = append(p.operand, v)
	return nil
}

// dealloc releases every entry of values via the callback table, mirroring
// chutneyparse.c's stack_dealloc helper that dict_setitems/load_object call
// before returning a parse error on a popped-but-unused group.
func (p *Parser) dealloc(values []any) {
	for _, v := range values {
		p.callbacks.Dealloc(v)
	}
}

func (p *Parser) doSetitems() error {
	values, err := p.markPopSlice()
	if err != nil {
		return &NoMarkError{Op: opSetitems}
	}
	if len(values)%2 != 0 {
		p.dealloc(values)
		return &ParseError{Op: opSetitems, Err: errOddSetitems}
	}
	if len(p.operand) == 0 {
		p.dealloc(values)
		return &ParseError{Op: opSetitems, Err: errEmptyDictBelowMark}
	}
	dict := p.operand[len(p.operand)-1]
	if err := p.callbacks.DictSetItems(dict, values); err != nil {
		return &CallbackError{Callback: "DictSetItems", Err: err}
	}
	return nil
}

func (p *Parser) doObj() error {
	values, err := p.markPopSlice()
	if err != nil {
		return &NoMarkError{Op: opObj}
	}
	if len(values) != 1 {
		p.dealloc(values)
		return &ParseError{Op: opObj, Err: errObjNotSingleton}
	}
	v, err := p.callbacks.MakeObject(values[0])
	return p.pushCB("MakeObject", v, err)
}

func (p *Parser) doBuild() error {
	pair, err := p.popN(2)
	if err != nil {
		return &StackError{Op: opBuild, Err: err}
	}
	obj, state := pair[0], pair[1]
	err = p.callbacks.ObjectBuild(obj, state)
	// obj stays owned by the parser either way, so it goes back on the
	// stack where Close will release it if the build failed.
	p.operand = append(p.operand, obj)
	if err != nil {
		return &CallbackError{Callback: "ObjectBuild", Err: err}
	}
	return nil
}

// ---- BUF_NL / BUF_CNT continuations ----

func contInt(p *Parser) error {
	line := string(p.buf)
	switch line {
	case intTrueLine:
		v, err := p.callbacks.MakeBool(true)
		return p.pushCB("MakeBool", v, err)
	case intFalseLine:
		v, err := p.callbacks.MakeBool(false)
		return p.pushCB("MakeBool", v, err)
	}
	i, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return &ParseError{Op: opInt, Err: err}
	}
	v, err := p.callbacks.MakeInt(i)
	return p.pushCB("MakeInt", v, err)
}

func contBinInt(p *Parser) error {
	u := binary.LittleEndian.Uint32(p.buf)
	v, err := p.callbacks.MakeInt(int64(int32(u)))
	return p.pushCB("MakeInt", v, err)
}

func contBinInt2(p *Parser) error {
	u := binary.LittleEndian.Uint16(p.buf)
	v, err := p.callbacks.MakeInt(int64(u))
	return p.pushCB("MakeInt", v, err)
}

func contBinFloat(p *Parser) error {
	if detectFloatLayout() == floatLayoutUnsupported {
		return &ParseError{Op: opBinfloat, Err: errBadFloatPlatform}
	}
	bits := binary.BigEndian.Uint64(p.buf)
	v, err := p.callbacks.MakeFloat(math.Float64frombits(bits))
	return p.pushCB("MakeFloat", v, err)
}

func contShortBinStringLen(p *Parser) error {
	want := int(p.buf[0]) // unsigned byte count, spec.md §9(c)
	if want == 0 {
		v, err := p.callbacks.MakeString(nil)
		return p.pushCB("MakeString", v, err)
	}
	p.enterBufCnt(want, contString)
	return nil
}

func contBinStringLen(p *Parser) error {
	want := int(binary.LittleEndian.Uint32(p.buf))
	if want == 0 {
		v, err := p.callbacks.MakeString(nil)
		return p.pushCB("MakeString", v, err)
	}
	p.enterBufCnt(want, contString)
	return nil
}

func contString(p *Parser) error {
	v, err := p.callbacks.MakeString(append([]byte(nil), p.buf...))
	return p.pushCB("MakeString", v, err)
}

func contBinUnicodeLen(p *Parser) error {
	want := int(binary.LittleEndian.Uint32(p.buf))
	if want == 0 {
		v, err := p.callbacks.MakeUnicode(nil)
		return p.pushCB("MakeUnicode", v, err)
	}
	p.enterBufCnt(want, contUnicode)
	return nil
}

func contUnicode(p *Parser) error {
	v, err := p.callbacks.MakeUnicode(append([]byte(nil), p.buf...))
	return p.pushCB("MakeUnicode", v, err)
}

func contGlobalModule(p *Parser) error {
	p.global = string(p.buf)
	p.enterBufNL(contGlobalName)
	return nil
}

func contGlobalName(p *Parser) error {
	name := string(p.buf)
	v, err := p.callbacks.ResolveGlobal(p.global, name)
	p.global = ""
	return p.pushCB("ResolveGlobal", v, err)
}
