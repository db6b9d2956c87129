package pikl

import (
	"bytes"
	"fmt"
	"io"
)

// Config bundles the knobs [Load]/[Loads]/[Dump]/[Dumps] pass through to
// the underlying [Parser]/[Dumper], the codec's top-level entry points
// grounded on ogórek's package-level Unmarshal/Marshal wrapping its
// Decoder/Encoder types.
type Config struct {
	// Callbacks materializes decoded values. Nil means [NewNativeCallbacks]
	// with Registry (an empty, deny-all [ClassRegistry] if Registry is nil).
	Callbacks *Callbacks
	// Registry is consulted by the default native callback table's
	// ResolveGlobal. Ignored if Callbacks is non-nil.
	Registry *ClassRegistry
	// Dumper controls value-visit behavior on encode.
	Dumper DumperConfig
}

func (c Config) callbacks() *Callbacks {
	if c.Callbacks != nil {
		return c.Callbacks
	}
	return NewNativeCallbacks(c.Registry)
}

// Loads decodes a complete pickle byte stream using the native value
// domain and an empty class allow-list (so any GLOBAL opcode fails).
func Loads(data []byte) (any, error) {
	return Config{}.Loads(data)
}

// Loads decodes a complete pickle byte stream per cfg.
func (cfg Config) Loads(data []byte) (any, error) {
	p, err := NewParser(cfg.callbacks())
	if err != nil {
		return nil, err
	}
	n, status, err := p.Feed(data)
	if err != nil {
		p.Close()
		return nil, err
	}
	if status != Done {
		p.Close()
		return nil, fmt.Errorf("pikl: truncated pickle stream (consumed %d of %d bytes)", n, len(data))
	}
	v, _ := p.ResultTaken()
	p.Close()
	return v, nil
}

// Load decodes a single pickle value from r, reading only as many bytes as
// the pickle needs: trailing data in r is left unread.
func Load(r io.Reader) (any, error) {
	return Config{}.Load(r)
}

// Load decodes a single pickle value from r per cfg.
//
// r is read one byte at a time so that the promise above holds exactly:
// Feed is never handed a byte beyond what the pickle itself contains, so
// nothing is ever over-read into an internal buffer and silently dropped.
func (cfg Config) Load(r io.Reader) (any, error) {
	p, err := NewParser(cfg.callbacks())
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var b [1]byte
	for {
		if _, rerr := io.ReadFull(r, b[:]); rerr != nil {
			if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, rerr
		}
		_, status, ferr := p.Feed(b[:])
		if ferr != nil {
			return nil, ferr
		}
		if status == Done {
			v, _ := p.ResultTaken()
			return v, nil
		}
	}
}

// Dumps encodes v into a new pickle byte stream using default settings.
func Dumps(v any) ([]byte, error) {
	return Config{}.Dumps(v)
}

// Dumps encodes v per cfg.
func (cfg Config) Dumps(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := cfg.Dump(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Dump encodes v to w using default settings.
func Dump(w io.Writer, v any) error {
	return Config{}.Dump(w, v)
}

// Dump encodes v to w per cfg.
func (cfg Config) Dump(w io.Writer, v any) error {
	e := NewEmitter(w)
	d := NewDumper(e, cfg.Dumper)
	return d.Dump(v)
}
