package bytebuffer

import (
	"errors"
	"math"
)

// ErrFlattenerOverflow is the sticky error a checked Flattener latches on
// the first write that would overflow its destination.
var ErrFlattenerOverflow = errors.New("bytebuffer: flattener overflow")

// Flattenable is implemented by values that know how to write themselves to
// a Flattener and report whether their flattened size is fixed.
type Flattenable interface {
	IsFixedSize() bool
	FlattenedSize() int
	Flatten(f *Flattener) error
}

// Flattener is a cursor bound to a destination []byte, parameterized by
// byte order and by checked/unchecked mode. A checked Flattener accumulates
// a sticky error on overflow; subsequent writes become no-ops. An unchecked
// Flattener never latches an overflow error: a write past the end of the
// destination grows it (into a new slice, returned by Bytes) instead.
type Flattener struct {
	order   ByteOrder
	checked bool
	buf     []byte
	pos     int
	err     error
}

// NewFlattener returns a checked Flattener writing into buf starting at
// offset 0, using the wire-default little-endian byte order.
func NewFlattener(buf []byte) *Flattener {
	return &Flattener{order: LittleEndian, checked: true, buf: buf}
}

// NewFlattenerWithOrder returns a Flattener with an explicit byte order and
// checked mode.
func NewFlattenerWithOrder(buf []byte, order ByteOrder, checked bool) *Flattener {
	if order == nil {
		order = LittleEndian
	}
	return &Flattener{order: order, checked: checked, buf: buf}
}

// Status returns the sticky error, if any.
func (f *Flattener) Status() error { return f.err }

// Position returns the current write cursor offset.
func (f *Flattener) Position() int { return f.pos }

// Bytes returns the portion of the destination buffer written so far.
func (f *Flattener) Bytes() []byte { return f.buf[:f.pos] }

func (f *Flattener) reserve(n int) []byte {
	if f.err != nil {
		return nil
	}
	if f.checked && f.pos+n > len(f.buf) {
		f.err = ErrFlattenerOverflow
		return nil
	}
	if !f.checked && f.pos+n > len(f.buf) {
		// Unchecked mode latches no error; rather than panic on a short
		// buffer it grows it, like an append-style writer.
		grown := make([]byte, f.pos+n)
		copy(grown, f.buf)
		f.buf = grown
	}
	b := f.buf[f.pos : f.pos+n]
	f.pos += n
	return b
}

// SeekTo moves the write cursor to an absolute offset.
func (f *Flattener) SeekTo(pos int) error {
	if f.err != nil {
		return f.err
	}
	if pos < 0 || (f.checked && pos > len(f.buf)) {
		f.err = ErrFlattenerOverflow
		return f.err
	}
	f.pos = pos
	return nil
}

// SeekRelative moves the write cursor by a relative delta.
func (f *Flattener) SeekRelative(delta int) error {
	return f.SeekTo(f.pos + delta)
}

// WriteInt8 writes a single byte.
func (f *Flattener) WriteInt8(v int8) {
	if b := f.reserve(1); b != nil {
		b[0] = byte(v)
	}
}

// WriteInt16 writes a 2-byte integer in the flattener's byte order.
func (f *Flattener) WriteInt16(v int16) {
	if b := f.reserve(2); b != nil {
		f.order.PutUint16(b, uint16(v))
	}
}

// WriteInt32 writes a 4-byte integer in the flattener's byte order.
func (f *Flattener) WriteInt32(v int32) {
	if b := f.reserve(4); b != nil {
		f.order.PutUint32(b, uint32(v))
	}
}

// WriteInt64 writes an 8-byte integer in the flattener's byte order.
func (f *Flattener) WriteInt64(v int64) {
	if b := f.reserve(8); b != nil {
		f.order.PutUint64(b, uint64(v))
	}
}

// WriteFloat writes a 4-byte IEEE-754 float.
func (f *Flattener) WriteFloat(v float32) {
	f.WriteInt32(int32(math.Float32bits(v)))
}

// WriteDouble writes an 8-byte IEEE-754 double.
func (f *Flattener) WriteDouble(v float64) {
	f.WriteInt64(int64(math.Float64bits(v)))
}

// WriteBytes writes p verbatim, with no length prefix.
func (f *Flattener) WriteBytes(p []byte) {
	if b := f.reserve(len(p)); b != nil {
		copy(b, p)
	}
}

// WriteCString writes s followed by a terminating NUL, with no length
// prefix (the "CString" form referenced by §4.2).
func (f *Flattener) WriteCString(s string) {
	f.WriteBytes([]byte(s))
	f.WriteInt8(0)
}

// WriteString writes length+1 bytes: the string's bytes plus a terminating
// NUL, matching §4.2's WriteString semantics.
func (f *Flattener) WriteString(s string) {
	f.WriteCString(s)
}

// WriteFlat writes a Flattenable value, preceded by a 4-byte length prefix
// unless the value reports IsFixedSize() == true.
func (f *Flattener) WriteFlat(v Flattenable) error {
	if !v.IsFixedSize() {
		f.WriteInt32(int32(v.FlattenedSize()))
	}
	if err := v.Flatten(f); err != nil {
		if f.err == nil {
			f.err = err
		}
		return err
	}
	return f.err
}

// WriteFlats writes each element of vs contiguously. Non-fixed-size
// elements are each preceded by a 4-byte length.
func (f *Flattener) WriteFlats(vs []Flattenable) error {
	for _, v := range vs {
		if err := f.WriteFlat(v); err != nil {
			return err
		}
	}
	return f.err
}
