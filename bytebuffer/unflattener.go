package bytebuffer

import (
	"errors"
	"math"
)

// ErrUnflattenerUnderflow is the sticky error a checked Unflattener latches
// on the first read that would run past the end of its source.
var ErrUnflattenerUnderflow = errors.New("bytebuffer: unflattener underflow")

// Unflattenable is implemented by values that know how to read themselves
// from an Unflattener.
type Unflattenable interface {
	Unflatten(u *Unflattener, numBytes int) error
}

// Unflattener is a cursor bound to a source []byte, parameterized by byte
// order and checked/unchecked mode, symmetric with Flattener.
type Unflattener struct {
	order   ByteOrder
	checked bool
	buf     []byte
	pos     int
	err     error
}

// NewUnflattener returns a checked Unflattener reading from buf, using the
// wire-default little-endian byte order.
func NewUnflattener(buf []byte) *Unflattener {
	return &Unflattener{order: LittleEndian, checked: true, buf: buf}
}

// NewUnflattenerWithOrder returns an Unflattener with an explicit byte order
// and checked mode.
func NewUnflattenerWithOrder(buf []byte, order ByteOrder, checked bool) *Unflattener {
	if order == nil {
		order = LittleEndian
	}
	return &Unflattener{order: order, checked: checked, buf: buf}
}

// Status returns the sticky error, if any.
func (u *Unflattener) Status() error { return u.err }

// GetNumBytesAvailable returns how many unread bytes remain.
func (u *Unflattener) GetNumBytesAvailable() int {
	if u.pos >= len(u.buf) {
		return 0
	}
	return len(u.buf) - u.pos
}

// GetCurrentReadPointer returns the unread tail of the source buffer.
func (u *Unflattener) GetCurrentReadPointer() []byte {
	if u.pos >= len(u.buf) {
		return nil
	}
	return u.buf[u.pos:]
}

// SeekTo moves the read cursor to an absolute offset.
func (u *Unflattener) SeekTo(pos int) error {
	if u.err != nil {
		return u.err
	}
	if pos < 0 || pos > len(u.buf) {
		u.err = ErrUnflattenerUnderflow
		return u.err
	}
	u.pos = pos
	return nil
}

// SeekRelative moves the read cursor by a relative delta.
func (u *Unflattener) SeekRelative(delta int) error {
	return u.SeekTo(u.pos + delta)
}

func (u *Unflattener) take(n int) []byte {
	if u.err != nil {
		return nil
	}
	if u.pos+n > len(u.buf) {
		if u.checked {
			u.err = ErrUnflattenerUnderflow
		}
		return nil
	}
	b := u.buf[u.pos : u.pos+n]
	u.pos += n
	return b
}

// ReadInt8 reads a single byte.
func (u *Unflattener) ReadInt8() int8 {
	if b := u.take(1); b != nil {
		return int8(b[0])
	}
	return 0
}

// ReadInt16 reads a 2-byte integer.
func (u *Unflattener) ReadInt16() int16 {
	if b := u.take(2); b != nil {
		return int16(u.order.Uint16(b))
	}
	return 0
}

// ReadInt32 reads a 4-byte integer.
func (u *Unflattener) ReadInt32() int32 {
	if b := u.take(4); b != nil {
		return int32(u.order.Uint32(b))
	}
	return 0
}

// ReadInt64 reads an 8-byte integer.
func (u *Unflattener) ReadInt64() int64 {
	if b := u.take(8); b != nil {
		return int64(u.order.Uint64(b))
	}
	return 0
}

// ReadFloat reads a 4-byte IEEE-754 float.
func (u *Unflattener) ReadFloat() float32 {
	return math.Float32frombits(uint32(u.ReadInt32()))
}

// ReadDouble reads an 8-byte IEEE-754 double.
func (u *Unflattener) ReadDouble() float64 {
	return math.Float64frombits(uint64(u.ReadInt64()))
}

// ReadBytes reads exactly n bytes verbatim. The returned slice is a copy so
// callers may retain it past further reads.
func (u *Unflattener) ReadBytes(n int) []byte {
	b := u.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadCString reads bytes up to (and consuming) the next NUL terminator.
func (u *Unflattener) ReadCString() string {
	if u.err != nil {
		return ""
	}
	start := u.pos
	for i := u.pos; i < len(u.buf); i++ {
		if u.buf[i] == 0 {
			s := string(u.buf[start:i])
			u.pos = i + 1
			return s
		}
	}
	if u.checked {
		u.err = ErrUnflattenerUnderflow
	}
	return ""
}

// ReadString is a synonym for ReadCString, matching §4.2's naming.
func (u *Unflattener) ReadString() string { return u.ReadCString() }

// ReadFlat reads a Flattenable value of fixedSize bytes when
// fixedSizeHint > 0, otherwise it reads a 4-byte length prefix first.
func (u *Unflattener) ReadFlat(v Unflattenable, fixedSizeHint int) error {
	n := fixedSizeHint
	if n <= 0 {
		n = int(u.ReadInt32())
		if u.err != nil {
			return u.err
		}
	}
	if err := v.Unflatten(u, n); err != nil {
		if u.err == nil {
			u.err = err
		}
		return err
	}
	return u.err
}
