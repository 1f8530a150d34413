package bytebuffer

import "testing"

func TestFlattenerRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	f := NewFlattener(buf)
	f.WriteInt32(1234)
	f.WriteString("howdy")
	f.WriteDouble(3.14)
	if err := f.Status(); err != nil {
		t.Fatalf("unexpected flattener error: %v", err)
	}

	u := NewUnflattener(f.Bytes())
	if v := u.ReadInt32(); v != 1234 {
		t.Fatalf("expected 1234, got %d", v)
	}
	if s := u.ReadString(); s != "howdy" {
		t.Fatalf("expected howdy, got %q", s)
	}
	if d := u.ReadDouble(); d != 3.14 {
		t.Fatalf("expected 3.14, got %v", d)
	}
}

func TestWriteStringIncludesNUL(t *testing.T) {
	buf := make([]byte, 16)
	f := NewFlattener(buf)
	f.WriteString("hi")
	if f.Position() != 3 {
		t.Fatalf("WriteString(\"hi\") should write 3 bytes (len+1), wrote %d", f.Position())
	}
	if f.Bytes()[2] != 0 {
		t.Fatalf("expected terminating NUL")
	}
}

func TestCheckedFlattenerOverflowLatches(t *testing.T) {
	buf := make([]byte, 2)
	f := NewFlattener(buf)
	f.WriteInt32(1) // needs 4 bytes, only 2 available
	if f.Status() != ErrFlattenerOverflow {
		t.Fatalf("expected sticky overflow error, got %v", f.Status())
	}
	// subsequent writes should no-op rather than panic
	f.WriteInt8(5)
	if f.Status() != ErrFlattenerOverflow {
		t.Fatalf("status should remain latched")
	}
}

func TestCheckedUnflattenerUnderflowLatches(t *testing.T) {
	u := NewUnflattener([]byte{0x01})
	u.ReadInt32()
	if u.Status() != ErrUnflattenerUnderflow {
		t.Fatalf("expected sticky underflow error, got %v", u.Status())
	}
	if v := u.ReadInt8(); v != 0 {
		t.Fatalf("reads after latch should return zero value")
	}
}

func TestUncheckedSkipsBoundsTest(t *testing.T) {
	buf := make([]byte, 0, 16)
	f := NewFlattenerWithOrder(buf, LittleEndian, false)
	f.WriteInt64(42)
	if f.Status() != nil {
		t.Fatalf("unchecked flattener must not latch an error: %v", f.Status())
	}
}

func TestSeekToAndRelative(t *testing.T) {
	buf := make([]byte, 16)
	f := NewFlattener(buf)
	f.WriteInt32(1)
	f.WriteInt32(2)
	if err := f.SeekTo(0); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	f.WriteInt32(9)
	if err := f.SeekRelative(4); err != nil {
		t.Fatalf("SeekRelative: %v", err)
	}
	u := NewUnflattener(f.Bytes())
	if v := u.ReadInt32(); v != 9 {
		t.Fatalf("expected overwritten 9, got %d", v)
	}
}
