package bytebuffer

import "testing"

func TestSetNumBytesRetainsPrefix(t *testing.T) {
	b := NewFromBytes([]byte("hello world"))
	if err := b.SetNumBytes(5, true); err != nil {
		t.Fatalf("SetNumBytes: %v", err)
	}
	if string(b.Bytes()) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", b.Bytes())
	}

	if err := b.SetNumBytes(11, true); err != nil {
		t.Fatalf("SetNumBytes grow: %v", err)
	}
	if string(b.Bytes()[:5]) != "hello" {
		t.Fatalf("growth must retain the first min(n,old_n) bytes, got %q", b.Bytes())
	}
}

func TestSetNumBytesZeroReleases(t *testing.T) {
	b := NewFromBytes([]byte("data"))
	if err := b.SetNumBytes(0, true); err != nil {
		t.Fatalf("SetNumBytes(0): %v", err)
	}
	if b.NumBytes() != 0 || b.Bytes() != nil {
		t.Fatalf("expected empty buffer after SetNumBytes(0)")
	}
}

func TestAppendBytesAmortized(t *testing.T) {
	b := New(0)
	for i := 0; i < 1000; i++ {
		if err := b.AppendBytes([]byte{byte(i)}, true); err != nil {
			t.Fatalf("AppendBytes: %v", err)
		}
	}
	if b.NumBytes() != 1000 {
		t.Fatalf("expected 1000 bytes, got %d", b.NumBytes())
	}
	for i := 0; i < 1000; i++ {
		if b.Bytes()[i] != byte(i) {
			t.Fatalf("byte mismatch at %d", i)
		}
	}
}

func TestAdoptAndReleaseBuffer(t *testing.T) {
	b := New(0)
	src := []byte{1, 2, 3}
	b.AdoptBuffer(src)
	if b.NumBytes() != 3 {
		t.Fatalf("expected adopted length 3, got %d", b.NumBytes())
	}
	out := b.ReleaseBuffer()
	if len(out) != 3 || b.NumBytes() != 0 {
		t.Fatalf("release did not hand back ownership cleanly")
	}
}

func TestFreeExtraBytes(t *testing.T) {
	b := New(10)
	_ = b.AppendBytes([]byte{1, 2, 3}, true)
	before := b.NumAllocatedBytes()
	b.FreeExtraBytes()
	if b.NumAllocatedBytes() > before {
		t.Fatalf("FreeExtraBytes should never grow allocation")
	}
	if b.NumAllocatedBytes() != b.NumBytes() {
		t.Fatalf("FreeExtraBytes should shrink to valid length exactly, got alloc=%d valid=%d", b.NumAllocatedBytes(), b.NumBytes())
	}
}

func TestSwapContents(t *testing.T) {
	a := NewFromBytes([]byte("aaa"))
	b := NewFromBytes([]byte("bbbbb"))
	a.SwapContents(b)
	if string(a.Bytes()) != "bbbbb" || string(b.Bytes()) != "aaa" {
		t.Fatalf("SwapContents did not exchange contents")
	}
}

func TestNextAllocSizePolicy(t *testing.T) {
	if got := nextAllocSize(10); got != 10 {
		t.Fatalf("tiny size should be exact, got %d", got)
	}
	if got := nextAllocSize(1000); got != 1024 {
		t.Fatalf("medium size should round to next power of two, got %d", got)
	}
	if got := nextAllocSize(70000); got%pageSize != 0 || got < 70000 {
		t.Fatalf("large size should round up to a 4096 multiple, got %d", got)
	}
}
