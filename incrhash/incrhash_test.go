package incrhash

import "testing"

func TestAcceptKeyMatchesRFC6455Example(t *testing.T) {
	// The worked example from RFC 6455 §1.3.
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("AcceptKey = %q, want %q", got, want)
	}
}

func TestUpdateIsIncremental(t *testing.T) {
	whole := New(SHA1)
	whole.Update([]byte("hello world"))

	split := New(SHA1)
	split.Update([]byte("hello "))
	split.Update([]byte("world"))

	if string(whole.Sum()) != string(split.Sum()) {
		t.Fatal("incremental updates must match one bulk update")
	}
}
