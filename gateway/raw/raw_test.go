package raw

import (
	"bytes"
	"testing"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
)

type bufRW struct {
	r *bytes.Buffer
	w *bytes.Buffer
}

func (b *bufRW) Read(p []byte) (int, error)  { return b.r.Read(p) }
func (b *bufRW) Write(p []byte) (int, error) { return b.w.Write(p) }

func TestStreamGatewayDeliversOneMessagePerRead(t *testing.T) {
	rw := &bufRW{r: bytes.NewBufferString("hello"), w: &bytes.Buffer{}}
	g := NewStream(rw, 0)

	var got []byte
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		raw, err := msg.GetRaw(gateway.FieldRawData, 0)
		if err != nil {
			t.Fatalf("GetRaw: %v", err)
		}
		got = raw
		return nil
	})

	n, err := g.DoInput(recv, 1024)
	if err != nil {
		t.Fatalf("DoInput: %v", err)
	}
	if n != 5 || string(got) != "hello" {
		t.Fatalf("got n=%d data=%q", n, got)
	}
}

func TestStreamGatewayFillsMinChunkSize(t *testing.T) {
	rw := &bufRW{r: bytes.NewBufferString("abcdefghij"), w: &bytes.Buffer{}}
	g := NewStream(rw, 6)

	var delivered [][]byte
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		raw, _ := msg.GetRaw(gateway.FieldRawData, 0)
		delivered = append(delivered, raw)
		return nil
	})

	for i := 0; i < 3; i++ {
		if _, err := g.DoInput(recv, 3); err != nil {
			t.Fatalf("DoInput: %v", err)
		}
	}
	if len(delivered) != 1 || string(delivered[0]) != "abcdef" {
		t.Fatalf("expected one 6-byte chunk once filled, got %v", delivered)
	}
}

func TestOutgoingMessageWritesChunksInOrder(t *testing.T) {
	rw := &bufRW{r: &bytes.Buffer{}, w: &bytes.Buffer{}}
	g := NewStream(rw, 0)

	msg := message.New(gateway.WhatRawData)
	_ = msg.AddRaw(gateway.FieldRawData, []byte("one "))
	_ = msg.AddRaw(gateway.FieldRawData, []byte("two"))
	if err := g.AddOutgoingMessage(msg); err != nil {
		t.Fatalf("AddOutgoingMessage: %v", err)
	}
	if !g.HasBytesToOutput() {
		t.Fatal("expected bytes queued for output")
	}
	if _, err := g.DoOutput(1024); err != nil {
		t.Fatalf("DoOutput: %v", err)
	}
	if rw.w.String() != "one two" {
		t.Fatalf("got %q", rw.w.String())
	}
	if g.HasBytesToOutput() {
		t.Fatal("expected output queue drained")
	}
}

func TestCountedVariantTracksQueuedBytes(t *testing.T) {
	rw := &bufRW{r: &bytes.Buffer{}, w: &bytes.Buffer{}}
	g := NewCounted(NewStream(rw, 0))

	msg := message.New(gateway.WhatRawData)
	_ = msg.AddRaw(gateway.FieldRawData, []byte("1234567"))
	_ = g.AddOutgoingMessage(msg)
	if g.QueuedOutputBytes() != 7 {
		t.Fatalf("QueuedOutputBytes = %d, want 7", g.QueuedOutputBytes())
	}
	if _, err := g.DoOutput(1024); err != nil {
		t.Fatalf("DoOutput: %v", err)
	}
	if g.QueuedOutputBytes() != 0 {
		t.Fatalf("QueuedOutputBytes after flush = %d, want 0", g.QueuedOutputBytes())
	}
}
