package slip

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, end, 0x02, esc, 0x03}
	frame := EncodeFrame(payload)

	if frame[0] != end || frame[len(frame)-1] != end {
		t.Fatalf("frame must start and end with END: % X", frame)
	}

	var d Decoder
	chunks := d.Feed(frame)
	if len(chunks) != 1 || !bytes.Equal(chunks[0], payload) {
		t.Fatalf("decode mismatch: got %v want %v", chunks, payload)
	}
}

func TestDecoderSealsMultipleChunks(t *testing.T) {
	var d Decoder
	a := EncodeFrame([]byte("alpha"))
	b := EncodeFrame([]byte("beta"))
	chunks := d.Feed(append(a, b...))
	want := [][]byte{[]byte("alpha"), []byte("beta")}
	if !reflect.DeepEqual(chunks, want) {
		t.Fatalf("got %v want %v", chunks, want)
	}
}

func TestDecoderHandlesSplitFrame(t *testing.T) {
	var d Decoder
	frame := EncodeFrame([]byte("split-me"))
	mid := len(frame) / 2
	first := d.Feed(frame[:mid])
	if len(first) != 0 {
		t.Fatalf("expected no sealed chunk before the closing END, got %v", first)
	}
	second := d.Feed(frame[mid:])
	if len(second) != 1 || string(second[0]) != "split-me" {
		t.Fatalf("got %v", second)
	}
}

func TestLoneEscWithoutFollowupPassesThroughLiterally(t *testing.T) {
	var d Decoder
	// ESC followed by a byte that is neither escEnd nor escEsc.
	chunks := d.Feed([]byte{esc, 0x41, end})
	if len(chunks) != 1 || !bytes.Equal(chunks[0], []byte{esc, 0x41}) {
		t.Fatalf("got %v", chunks)
	}
}

func TestGatewayRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	out := New(&buf)
	msg := message.New(gateway.WhatRawData)
	_ = msg.AddRaw(gateway.FieldRawData, []byte("hello"))
	if err := out.AddOutgoingMessage(msg); err != nil {
		t.Fatalf("AddOutgoingMessage: %v", err)
	}
	if _, err := out.DoOutput(1024); err != nil {
		t.Fatalf("DoOutput: %v", err)
	}

	in := New(&buf)
	var got []byte
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		raw, err := msg.GetRaw(gateway.FieldRawData, 0)
		if err != nil {
			t.Fatalf("GetRaw: %v", err)
		}
		got = raw
		return nil
	})
	if _, err := in.DoInput(recv, 1024); err != nil {
		t.Fatalf("DoInput: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}
