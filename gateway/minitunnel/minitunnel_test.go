package minitunnel

import (
	"bytes"
	"testing"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
)

// pipeConn lets two Gateways talk through an in-memory byte buffer, one
// Write/Read pair at a time, without a real socket.
type pipeConn struct {
	buf *bytes.Buffer
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.buf.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.buf.Write(b) }

func TestPacksMultipleSubMessagesIntoOnePacket(t *testing.T) {
	wire := &pipeConn{buf: &bytes.Buffer{}}
	sender := New(wire, Options{MTU: 1400})
	receiver := New(wire, Options{MTU: 1400})

	m1 := message.New(1)
	_ = m1.AddString("a", "one")
	m2 := message.New(2)
	_ = m2.AddString("b", "two")
	_ = sender.AddOutgoingMessage(m1)
	_ = sender.AddOutgoingMessage(m2)

	if _, err := sender.DoOutput(65536); err != nil {
		t.Fatalf("DoOutput: %v", err)
	}

	var got []*message.Message
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		got = append(got, msg)
		return nil
	})
	if _, err := receiver.DoInput(recv, 65536); err != nil {
		t.Fatalf("DoInput: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sub-messages in one packet, got %d", len(got))
	}
	if !m1.Equal(got[0]) || !m2.Equal(got[1]) {
		t.Fatalf("sub-message mismatch: got %+v, %+v", got[0], got[1])
	}
}

func TestSourceExclusionFiltersOwnPackets(t *testing.T) {
	wire := &pipeConn{buf: &bytes.Buffer{}}
	sender := New(wire, Options{MTU: 1400, SourceExclusionID: 77})
	receiver := New(wire, Options{MTU: 1400, SourceExclusionID: 77})

	m := message.New(9)
	_ = sender.AddOutgoingMessage(m)
	if _, err := sender.DoOutput(65536); err != nil {
		t.Fatalf("DoOutput: %v", err)
	}

	called := false
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		called = true
		return nil
	})
	if _, err := receiver.DoInput(recv, 65536); err != nil {
		t.Fatalf("DoInput: %v", err)
	}
	if called {
		t.Fatal("expected the datagram to be filtered out by source exclusion")
	}
}

func TestOversizeSubMessageIsDropped(t *testing.T) {
	wire := &pipeConn{buf: &bytes.Buffer{}}
	sender := New(wire, Options{MTU: 64})

	big := message.New(1)
	_ = big.AddRaw("rd", bytes.Repeat([]byte("x"), 200))
	small := message.New(2)
	_ = small.AddString("ok", "fits")

	_ = sender.AddOutgoingMessage(big)
	_ = sender.AddOutgoingMessage(small)

	if _, err := sender.DoOutput(65536); err != nil {
		t.Fatalf("DoOutput: %v", err)
	}
	if sender.HasBytesToOutput() {
		t.Fatal("expected both messages consumed from the queue (one dropped, one sent)")
	}

	receiver := New(wire, Options{MTU: 64})
	var got []*message.Message
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		got = append(got, msg)
		return nil
	})
	if _, err := receiver.DoInput(recv, 65536); err != nil {
		t.Fatalf("DoInput: %v", err)
	}
	if len(got) != 1 || !small.Equal(got[0]) {
		t.Fatalf("expected only the small message to survive, got %+v", got)
	}
}

func TestCompressionFallsBackWhenNotSmaller(t *testing.T) {
	wire := &pipeConn{buf: &bytes.Buffer{}}
	sender := New(wire, Options{MTU: 1400, CompressionLevel: 9})
	receiver := New(wire, Options{MTU: 1400})

	// High-entropy-ish small payload: compression is unlikely to shrink it.
	m := message.New(1)
	_ = m.AddRaw("rd", []byte{1, 2, 3})
	_ = sender.AddOutgoingMessage(m)
	if _, err := sender.DoOutput(65536); err != nil {
		t.Fatalf("DoOutput: %v", err)
	}

	var got []*message.Message
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		got = append(got, msg)
		return nil
	})
	if _, err := receiver.DoInput(recv, 65536); err != nil {
		t.Fatalf("DoInput: %v", err)
	}
	if len(got) != 1 || !m.Equal(got[0]) {
		t.Fatalf("round trip failed: got %+v", got)
	}
}

func TestMiscDataPassthrough(t *testing.T) {
	wire := &pipeConn{buf: &bytes.Buffer{}}
	receiver := New(wire, Options{MTU: 1400, MiscDataPassthrough: true})

	raw := []byte("not a tunnel packet")
	if _, err := wire.buf.Write(raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got []byte
	recv := gateway.ReceiverFunc(func(msg *message.Message, _ interface{}) error {
		v, err := msg.GetRaw(gateway.FieldRawData, 0)
		if err != nil {
			t.Fatalf("GetRaw: %v", err)
		}
		got = v
		return nil
	})
	if _, err := receiver.DoInput(recv, 65536); err != nil {
		t.Fatalf("DoInput: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("got %q want %q", got, raw)
	}
}
