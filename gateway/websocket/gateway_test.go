package websocket

import (
	"bytes"
	"testing"

	"github.com/gobwas/ws"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
	"github.com/go-netty/go-netty-message/stringmatcher"
)

// pipeConn models a connected socket: what one side writes, the other side
// reads, via two independent bytes.Buffer values wired crosswise.
type pipeConn struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.out.Write(b) }

func newPipePair() (client *pipeConn, server *pipeConn) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	client = &pipeConn{in: a, out: b}
	server = &pipeConn{in: b, out: a}
	return client, server
}

type collectingReceiver struct {
	msgs []*message.Message
}

func (c *collectingReceiver) MessageReceivedFromGateway(msg *message.Message, _ interface{}) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func pumpHandshake(t *testing.T, client, server *Gateway) {
	t.Helper()
	rc, rs := &collectingReceiver{}, &collectingReceiver{}
	for i := 0; i < 10; i++ {
		if _, err := client.DoOutput(1 << 20); err != nil {
			t.Fatalf("client DoOutput: %v", err)
		}
		if _, err := server.DoInput(rs, 1<<20); err != nil {
			t.Fatalf("server DoInput: %v", err)
		}
		if _, err := server.DoOutput(1 << 20); err != nil {
			t.Fatalf("server DoOutput: %v", err)
		}
		if _, err := client.DoInput(rc, 1<<20); err != nil {
			t.Fatalf("client DoInput: %v", err)
		}
		if client.state == handshakeNone && server.state == handshakeNone {
			return
		}
	}
	t.Fatal("handshake did not complete")
}

func TestHandshakeCompletesAndNegotiatesProtocol(t *testing.T) {
	clientConn, serverConn := newPipePair()

	server := NewServer(serverConn, Options{
		PathMatcher:     stringmatcher.NewSegmented("/chat"),
		ProtocolMatcher: stringmatcher.New("chat"),
	})
	client := NewClient(clientConn, Options{Path: "/chat", Host: "example.com", RequestedProtocols: "chat"})

	pumpHandshake(t, client, server)

	if client.NegotiatedProtocol() != "chat" {
		t.Fatalf("client negotiated protocol = %q, want chat", client.NegotiatedProtocol())
	}
	if server.NegotiatedProtocol() != "chat" {
		t.Fatalf("server negotiated protocol = %q, want chat", server.NegotiatedProtocol())
	}
}

func TestHandshakeRejectsUnmatchedPath(t *testing.T) {
	clientConn, serverConn := newPipePair()
	server := NewServer(serverConn, Options{PathMatcher: stringmatcher.NewSegmented("/chat")})
	client := NewClient(clientConn, Options{Path: "/other", Host: "example.com"})

	rs := &collectingReceiver{}
	if _, err := client.DoOutput(1 << 20); err != nil {
		t.Fatalf("client DoOutput: %v", err)
	}
	if _, err := server.DoInput(rs, 1<<20); err == nil {
		t.Fatal("expected handshake error for unmatched path")
	}
}

func completeHandshake(t *testing.T) (client, server *Gateway) {
	t.Helper()
	clientConn, serverConn := newPipePair()
	server = NewServer(serverConn, Options{})
	client = NewClient(clientConn, Options{Path: "/", Host: "example.com"})
	pumpHandshake(t, client, server)
	return client, server
}

func TestTextMessageRoundTrip(t *testing.T) {
	client, server := completeHandshake(t)

	out := message.New(WhatText)
	_ = out.AddString(FieldLine, "hello")
	_ = out.AddString(FieldLine, "world")
	if err := client.AddOutgoingMessage(out); err != nil {
		t.Fatalf("AddOutgoingMessage: %v", err)
	}
	if _, err := client.DoOutput(1 << 20); err != nil {
		t.Fatalf("client DoOutput: %v", err)
	}

	rs := &collectingReceiver{}
	if _, err := server.DoInput(rs, 1<<20); err != nil {
		t.Fatalf("server DoInput: %v", err)
	}
	if len(rs.msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(rs.msgs))
	}
	got := rs.msgs[0]
	if got.What != WhatText {
		t.Fatalf("What = %v, want WhatText", got.What)
	}
	line0, _ := got.GetString(FieldLine, 0)
	line1, _ := got.GetString(FieldLine, 1)
	if line0 != "hello" || line1 != "world" {
		t.Fatalf("lines = %q, %q", line0, line1)
	}
}

func TestBinaryMessageRoundTrip(t *testing.T) {
	client, server := completeHandshake(t)

	out := message.New(gateway.WhatRawData)
	_ = out.AddRaw(gateway.FieldRawData, []byte{1, 2, 3, 4})
	if err := client.AddOutgoingMessage(out); err != nil {
		t.Fatalf("AddOutgoingMessage: %v", err)
	}
	if _, err := client.DoOutput(1 << 20); err != nil {
		t.Fatalf("client DoOutput: %v", err)
	}

	rs := &collectingReceiver{}
	if _, err := server.DoInput(rs, 1<<20); err != nil {
		t.Fatalf("server DoInput: %v", err)
	}
	if len(rs.msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(rs.msgs))
	}
	raw, err := rs.msgs[0].GetRaw(gateway.FieldRawData, 0)
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if !bytes.Equal(raw, []byte{1, 2, 3, 4}) {
		t.Fatalf("raw = %v", raw)
	}
}

func TestFragmentedMessageReassembles(t *testing.T) {
	client, server := completeHandshake(t)

	first := encodeFrame(opText, []byte("hel"), true)
	first[0] &^= 0x80 // clear FIN
	second := encodeFrame(opContinuation, []byte("lo"), true)

	server.inBuf = append(server.inBuf, first...)
	server.inBuf = append(server.inBuf, second...)

	rs := &collectingReceiver{}
	if err := server.drainFrames(rs); err != nil {
		t.Fatalf("drainFrames: %v", err)
	}
	if len(rs.msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(rs.msgs))
	}
	line0, _ := rs.msgs[0].GetString(FieldLine, 0)
	if line0 != "hello" {
		t.Fatalf("reassembled line = %q, want hello", line0)
	}
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	client, server := completeHandshake(t)
	_ = client

	ping := encodeFrame(opPing, []byte("ping-payload"), true)
	server.inBuf = append(server.inBuf, ping...)

	rs := &collectingReceiver{}
	if err := server.drainFrames(rs); err != nil {
		t.Fatalf("drainFrames: %v", err)
	}
	if !server.HasBytesToOutput() {
		t.Fatal("expected a queued pong frame")
	}

	n, err := server.DoOutput(1 << 20)
	if err != nil {
		t.Fatalf("DoOutput: %v", err)
	}
	if n == 0 {
		t.Fatal("expected pong bytes written")
	}
}

func TestOversizeFrameIsRejected(t *testing.T) {
	_, server := completeHandshake(t)

	header := make([]byte, 10)
	header[0] = 0x80 | opBinary
	header[1] = 127
	// 11 MiB declared length, over the 10 MiB clamp.
	size := uint64(11 * 1024 * 1024)
	for i := 0; i < 8; i++ {
		header[9-i] = byte(size >> (8 * i))
	}
	server.inBuf = append(server.inBuf, header...)

	rs := &collectingReceiver{}
	if err := server.drainFrames(rs); err == nil {
		t.Fatal("expected an error for an oversize frame")
	}
}

func TestReservedOpcodeIsDroppedNotFatal(t *testing.T) {
	_, server := completeHandshake(t)

	frame := encodeFrame(ws.OpCode(0x3), []byte("x"), true) // reserved opcode
	server.inBuf = append(server.inBuf, frame...)

	rs := &collectingReceiver{}
	if err := server.drainFrames(rs); err != nil {
		t.Fatalf("drainFrames: %v", err)
	}
	if len(rs.msgs) != 0 {
		t.Fatalf("expected no delivered messages for a reserved opcode, got %d", len(rs.msgs))
	}
}
