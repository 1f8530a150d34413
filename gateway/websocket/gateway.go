/*
 * Copyright 2019 the go-netty project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package websocket implements WebSocketMessageIOGateway (§4.5.4): the
// HTTP/1.1 upgrade handshake as either server or client, RFC 6455 frame
// parsing/encoding, and delivery of TEXT/BINARY payloads as Messages.
// Grounded on the teacher's websocket/transport.go frame state machine and
// upgrader.go handshake roles, adapted from a byte-stream Transport into a
// Message-producing gateway.Gateway.
package websocket

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gobwas/ws"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
	"github.com/go-netty/go-netty-message/stringmatcher"
)

// WhatText is the `what` code for a Message carrying a reassembled TEXT
// frame, each line of the UTF-8 payload stored as one "line" field value
// (binary payloads reuse gateway.WhatRawData/FieldRawData instead).
var WhatText = message.FourCC("wstx")

const FieldLine = "line"

// Options configures the handshake role and path/sub-protocol negotiation.
type Options struct {
	// PathMatcher, if set, restricts which request paths a server-role
	// Gateway accepts.
	PathMatcher *stringmatcher.SegmentedMatcher
	// ProtocolMatcher, if set, restricts which Sec-WebSocket-Protocol
	// tokens a server-role Gateway accepts. When nil, a request that
	// offers any sub-protocol is rejected.
	ProtocolMatcher *stringmatcher.Matcher

	// Path and Host are used to build the client-role GET request.
	Path string
	Host string
	// RequestedProtocols is sent as Sec-WebSocket-Protocol by a
	// client-role Gateway, comma-separated.
	RequestedProtocols string

	// MaskOutgoing controls whether outgoing frames are masked. RFC 6455
	// requires clients to mask and servers never to; NewServer/NewClient
	// set this correctly and it should not normally be overridden.
	MaskOutgoing bool
}

const scratchSize = 16 * 1024

// Gateway is WebSocketMessageIOGateway: an HTTP/1.1 upgrade handshake
// followed by RFC 6455 framing over a single connected stream.
type Gateway struct {
	conn io.ReadWriter
	opts Options

	state handshakeState

	inBuf   []byte
	outBuf  []byte
	scratch []byte

	clientKey          string
	negotiatedProtocol string

	fragOpcode  ws.OpCode
	fragPayload []byte

	outQueue []*message.Message
	closed   bool
}

// NewServer returns a Gateway that performs the handshake as a server: it
// never masks outgoing frames and requires masked incoming frames.
func NewServer(conn io.ReadWriter, opts Options) *Gateway {
	opts.MaskOutgoing = false
	return &Gateway{conn: conn, opts: opts, state: handshakeAsServer, scratch: make([]byte, scratchSize)}
}

// NewClient returns a Gateway that performs the handshake as a client: it
// masks every outgoing frame and immediately queues the GET request.
func NewClient(conn io.ReadWriter, opts Options) *Gateway {
	opts.MaskOutgoing = true
	g := &Gateway{conn: conn, opts: opts, state: handshakeAsClient, scratch: make([]byte, scratchSize)}
	g.generateClientHandshake()
	return g
}

// NegotiatedProtocol returns the sub-protocol agreed on during the
// handshake, or "" if none was negotiated.
func (g *Gateway) NegotiatedProtocol() string { return g.negotiatedProtocol }

// DoInput reads up to maxBytes, drives the handshake state machine to
// completion, then parses and delivers any complete frames found in the
// accumulated buffer.
func (g *Gateway) DoInput(receiver gateway.Receiver, maxBytes int) (int, error) {
	toRead := maxBytes
	if toRead <= 0 || toRead > len(g.scratch) {
		toRead = len(g.scratch)
	}
	buf := g.scratch[:toRead]
	n, rerr := g.conn.Read(buf)
	if n > 0 {
		g.inBuf = append(g.inBuf, buf[:n]...)
	}

	for {
		switch g.state {
		case handshakeAsServer:
			ok, err := g.tryParseServerHandshake()
			if err != nil {
				return n, err
			}
			if !ok {
				return n, rerr
			}
		case handshakeAsClient:
			ok, err := g.tryParseClientHandshake()
			if err != nil {
				return n, err
			}
			if !ok {
				return n, rerr
			}
		case handshakeNone:
			if derr := g.drainFrames(receiver); derr != nil {
				return n, derr
			}
			return n, rerr
		}
	}
}

// drainFrames parses and dispatches every complete frame currently
// buffered in g.inBuf, leaving any trailing partial frame in place.
func (g *Gateway) drainFrames(receiver gateway.Receiver) error {
	for {
		frame, consumed, ok, err := parseFrame(g.inBuf)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !g.opts.MaskOutgoing && g.inBuf[1]&0x80 == 0 {
			// Server role: an unmasked client frame is a protocol violation.
			g.closed = true
			return fmt.Errorf("%w: unmasked client frame", gateway.ErrBadData)
		}
		g.inBuf = append([]byte(nil), g.inBuf[consumed:]...)

		if err := g.handleFrame(receiver, frame); err != nil {
			return err
		}
		if g.closed {
			return nil
		}
	}
}

func (g *Gateway) handleFrame(receiver gateway.Receiver, frame parsedFrame) error {
	switch frame.opcode {
	case opContinuation:
		g.fragPayload = append(g.fragPayload, frame.payload...)
		if frame.fin {
			opcode := g.fragOpcode
			payload := g.fragPayload
			g.fragOpcode, g.fragPayload = 0, nil
			return g.deliver(receiver, opcode, payload)
		}
		return nil

	case opText, opBinary:
		if !frame.fin {
			g.fragOpcode = frame.opcode
			g.fragPayload = append([]byte(nil), frame.payload...)
			return nil
		}
		return g.deliver(receiver, frame.opcode, frame.payload)

	case opClose:
		g.closed = true
		g.outBuf = append(g.outBuf, encodeFrame(opClose, frame.payload, g.opts.MaskOutgoing)...)
		return nil

	case opPing:
		g.outBuf = append(g.outBuf, encodeFrame(opPong, frame.payload, g.opts.MaskOutgoing)...)
		return nil

	case opPong:
		return nil

	default:
		log.Printf("websocket: dropping frame with reserved opcode %#x", frame.opcode)
		return nil
	}
}

func (g *Gateway) deliver(receiver gateway.Receiver, opcode ws.OpCode, payload []byte) error {
	var msg *message.Message
	if opcode == opText {
		msg = message.New(WhatText)
		for _, line := range strings.Split(string(payload), "\r\n") {
			if err := msg.AddString(FieldLine, line); err != nil {
				return err
			}
		}
	} else {
		msg = message.New(gateway.WhatRawData)
		if err := msg.AddRaw(gateway.FieldRawData, payload); err != nil {
			return err
		}
	}
	return receiver.MessageReceivedFromGateway(msg, nil)
}

// AddOutgoingMessage encodes msg as a single unfragmented frame and queues
// it for output. WhatText Messages are joined back with "\r\n" between
// "line" values; anything else is sent as a BINARY frame from its "rd"
// field(s) concatenated in order.
func (g *Gateway) AddOutgoingMessage(msg *message.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", gateway.ErrBadData)
	}
	g.outQueue = append(g.outQueue, msg)
	return nil
}

// HasBytesToOutput reports whether any handshake, control-frame, or queued
// Message bytes remain to be written.
func (g *Gateway) HasBytesToOutput() bool {
	return len(g.outBuf) > 0 || len(g.outQueue) > 0
}

// DoOutput writes up to maxBytes, draining handshake/control bytes before
// encoding and writing queued Messages.
func (g *Gateway) DoOutput(maxBytes int) (int, error) {
	written := 0

	if len(g.outBuf) > 0 {
		n, err := g.flushOutBuf(maxBytes)
		written += n
		if err != nil || written >= maxBytes {
			return written, err
		}
	}

	for written < maxBytes && len(g.outQueue) > 0 {
		msg := g.outQueue[0]
		frame, err := g.encodeMessage(msg)
		if err != nil {
			g.outQueue = g.outQueue[1:]
			return written, err
		}
		g.outBuf = append(g.outBuf, frame...)
		g.outQueue = g.outQueue[1:]

		n, werr := g.flushOutBuf(maxBytes - written)
		written += n
		if werr != nil {
			return written, werr
		}
	}
	return written, nil
}

func (g *Gateway) flushOutBuf(maxBytes int) (int, error) {
	toWrite := len(g.outBuf)
	if toWrite > maxBytes {
		toWrite = maxBytes
	}
	if toWrite <= 0 {
		return 0, nil
	}
	n, err := g.conn.Write(g.outBuf[:toWrite])
	g.outBuf = append([]byte(nil), g.outBuf[n:]...)
	return n, err
}

func (g *Gateway) encodeMessage(msg *message.Message) ([]byte, error) {
	if msg.What == WhatText {
		n := msg.FieldCount(FieldLine)
		lines := make([]string, n)
		for i := 0; i < n; i++ {
			line, err := msg.GetString(FieldLine, i)
			if err != nil {
				return nil, err
			}
			lines[i] = line
		}
		payload := []byte(strings.Join(lines, "\r\n"))
		return encodeFrame(opText, payload, g.opts.MaskOutgoing), nil
	}

	var payload []byte
	n := msg.FieldCount(gateway.FieldRawData)
	for i := 0; i < n; i++ {
		raw, err := msg.GetRaw(gateway.FieldRawData, i)
		if err != nil {
			return nil, err
		}
		payload = append(payload, raw...)
	}
	return encodeFrame(opBinary, payload, g.opts.MaskOutgoing), nil
}
