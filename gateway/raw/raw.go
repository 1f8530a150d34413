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

// Package raw implements RawDataMessageIOGateway: shuttles opaque byte
// chunks through a Message, per §4.5.1.
package raw

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
)

const scratchSize = 8 * 1024

// Gateway is RawDataMessageIOGateway: it runs over either a stream
// (io.ReadWriter) or a packet (gateway.PacketConn) transport.
type Gateway struct {
	stream io.ReadWriter
	packet gateway.PacketConn

	minChunkSize int
	chunkAccum   []byte
	scratch      []byte

	outQueue []*message.Message
	counted  bool
	outBytes int
}

// NewStream returns a Gateway over a stream transport. A non-zero
// minChunkSize makes the gateway fill a fixed-size chunk before delivering
// one Message per chunk, instead of delivering each individual read.
func NewStream(rw io.ReadWriter, minChunkSize int) *Gateway {
	return &Gateway{stream: rw, minChunkSize: minChunkSize, scratch: make([]byte, scratchSize)}
}

// NewPacket returns a Gateway over a packet transport: each ReadFrom yields
// one Message holding one chunk, with the source address and a receive
// timestamp attached.
func NewPacket(pc gateway.PacketConn) *Gateway {
	return &Gateway{packet: pc, scratch: make([]byte, 64*1024)}
}

// NewCounted wraps g so that AddOutgoingMessage/DoOutput track total bytes
// queued for output, for backpressure (§4.5.1's "counted variant").
func NewCounted(g *Gateway) *Gateway {
	g.counted = true
	return g
}

// QueuedOutputBytes returns the running total tracked by the counted
// variant (always 0 if NewCounted was never applied).
func (g *Gateway) QueuedOutputBytes() int { return g.outBytes }

func newRawMessage() *message.Message { return message.New(gateway.WhatRawData) }

// DoInput reads up to maxBytes and delivers zero or one Messages to
// receiver, per §4.5's cooperative contract.
func (g *Gateway) DoInput(receiver gateway.Receiver, maxBytes int) (int, error) {
	if g.packet != nil {
		return g.doPacketInput(receiver)
	}
	return g.doStreamInput(receiver, maxBytes)
}

func (g *Gateway) doPacketInput(receiver gateway.Receiver) (int, error) {
	buf := make([]byte, len(g.scratch))
	n, addr, err := g.packet.ReadFrom(buf)
	if n > 0 {
		msg := newRawMessage()
		_ = msg.AddRaw(gateway.FieldRawData, buf[:n])
		if addr != nil {
			_ = msg.AddString(gateway.FieldRemoteLocation, addr.String())
		}
		_ = msg.AddInt64(gateway.FieldReceiveTimestamp, time.Now().UnixNano())
		if cbErr := receiver.MessageReceivedFromGateway(msg, nil); cbErr != nil {
			return n, cbErr
		}
	}
	return n, err
}

func (g *Gateway) doStreamInput(receiver gateway.Receiver, maxBytes int) (int, error) {
	toRead := maxBytes
	if toRead <= 0 || toRead > len(g.scratch) {
		toRead = len(g.scratch)
	}

	if g.minChunkSize > 0 {
		need := g.minChunkSize - len(g.chunkAccum)
		if need > toRead {
			need = toRead
		}
		if need <= 0 {
			need = toRead
		}
		buf := make([]byte, need)
		n, err := g.stream.Read(buf)
		if n > 0 {
			g.chunkAccum = append(g.chunkAccum, buf[:n]...)
		}
		if len(g.chunkAccum) >= g.minChunkSize {
			msg := newRawMessage()
			_ = msg.AddRaw(gateway.FieldRawData, g.chunkAccum)
			g.chunkAccum = nil
			if cbErr := receiver.MessageReceivedFromGateway(msg, nil); cbErr != nil {
				return n, cbErr
			}
		}
		return n, err
	}

	buf := g.scratch[:toRead]
	n, err := g.stream.Read(buf)
	if n > 0 {
		msg := newRawMessage()
		_ = msg.AddRaw(gateway.FieldRawData, buf[:n])
		if cbErr := receiver.MessageReceivedFromGateway(msg, nil); cbErr != nil {
			return n, cbErr
		}
	}
	return n, err
}

// AddOutgoingMessage queues msg's "rd" chunks for output.
func (g *Gateway) AddOutgoingMessage(msg *message.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", gateway.ErrBadData)
	}
	g.outQueue = append(g.outQueue, msg)
	if g.counted {
		n := msg.FieldCount(gateway.FieldRawData)
		for i := 0; i < n; i++ {
			if raw, err := msg.GetRaw(gateway.FieldRawData, i); err == nil {
				g.outBytes += len(raw)
			}
		}
	}
	return nil
}

// HasBytesToOutput reports whether any queued Message remains to be written.
func (g *Gateway) HasBytesToOutput() bool { return len(g.outQueue) > 0 }

// DoOutput writes up to maxBytes and returns the number of bytes written.
func (g *Gateway) DoOutput(maxBytes int) (int, error) {
	written := 0
	for written < maxBytes && len(g.outQueue) > 0 {
		msg := g.outQueue[0]
		n := msg.FieldCount(gateway.FieldRawData)
		for i := 0; i < n; i++ {
			raw, err := msg.GetRaw(gateway.FieldRawData, i)
			if err != nil {
				continue
			}
			wn, werr := g.writeChunk(msg, raw)
			written += wn
			if g.counted {
				g.outBytes -= wn
			}
			if werr != nil {
				return written, werr
			}
		}
		g.outQueue = g.outQueue[1:]
	}
	return written, nil
}

func (g *Gateway) writeChunk(msg *message.Message, raw []byte) (int, error) {
	if g.packet != nil {
		if addrStr, err := msg.GetString(gateway.FieldRemoteLocation, 0); err == nil {
			if addr, rerr := net.ResolveUDPAddr("udp", addrStr); rerr == nil {
				return g.packet.WriteTo(raw, addr)
			}
		}
		return 0, fmt.Errorf("%w: packet message missing a destination address", gateway.ErrBadData)
	}
	return g.stream.Write(raw)
}
