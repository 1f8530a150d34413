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

// Package minitunnel implements MiniPacketTunnelIOGateway: packs several
// small Messages into one UDP-sized datagram so sub-MTU payloads aren't
// wasted, per §4.5.3.
package minitunnel

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"log"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
)

const headerSize = 12

// DefaultMagic is the default per-packet magic value ('mtgm').
var DefaultMagic = message.FourCC("mtgm")

const defaultMTU = 1400
const packetIDMask = 1<<24 - 1

// Options configures a Gateway.
type Options struct {
	Magic               uint32
	SourceExclusionID   uint32 // 0 disables filtering
	MTU                 int
	CompressionLevel    int // 0 disables compression; else compress/zlib level
	MiscDataPassthrough bool
}

// DefaultOptions matches the teacher's package-level Options-struct
// convention (e.g. udp/options.go's DefaultOptions).
var DefaultOptions = Options{
	Magic: DefaultMagic,
	MTU:   defaultMTU,
}

// Gateway is MiniPacketTunnelIOGateway. It runs over a connected,
// datagram-preserving io.ReadWriter (e.g. a connected net.UDPConn, or the
// teacher's udp/kcp transport.Transport wrapping one) — every Write is one
// outgoing datagram and every Read returns exactly one incoming datagram,
// matching Go's connected-UDP-socket semantics.
type Gateway struct {
	conn    io.ReadWriter
	opts    Options
	scratch []byte

	packetID uint32

	outQueue []*message.Message
}

// New returns a Gateway over conn using opts (zero value uses DefaultOptions).
func New(conn io.ReadWriter, opts Options) *Gateway {
	if opts.Magic == 0 {
		opts.Magic = DefaultOptions.Magic
	}
	if opts.MTU <= 0 {
		opts.MTU = DefaultOptions.MTU
	}
	return &Gateway{conn: conn, opts: opts, scratch: make([]byte, opts.MTU)}
}

// AddOutgoingMessage queues a sub-Message to be packed into a future datagram.
func (g *Gateway) AddOutgoingMessage(msg *message.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", gateway.ErrBadData)
	}
	g.outQueue = append(g.outQueue, msg)
	return nil
}

// HasBytesToOutput reports whether any sub-Message remains queued.
func (g *Gateway) HasBytesToOutput() bool { return len(g.outQueue) > 0 }

// DoInput reads one datagram and delivers zero or more sub-Messages.
func (g *Gateway) DoInput(receiver gateway.Receiver, maxBytes int) (int, error) {
	buf := g.scratch
	if maxBytes > 0 && maxBytes < len(buf) {
		buf = buf[:maxBytes]
	}
	n, err := g.conn.Read(buf)
	if n <= 0 {
		return n, err
	}
	data := buf[:n]

	if len(data) < 4 || binary.LittleEndian.Uint32(data[0:4]) != g.opts.Magic {
		if g.opts.MiscDataPassthrough {
			msg := message.New(gateway.WhatRawData)
			_ = msg.AddRaw(gateway.FieldRawData, append([]byte(nil), data...))
			if cbErr := receiver.MessageReceivedFromGateway(msg, nil); cbErr != nil {
				return n, cbErr
			}
		}
		return n, err
	}
	if len(data) < headerSize {
		log.Printf("minitunnel: dropping datagram shorter than the header (%d bytes)", len(data))
		return n, err
	}

	sourceExclusionID := binary.LittleEndian.Uint32(data[4:8])
	if g.opts.SourceExclusionID != 0 && sourceExclusionID == g.opts.SourceExclusionID {
		return n, err
	}

	compAndID := binary.LittleEndian.Uint32(data[8:12])
	compressionLevel := byte(compAndID >> 24)

	payload := data[headerSize:]
	if compressionLevel != 0 {
		zr, zerr := zlib.NewReader(bytes.NewReader(payload))
		if zerr != nil {
			log.Printf("minitunnel: dropping datagram with bad compressed payload: %v", zerr)
			return n, err
		}
		decoded, rerr := io.ReadAll(zr)
		if rerr != nil {
			log.Printf("minitunnel: dropping datagram: inflate failed: %v", rerr)
			return n, err
		}
		payload = decoded
	}

	offset := 0
	for offset+4 <= len(payload) {
		size := binary.LittleEndian.Uint32(payload[offset : offset+4])
		offset += 4
		if offset+int(size) > len(payload) {
			log.Printf("minitunnel: dropping truncated trailing chunk")
			break
		}
		chunk := payload[offset : offset+int(size)]
		offset += int(size)

		sub, uerr := message.Unflatten(chunk)
		if uerr != nil {
			log.Printf("minitunnel: dropping malformed sub-message: %v", uerr)
			continue
		}
		if cbErr := receiver.MessageReceivedFromGateway(sub, nil); cbErr != nil {
			return n, cbErr
		}
	}
	return n, err
}

// DoOutput packs as many queued sub-Messages as fit under the MTU into one
// datagram and writes it.
func (g *Gateway) DoOutput(maxBytes int) (int, error) {
	if len(g.outQueue) == 0 {
		return 0, nil
	}

	budget := g.opts.MTU - headerSize
	payload := make([]byte, 0, budget)

	for len(g.outQueue) > 0 {
		msg := g.outQueue[0]
		flat, ferr := msg.FlattenBytes()
		if ferr != nil {
			log.Printf("minitunnel: dropping unflattenable sub-message: %v", ferr)
			g.outQueue = g.outQueue[1:]
			continue
		}
		if len(flat)+4 > budget {
			log.Printf("minitunnel: dropping sub-message too large for the MTU (%d bytes)", len(flat))
			g.outQueue = g.outQueue[1:]
			continue
		}
		if len(payload)+4+len(flat) > budget {
			break // held back for the next packet
		}
		sizeBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(sizeBuf, uint32(len(flat)))
		payload = append(payload, sizeBuf...)
		payload = append(payload, flat...)
		g.outQueue = g.outQueue[1:]
	}

	if len(payload) == 0 {
		return 0, nil
	}

	compressionLevel := byte(0)
	body := payload
	if g.opts.CompressionLevel != 0 {
		var compBuf bytes.Buffer
		zw, _ := zlib.NewWriterLevel(&compBuf, g.opts.CompressionLevel)
		_, _ = zw.Write(payload)
		_ = zw.Close()
		if compBuf.Len() < len(payload) {
			body = compBuf.Bytes()
			compressionLevel = byte(g.opts.CompressionLevel)
		}
	}

	packetID := g.packetID & packetIDMask
	g.packetID = (g.packetID + 1) & packetIDMask

	datagram := make([]byte, headerSize+len(body))
	binary.LittleEndian.PutUint32(datagram[0:4], g.opts.Magic)
	binary.LittleEndian.PutUint32(datagram[4:8], g.opts.SourceExclusionID)
	binary.LittleEndian.PutUint32(datagram[8:12], uint32(compressionLevel)<<24|packetID)
	copy(datagram[headerSize:], body)

	n, err := g.conn.Write(datagram)
	return n, err
}
