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

package slip

import (
	"fmt"
	"io"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/message"
)

const scratchSize = 8 * 1024

// Gateway delimits a stream RawDataMessageIOGateway-equivalent with SLIP
// framing: each outgoing "rd" chunk is wrapped as END+escaped+END, and
// incoming bytes are unescaped and sealed into a Message at each END
// boundary seen within one DoInput call.
type Gateway struct {
	stream  io.ReadWriter
	decoder Decoder
	scratch []byte

	outQueue []*message.Message
}

// New returns a Gateway framing rw with SLIP.
func New(rw io.ReadWriter) *Gateway {
	return &Gateway{stream: rw, scratch: make([]byte, scratchSize)}
}

// DoInput reads up to maxBytes and delivers one Message containing every
// chunk sealed during this call, if any sealed.
func (g *Gateway) DoInput(receiver gateway.Receiver, maxBytes int) (int, error) {
	toRead := maxBytes
	if toRead <= 0 || toRead > len(g.scratch) {
		toRead = len(g.scratch)
	}
	n, err := g.stream.Read(g.scratch[:toRead])
	if n > 0 {
		chunks := g.decoder.Feed(g.scratch[:n])
		if len(chunks) > 0 {
			msg := message.New(gateway.WhatRawData)
			for _, c := range chunks {
				_ = msg.AddRaw(gateway.FieldRawData, c)
			}
			if cbErr := receiver.MessageReceivedFromGateway(msg, nil); cbErr != nil {
				return n, cbErr
			}
		}
	}
	return n, err
}

// AddOutgoingMessage queues msg's "rd" chunks for SLIP-framed output.
func (g *Gateway) AddOutgoingMessage(msg *message.Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", gateway.ErrBadData)
	}
	g.outQueue = append(g.outQueue, msg)
	return nil
}

// HasBytesToOutput reports whether any queued Message remains to be written.
func (g *Gateway) HasBytesToOutput() bool { return len(g.outQueue) > 0 }

// DoOutput writes up to maxBytes of SLIP-framed chunks.
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
			frame := EncodeFrame(raw)
			wn, werr := g.stream.Write(frame)
			written += wn
			if werr != nil {
				return written, werr
			}
		}
		g.outQueue = g.outQueue[1:]
	}
	return written, nil
}
