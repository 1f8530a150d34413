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

package gateway

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PacketizedStream wraps a stream io.ReadWriter so that it presents packet
// semantics: every WritePacket is length-prefixed under the hood, and
// ReadPacket reads back exactly one such frame (the 4-byte length prefix is
// big-endian). PacketizedStream does not itself implement io.ReadWriter, so
// it cannot be passed directly to a gateway constructor such as
// minitunnel.New; callers move whole packets with ReadPacket/WritePacket.
type PacketizedStream struct {
	rw io.ReadWriter
}

// NewPacketizedStream adapts rw into packet semantics.
func NewPacketizedStream(rw io.ReadWriter) *PacketizedStream {
	return &PacketizedStream{rw: rw}
}

// WritePacket writes one length-prefixed frame.
func (p *PacketizedStream) WritePacket(b []byte) error {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(b)))
	if _, err := p.rw.Write(header); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := p.rw.Write(b)
	return err
}

// ReadPacket reads back exactly one frame written by WritePacket.
func (p *PacketizedStream) ReadPacket() ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(p.rw, header); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header)
	if size > 64*1024*1024 {
		return nil, fmt.Errorf("%w: packetized frame too large (%d bytes)", ErrResourceLimit, size)
	}
	buf := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(p.rw, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
