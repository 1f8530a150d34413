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

package websocket

import (
	"bytes"
	"crypto/rand"
	"io"

	"github.com/gobwas/ws"
)

const (
	opContinuation = ws.OpContinuation
	opText         = ws.OpText
	opBinary       = ws.OpBinary
	opClose        = ws.OpClose
	opPing         = ws.OpPing
	opPong         = ws.OpPong
)

// maxFrameSize is the 10 MiB resource-limit clamp from §4.5.4.
const maxFrameSize = 10 * 1024 * 1024

type parsedFrame struct {
	fin     bool
	opcode  ws.OpCode
	payload []byte
}

// parseFrame attempts to parse one frame header+payload from the front of
// buf using gobwas/ws's header codec (the same library the teacher's
// websocket/transport.go builds its frames with). It returns
// (frame, consumed, ok, err). ok is false when buf doesn't yet hold a
// complete frame or when err is non-nil.
func parseFrame(buf []byte) (parsedFrame, int, bool, error) {
	r := bytes.NewReader(buf)
	hdr, err := ws.ReadHeader(r)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return parsedFrame{}, 0, false, nil
		}
		return parsedFrame{}, 0, false, err
	}
	if hdr.Length > maxFrameSize {
		return parsedFrame{}, 0, false, errFrameTooLarge
	}

	headerLen := len(buf) - r.Len()
	total := headerLen + int(hdr.Length)
	if len(buf) < total {
		return parsedFrame{}, 0, false, nil
	}

	payload := make([]byte, hdr.Length)
	copy(payload, buf[headerLen:total])
	if hdr.Masked {
		ws.Cipher(payload, hdr.Mask, 0)
	}

	return parsedFrame{fin: hdr.Fin, opcode: hdr.OpCode, payload: payload}, total, true, nil
}

// encodeFrame builds one outgoing frame via gobwas/ws's header writer. FIN
// is always set (no fragmentation on the write side, per §4.5.4). When
// mask is true a random masking key is generated and a masked copy of the
// payload is written (the caller's slice is left unchanged), implementing the client-side masking the original left
// as a known gap (closed here, see DESIGN.md).
func encodeFrame(opcode ws.OpCode, payload []byte, mask bool) []byte {
	hdr := ws.Header{
		Fin:    true,
		OpCode: opcode,
		Length: int64(len(payload)),
	}

	body := payload
	if mask {
		hdr.Masked = true
		_, _ = rand.Read(hdr.Mask[:])
		body = append([]byte(nil), payload...)
		ws.Cipher(body, hdr.Mask, 0)
	}

	var buf bytes.Buffer
	buf.Grow(ws.HeaderSize(hdr) + len(body))
	_ = ws.WriteHeader(&buf, hdr)
	buf.Write(body)
	return buf.Bytes()
}
