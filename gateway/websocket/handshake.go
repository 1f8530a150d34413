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
	"bufio"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/go-netty/go-netty-message/incrhash"
)

// handshakeState tracks which side of the HTTP upgrade is still pending,
// grounded on the teacher's upgrader.go HANDSHAKE_AS_SERVER/
// HANDSHAKE_AS_CLIENT/HANDSHAKE_NONE state machine.
type handshakeState int

const (
	handshakeAsServer handshakeState = iota
	handshakeAsClient
	handshakeNone
)

var (
	errBadHandshake  = errors.New("websocket: bad handshake")
	errFrameTooLarge = errors.New("websocket: frame exceeds resource limit")
)

func headerTokenContains(h http.Header, name, token string) bool {
	for _, v := range strings.Split(h.Get(name), ",") {
		if strings.EqualFold(strings.TrimSpace(v), token) {
			return true
		}
	}
	return false
}

// tryParseServerHandshake looks for a complete "\r\n\r\n"-terminated HTTP
// request at the front of g.inBuf. It returns ok=false when more bytes are
// needed. On success it validates the upgrade request against g.opts and
// appends the 101 response (or an error response) to g.outBuf.
func (g *Gateway) tryParseServerHandshake() (ok bool, err error) {
	idx := bytes.Index(g.inBuf, []byte("\r\n\r\n"))
	if idx < 0 {
		if len(g.inBuf) > maxHandshakeSize {
			return true, fmt.Errorf("%w: request line too large", errBadHandshake)
		}
		return false, nil
	}
	reqBytes := g.inBuf[:idx+4]
	g.inBuf = append([]byte(nil), g.inBuf[idx+4:]...)

	req, perr := http.ReadRequest(bufio.NewReader(bytes.NewReader(reqBytes)))
	if perr != nil {
		g.writeErrorResponse(400, "bad request")
		return true, fmt.Errorf("%w: %v", errBadHandshake, perr)
	}

	if req.Method != http.MethodGet {
		g.writeErrorResponse(405, "method not allowed")
		return true, fmt.Errorf("%w: method %s not allowed", errBadHandshake, req.Method)
	}
	if !headerTokenContains(req.Header, "Upgrade", "websocket") ||
		!headerTokenContains(req.Header, "Connection", "Upgrade") {
		g.writeErrorResponse(400, "missing upgrade headers")
		return true, fmt.Errorf("%w: missing Upgrade/Connection headers", errBadHandshake)
	}
	key := req.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		g.writeErrorResponse(400, "missing Sec-WebSocket-Key")
		return true, fmt.Errorf("%w: missing Sec-WebSocket-Key", errBadHandshake)
	}
	if g.opts.PathMatcher != nil && !g.opts.PathMatcher.Match(req.URL.Path) {
		g.writeErrorResponse(404, "path not matched")
		return true, fmt.Errorf("%w: path %q not matched", errBadHandshake, req.URL.Path)
	}

	negotiated := ""
	if protoHeader := req.Header.Get("Sec-WebSocket-Protocol"); protoHeader != "" {
		if g.opts.ProtocolMatcher == nil {
			g.writeErrorResponse(400, "no protocol configured")
			return true, fmt.Errorf("%w: client offered a sub-protocol but none is configured", errBadHandshake)
		}
		matched := false
		for _, p := range strings.Split(protoHeader, ",") {
			p = strings.TrimSpace(p)
			if g.opts.ProtocolMatcher.Match(p) {
				negotiated, matched = p, true
				break
			}
		}
		if !matched {
			g.writeErrorResponse(400, "no acceptable protocol")
			return true, fmt.Errorf("%w: no acceptable sub-protocol in %q", errBadHandshake, protoHeader)
		}
	}

	accept := incrhash.AcceptKey(key)
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n"
	if negotiated != "" {
		resp += "Sec-WebSocket-Protocol: " + negotiated + "\r\n"
	}
	resp += "\r\n"

	g.negotiatedProtocol = negotiated
	g.outBuf = append(g.outBuf, []byte(resp)...)
	g.state = handshakeNone
	return true, nil
}

func (g *Gateway) writeErrorResponse(code int, reason string) {
	resp := fmt.Sprintf("HTTP/1.1 %d %s\r\nConnection: close\r\n\r\n", code, reason)
	g.outBuf = append(g.outBuf, []byte(resp)...)
}

// generateClientHandshake builds the GET upgrade request this gateway will
// send as a client, and records the key so the response can be verified.
func (g *Gateway) generateClientHandshake() {
	var keyBytes [16]byte
	_, _ = rand.Read(keyBytes[:])
	g.clientKey = base64.StdEncoding.EncodeToString(keyBytes[:])

	path := g.opts.Path
	if path == "" {
		path = "/"
	}
	req := "GET " + path + " HTTP/1.1\r\n" +
		"Host: " + g.opts.Host + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + g.clientKey + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n"
	if g.opts.RequestedProtocols != "" {
		req += "Sec-WebSocket-Protocol: " + g.opts.RequestedProtocols + "\r\n"
	}
	req += "\r\n"
	g.outBuf = append(g.outBuf, []byte(req)...)
}

// tryParseClientHandshake looks for a complete response at the front of
// g.inBuf and validates it against the key sent by generateClientHandshake.
func (g *Gateway) tryParseClientHandshake() (ok bool, err error) {
	idx := bytes.Index(g.inBuf, []byte("\r\n\r\n"))
	if idx < 0 {
		if len(g.inBuf) > maxHandshakeSize {
			return true, fmt.Errorf("%w: response too large", errBadHandshake)
		}
		return false, nil
	}
	respBytes := g.inBuf[:idx+4]
	g.inBuf = append([]byte(nil), g.inBuf[idx+4:]...)

	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(respBytes)))
	statusLine, perr := tp.ReadLine()
	if perr != nil {
		return true, fmt.Errorf("%w: %v", errBadHandshake, perr)
	}
	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 {
		return true, fmt.Errorf("%w: malformed status line %q", errBadHandshake, statusLine)
	}
	if code, cerr := strconv.Atoi(parts[1]); cerr != nil || code != 101 {
		return true, fmt.Errorf("%w: server returned %q", errBadHandshake, statusLine)
	}
	mimeHeader, herr := tp.ReadMIMEHeader()
	if herr != nil {
		return true, fmt.Errorf("%w: %v", errBadHandshake, herr)
	}
	header := http.Header(mimeHeader)

	want := incrhash.AcceptKey(g.clientKey)
	if header.Get("Sec-WebSocket-Accept") != want {
		return true, fmt.Errorf("%w: Sec-WebSocket-Accept mismatch", errBadHandshake)
	}
	g.negotiatedProtocol = header.Get("Sec-WebSocket-Protocol")
	g.state = handshakeNone
	return true, nil
}

const maxHandshakeSize = 64 * 1024
