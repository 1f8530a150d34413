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

// Package incrhash wraps the standard library's incremental MD5/SHA-1
// hash.Hash implementations behind one small Calculator type, mirroring
// IncrementalHashCalculator's feed-then-finalize usage pattern (§2/§4.5.4,
// used by the WebSocket gateway's Sec-WebSocket-Accept computation).
package incrhash

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"hash"
)

// Algorithm selects the underlying hash function.
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA1
)

// Calculator incrementally feeds bytes into a hash and produces a digest
// on demand without resetting the accumulated state.
type Calculator struct {
	h hash.Hash
}

// New returns a Calculator using the given algorithm.
func New(alg Algorithm) *Calculator {
	var h hash.Hash
	switch alg {
	case MD5:
		h = md5.New()
	default:
		h = sha1.New()
	}
	return &Calculator{h: h}
}

// Update feeds more bytes into the running hash.
func (c *Calculator) Update(p []byte) { c.h.Write(p) }

// Sum returns the digest of everything fed so far, without resetting.
func (c *Calculator) Sum() []byte { return c.h.Sum(nil) }

// websocketGUID is RFC 6455's fixed handshake-accept GUID.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// AcceptKey computes the Sec-WebSocket-Accept value for a given
// Sec-WebSocket-Key, per §4.5.4: Base64(SHA-1(key + GUID)).
func AcceptKey(key string) string {
	c := New(SHA1)
	c.Update([]byte(key))
	c.Update([]byte(websocketGUID))
	return base64.StdEncoding.EncodeToString(c.Sum())
}
