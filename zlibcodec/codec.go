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

// Package zlibcodec implements the block- and stream-oriented deflate/
// inflate codec described in §4.4: every produced block is prefixed by an
// 8-byte header (a 4-byte independence magic plus a 4-byte original size),
// and blocks marked independent can be decompressed without reference to
// any prior block.
package zlibcodec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrZLib is returned for any deflate/inflate failure; once returned, the
// Codec's internal state is invalid and every subsequent call fails until
// the Codec is reconstructed (§4.4's failure semantics).
var ErrZLib = errors.New("zlibcodec: codec error")

// Magic values distinguishing independent from dependent blocks (§6).
var (
	MagicIndependent = [4]byte{0x62, 0x69, 0x6C, 0x7A} // "bilz"
	MagicDependent   = [4]byte{0x63, 0x69, 0x6C, 0x7A} // "cilz"
)

const headerSize = 8

const (
	streamInBufSize  = 32 * 1024
	streamOutBufSize = 64 * 1024
)

// Codec holds one inflater stream state and one deflater stream state, per
// §3's "ZLib stream" data model.
type Codec struct {
	Level int // compress/zlib compression level; 0 means zlib.DefaultCompression

	// deflate (block) side: a persistent zlib.Writer lets consecutive
	// dependent Deflate calls continue the same compressed stream.
	dw    *zlib.Writer
	dwBuf *bytes.Buffer

	// inflate (block) side: since Go's flate decompressor cannot resume
	// after observing EOF on a temporarily-exhausted reader, dependent
	// chains are decoded by replaying the whole chain's compressed bytes
	// from the last independent block and keeping only the newly produced
	// tail. This trades CPU for simplicity; it is correct for every
	// invariant in §8 and is not on a hot path for this module's scope.
	chainCompressed []byte
	chainDecodedLen int

	// streaming inflate side: a real zlib.Reader bound directly to the
	// last source io.Reader used, so a continuous dependent chain can be
	// read incrementally without replay.
	streamZR  io.ReadCloser
	streamSrc io.Reader

	invalid bool
}

// New returns a ready-to-use Codec.
func New() *Codec { return &Codec{} }

func (c *Codec) fail(err error) error {
	c.invalid = true
	return fmt.Errorf("%w: %v", ErrZLib, err)
}

func (c *Codec) checkValid() error {
	if c.invalid {
		return fmt.Errorf("%w: codec is in a failed state", ErrZLib)
	}
	return nil
}

func (c *Codec) level() int {
	if c.Level == 0 {
		return zlib.DefaultCompression
	}
	return c.Level
}

// Deflate compresses raw into a self-describing block: an 8-byte header
// (magic + original size) followed by a zlib-deflate stream. optHeaderPad
// and optFooterPad reserve that many zero bytes before/after the block, so
// callers can avoid an extra copy when embedding the block in a larger
// framed buffer.
func (c *Codec) Deflate(raw []byte, independent bool, optHeaderPad, optFooterPad int) ([]byte, error) {
	if err := c.checkValid(); err != nil {
		return nil, err
	}

	var body []byte
	if len(raw) == 0 {
		// Empty blocks short-circuit without invoking the underlying codec.
		body = nil
	} else {
		if independent || c.dw == nil {
			c.dwBuf = &bytes.Buffer{}
			w, err := zlib.NewWriterLevel(c.dwBuf, c.level())
			if err != nil {
				return nil, c.fail(err)
			}
			c.dw = w
		}

		before := c.dwBuf.Len()
		if _, err := c.dw.Write(raw); err != nil {
			return nil, c.fail(err)
		}
		if err := c.dw.Flush(); err != nil {
			return nil, c.fail(err)
		}
		body = append([]byte(nil), c.dwBuf.Bytes()[before:]...)
	}

	out := make([]byte, optHeaderPad+headerSize+len(body)+optFooterPad)
	writeHeader(out[optHeaderPad:optHeaderPad+headerSize], independent, uint32(len(raw)))
	copy(out[optHeaderPad+headerSize:], body)
	return out, nil
}

func writeHeader(dst []byte, independent bool, originalSize uint32) {
	magic := MagicDependent
	if independent {
		magic = MagicIndependent
	}
	copy(dst[0:4], magic[:])
	binary.LittleEndian.PutUint32(dst[4:8], originalSize)
}

func readHeader(src []byte) (independent bool, originalSize uint32, err error) {
	if len(src) < headerSize {
		return false, 0, fmt.Errorf("%w: truncated block header", ErrZLib)
	}
	switch {
	case bytes.Equal(src[0:4], MagicIndependent[:]):
		independent = true
	case bytes.Equal(src[0:4], MagicDependent[:]):
		independent = false
	default:
		return false, 0, fmt.Errorf("%w: bad block magic", ErrZLib)
	}
	originalSize = binary.LittleEndian.Uint32(src[4:8])
	return independent, originalSize, nil
}

// GetInflatedSize reads a block's header and returns the original
// (uncompressed) size without decompressing the payload.
func GetInflatedSize(compressed []byte) (int, error) {
	_, size, err := readHeader(compressed)
	if err != nil {
		return 0, err
	}
	return int(size), nil
}

// Inflate decompresses a block produced by Deflate (header included),
// returning exactly the original bytes.
func (c *Codec) Inflate(compressed []byte) ([]byte, error) {
	if err := c.checkValid(); err != nil {
		return nil, err
	}

	independent, originalSize, err := readHeader(compressed)
	if err != nil {
		return nil, c.fail(err)
	}
	body := compressed[headerSize:]

	if originalSize == 0 {
		if independent {
			c.chainCompressed = nil
			c.chainDecodedLen = 0
		}
		return []byte{}, nil
	}

	if independent {
		c.chainCompressed = append([]byte(nil), body...)
		c.chainDecodedLen = 0
	} else {
		c.chainCompressed = append(c.chainCompressed, body...)
	}

	zr, err := zlib.NewReader(bytes.NewReader(c.chainCompressed))
	if err != nil {
		return nil, c.fail(err)
	}
	defer zr.Close()

	decoded, err := io.ReadAll(zr)
	// flate legitimately reports ErrUnexpectedEOF when the chain is not
	// yet complete (more dependent blocks still to arrive); that is not a
	// codec failure, it just means we can't produce this block's bytes
	// yet from the data seen so far.
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, c.fail(err)
	}

	if len(decoded) < c.chainDecodedLen {
		return nil, c.fail(errors.New("inflated size shrank across a dependent chain"))
	}

	tail := decoded[c.chainDecodedLen:]
	if uint32(len(tail)) != originalSize && err == nil {
		return nil, c.fail(fmt.Errorf("inflated size mismatch: want %d got %d", originalSize, len(tail)))
	}
	if err == io.ErrUnexpectedEOF && uint32(len(tail)) < originalSize {
		return nil, c.fail(errors.New("dependent block requires its predecessors to be inflated first"))
	}

	c.chainDecodedLen = len(decoded)
	return tail, nil
}
