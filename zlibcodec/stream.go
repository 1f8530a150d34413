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

package zlibcodec

import (
	"compress/zlib"
	"fmt"
	"io"
)

// ReadAndDeflateAndWrite reads up to numBytes from src, deflates it as one
// block (independent as requested), and writes the header-prefixed block to
// dst. It is the streaming counterpart of Deflate, for callers that already
// hold an io.Reader/io.Writer pair instead of byte slices.
func (c *Codec) ReadAndDeflateAndWrite(dst io.Writer, src io.Reader, numBytes int, independent bool) error {
	if err := c.checkValid(); err != nil {
		return err
	}

	buf := make([]byte, streamInBufSize)
	raw := make([]byte, 0, numBytes)
	for len(raw) < numBytes {
		n := len(buf)
		if remaining := numBytes - len(raw); remaining < n {
			n = remaining
		}
		read, err := io.ReadFull(src, buf[:n])
		raw = append(raw, buf[:read]...)
		if err != nil {
			return c.fail(err)
		}
	}

	block, err := c.Deflate(raw, independent, 0, 0)
	if err != nil {
		return err
	}
	if _, err := dst.Write(block); err != nil {
		return c.fail(err)
	}
	return nil
}

// ReadAndInflateAndWrite reads one header-prefixed block from src, inflates
// it, and writes the original bytes to dst.
func (c *Codec) ReadAndInflateAndWrite(dst io.Writer, src io.Reader) error {
	if err := c.checkValid(); err != nil {
		return err
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(src, header); err != nil {
		return c.fail(err)
	}
	independent, originalSize, err := readHeader(header)
	if err != nil {
		return c.fail(err)
	}

	if originalSize == 0 {
		if independent {
			c.streamZR = nil
			c.streamSrc = nil
		}
		return nil
	}

	if independent || c.streamZR == nil || c.streamSrc != src {
		zr, err := zlib.NewReader(src)
		if err != nil {
			return c.fail(err)
		}
		c.streamZR = zr
		c.streamSrc = src
	}

	out := make([]byte, streamOutBufSize)
	remaining := int(originalSize)
	for remaining > 0 {
		n := len(out)
		if remaining < n {
			n = remaining
		}
		read, err := io.ReadFull(c.streamZR, out[:n])
		if err != nil {
			return c.fail(fmt.Errorf("reading inflated stream: %w", err))
		}
		if _, err := dst.Write(out[:read]); err != nil {
			return c.fail(err)
		}
		remaining -= read
	}
	return nil
}
