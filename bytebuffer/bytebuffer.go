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

// Package bytebuffer implements an owning, resizable byte array with an
// endian-aware read/write cursor (DataFlattener / DataUnflattener) on top of
// it. It mirrors the ByteBuffer / DataFlattener / DataUnflattener trio used
// throughout the gateway and message packages.
package bytebuffer

import "errors"

// Error kinds, matching the core's error taxonomy (bad-argument, out-of-memory, ...).
var (
	ErrOutOfMemory = errors.New("bytebuffer: out of memory")
	ErrBadArgument = errors.New("bytebuffer: bad argument")
)

const (
	smallBufferThreshold = 64
	largeBufferThreshold = 64 * 1024
	pageSize              = 4096
)

// AllocStrategy is a pluggable allocation strategy, letting callers
// substitute a pooled or arena allocator for the default make([]byte, n).
type AllocStrategy interface {
	Alloc(numBytes int) []byte
	Free(buf []byte)
}

type defaultAllocStrategy struct{}

func (defaultAllocStrategy) Alloc(numBytes int) []byte { return make([]byte, numBytes) }
func (defaultAllocStrategy) Free([]byte)                {}

// DefaultAllocStrategy is used whenever a ByteBuffer is constructed without
// an explicit strategy.
var DefaultAllocStrategy AllocStrategy = defaultAllocStrategy{}

// ByteBuffer owns a heap-allocated byte array plus a "valid length" that is
// always <= the allocated length. It is not safe for concurrent use.
type ByteBuffer struct {
	buf      []byte // len(buf) == allocated length
	numValid int
	strategy AllocStrategy
}

// New returns a ByteBuffer pre-sized to numBytes valid (zeroed) bytes.
func New(numBytes int) *ByteBuffer {
	bb := &ByteBuffer{strategy: DefaultAllocStrategy}
	_ = bb.SetNumBytes(numBytes, false)
	return bb
}

// NewFromBytes returns a ByteBuffer that copies the contents of p.
func NewFromBytes(p []byte) *ByteBuffer {
	bb := New(len(p))
	copy(bb.buf, p)
	return bb
}

// WithAllocStrategy overrides the allocation strategy used for subsequent
// growth. Existing storage is left as-is.
func (b *ByteBuffer) WithAllocStrategy(strategy AllocStrategy) *ByteBuffer {
	if strategy != nil {
		b.strategy = strategy
	}
	return b
}

func (b *ByteBuffer) allocStrategy() AllocStrategy {
	if b.strategy == nil {
		return DefaultAllocStrategy
	}
	return b.strategy
}

// Bytes returns the valid portion of the buffer. The returned slice aliases
// internal storage and must not be retained across a mutating call.
func (b *ByteBuffer) Bytes() []byte {
	if b.numValid == 0 {
		return nil
	}
	return b.buf[:b.numValid]
}

// NumBytes returns the valid length.
func (b *ByteBuffer) NumBytes() int { return b.numValid }

// NumAllocatedBytes returns the allocated capacity, which may exceed NumBytes.
func (b *ByteBuffer) NumAllocatedBytes() int { return len(b.buf) }

// nextAllocSize implements the hybrid growth policy from §4.1: exact sizes
// for tiny or shrinking buffers, next-power-of-two for medium sizes, and
// rounding up to the next multiple of 4096 for large buffers.
func nextAllocSize(requested int) int {
	switch {
	case requested <= 0:
		return 0
	case requested <= smallBufferThreshold:
		return requested
	case requested <= largeBufferThreshold:
		n := 1
		for n < requested {
			n <<= 1
		}
		return n
	default:
		return (requested + pageSize - 1) &^ (pageSize - 1)
	}
}

// SetNumBytes resizes the valid length, reallocating if necessary. When
// retainData is false, the prior contents may be discarded even if no
// reallocation occurs. Setting n == 0 releases the buffer entirely.
func (b *ByteBuffer) SetNumBytes(n int, retainData bool) error {
	if n < 0 {
		return ErrBadArgument
	}
	if n == 0 {
		b.ReleaseBuffer()
		return nil
	}

	if n <= len(b.buf) {
		// Shrinking or no-op: exact size per the hybrid policy, but we keep
		// the existing allocation since it already covers n bytes.
		if !retainData {
			// contents beyond what's needed are allowed to be garbage; we
			// leave them untouched since the caller said not to care.
		}
		b.numValid = n
		return nil
	}

	newCap := nextAllocSize(n)
	newBuf := b.allocStrategy().Alloc(newCap)
	if newBuf == nil {
		return ErrOutOfMemory
	}
	if retainData && b.numValid > 0 {
		copy(newBuf, b.buf[:min(b.numValid, n)])
	}
	old := b.buf
	b.buf = newBuf
	b.numValid = n
	if old != nil {
		b.allocStrategy().Free(old)
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// AppendBytes appends p to the buffer. When allocExtra is true, growth uses
// the amortized hybrid policy (via SetNumBytes); when false, the allocation
// is sized exactly to the new valid length.
func (b *ByteBuffer) AppendBytes(p []byte, allocExtra bool) error {
	oldLen := b.numValid
	newLen := oldLen + len(p)

	if !allocExtra {
		if newLen > len(b.buf) {
			newBuf := b.allocStrategy().Alloc(newLen)
			if newBuf == nil {
				return ErrOutOfMemory
			}
			copy(newBuf, b.buf[:oldLen])
			old := b.buf
			b.buf = newBuf
			if old != nil {
				b.allocStrategy().Free(old)
			}
		}
		b.numValid = newLen
		copy(b.buf[oldLen:newLen], p)
		return nil
	}

	if err := b.SetNumBytes(newLen, true); err != nil {
		return err
	}
	copy(b.buf[oldLen:newLen], p)
	return nil
}

// AdoptBuffer takes ownership of a caller-supplied array; it will be freed
// with the buffer's allocation strategy when no longer needed.
func (b *ByteBuffer) AdoptBuffer(p []byte) {
	old := b.buf
	b.buf = p
	b.numValid = len(p)
	if old != nil {
		b.allocStrategy().Free(old)
	}
}

// ReleaseBuffer gives up ownership of the held array, returning it to the
// caller and leaving the ByteBuffer empty.
func (b *ByteBuffer) ReleaseBuffer() []byte {
	old := b.buf
	b.buf = nil
	b.numValid = 0
	return old
}

// FreeExtraBytes shrinks the allocation down to the valid length.
func (b *ByteBuffer) FreeExtraBytes() {
	if len(b.buf) == b.numValid {
		return
	}
	if b.numValid == 0 {
		b.ReleaseBuffer()
		return
	}
	newBuf := b.allocStrategy().Alloc(b.numValid)
	copy(newBuf, b.buf[:b.numValid])
	old := b.buf
	b.buf = newBuf
	if old != nil {
		b.allocStrategy().Free(old)
	}
}

// SwapContents performs an O(1) swap of buffer pointer, lengths, and
// allocation-strategy pointer with another ByteBuffer.
func (b *ByteBuffer) SwapContents(other *ByteBuffer) {
	b.buf, other.buf = other.buf, b.buf
	b.numValid, other.numValid = other.numValid, b.numValid
	b.strategy, other.strategy = other.strategy, b.strategy
}

// Equal reports whether two ByteBuffers hold byte-for-byte identical content.
func (b *ByteBuffer) Equal(other *ByteBuffer) bool {
	if b == other {
		return true
	}
	if other == nil || b.numValid != other.numValid {
		return false
	}
	for i := 0; i < b.numValid; i++ {
		if b.buf[i] != other.buf[i] {
			return false
		}
	}
	return true
}
