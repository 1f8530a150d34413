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

// Package message implements the hierarchical, multi-valued, self-describing
// Message container and its stable little-endian wire format (§4.3).
package message

import "github.com/go-netty/go-netty-message/bytebuffer"

// TypeCode identifies the Go type stored by a Field, matching the four-char
// type codes used on the wire (e.g. 'LONG' for int32).
type TypeCode uint32

// FourCC packs a 4-character ASCII string into a uint32 the same way the
// wire-format protocol version is packed: MSB-first, so that writing the
// resulting value little-endian on the wire reproduces the bytes in
// reverse string order. This reproduces the documented
// `30 30 4D 50` == 'PM00' relationship from §4.3/§8 exactly.
func FourCC(s string) uint32 {
	b := [4]byte{}
	copy(b[:], s)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// ProtocolVersion is the current wire-format protocol version, 'PM00'.
const ProtocolVersion uint32 = 1347235888 // FourCC("PM00")

// MinAcceptedProtocolVersion and MaxAcceptedProtocolVersion bound the
// closed range of protocol versions an Unflatten call will accept (§4.3).
const (
	MinAcceptedProtocolVersion = ProtocolVersion
	MaxAcceptedProtocolVersion = ProtocolVersion
)

// Type codes for every field type named in §4.3's payload rules.
var (
	TypeBool      = TypeCode(FourCC("BOOL"))
	TypeInt8      = TypeCode(FourCC("BYTE"))
	TypeInt16     = TypeCode(FourCC("SHRT"))
	TypeInt32     = TypeCode(FourCC("LONG"))
	TypeInt64     = TypeCode(FourCC("LLNG"))
	TypeFloat     = TypeCode(FourCC("FLOT"))
	TypeDouble    = TypeCode(FourCC("DBLE"))
	TypeString    = TypeCode(FourCC("CSTR"))
	TypeMessage   = TypeCode(FourCC("MSGG"))
	TypePointer   = TypeCode(FourCC("PNTR"))
	TypeReference = TypeCode(FourCC("RPTR"))
	TypePoint     = TypeCode(FourCC("BPNT"))
	TypeRect      = TypeCode(FourCC("RECT"))
	TypeRaw       = TypeCode(FourCC("RAWT"))
)

// fixedSizeOf reports the on-wire byte size of one element of a fixed-size
// scalar type, or 0 if the type is variable-size (per §4.3's payload
// rules: bool/int8/16/32/64/float/double/point/rect are fixed-size).
func fixedSizeOf(t TypeCode) (size int, ok bool) {
	switch t {
	case TypeBool, TypeInt8:
		return 1, true
	case TypeInt16:
		return 2, true
	case TypeInt32, TypeFloat:
		return 4, true
	case TypeInt64, TypeDouble:
		return 8, true
	case TypePoint:
		return 8, true
	case TypeRect:
		return 16, true
	default:
		return 0, false
	}
}

// Point is a fixed-size (x,y) value type, matching the original's
// support/Point.h layout: two little-endian float32s.
type Point struct {
	X, Y float32
}

// IsFixedSize reports true; Point is always 8 bytes.
func (Point) IsFixedSize() bool { return true }

// FlattenedSize returns 8.
func (Point) FlattenedSize() int { return 8 }

// Flatten writes the point as two float32s.
func (p Point) Flatten(f *bytebuffer.Flattener) error {
	f.WriteFloat(p.X)
	f.WriteFloat(p.Y)
	return f.Status()
}

// UnflattenPoint reads a Point written by Flatten.
func UnflattenPoint(u *bytebuffer.Unflattener) Point {
	return Point{X: u.ReadFloat(), Y: u.ReadFloat()}
}

// Rect is a fixed-size (left,top,right,bottom) value type, matching the
// original's support/Rect.h layout: four little-endian float32s.
type Rect struct {
	Left, Top, Right, Bottom float32
}

// IsFixedSize reports true; Rect is always 16 bytes.
func (Rect) IsFixedSize() bool { return true }

// FlattenedSize returns 16.
func (Rect) FlattenedSize() int { return 16 }

// Flatten writes the rect as four float32s.
func (r Rect) Flatten(f *bytebuffer.Flattener) error {
	f.WriteFloat(r.Left)
	f.WriteFloat(r.Top)
	f.WriteFloat(r.Right)
	f.WriteFloat(r.Bottom)
	return f.Status()
}

// UnflattenRect reads a Rect written by Flatten.
func UnflattenRect(u *bytebuffer.Unflattener) Rect {
	return Rect{Left: u.ReadFloat(), Top: u.ReadFloat(), Right: u.ReadFloat(), Bottom: u.ReadFloat()}
}
