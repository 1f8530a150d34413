package bytebuffer

import (
	"encoding/binary"
	"unsafe"
)

// ByteOrder selects the multi-byte encoding used by a Flattener/Unflattener.
// The wire default for Message and the gateways is LittleEndian.
type ByteOrder interface {
	binary.ByteOrder
}

var (
	// LittleEndian is the wire-format default.
	LittleEndian ByteOrder = binary.LittleEndian
	// BigEndian is offered for completeness; nothing in this module's wire
	// formats uses it.
	BigEndian ByteOrder = binary.BigEndian
	// NativeEndian resolves to whichever of the above matches the host CPU.
	NativeEndian = nativeByteOrder()
)

func nativeByteOrder() ByteOrder {
	var x uint16 = 1
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}
