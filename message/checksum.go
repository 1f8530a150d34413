package message

import "encoding/binary"

// Checksum computes a content checksum as one FNV-1a hash over the `what`
// code and each field's name, type code, and values in insertion order. The
// exact algorithm is not part of the wire format (§4.3) — only that equal
// Messages produce equal checksums, which this deterministic hash guarantees.
func (m *Message) Checksum() uint32 {
	var sum uint32 = fnv32Offset
	sum = fnv32(sum, uint32ToBytes(m.What))
	for _, name := range m.names {
		f := m.fields[name]
		sum = fnv32(sum, []byte(name))
		sum = fnv32(sum, uint32ToBytes(uint32(f.typeCode)))
		for _, v := range f.values {
			sum = fnv32(sum, valueChecksumBytes(f.typeCode, v))
		}
	}
	return sum
}

const fnv32Offset uint32 = 2166136261
const fnv32Prime uint32 = 16777619

func fnv32(sum uint32, data []byte) uint32 {
	for _, b := range data {
		sum ^= uint32(b)
		sum *= fnv32Prime
	}
	return sum
}

func uint32ToBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func valueChecksumBytes(t TypeCode, v interface{}) []byte {
	switch t {
	case TypeBool:
		if v.(bool) {
			return []byte{1}
		}
		return []byte{0}
	case TypeInt8:
		return []byte{byte(v.(int8))}
	case TypeInt16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v.(int16)))
		return b
	case TypeInt32:
		return uint32ToBytes(uint32(v.(int32)))
	case TypeInt64:
		return uint64ToBytes(uint64(v.(int64)))
	case TypeFloat:
		return uint32ToBytes(float32bits(v.(float32)))
	case TypeDouble:
		return uint64ToBytes(float64bits(v.(float64)))
	case TypeString:
		return []byte(v.(string))
	case TypeRaw:
		return v.([]byte)
	case TypeMessage:
		sub, _ := v.(*Message)
		if sub == nil {
			return nil
		}
		return uint32ToBytes(sub.Checksum())
	case TypePoint:
		p := v.(Point)
		return append(uint32ToBytes(float32bits(p.X)), uint32ToBytes(float32bits(p.Y))...)
	case TypeRect:
		r := v.(Rect)
		out := make([]byte, 0, 16)
		out = append(out, uint32ToBytes(float32bits(r.Left))...)
		out = append(out, uint32ToBytes(float32bits(r.Top))...)
		out = append(out, uint32ToBytes(float32bits(r.Right))...)
		out = append(out, uint32ToBytes(float32bits(r.Bottom))...)
		return out
	default:
		return nil
	}
}
