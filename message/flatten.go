package message

import (
	"fmt"

	"github.com/go-netty/go-netty-message/bytebuffer"
)

// IsFixedSize always reports false: a Message's flattened size varies with
// its contents, so a DataFlattener writes it with a 4-byte length prefix
// (§4.2), the same prefix B_MESSAGE_TYPE sub-items carry on the wire.
func (m *Message) IsFixedSize() bool { return false }

// FlattenedSize returns the exact number of bytes Flatten will produce.
func (m *Message) FlattenedSize() int {
	size := 4 + 4 + 4 // protocol version, what, num_fields
	for _, name := range m.names {
		f := m.fields[name]
		if f.typeCode == TypePointer || f.typeCode == TypeReference {
			continue
		}
		size += 4 + len(name) + 1 // name_length + name + NUL
		size += 4 + 4             // type_code + data_length
		size += fieldPayloadSize(f)
	}
	return size
}

func fieldPayloadSize(f *field) int {
	if sz, ok := fixedSizeOf(f.typeCode); ok {
		return sz * len(f.values)
	}
	if f.typeCode == TypeMessage {
		total := 0
		for _, v := range f.values {
			sub, _ := v.(*Message)
			if sub == nil {
				sub = New(0)
			}
			total += 4 + sub.FlattenedSize()
		}
		return total
	}
	// variable-size non-Message: 4-byte count + per-item {4-byte size + bytes}
	total := 4
	for _, v := range f.values {
		total += 4 + variableItemSize(f.typeCode, v)
	}
	return total
}

func variableItemSize(t TypeCode, v interface{}) int {
	switch t {
	case TypeString:
		return len(v.(string)) + 1
	case TypeRaw:
		return len(v.([]byte))
	default:
		return len(v.([]byte))
	}
}

// Flatten writes m's wire representation to f, per §4.3.
func (m *Message) Flatten(f *bytebuffer.Flattener) error {
	f.WriteInt32(int32(ProtocolVersion))
	f.WriteInt32(int32(m.What))
	f.WriteInt32(int32(m.CountFields()))

	for _, name := range m.names {
		fld := m.fields[name]
		if fld.typeCode == TypePointer || fld.typeCode == TypeReference {
			continue
		}

		f.WriteInt32(int32(len(name) + 1))
		f.WriteCString(name)
		f.WriteInt32(int32(fld.typeCode))
		f.WriteInt32(int32(fieldPayloadSize(fld)))

		if err := flattenFieldPayload(f, fld); err != nil {
			return err
		}
	}
	return f.Status()
}

func flattenFieldPayload(f *bytebuffer.Flattener, fld *field) error {
	if _, ok := fixedSizeOf(fld.typeCode); ok {
		for _, v := range fld.values {
			if err := writeFixedItem(f, fld.typeCode, v); err != nil {
				return err
			}
		}
		return f.Status()
	}

	if fld.typeCode == TypeMessage {
		for _, v := range fld.values {
			sub, _ := v.(*Message)
			if sub == nil {
				sub = New(0)
			}
			f.WriteInt32(int32(sub.FlattenedSize()))
			if err := sub.Flatten(f); err != nil {
				return err
			}
		}
		return f.Status()
	}

	// variable-size non-Message types
	f.WriteInt32(int32(len(fld.values)))
	for _, v := range fld.values {
		switch fld.typeCode {
		case TypeString:
			s := v.(string)
			f.WriteInt32(int32(len(s) + 1))
			f.WriteCString(s)
		case TypeRaw:
			b := v.([]byte)
			f.WriteInt32(int32(len(b)))
			f.WriteBytes(b)
		default:
			b := v.([]byte)
			f.WriteInt32(int32(len(b)))
			f.WriteBytes(b)
		}
	}
	return f.Status()
}

func writeFixedItem(f *bytebuffer.Flattener, t TypeCode, v interface{}) error {
	switch t {
	case TypeBool:
		if v.(bool) {
			f.WriteInt8(1)
		} else {
			f.WriteInt8(0)
		}
	case TypeInt8:
		f.WriteInt8(v.(int8))
	case TypeInt16:
		f.WriteInt16(v.(int16))
	case TypeInt32:
		f.WriteInt32(v.(int32))
	case TypeInt64:
		f.WriteInt64(v.(int64))
	case TypeFloat:
		f.WriteFloat(v.(float32))
	case TypeDouble:
		f.WriteDouble(v.(float64))
	case TypePoint:
		return v.(Point).Flatten(f)
	case TypeRect:
		return v.(Rect).Flatten(f)
	default:
		return fmt.Errorf("%w: unsupported fixed-size type %d", ErrBadArgument, t)
	}
	return f.Status()
}

// FlattenBytes returns m's encoded wire bytes.
func (m *Message) FlattenBytes() ([]byte, error) {
	buf := make([]byte, m.FlattenedSize())
	fl := bytebuffer.NewFlattener(buf)
	if err := m.Flatten(fl); err != nil {
		return nil, err
	}
	return fl.Bytes(), nil
}

// Unflatten parses data into a new Message, per §4.3's failure semantics:
// truncation, an unrecognized protocol version, an over-size data_length,
// or an overflowing sub-item size all return ErrBadData.
func Unflatten(data []byte) (*Message, error) {
	u := bytebuffer.NewUnflattener(data)
	m := New(0)
	if err := m.unflattenFrom(u); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Message) unflattenFrom(u *bytebuffer.Unflattener) error {
	version := uint32(u.ReadInt32())
	if u.Status() != nil {
		return fmt.Errorf("%w: %v", ErrBadData, u.Status())
	}
	if version < MinAcceptedProtocolVersion || version > MaxAcceptedProtocolVersion {
		return fmt.Errorf("%w: unsupported protocol version %d", ErrBadData, version)
	}

	m.What = uint32(u.ReadInt32())
	numFields := int(u.ReadInt32())
	if u.Status() != nil || numFields < 0 {
		return fmt.Errorf("%w: truncated header", ErrBadData)
	}

	m.names = nil
	m.ensureFields()
	m.fields = make(map[string]*field)

	for i := 0; i < numFields; i++ {
		nameLen := int(u.ReadInt32())
		if u.Status() != nil || nameLen <= 0 || nameLen > u.GetNumBytesAvailable() {
			return fmt.Errorf("%w: bad field name length", ErrBadData)
		}
		nameBytes := u.ReadBytes(nameLen)
		if u.Status() != nil || len(nameBytes) == 0 || nameBytes[len(nameBytes)-1] != 0 {
			return fmt.Errorf("%w: field name not NUL-terminated", ErrBadData)
		}
		name := string(nameBytes[:len(nameBytes)-1])

		typeCode := TypeCode(uint32(u.ReadInt32()))
		dataLen := int(u.ReadInt32())
		if u.Status() != nil || dataLen < 0 || dataLen > u.GetNumBytesAvailable() {
			return fmt.Errorf("%w: data_length exceeds remaining buffer", ErrBadData)
		}

		payload := u.ReadBytes(dataLen)
		if u.Status() != nil {
			return fmt.Errorf("%w: truncated field payload", ErrBadData)
		}

		f, err := unflattenFieldPayload(typeCode, payload)
		if err != nil {
			return err
		}
		m.fields[name] = f
		m.names = append(m.names, name)
	}

	return nil
}

func unflattenFieldPayload(t TypeCode, payload []byte) (*field, error) {
	f := &field{typeCode: t}

	if sz, ok := fixedSizeOf(t); ok {
		if sz == 0 || len(payload)%sz != 0 {
			return nil, fmt.Errorf("%w: fixed-size payload not a multiple of %d", ErrBadData, sz)
		}
		numItems := len(payload) / sz
		pu := bytebuffer.NewUnflattener(payload)
		for i := 0; i < numItems; i++ {
			v, err := readFixedItem(pu, t)
			if err != nil {
				return nil, err
			}
			f.values = append(f.values, v)
		}
		return f, nil
	}

	if t == TypeMessage {
		consumed := 0
		for consumed < len(payload) {
			if len(payload)-consumed < 4 {
				return nil, fmt.Errorf("%w: truncated sub-message size", ErrBadData)
			}
			su := bytebuffer.NewUnflattener(payload[consumed : consumed+4])
			subSize := int(su.ReadInt32())
			consumed += 4
			if subSize < 0 || consumed+subSize > len(payload) {
				return nil, fmt.Errorf("%w: sub-message size overflows payload", ErrBadData)
			}
			sub := New(0)
			subU := bytebuffer.NewUnflattener(payload[consumed : consumed+subSize])
			if err := sub.unflattenFrom(subU); err != nil {
				return nil, err
			}
			consumed += subSize
			f.values = append(f.values, sub)
		}
		return f, nil
	}

	// variable-size non-Message: leading 4-byte count, then {4-byte size; bytes}
	pu := bytebuffer.NewUnflattener(payload)
	numItems := int(pu.ReadInt32())
	if pu.Status() != nil || numItems < 0 {
		return nil, fmt.Errorf("%w: bad variable-size item count", ErrBadData)
	}
	for i := 0; i < numItems; i++ {
		itemSize := int(pu.ReadInt32())
		if pu.Status() != nil || itemSize < 0 || itemSize > pu.GetNumBytesAvailable() {
			return nil, fmt.Errorf("%w: item size overflows payload", ErrBadData)
		}
		item := pu.ReadBytes(itemSize)
		if pu.Status() != nil {
			return nil, fmt.Errorf("%w: truncated item", ErrBadData)
		}
		switch t {
		case TypeString:
			if len(item) == 0 || item[len(item)-1] != 0 {
				return nil, fmt.Errorf("%w: string item not NUL-terminated", ErrBadData)
			}
			f.values = append(f.values, string(item[:len(item)-1]))
		default:
			f.values = append(f.values, item)
		}
	}
	return f, nil
}

func readFixedItem(u *bytebuffer.Unflattener, t TypeCode) (interface{}, error) {
	switch t {
	case TypeBool:
		return u.ReadInt8() != 0, u.Status()
	case TypeInt8:
		return u.ReadInt8(), u.Status()
	case TypeInt16:
		return u.ReadInt16(), u.Status()
	case TypeInt32:
		return u.ReadInt32(), u.Status()
	case TypeInt64:
		return u.ReadInt64(), u.Status()
	case TypeFloat:
		return u.ReadFloat(), u.Status()
	case TypeDouble:
		return u.ReadDouble(), u.Status()
	case TypePoint:
		return UnflattenPoint(u), u.Status()
	case TypeRect:
		return UnflattenRect(u), u.Status()
	default:
		return nil, fmt.Errorf("%w: unsupported fixed-size type %d", ErrBadData, t)
	}
}
