package message

import (
	"errors"
	"fmt"
)

// Error kinds from §7's taxonomy that are specific to Message operations.
var (
	ErrBadData      = errors.New("message: bad data")
	ErrTypeMismatch = errors.New("message: field type mismatch")
	ErrBadArgument  = errors.New("message: bad argument")
)

// Message is a hierarchical, multi-valued, self-describing record: a
// 32-bit `what` code plus an insertion-order mapping of field name to
// field value (§3/§4.3).
type Message struct {
	What uint32

	names  []string
	fields map[string]*field
}

// New returns an empty Message with the given `what` code.
func New(what uint32) *Message {
	return &Message{What: what, fields: make(map[string]*field)}
}

func (m *Message) ensureFields() {
	if m.fields == nil {
		m.fields = make(map[string]*field)
	}
}

// FieldNames returns the field names in insertion order.
func (m *Message) FieldNames() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// CountFields returns the number of flattenable fields (pointer fields are
// excluded from this count, matching the on-wire asymmetry of §4.3/§9).
func (m *Message) CountFields() int {
	n := 0
	for _, name := range m.names {
		if f := m.fields[name]; f != nil && f.typeCode != TypePointer && f.typeCode != TypeReference {
			n++
		}
	}
	return n
}

// HasField reports whether name exists.
func (m *Message) HasField(name string) bool {
	_, ok := m.fields[name]
	return ok
}

// FieldType returns the type code of name, or false if it doesn't exist.
func (m *Message) FieldType(name string) (TypeCode, bool) {
	f, ok := m.fields[name]
	if !ok {
		return 0, false
	}
	return f.typeCode, true
}

// FieldCount returns how many values name holds (0 if it doesn't exist).
func (m *Message) FieldCount(name string) int {
	f, ok := m.fields[name]
	if !ok {
		return 0
	}
	return len(f.values)
}

// RemoveName removes a field and all of its values.
func (m *Message) RemoveName(name string) {
	if _, ok := m.fields[name]; !ok {
		return
	}
	delete(m.fields, name)
	for i, n := range m.names {
		if n == name {
			m.names = append(m.names[:i], m.names[i+1:]...)
			break
		}
	}
}

// add appends v under name with the given type code. Adding a value of a
// different type than an existing field's type code returns ErrTypeMismatch
// (§3: "all values in a field share the field's type code").
func (m *Message) add(name string, t TypeCode, v interface{}) error {
	m.ensureFields()
	f, ok := m.fields[name]
	if !ok {
		f = &field{typeCode: t}
		m.fields[name] = f
		m.names = append(m.names, name)
	} else if f.typeCode != t {
		return fmt.Errorf("%w: field %q has type %d, not %d", ErrTypeMismatch, name, f.typeCode, t)
	}
	f.values = append(f.values, v)
	return nil
}

func (m *Message) get(name string, t TypeCode, index int) (interface{}, error) {
	f, ok := m.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: no such field %q", ErrBadArgument, name)
	}
	if f.typeCode != t {
		return nil, fmt.Errorf("%w: field %q has type %d, not %d", ErrTypeMismatch, name, f.typeCode, t)
	}
	if index < 0 || index >= len(f.values) {
		return nil, fmt.Errorf("%w: index %d out of range for field %q", ErrBadArgument, index, name)
	}
	return f.values[index], nil
}

// --- typed accessors -------------------------------------------------------

// AddBool appends a bool value to name.
func (m *Message) AddBool(name string, v bool) error { return m.add(name, TypeBool, v) }

// AddInt8 appends an int8 value to name.
func (m *Message) AddInt8(name string, v int8) error { return m.add(name, TypeInt8, v) }

// AddInt16 appends an int16 value to name.
func (m *Message) AddInt16(name string, v int16) error { return m.add(name, TypeInt16, v) }

// AddInt32 appends an int32 value to name.
func (m *Message) AddInt32(name string, v int32) error { return m.add(name, TypeInt32, v) }

// AddInt64 appends an int64 value to name.
func (m *Message) AddInt64(name string, v int64) error { return m.add(name, TypeInt64, v) }

// AddFloat appends a float32 value to name.
func (m *Message) AddFloat(name string, v float32) error { return m.add(name, TypeFloat, v) }

// AddDouble appends a float64 value to name.
func (m *Message) AddDouble(name string, v float64) error { return m.add(name, TypeDouble, v) }

// AddString appends a string value to name.
func (m *Message) AddString(name string, v string) error { return m.add(name, TypeString, v) }

// AddMessage appends a nested Message value to name. A nil sub is allowed
// and flattens as an empty Message, per §4.3.
func (m *Message) AddMessage(name string, v *Message) error { return m.add(name, TypeMessage, v) }

// AddPointer appends a process-local pointer value. Pointer fields are
// never flattened (§3, §4.3, §9).
func (m *Message) AddPointer(name string, v interface{}) error { return m.add(name, TypePointer, v) }

// AddReference appends a process-local reference value. Like pointers,
// references are process-local only and are never flattened.
func (m *Message) AddReference(name string, v interface{}) error {
	return m.add(name, TypeReference, v)
}

// AddPoint appends a Point value to name.
func (m *Message) AddPoint(name string, v Point) error { return m.add(name, TypePoint, v) }

// AddRect appends a Rect value to name.
func (m *Message) AddRect(name string, v Rect) error { return m.add(name, TypeRect, v) }

// AddRaw appends a raw byte-slice value to name.
func (m *Message) AddRaw(name string, v []byte) error {
	cp := make([]byte, len(v))
	copy(cp, v)
	return m.add(name, TypeRaw, cp)
}

// GetBool returns the index'th bool value of name.
func (m *Message) GetBool(name string, index int) (bool, error) {
	v, err := m.get(name, TypeBool, index)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// GetInt8 returns the index'th int8 value of name.
func (m *Message) GetInt8(name string, index int) (int8, error) {
	v, err := m.get(name, TypeInt8, index)
	if err != nil {
		return 0, err
	}
	return v.(int8), nil
}

// GetInt16 returns the index'th int16 value of name.
func (m *Message) GetInt16(name string, index int) (int16, error) {
	v, err := m.get(name, TypeInt16, index)
	if err != nil {
		return 0, err
	}
	return v.(int16), nil
}

// GetInt32 returns the index'th int32 value of name.
func (m *Message) GetInt32(name string, index int) (int32, error) {
	v, err := m.get(name, TypeInt32, index)
	if err != nil {
		return 0, err
	}
	return v.(int32), nil
}

// GetInt64 returns the index'th int64 value of name.
func (m *Message) GetInt64(name string, index int) (int64, error) {
	v, err := m.get(name, TypeInt64, index)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// GetFloat returns the index'th float32 value of name.
func (m *Message) GetFloat(name string, index int) (float32, error) {
	v, err := m.get(name, TypeFloat, index)
	if err != nil {
		return 0, err
	}
	return v.(float32), nil
}

// GetDouble returns the index'th float64 value of name.
func (m *Message) GetDouble(name string, index int) (float64, error) {
	v, err := m.get(name, TypeDouble, index)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// GetString returns the index'th string value of name.
func (m *Message) GetString(name string, index int) (string, error) {
	v, err := m.get(name, TypeString, index)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetMessage returns the index'th nested Message value of name.
func (m *Message) GetMessage(name string, index int) (*Message, error) {
	v, err := m.get(name, TypeMessage, index)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*Message), nil
}

// GetPointer returns the index'th pointer value of name.
func (m *Message) GetPointer(name string, index int) (interface{}, error) {
	return m.get(name, TypePointer, index)
}

// GetReference returns the index'th reference value of name.
func (m *Message) GetReference(name string, index int) (interface{}, error) {
	return m.get(name, TypeReference, index)
}

// GetPoint returns the index'th Point value of name.
func (m *Message) GetPoint(name string, index int) (Point, error) {
	v, err := m.get(name, TypePoint, index)
	if err != nil {
		return Point{}, err
	}
	return v.(Point), nil
}

// GetRect returns the index'th Rect value of name.
func (m *Message) GetRect(name string, index int) (Rect, error) {
	v, err := m.get(name, TypeRect, index)
	if err != nil {
		return Rect{}, err
	}
	return v.(Rect), nil
}

// GetRaw returns the index'th raw byte value of name.
func (m *Message) GetRaw(name string, index int) ([]byte, error) {
	v, err := m.get(name, TypeRaw, index)
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Equal reports whether two Messages carry the same `what`, the same field
// names in the same insertion order, and identical per-field type codes
// and values. This is the equality used by the Flatten/Unflatten round-trip
// property in §8.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.What != other.What || len(m.names) != len(other.names) {
		return false
	}
	for i, name := range m.names {
		if other.names[i] != name {
			return false
		}
		a, b := m.fields[name], other.fields[name]
		if a.typeCode != b.typeCode || len(a.values) != len(b.values) {
			return false
		}
		for j := range a.values {
			if !valuesEqual(a.typeCode, a.values[j], b.values[j]) {
				return false
			}
		}
	}
	return true
}

func valuesEqual(t TypeCode, a, b interface{}) bool {
	if t == TypeMessage {
		am, _ := a.(*Message)
		bm, _ := b.(*Message)
		return am.Equal(bm)
	}
	if t == TypeRaw {
		ab, _ := a.([]byte)
		bb, _ := b.([]byte)
		if len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i] != bb[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

// Clone returns a deep copy of the Message, recursing into nested Messages.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := New(m.What)
	for _, name := range m.names {
		f := m.fields[name]
		nf := &field{typeCode: f.typeCode, values: make([]interface{}, len(f.values))}
		for i, v := range f.values {
			if f.typeCode == TypeMessage {
				if sub, ok := v.(*Message); ok {
					nf.values[i] = sub.Clone()
					continue
				}
			}
			if f.typeCode == TypeRaw {
				if raw, ok := v.([]byte); ok {
					cp := make([]byte, len(raw))
					copy(cp, raw)
					nf.values[i] = cp
					continue
				}
			}
			nf.values[i] = v
		}
		out.fields[name] = nf
		out.names = append(out.names, name)
	}
	return out
}
