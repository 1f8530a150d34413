package message

// field holds every value added under one name. All values in a field
// share the field's type code (invariant from §3). Internally values are
// always kept in a slice so that swapping between "single inline scalar"
// and "array" representation (triggered by adding a second value) is
// transparent and requires no data movement.
type field struct {
	typeCode TypeCode
	values   []interface{}
}

// isArray reports whether the field currently holds more than one value.
// Flatten encodes a one-value field and a many-value field the same way,
// so the switch to an array on the second value is invisible on the wire,
// per §3's "swapping ... is transparent" invariant.
func (f *field) isArray() bool { return len(f.values) > 1 }
