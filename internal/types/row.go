package types

import "strings"

// Row is an ordered sequence of values matching a schema positionally.
// Rows are value objects: operators hand them on without retaining pointers
// into one another's buffers.
type Row struct {
	Values []Value
}

// NewRow builds a row from values.
func NewRow(vs ...Value) Row { return Row{Values: vs} }

// Len returns the number of values.
func (r Row) Len() int { return len(r.Values) }

// Get returns the i-th value.
func (r Row) Get(i int) Value { return r.Values[i] }

// Extract projects the row down to the listed offsets, in order.
func (r Row) Extract(offsets []int) Row {
	out := make([]Value, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, r.Values[off])
	}
	return Row{Values: out}
}

// Concat returns a new row with r's values followed by o's.
func (r Row) Concat(o Row) Row {
	out := make([]Value, 0, len(r.Values)+len(o.Values))
	out = append(out, r.Values...)
	out = append(out, o.Values...)
	return Row{Values: out}
}

// Copy returns a row whose value slice is independent of r's.
func (r Row) Copy() Row {
	out := make([]Value, len(r.Values))
	copy(out, r.Values)
	return Row{Values: out}
}

// Equal reports positional equality of two rows.
func (r Row) Equal(o Row) bool {
	if len(r.Values) != len(o.Values) {
		return false
	}
	for i := range r.Values {
		if !r.Values[i].Equal(o.Values[i]) {
			return false
		}
	}
	return true
}

// EncodeMemcomparable concatenates the memcomparable encodings of all
// values. The result orders tuples lexicographically.
func (r Row) EncodeMemcomparable() []byte {
	var dst []byte
	for _, v := range r.Values {
		dst = v.EncodeMemcomparable(dst)
	}
	return dst
}

// DecodeRowMemcomparable decodes the whole of src back into a row.
func DecodeRowMemcomparable(src []byte) (Row, error) {
	var out []Value
	for len(src) > 0 {
		v, n, err := DecodeMemcomparable(src)
		if err != nil {
			return Row{}, err
		}
		out = append(out, v)
		src = src[n:]
	}
	return Row{Values: out}, nil
}

// String renders the row as [v1, v2, ...].
func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range r.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}
