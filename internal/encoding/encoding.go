// Package encoding provides the binary codec used for heap rows, catalog
// entries, and serialized statistics. Integers are varint-encoded; strings
// and byte slices are length-prefixed.
package encoding

import (
	"encoding/binary"
	"errors"
	"math"

	"tupledb/internal/types"
)

var errShortBuffer = errors.New("encoding: short buffer")

// Encoder appends primitive values to a byte buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with an empty buffer.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the encoded buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Uint64 appends a uvarint.
func (e *Encoder) Uint64(v uint64) *Encoder {
	e.buf = binary.AppendUvarint(e.buf, v)
	return e
}

// Int64 appends a signed varint.
func (e *Encoder) Int64(v int64) *Encoder {
	e.buf = binary.AppendVarint(e.buf, v)
	return e
}

// Float64 appends the IEEE-754 bits, fixed width.
func (e *Encoder) Float64(v float64) *Encoder {
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(v))
	return e
}

// String appends a length-prefixed string.
func (e *Encoder) String(s string) *Encoder {
	e.Uint64(uint64(len(s)))
	e.buf = append(e.buf, s...)
	return e
}

// Bytes2 appends a length-prefixed byte slice.
func (e *Encoder) Bytes2(b []byte) *Encoder {
	e.Uint64(uint64(len(b)))
	e.buf = append(e.buf, b...)
	return e
}

// Value appends a tagged value.
func (e *Encoder) Value(v types.Value) *Encoder {
	e.buf = append(e.buf, byte(v.Type))
	switch v.Type {
	case types.TypeInt64:
		e.Int64(v.Int)
	case types.TypeDouble:
		e.Float64(v.Dbl)
	case types.TypeVarchar:
		e.String(v.Str)
	}
	return e
}

// Row appends a count-prefixed sequence of values.
func (e *Encoder) Row(r types.Row) *Encoder {
	e.Uint64(uint64(r.Len()))
	for _, v := range r.Values {
		e.Value(v)
	}
	return e
}

// Decoder reads primitive values back out of a buffer.
type Decoder struct {
	buf []byte
}

// NewDecoder wraps a buffer for reading.
func NewDecoder(buf []byte) *Decoder { return &Decoder{buf: buf} }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) }

// Uint64 reads a uvarint.
func (d *Decoder) Uint64() (uint64, error) {
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		return 0, errShortBuffer
	}
	d.buf = d.buf[n:]
	return v, nil
}

// Int64 reads a signed varint.
func (d *Decoder) Int64() (int64, error) {
	v, n := binary.Varint(d.buf)
	if n <= 0 {
		return 0, errShortBuffer
	}
	d.buf = d.buf[n:]
	return v, nil
}

// Float64 reads fixed-width IEEE-754 bits.
func (d *Decoder) Float64() (float64, error) {
	if len(d.buf) < 8 {
		return 0, errShortBuffer
	}
	bits := binary.BigEndian.Uint64(d.buf[:8])
	d.buf = d.buf[8:]
	return math.Float64frombits(bits), nil
}

// String reads a length-prefixed string.
func (d *Decoder) String() (string, error) {
	n, err := d.Uint64()
	if err != nil {
		return "", err
	}
	if uint64(len(d.buf)) < n {
		return "", errShortBuffer
	}
	s := string(d.buf[:n])
	d.buf = d.buf[n:]
	return s, nil
}

// Bytes2 reads a length-prefixed byte slice.
func (d *Decoder) Bytes2() ([]byte, error) {
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	if uint64(len(d.buf)) < n {
		return nil, errShortBuffer
	}
	b := make([]byte, n)
	copy(b, d.buf[:n])
	d.buf = d.buf[n:]
	return b, nil
}

// Value reads a tagged value.
func (d *Decoder) Value() (types.Value, error) {
	if len(d.buf) == 0 {
		return types.Null(), errShortBuffer
	}
	tag := types.ValueType(d.buf[0])
	d.buf = d.buf[1:]
	switch tag {
	case types.TypeNull:
		return types.Null(), nil
	case types.TypeInt64:
		v, err := d.Int64()
		return types.NewInt64(v), err
	case types.TypeDouble:
		v, err := d.Float64()
		return types.NewDouble(v), err
	case types.TypeVarchar:
		v, err := d.String()
		return types.NewVarchar(v), err
	}
	return types.Null(), errors.New("encoding: unknown value tag")
}

// Row reads a count-prefixed sequence of values.
func (d *Decoder) Row() (types.Row, error) {
	n, err := d.Uint64()
	if err != nil {
		return types.Row{}, err
	}
	vals := make([]types.Value, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := d.Value()
		if err != nil {
			return types.Row{}, err
		}
		vals = append(vals, v)
	}
	return types.Row{Values: vals}, nil
}
