package types

import (
	"encoding/binary"
	"math"
)

// Memcomparable encoding: a typed, self-delimiting byte form whose
// lexicographic order matches the value order within a type. Indexes store
// nothing else; the B+tree compares keys with bytes.Compare and is correct
// exactly because of this property.
//
// Layout per value: one tag byte, then
//   int64   8 bytes big-endian with the sign bit flipped
//   double  IEEE-754 bits, negative values fully inverted, others sign-flipped
//   varchar bytes with 0x00 escaped to 0x00 0xFF, terminated by 0x00 0x00

const (
	tagNull    byte = 0x00
	tagInt64   byte = 0x01
	tagDouble  byte = 0x02
	tagVarchar byte = 0x03
)

// EncodeMemcomparable appends the encoding of v to dst and returns it.
func (v Value) EncodeMemcomparable(dst []byte) []byte {
	switch v.Type {
	case TypeNull:
		return append(dst, tagNull)
	case TypeInt64:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(v.Int)^(1<<63))
		dst = append(dst, tagInt64)
		return append(dst, buf[:]...)
	case TypeDouble:
		bits := math.Float64bits(v.Dbl)
		if bits&(1<<63) != 0 {
			bits = ^bits
		} else {
			bits |= 1 << 63
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], bits)
		dst = append(dst, tagDouble)
		return append(dst, buf[:]...)
	case TypeVarchar:
		dst = append(dst, tagVarchar)
		for i := 0; i < len(v.Str); i++ {
			if v.Str[i] == 0x00 {
				dst = append(dst, 0x00, 0xFF)
			} else {
				dst = append(dst, v.Str[i])
			}
		}
		return append(dst, 0x00, 0x00)
	}
	return dst
}

// DecodeMemcomparable reads one value from src, returning it and the number
// of bytes consumed.
func DecodeMemcomparable(src []byte) (Value, int, error) {
	if len(src) == 0 {
		return Null(), 0, ErrInternal.New("empty memcomparable input")
	}
	switch src[0] {
	case tagNull:
		return Null(), 1, nil
	case tagInt64:
		if len(src) < 9 {
			return Null(), 0, ErrInternal.New("truncated memcomparable int64")
		}
		u := binary.BigEndian.Uint64(src[1:9]) ^ (1 << 63)
		return NewInt64(int64(u)), 9, nil
	case tagDouble:
		if len(src) < 9 {
			return Null(), 0, ErrInternal.New("truncated memcomparable double")
		}
		bits := binary.BigEndian.Uint64(src[1:9])
		if bits&(1<<63) != 0 {
			bits &^= 1 << 63
		} else {
			bits = ^bits
		}
		return NewDouble(math.Float64frombits(bits)), 9, nil
	case tagVarchar:
		out := make([]byte, 0, len(src))
		i := 1
		for {
			if i >= len(src) {
				return Null(), 0, ErrInternal.New("unterminated memcomparable varchar")
			}
			if src[i] != 0x00 {
				out = append(out, src[i])
				i++
				continue
			}
			if i+1 >= len(src) {
				return Null(), 0, ErrInternal.New("unterminated memcomparable varchar")
			}
			switch src[i+1] {
			case 0x00:
				return NewVarchar(string(out)), i + 2, nil
			case 0xFF:
				out = append(out, 0x00)
				i += 2
			default:
				return Null(), 0, ErrInternal.New("corrupt memcomparable varchar escape")
			}
		}
	}
	return Null(), 0, ErrInternal.New("unknown memcomparable tag")
}
