// Package types holds the value, row, and schema primitives every layer of
// the engine shares, together with the closed error-kind set and the
// memcomparable key encoding the ordered indexes rely on.
package types

import (
	"fmt"
	"strconv"
)

// ValueType tags the runtime type of a Value.
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeInt64
	TypeDouble
	TypeVarchar
)

// String returns the SQL-ish name of the type.
func (vt ValueType) String() string {
	switch vt {
	case TypeNull:
		return "NULL"
	case TypeInt64:
		return "BIGINT"
	case TypeDouble:
		return "DOUBLE"
	case TypeVarchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged scalar. The zero Value is null.
type Value struct {
	Type ValueType
	Int  int64
	Dbl  float64
	Str  string
}

// Null returns the null value.
func Null() Value { return Value{} }

// NewInt64 wraps an int64.
func NewInt64(v int64) Value { return Value{Type: TypeInt64, Int: v} }

// NewDouble wraps a float64.
func NewDouble(v float64) Value { return Value{Type: TypeDouble, Dbl: v} }

// NewVarchar wraps a string.
func NewVarchar(v string) Value { return Value{Type: TypeVarchar, Str: v} }

// NewBool encodes a boolean as int64 0/1, the engine's boolean surrogate.
func NewBool(b bool) Value {
	if b {
		return NewInt64(1)
	}
	return NewInt64(0)
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// Truthy reports whether the value counts as true in a predicate position:
// non-null and not numerically zero / not the empty string.
func (v Value) Truthy() bool {
	switch v.Type {
	case TypeInt64:
		return v.Int != 0
	case TypeDouble:
		return v.Dbl != 0
	case TypeVarchar:
		return v.Str != ""
	default:
		return false
	}
}

// String renders the value for EXPLAIN and debug output.
func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "NULL"
	case TypeInt64:
		return strconv.FormatInt(v.Int, 10)
	case TypeDouble:
		return strconv.FormatFloat(v.Dbl, 'g', -1, 64)
	case TypeVarchar:
		return strconv.Quote(v.Str)
	default:
		return "?"
	}
}

// Equal reports strict equality: same type and same payload. Nulls are equal
// to each other here; SQL null comparison semantics live in Compare and the
// expression layer.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeNull:
		return true
	case TypeInt64:
		return v.Int == o.Int
	case TypeDouble:
		return v.Dbl == o.Dbl
	case TypeVarchar:
		return v.Str == o.Str
	}
	return false
}

// Compare orders two values of the same type. It returns a negative, zero,
// or positive int, and ErrTypeMismatch when the types differ. Callers must
// handle nulls before comparing.
func (v Value) Compare(o Value) (int, error) {
	if v.Type != o.Type {
		return 0, ErrTypeMismatch.New(v.Type, "<=>", o.Type)
	}
	switch v.Type {
	case TypeInt64:
		switch {
		case v.Int < o.Int:
			return -1, nil
		case v.Int > o.Int:
			return 1, nil
		}
		return 0, nil
	case TypeDouble:
		switch {
		case v.Dbl < o.Dbl:
			return -1, nil
		case v.Dbl > o.Dbl:
			return 1, nil
		}
		return 0, nil
	case TypeVarchar:
		switch {
		case v.Str < o.Str:
			return -1, nil
		case v.Str > o.Str:
			return 1, nil
		}
		return 0, nil
	}
	return 0, ErrInternal.New(fmt.Sprintf("comparing values of type %s", v.Type))
}

// binOp is the shared shape of Add/Sub/Mul/Div/Mod.
func (v Value) binOp(o Value, op string,
	ints func(a, b int64) (Value, error),
	dbls func(a, b float64) (Value, error),
	strs func(a, b string) (Value, error)) (Value, error) {
	if v.IsNull() || o.IsNull() {
		return Null(), nil
	}
	if v.Type != o.Type {
		return Null(), ErrTypeMismatch.New(v.Type, op, o.Type)
	}
	switch v.Type {
	case TypeInt64:
		return ints(v.Int, o.Int)
	case TypeDouble:
		if dbls == nil {
			return Null(), ErrTypeMismatch.New(v.Type, op, o.Type)
		}
		return dbls(v.Dbl, o.Dbl)
	case TypeVarchar:
		if strs == nil {
			return Null(), ErrTypeMismatch.New(v.Type, op, o.Type)
		}
		return strs(v.Str, o.Str)
	}
	return Null(), ErrInternal.New("unreachable value type in arithmetic")
}

// Add computes v + o. Varchar addition is concatenation.
func (v Value) Add(o Value) (Value, error) {
	return v.binOp(o, "+",
		func(a, b int64) (Value, error) { return NewInt64(a + b), nil },
		func(a, b float64) (Value, error) { return NewDouble(a + b), nil },
		func(a, b string) (Value, error) { return NewVarchar(a + b), nil })
}

// Sub computes v - o.
func (v Value) Sub(o Value) (Value, error) {
	return v.binOp(o, "-",
		func(a, b int64) (Value, error) { return NewInt64(a - b), nil },
		func(a, b float64) (Value, error) { return NewDouble(a - b), nil },
		nil)
}

// Mul computes v * o.
func (v Value) Mul(o Value) (Value, error) {
	return v.binOp(o, "*",
		func(a, b int64) (Value, error) { return NewInt64(a * b), nil },
		func(a, b float64) (Value, error) { return NewDouble(a * b), nil },
		nil)
}

// Div computes v / o, failing on a zero divisor.
func (v Value) Div(o Value) (Value, error) {
	return v.binOp(o, "/",
		func(a, b int64) (Value, error) {
			if b == 0 {
				return Null(), ErrArithmetic.New("division by zero")
			}
			return NewInt64(a / b), nil
		},
		func(a, b float64) (Value, error) {
			if b == 0 {
				return Null(), ErrArithmetic.New("division by zero")
			}
			return NewDouble(a / b), nil
		},
		nil)
}

// Mod computes v % o. Defined for integers only.
func (v Value) Mod(o Value) (Value, error) {
	return v.binOp(o, "%",
		func(a, b int64) (Value, error) {
			if b == 0 {
				return Null(), ErrArithmetic.New("modulo by zero")
			}
			return NewInt64(a % b), nil
		},
		nil,
		nil)
}

// Neg computes -v for numeric values.
func (v Value) Neg() (Value, error) {
	switch v.Type {
	case TypeNull:
		return Null(), nil
	case TypeInt64:
		return NewInt64(-v.Int), nil
	case TypeDouble:
		return NewDouble(-v.Dbl), nil
	}
	return Null(), ErrTypeMismatch.New("-", "", v.Type)
}
