package expression

import (
	"fmt"

	"tupledb/internal/types"
)

// Unary applies a unary operator. IS NULL and IS NOT NULL are the only
// operators that see through null; NOT and negation propagate it.
type Unary struct {
	Op    UnaryOp
	Child Expression
}

// NewUnary builds a unary expression.
func NewUnary(op UnaryOp, child Expression) *Unary {
	return &Unary{Op: op, Child: child}
}

func (u *Unary) Evaluate(row types.Row, schema *types.Schema) (types.Value, error) {
	return u.EvaluateJoin(row, schema, types.Row{}, nil)
}

func (u *Unary) EvaluateJoin(left types.Row, ls *types.Schema, right types.Row, rs *types.Schema) (types.Value, error) {
	v, err := u.Child.EvaluateJoin(left, ls, right, rs)
	if err != nil {
		return types.Null(), err
	}
	switch u.Op {
	case OpIsNull:
		return types.NewBool(v.IsNull()), nil
	case OpIsNotNull:
		return types.NewBool(!v.IsNull()), nil
	case OpNot:
		if v.IsNull() {
			return types.Null(), nil
		}
		return types.NewBool(!v.Truthy()), nil
	case OpNeg:
		return v.Neg()
	}
	return types.Null(), types.ErrInternal.New("unknown unary operator")
}

func (u *Unary) ResultType(schema *types.Schema) (types.ValueType, error) {
	if u.Op == OpNeg {
		return u.Child.ResultType(schema)
	}
	return types.TypeInt64, nil
}

func (u *Unary) Children() []Expression { return []Expression{u.Child} }

func (u *Unary) Equal(other Expression) bool {
	o, ok := other.(*Unary)
	return ok && u.Op == o.Op && u.Child.Equal(o.Child)
}

func (u *Unary) String() string {
	if u.Op == OpNeg {
		return fmt.Sprintf("(-%s)", u.Child)
	}
	if u.Op == OpNot {
		return fmt.Sprintf("(NOT %s)", u.Child)
	}
	return fmt.Sprintf("(%s %s)", u.Child, u.Op)
}
