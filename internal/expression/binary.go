package expression

import (
	"fmt"

	"tupledb/internal/types"
)

// Binary applies a binary operator to two sub-expressions. Arithmetic and
// comparison propagate null operands to null; AND/OR follow SQL
// three-valued logic.
type Binary struct {
	Left  Expression
	Op    BinaryOp
	Right Expression
}

// NewBinary builds a binary expression.
func NewBinary(left Expression, op BinaryOp, right Expression) *Binary {
	return &Binary{Left: left, Op: op, Right: right}
}

func (b *Binary) Evaluate(row types.Row, schema *types.Schema) (types.Value, error) {
	return b.EvaluateJoin(row, schema, types.Row{}, nil)
}

func (b *Binary) EvaluateJoin(left types.Row, ls *types.Schema, right types.Row, rs *types.Schema) (types.Value, error) {
	lv, err := b.Left.EvaluateJoin(left, ls, right, rs)
	if err != nil {
		return types.Null(), err
	}
	// AND/OR evaluate both sides and combine them under three-valued logic.
	if b.Op == OpAnd || b.Op == OpOr {
		rv, err := b.Right.EvaluateJoin(left, ls, right, rs)
		if err != nil {
			return types.Null(), err
		}
		return evalLogic(b.Op, lv, rv), nil
	}
	rv, err := b.Right.EvaluateJoin(left, ls, right, rs)
	if err != nil {
		return types.Null(), err
	}
	return applyBinary(b.Op, lv, rv)
}

func evalLogic(op BinaryOp, lv, rv types.Value) types.Value {
	var l, r int // -1 unknown, 0 false, 1 true
	l = truth(lv)
	r = truth(rv)
	if op == OpAnd {
		switch {
		case l == 0 || r == 0:
			return types.NewBool(false)
		case l == 1 && r == 1:
			return types.NewBool(true)
		}
		return types.Null()
	}
	switch {
	case l == 1 || r == 1:
		return types.NewBool(true)
	case l == 0 && r == 0:
		return types.NewBool(false)
	}
	return types.Null()
}

func truth(v types.Value) int {
	if v.IsNull() {
		return -1
	}
	if v.Truthy() {
		return 1
	}
	return 0
}

func applyBinary(op BinaryOp, lv, rv types.Value) (types.Value, error) {
	switch op {
	case OpAdd:
		return lv.Add(rv)
	case OpSub:
		return lv.Sub(rv)
	case OpMul:
		return lv.Mul(rv)
	case OpDiv:
		return lv.Div(rv)
	case OpMod:
		return lv.Mod(rv)
	}
	// comparisons
	if lv.IsNull() || rv.IsNull() {
		return types.Null(), nil
	}
	cmp, err := lv.Compare(rv)
	if err != nil {
		return types.Null(), err
	}
	switch op {
	case OpEq:
		return types.NewBool(cmp == 0), nil
	case OpNe:
		return types.NewBool(cmp != 0), nil
	case OpLt:
		return types.NewBool(cmp < 0), nil
	case OpLe:
		return types.NewBool(cmp <= 0), nil
	case OpGt:
		return types.NewBool(cmp > 0), nil
	case OpGe:
		return types.NewBool(cmp >= 0), nil
	}
	return types.Null(), types.ErrInternal.New("unknown binary operator")
}

func (b *Binary) ResultType(schema *types.Schema) (types.ValueType, error) {
	switch b.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		lt, err := b.Left.ResultType(schema)
		if err != nil {
			return types.TypeNull, err
		}
		if lt != types.TypeNull {
			return lt, nil
		}
		return b.Right.ResultType(schema)
	default:
		return types.TypeInt64, nil
	}
}

func (b *Binary) Children() []Expression { return []Expression{b.Left, b.Right} }

func (b *Binary) Equal(other Expression) bool {
	o, ok := other.(*Binary)
	return ok && b.Op == o.Op && b.Left.Equal(o.Left) && b.Right.Equal(o.Right)
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}
