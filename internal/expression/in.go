package expression

import (
	"strings"

	"tupledb/internal/types"
)

// In tests membership of its child's value in a literal expression list.
type In struct {
	Child Expression
	List  []Expression
}

// NewIn builds an IN expression.
func NewIn(child Expression, list []Expression) *In {
	return &In{Child: child, List: list}
}

func (in *In) Evaluate(row types.Row, schema *types.Schema) (types.Value, error) {
	return in.EvaluateJoin(row, schema, types.Row{}, nil)
}

func (in *In) EvaluateJoin(left types.Row, ls *types.Schema, right types.Row, rs *types.Schema) (types.Value, error) {
	child, err := in.Child.EvaluateJoin(left, ls, right, rs)
	if err != nil {
		return types.Null(), err
	}
	if child.IsNull() {
		return types.Null(), nil
	}
	for _, item := range in.List {
		v, err := item.EvaluateJoin(left, ls, right, rs)
		if err != nil {
			return types.Null(), err
		}
		if !v.IsNull() && child.Equal(v) {
			return types.NewBool(true), nil
		}
	}
	return types.NewBool(false), nil
}

func (in *In) ResultType(*types.Schema) (types.ValueType, error) {
	return types.TypeInt64, nil
}

func (in *In) Children() []Expression {
	out := []Expression{in.Child}
	return append(out, in.List...)
}

func (in *In) Equal(other Expression) bool {
	o, ok := other.(*In)
	if !ok || !in.Child.Equal(o.Child) {
		return false
	}
	return equalChildren(in.List, o.List)
}

func (in *In) String() string {
	var b strings.Builder
	b.WriteString(in.Child.String())
	b.WriteString(" IN (")
	for i, item := range in.List {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.String())
	}
	b.WriteString(")")
	return b.String()
}
