package expression

import (
	"tupledb/internal/types"
)

// AggregateRef marks an aggregate in a select list. It is a placeholder:
// the aggregation operator computes its value over the whole input, so a
// direct Evaluate call is an invariant violation.
type AggregateRef struct {
	Op AggregateOp
	// Child is the aggregated expression. A nil child is COUNT(*).
	Child Expression
}

// NewAggregateRef builds an aggregate marker. child may be nil for
// COUNT(*).
func NewAggregateRef(op AggregateOp, child Expression) *AggregateRef {
	return &AggregateRef{Op: op, Child: child}
}

func (a *AggregateRef) Evaluate(types.Row, *types.Schema) (types.Value, error) {
	return types.Null(), types.ErrInternal.New("aggregate evaluated outside an aggregation operator")
}

func (a *AggregateRef) EvaluateJoin(types.Row, *types.Schema, types.Row, *types.Schema) (types.Value, error) {
	return types.Null(), types.ErrInternal.New("aggregate evaluated outside an aggregation operator")
}

func (a *AggregateRef) ResultType(schema *types.Schema) (types.ValueType, error) {
	switch a.Op {
	case AggCount:
		return types.TypeInt64, nil
	case AggAvg:
		return types.TypeDouble, nil
	default:
		if a.Child == nil {
			return types.TypeNull, types.ErrInvalidQuery.New(a.Op.String() + " requires an argument")
		}
		return a.Child.ResultType(schema)
	}
}

func (a *AggregateRef) Children() []Expression {
	if a.Child == nil {
		return nil
	}
	return []Expression{a.Child}
}

func (a *AggregateRef) Equal(other Expression) bool {
	o, ok := other.(*AggregateRef)
	if !ok || a.Op != o.Op {
		return false
	}
	if (a.Child == nil) != (o.Child == nil) {
		return false
	}
	return a.Child == nil || a.Child.Equal(o.Child)
}

func (a *AggregateRef) String() string {
	if a.Child == nil {
		return a.Op.String() + "(*)"
	}
	return a.Op.String() + "(" + a.Child.String() + ")"
}
