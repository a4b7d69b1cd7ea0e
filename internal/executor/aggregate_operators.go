package executor

import (
	"strings"

	"tupledb/internal/expression"
	"tupledb/internal/page"
	"tupledb/internal/types"
)

// aggState accumulates one aggregate across the input.
type aggState struct {
	ref   *expression.AggregateRef
	count int64
	sum   types.Value // running sum for SUM/AVG, typed by the first input
	best  types.Value // running extreme for MIN/MAX; null until a value lands
}

// Aggregation consumes its whole child on the first Next, computes every
// aggregate in the select list, and emits exactly one row.
type Aggregation struct {
	child       Operator
	aggregates  []expression.NamedExpression
	childSchema *types.Schema
	st          state
}

// NewAggregation builds a scalar (whole-relation) aggregation.
func NewAggregation(child Operator, aggregates []expression.NamedExpression, childSchema *types.Schema) *Aggregation {
	return &Aggregation{child: child, aggregates: aggregates, childSchema: childSchema}
}

func (op *Aggregation) Next() (*types.Row, *page.RowPosition, error) {
	if op.st != stateFresh {
		return nil, nil, nil
	}
	op.st = stateBuilding

	states := make([]*aggState, len(op.aggregates))
	for i, ne := range op.aggregates {
		ref, ok := ne.Expr.(*expression.AggregateRef)
		if !ok {
			return nil, nil, types.ErrInvalidQuery.New("non-aggregate " + ne.Expr.String() + " in aggregation")
		}
		states[i] = &aggState{ref: ref}
	}

	rows := int64(0)
	for {
		row, _, err := op.child.Next()
		if err != nil {
			return nil, nil, err
		}
		if row == nil {
			break
		}
		rows++
		for _, st := range states {
			if err := st.accumulate(*row, op.childSchema); err != nil {
				return nil, nil, err
			}
		}
	}

	out := make([]types.Value, len(states))
	for i, st := range states {
		v, err := st.finish(rows)
		if err != nil {
			return nil, nil, err
		}
		out[i] = v
	}
	op.st = stateExhausted
	res := types.Row{Values: out}
	return &res, nil, nil
}

func (st *aggState) accumulate(row types.Row, schema *types.Schema) error {
	if st.ref.Child == nil {
		// COUNT(*) counts rows; finish handles it
		return nil
	}
	v, err := st.ref.Child.Evaluate(row, schema)
	if err != nil {
		return err
	}
	if v.IsNull() {
		return nil
	}
	st.count++
	switch st.ref.Op {
	case expression.AggSum, expression.AggAvg:
		if st.sum.IsNull() {
			st.sum = v
			return nil
		}
		sum, err := st.sum.Add(v)
		if err != nil {
			return err
		}
		st.sum = sum
	case expression.AggMin:
		if st.best.IsNull() {
			st.best = v
			return nil
		}
		cmp, err := v.Compare(st.best)
		if err != nil {
			return err
		}
		if cmp < 0 {
			st.best = v
		}
	case expression.AggMax:
		if st.best.IsNull() {
			st.best = v
			return nil
		}
		cmp, err := v.Compare(st.best)
		if err != nil {
			return err
		}
		if cmp > 0 {
			st.best = v
		}
	}
	return nil
}

func (st *aggState) finish(rows int64) (types.Value, error) {
	switch st.ref.Op {
	case expression.AggCount:
		if st.ref.Child == nil {
			return types.NewInt64(rows), nil
		}
		return types.NewInt64(st.count), nil
	case expression.AggSum:
		return st.sum, nil
	case expression.AggAvg:
		if st.count == 0 || st.sum.IsNull() {
			return types.Null(), nil
		}
		var total float64
		switch st.sum.Type {
		case types.TypeInt64:
			total = float64(st.sum.Int)
		case types.TypeDouble:
			total = st.sum.Dbl
		default:
			return types.Null(), types.ErrTypeMismatch.New("AVG", "over", st.sum.Type)
		}
		return types.NewDouble(total / float64(st.count)), nil
	case expression.AggMin, expression.AggMax:
		return st.best, nil
	}
	return types.Null(), types.ErrInternal.New("unknown aggregate operator")
}

func (op *Aggregation) Close() error {
	if op.st == stateClosed {
		return nil
	}
	op.st = stateClosed
	return op.child.Close()
}

func (op *Aggregation) Dump(b *strings.Builder, ind int) {
	b.WriteString("Aggregation: {")
	for i, ne := range op.aggregates {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ne.String())
	}
	b.WriteString("}\n")
	pad(b, ind+2)
	op.child.Dump(b, ind+2)
}
