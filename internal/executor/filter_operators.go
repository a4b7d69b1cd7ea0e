package executor

import (
	"fmt"
	"strconv"
	"strings"

	"tupledb/internal/expression"
	"tupledb/internal/page"
	"tupledb/internal/types"
)

// Constant emits one pre-built row and is then exhausted.
type Constant struct {
	row types.Row
	st  state
}

// NewConstant builds a single-row operator.
func NewConstant(row types.Row) *Constant {
	return &Constant{row: row}
}

func (op *Constant) Next() (*types.Row, *page.RowPosition, error) {
	if op.st != stateFresh {
		return nil, nil, nil
	}
	op.st = stateExhausted
	row := op.row
	return &row, nil, nil
}

func (op *Constant) Close() error {
	op.st = stateClosed
	return nil
}

func (op *Constant) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "Constant: %s", op.row)
}

// Selection drops child rows whose predicate is not truthy. Null predicate
// results filter the row out, per SQL semantics.
type Selection struct {
	child     Operator
	predicate expression.Expression
	schema    *types.Schema
	st        state
}

// NewSelection builds a filter over a child operator.
func NewSelection(child Operator, predicate expression.Expression, schema *types.Schema) *Selection {
	return &Selection{child: child, predicate: predicate, schema: schema}
}

func (op *Selection) Next() (*types.Row, *page.RowPosition, error) {
	if op.st == stateExhausted || op.st == stateClosed {
		return nil, nil, nil
	}
	op.st = stateStreaming
	for {
		row, pos, err := op.child.Next()
		if err != nil {
			return nil, nil, err
		}
		if row == nil {
			op.st = stateExhausted
			return nil, nil, nil
		}
		v, err := op.predicate.Evaluate(*row, op.schema)
		if err != nil {
			return nil, nil, err
		}
		if v.Truthy() {
			return row, pos, nil
		}
	}
}

func (op *Selection) Close() error {
	if op.st == stateClosed {
		return nil
	}
	op.st = stateClosed
	return op.child.Close()
}

func (op *Selection) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "Selection: %s\n", op.predicate)
	pad(b, ind+2)
	op.child.Dump(b, ind+2)
}

// Projection evaluates a list of named expressions against each child row
// and emits the results in listed order.
type Projection struct {
	child       Operator
	exprs       []expression.NamedExpression
	childSchema *types.Schema
	st          state
}

// NewProjection builds a projection over a child operator.
func NewProjection(child Operator, exprs []expression.NamedExpression, childSchema *types.Schema) *Projection {
	return &Projection{child: child, exprs: exprs, childSchema: childSchema}
}

func (op *Projection) Next() (*types.Row, *page.RowPosition, error) {
	if op.st == stateExhausted || op.st == stateClosed {
		return nil, nil, nil
	}
	op.st = stateStreaming
	row, _, err := op.child.Next()
	if err != nil {
		return nil, nil, err
	}
	if row == nil {
		op.st = stateExhausted
		return nil, nil, nil
	}
	out := make([]types.Value, 0, len(op.exprs))
	for _, ne := range op.exprs {
		v, err := ne.Expr.Evaluate(*row, op.childSchema)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, v)
	}
	res := types.Row{Values: out}
	return &res, nil, nil
}

func (op *Projection) Close() error {
	if op.st == stateClosed {
		return nil
	}
	op.st = stateClosed
	return op.child.Close()
}

func (op *Projection) Dump(b *strings.Builder, ind int) {
	b.WriteString("Projection: {")
	for i, ne := range op.exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ne.String())
	}
	b.WriteString("}\n")
	pad(b, ind+2)
	op.child.Dump(b, ind+2)
}

// ProjectionSchema derives the output schema of a projection: a bare column
// reference keeps the referenced column's name, an alias wins otherwise,
// and anything else gets $colN.
func ProjectionSchema(exprs []expression.NamedExpression, childSchema *types.Schema) (*types.Schema, error) {
	cols := make([]types.Column, 0, len(exprs))
	for i, ne := range exprs {
		t, err := ne.Expr.ResultType(childSchema)
		if err != nil {
			return nil, err
		}
		var name types.ColumnName
		cr, isRef := ne.Expr.(*expression.ColumnRef)
		switch {
		case isRef:
			name = cr.Name
		case ne.Alias != "":
			name = types.ColumnName{Name: ne.Alias}
		default:
			name = types.ColumnName{Name: "$col" + strconv.Itoa(i)}
		}
		cols = append(cols, types.Column{Name: name, Type: t})
	}
	return &types.Schema{Columns: cols}, nil
}
