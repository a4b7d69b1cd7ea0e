package expression

import (
	"strings"

	"tupledb/internal/types"
)

// WhenClause is one CASE arm.
type WhenClause struct {
	When Expression
	Then Expression
}

// Case evaluates its arms in order and returns the first THEN whose WHEN is
// truthy; null when no arm fires and there is no ELSE.
type Case struct {
	Whens []WhenClause
	Else  Expression
}

// NewCase builds a CASE expression. elseClause may be nil.
func NewCase(whens []WhenClause, elseClause Expression) *Case {
	return &Case{Whens: whens, Else: elseClause}
}

func (c *Case) Evaluate(row types.Row, schema *types.Schema) (types.Value, error) {
	return c.EvaluateJoin(row, schema, types.Row{}, nil)
}

func (c *Case) EvaluateJoin(left types.Row, ls *types.Schema, right types.Row, rs *types.Schema) (types.Value, error) {
	for _, w := range c.Whens {
		cond, err := w.When.EvaluateJoin(left, ls, right, rs)
		if err != nil {
			return types.Null(), err
		}
		if cond.Truthy() {
			return w.Then.EvaluateJoin(left, ls, right, rs)
		}
	}
	if c.Else != nil {
		return c.Else.EvaluateJoin(left, ls, right, rs)
	}
	return types.Null(), nil
}

func (c *Case) ResultType(schema *types.Schema) (types.ValueType, error) {
	if len(c.Whens) > 0 {
		return c.Whens[0].Then.ResultType(schema)
	}
	if c.Else != nil {
		return c.Else.ResultType(schema)
	}
	return types.TypeNull, nil
}

func (c *Case) Children() []Expression {
	var out []Expression
	for _, w := range c.Whens {
		out = append(out, w.When, w.Then)
	}
	if c.Else != nil {
		out = append(out, c.Else)
	}
	return out
}

func (c *Case) Equal(other Expression) bool {
	o, ok := other.(*Case)
	if !ok || len(c.Whens) != len(o.Whens) {
		return false
	}
	for i := range c.Whens {
		if !c.Whens[i].When.Equal(o.Whens[i].When) || !c.Whens[i].Then.Equal(o.Whens[i].Then) {
			return false
		}
	}
	if (c.Else == nil) != (o.Else == nil) {
		return false
	}
	return c.Else == nil || c.Else.Equal(o.Else)
}

func (c *Case) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, w := range c.Whens {
		b.WriteString(" WHEN ")
		b.WriteString(w.When.String())
		b.WriteString(" THEN ")
		b.WriteString(w.Then.String())
	}
	if c.Else != nil {
		b.WriteString(" ELSE ")
		b.WriteString(c.Else.String())
	}
	b.WriteString(" END")
	return b.String()
}
