package expression

import (
	"tupledb/internal/types"
)

// Constant is a literal value.
type Constant struct {
	Value types.Value
}

// NewConstant wraps a value.
func NewConstant(v types.Value) *Constant { return &Constant{Value: v} }

func (c *Constant) Evaluate(types.Row, *types.Schema) (types.Value, error) {
	return c.Value, nil
}

func (c *Constant) EvaluateJoin(types.Row, *types.Schema, types.Row, *types.Schema) (types.Value, error) {
	return c.Value, nil
}

func (c *Constant) ResultType(*types.Schema) (types.ValueType, error) {
	return c.Value.Type, nil
}

func (c *Constant) Children() []Expression { return nil }

func (c *Constant) Equal(other Expression) bool {
	o, ok := other.(*Constant)
	return ok && c.Value.Equal(o.Value)
}

func (c *Constant) String() string { return c.Value.String() }
