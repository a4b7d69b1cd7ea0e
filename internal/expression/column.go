package expression

import (
	"tupledb/internal/types"
)

// ColumnRef references a column by (possibly qualified) name, resolved
// against the evaluation schema at runtime.
type ColumnRef struct {
	Name types.ColumnName
}

// NewColumnRef builds a reference from a "t.c" or "c" string.
func NewColumnRef(name string) *ColumnRef {
	return &ColumnRef{Name: types.ParseColumnName(name)}
}

func (c *ColumnRef) Evaluate(row types.Row, schema *types.Schema) (types.Value, error) {
	off, err := schema.Offset(c.Name)
	if err != nil {
		return types.Null(), err
	}
	if off >= row.Len() {
		return types.Null(), types.ErrInternal.New("row narrower than its schema")
	}
	return row.Get(off), nil
}

// EvaluateJoin resolves against both schemas. A name that resolves on both
// sides is ambiguous.
func (c *ColumnRef) EvaluateJoin(left types.Row, leftSchema *types.Schema, right types.Row, rightSchema *types.Schema) (types.Value, error) {
	if rightSchema == nil || rightSchema.ColumnCount() == 0 {
		return c.Evaluate(left, leftSchema)
	}
	lOff, lErr := leftSchema.Offset(c.Name)
	rOff, rErr := rightSchema.Offset(c.Name)
	switch {
	case lErr == nil && rErr == nil:
		return types.Null(), types.ErrAmbiguousColumn.New(c.Name.String())
	case lErr == nil:
		return left.Get(lOff), nil
	case rErr == nil:
		return right.Get(rOff), nil
	case types.ErrAmbiguousColumn.Is(lErr):
		return types.Null(), lErr
	case types.ErrAmbiguousColumn.Is(rErr):
		return types.Null(), rErr
	default:
		return types.Null(), types.ErrNameResolution.New("column " + c.Name.String() + " not in either join side")
	}
}

func (c *ColumnRef) ResultType(schema *types.Schema) (types.ValueType, error) {
	off, err := schema.Offset(c.Name)
	if err != nil {
		return types.TypeNull, err
	}
	return schema.Column(off).Type, nil
}

func (c *ColumnRef) Children() []Expression { return nil }

func (c *ColumnRef) Equal(other Expression) bool {
	o, ok := other.(*ColumnRef)
	return ok && c.Name == o.Name
}

func (c *ColumnRef) String() string { return c.Name.String() }
