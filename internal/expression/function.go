package expression

import (
	"strings"

	"tupledb/internal/types"
)

// FunctionCall invokes a scalar function by name. The function surface is
// deliberately small; coalesce is the one function queries use today.
type FunctionCall struct {
	Name string
	Args []Expression
}

// NewFunctionCall builds a function-call expression.
func NewFunctionCall(name string, args ...Expression) *FunctionCall {
	return &FunctionCall{Name: strings.ToLower(name), Args: args}
}

func (f *FunctionCall) Evaluate(row types.Row, schema *types.Schema) (types.Value, error) {
	return f.EvaluateJoin(row, schema, types.Row{}, nil)
}

func (f *FunctionCall) EvaluateJoin(left types.Row, ls *types.Schema, right types.Row, rs *types.Schema) (types.Value, error) {
	args := make([]types.Value, 0, len(f.Args))
	for _, arg := range f.Args {
		v, err := arg.EvaluateJoin(left, ls, right, rs)
		if err != nil {
			return types.Null(), err
		}
		args = append(args, v)
	}
	switch f.Name {
	case "coalesce":
		for _, v := range args {
			if !v.IsNull() {
				return v, nil
			}
		}
		return types.Null(), nil
	}
	return types.Null(), types.ErrNameResolution.New("function " + f.Name)
}

func (f *FunctionCall) ResultType(schema *types.Schema) (types.ValueType, error) {
	switch f.Name {
	case "coalesce":
		if len(f.Args) == 0 {
			return types.TypeNull, nil
		}
		return f.Args[0].ResultType(schema)
	}
	return types.TypeNull, types.ErrNameResolution.New("function " + f.Name)
}

func (f *FunctionCall) Children() []Expression { return f.Args }

func (f *FunctionCall) Equal(other Expression) bool {
	o, ok := other.(*FunctionCall)
	return ok && f.Name == o.Name && equalChildren(f.Args, o.Args)
}

func (f *FunctionCall) String() string {
	var b strings.Builder
	b.WriteString(f.Name)
	b.WriteString("(")
	for i, arg := range f.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(arg.String())
	}
	b.WriteString(")")
	return b.String()
}
