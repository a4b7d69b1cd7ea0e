// Package expression implements the expression trees shared by predicates,
// projections, and aggregates. Every node evaluates against a row and its
// schema, or against a pair of row+schema for join predicates; the
// single-schema form is the pair form with an empty right side.
package expression

import (
	"tupledb/internal/types"
)

// Expression is one node of an expression tree. Evaluation is pure: equal
// inputs produce equal values and no state changes.
type Expression interface {
	// Evaluate resolves the expression against one row.
	Evaluate(row types.Row, schema *types.Schema) (types.Value, error)
	// EvaluateJoin resolves against two rows, as join predicates need.
	EvaluateJoin(left types.Row, leftSchema *types.Schema, right types.Row, rightSchema *types.Schema) (types.Value, error)
	// ResultType reports the value type the expression produces over the
	// schema, for output-schema construction.
	ResultType(schema *types.Schema) (types.ValueType, error)
	// Children returns the direct sub-expressions.
	Children() []Expression
	// Equal reports structural equality.
	Equal(other Expression) bool
	// String renders the expression for EXPLAIN output.
	String() string
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// String returns the SQL spelling of the operator.
func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "?"
	}
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpIsNull UnaryOp = iota
	OpIsNotNull
	OpNot
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpNot:
		return "NOT"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// AggregateOp enumerates aggregate functions.
type AggregateOp int

const (
	AggCount AggregateOp = iota
	AggSum
	AggAvg
	AggMin
	AggMax
)

func (op AggregateOp) String() string {
	switch op {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	default:
		return "?"
	}
}

func equalChildren(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) {
			return false
		}
		if a[i] != nil && !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
