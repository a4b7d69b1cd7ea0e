package expression

import (
	"tupledb/internal/types"
)

// Walk calls fn for expr and every descendant, pre-order. fn returning
// false prunes the subtree.
func Walk(expr Expression, fn func(Expression) bool) {
	if expr == nil || !fn(expr) {
		return
	}
	for _, child := range expr.Children() {
		Walk(child, fn)
	}
}

// ReferencedColumns collects every column name the expression touches.
func ReferencedColumns(expr Expression) []types.ColumnName {
	var out []types.ColumnName
	seen := make(map[types.ColumnName]struct{})
	Walk(expr, func(e Expression) bool {
		if cr, ok := e.(*ColumnRef); ok {
			if _, dup := seen[cr.Name]; !dup {
				seen[cr.Name] = struct{}{}
				out = append(out, cr.Name)
			}
		}
		return true
	})
	return out
}

// TouchesOnly reports whether every column the expression references
// resolves inside the schema. Expressions without column references touch
// every schema trivially.
func TouchesOnly(expr Expression, schema *types.Schema) bool {
	ok := true
	Walk(expr, func(e Expression) bool {
		if cr, ok2 := e.(*ColumnRef); ok2 {
			if !schema.HasColumn(cr.Name) {
				ok = false
				return false
			}
		}
		return ok
	})
	return ok
}

// References reports whether the expression touches at least one column of
// the schema.
func References(expr Expression, schema *types.Schema) bool {
	found := false
	Walk(expr, func(e Expression) bool {
		if cr, ok := e.(*ColumnRef); ok && schema.HasColumn(cr.Name) {
			found = true
			return false
		}
		return !found
	})
	return found
}

// SplitConjunction flattens top-level ANDs into independent predicates.
func SplitConjunction(expr Expression) []Expression {
	if expr == nil {
		return nil
	}
	if b, ok := expr.(*Binary); ok && b.Op == OpAnd {
		return append(SplitConjunction(b.Left), SplitConjunction(b.Right)...)
	}
	return []Expression{expr}
}

// JoinConjunction rebuilds a single predicate from a conjunct list; nil for
// an empty list.
func JoinConjunction(preds []Expression) Expression {
	var out Expression
	for _, p := range preds {
		if out == nil {
			out = p
		} else {
			out = NewBinary(out, OpAnd, p)
		}
	}
	return out
}

// HasAggregate reports whether the expression contains an AggregateRef.
func HasAggregate(expr Expression) bool {
	found := false
	Walk(expr, func(e Expression) bool {
		if _, ok := e.(*AggregateRef); ok {
			found = true
		}
		return !found
	})
	return found
}
