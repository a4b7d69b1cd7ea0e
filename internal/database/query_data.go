package database

import (
	"strings"

	"tupledb/internal/expression"
)

// QueryData is the logical form of a SELECT the parser hands the planner:
// tables, an optional predicate, and the select list.
type QueryData struct {
	From   []string
	Where  expression.Expression
	Select []expression.NamedExpression
}

// String renders the query for logs and debugging.
func (q QueryData) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, ne := range q.Select {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ne.String())
	}
	b.WriteString(" FROM ")
	b.WriteString(strings.Join(q.From, ", "))
	if q.Where != nil {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where.String())
	}
	return b.String()
}
