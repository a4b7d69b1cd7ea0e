package expression

// NamedExpression pairs a select-list expression with its output alias. A
// bare column reference keeps the column's own name at projection time; any
// other expression takes its alias, or a synthesized $colN name when the
// alias is empty.
type NamedExpression struct {
	Alias string
	Expr  Expression
}

// Named builds a named expression.
func Named(alias string, expr Expression) NamedExpression {
	return NamedExpression{Alias: alias, Expr: expr}
}

// NamedColumn is shorthand for an unaliased column reference.
func NamedColumn(name string) NamedExpression {
	return NamedExpression{Expr: NewColumnRef(name)}
}

func (ne NamedExpression) String() string {
	if ne.Alias == "" {
		return ne.Expr.String()
	}
	return ne.Expr.String() + " AS " + ne.Alias
}
