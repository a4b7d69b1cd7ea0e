package plan

import (
	"fmt"
	"strings"

	"tupledb/internal/database"
	"tupledb/internal/executor"
	"tupledb/internal/expression"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// ProjectionPlan narrows its child to a list of named expressions.
type ProjectionPlan struct {
	child     Plan
	exprs     []expression.NamedExpression
	outSchema *types.Schema
}

// NewProjection builds a projection plan. It fails when an expression does
// not resolve against the child schema, which is also where unresolved
// select-list columns surface.
func NewProjection(child Plan, exprs []expression.NamedExpression) (*ProjectionPlan, error) {
	out, err := executor.ProjectionSchema(exprs, child.Schema())
	if err != nil {
		return nil, err
	}
	return &ProjectionPlan{child: child, exprs: exprs, outSchema: out}, nil
}

func (p *ProjectionPlan) Schema() *types.Schema         { return p.outSchema }
func (p *ProjectionPlan) ScanSource() *table.Table      { return p.child.ScanSource() }
func (p *ProjectionPlan) Stats() *table.TableStatistics { return p.child.Stats() }
func (p *ProjectionPlan) EmitRowCount() int             { return p.child.EmitRowCount() }
func (p *ProjectionPlan) AccessRowCount() int           { return p.child.AccessRowCount() }

func (p *ProjectionPlan) EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error) {
	child, err := p.child.EmitExecutor(ctx)
	if err != nil {
		return nil, err
	}
	return executor.NewProjection(child, p.exprs, p.child.Schema()), nil
}

func (p *ProjectionPlan) Dump(b *strings.Builder, ind int) {
	b.WriteString("Projection: {")
	for i, c := range p.outSchema.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name.Name)
	}
	fmt.Fprintf(b, "} (estimated cost: %d)\n", p.AccessRowCount())
	pad(b, ind+2)
	p.child.Dump(b, ind+2)
}
