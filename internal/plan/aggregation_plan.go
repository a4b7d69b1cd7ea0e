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

// AggregationPlan computes scalar aggregates over its whole child and emits
// one row.
type AggregationPlan struct {
	child      Plan
	aggregates []expression.NamedExpression
	outSchema  *types.Schema
}

// NewAggregation builds a scalar aggregation plan.
func NewAggregation(child Plan, aggregates []expression.NamedExpression) (*AggregationPlan, error) {
	out, err := executor.ProjectionSchema(aggregates, child.Schema())
	if err != nil {
		return nil, err
	}
	return &AggregationPlan{child: child, aggregates: aggregates, outSchema: out}, nil
}

func (p *AggregationPlan) Schema() *types.Schema         { return p.outSchema }
func (p *AggregationPlan) ScanSource() *table.Table      { return p.child.ScanSource() }
func (p *AggregationPlan) Stats() *table.TableStatistics { return p.child.Stats() }
func (p *AggregationPlan) EmitRowCount() int             { return 1 }

func (p *AggregationPlan) AccessRowCount() int {
	return p.child.AccessRowCount() + p.child.EmitRowCount()
}

func (p *AggregationPlan) EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error) {
	child, err := p.child.EmitExecutor(ctx)
	if err != nil {
		return nil, err
	}
	return executor.NewAggregation(child, p.aggregates, p.child.Schema()), nil
}

func (p *AggregationPlan) Dump(b *strings.Builder, ind int) {
	b.WriteString("Aggregation: {")
	for i, ne := range p.aggregates {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ne.String())
	}
	fmt.Fprintf(b, "} (estimated cost: %d)\n", p.AccessRowCount())
	pad(b, ind+2)
	p.child.Dump(b, ind+2)
}
