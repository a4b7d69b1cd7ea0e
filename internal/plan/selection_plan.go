package plan

import (
	"fmt"
	"math"
	"strings"

	"tupledb/internal/database"
	"tupledb/internal/executor"
	"tupledb/internal/expression"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// SelectionPlan filters its child by a predicate.
type SelectionPlan struct {
	child     Plan
	predicate expression.Expression
	stats     *table.TableStatistics
}

// NewSelection builds a filter plan. stats shape the reduction estimate and
// normally come from the child's scan source.
func NewSelection(child Plan, predicate expression.Expression, stats *table.TableStatistics) *SelectionPlan {
	return &SelectionPlan{child: child, predicate: predicate, stats: stats}
}

func (p *SelectionPlan) Schema() *types.Schema         { return p.child.Schema() }
func (p *SelectionPlan) ScanSource() *table.Table      { return p.child.ScanSource() }
func (p *SelectionPlan) Stats() *table.TableStatistics { return p.stats }

func (p *SelectionPlan) EmitRowCount() int {
	emit := float64(p.child.EmitRowCount())
	if p.stats != nil {
		factor := p.stats.ReductionFactor(p.child.Schema(), p.predicate)
		if math.IsInf(factor, 1) {
			return 0
		}
		if factor > 1 {
			emit /= factor
		}
	}
	if emit < 1 && p.child.EmitRowCount() > 0 {
		return 1
	}
	return int(emit)
}

func (p *SelectionPlan) AccessRowCount() int {
	return p.child.AccessRowCount() + p.child.EmitRowCount()
}

func (p *SelectionPlan) EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error) {
	child, err := p.child.EmitExecutor(ctx)
	if err != nil {
		return nil, err
	}
	return executor.NewSelection(child, p.predicate, p.child.Schema()), nil
}

func (p *SelectionPlan) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "Selection: %s (estimated cost: %d)\n", p.predicate, p.AccessRowCount())
	pad(b, ind+2)
	p.child.Dump(b, ind+2)
}
