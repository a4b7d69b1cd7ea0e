package plan

import (
	"fmt"
	"strings"

	"tupledb/internal/database"
	"tupledb/internal/executor"
	"tupledb/internal/index"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// ProductPlan joins two subplans. Without key columns it is a cross
// product; with them it is an equi-join executed as a hash join, or as an
// index join when a right-side index is attached.
type ProductPlan struct {
	left      Plan
	right     Plan
	leftCols  []int
	rightCols []int
	rightIdx  *index.Index // non-nil switches the equi-join to an index join
	outSchema *types.Schema
}

// NewCrossProduct builds a cross join.
func NewCrossProduct(left, right Plan) *ProductPlan {
	return &ProductPlan{
		left: left, right: right,
		outSchema: left.Schema().Concat(right.Schema()),
	}
}

// NewHashProduct builds an equi-join over column offsets of each side.
func NewHashProduct(left Plan, leftCols []int, right Plan, rightCols []int) *ProductPlan {
	return &ProductPlan{
		left: left, right: right,
		leftCols: leftCols, rightCols: rightCols,
		outSchema: left.Schema().Concat(right.Schema()),
	}
}

// NewIndexProduct builds an equi-join that probes the right table's index
// per left row. The right plan must root at the indexed base table.
func NewIndexProduct(left Plan, leftCols []int, right Plan, rightCols []int, rightIdx *index.Index) *ProductPlan {
	return &ProductPlan{
		left: left, right: right,
		leftCols: leftCols, rightCols: rightCols,
		rightIdx:  rightIdx,
		outSchema: left.Schema().Concat(right.Schema()),
	}
}

func (p *ProductPlan) Schema() *types.Schema { return p.outSchema }

// ScanSource is nil: the subtree no longer roots at a single table.
func (p *ProductPlan) ScanSource() *table.Table      { return nil }
func (p *ProductPlan) Stats() *table.TableStatistics { return nil }

func (p *ProductPlan) isCross() bool { return len(p.leftCols) == 0 && len(p.rightCols) == 0 }

func (p *ProductPlan) EmitRowCount() int {
	l, r := p.left.EmitRowCount(), p.right.EmitRowCount()
	if p.isCross() {
		return l * r
	}
	ld := sideDistinct(p.left, p.leftCols)
	rd := sideDistinct(p.right, p.rightCols)
	d := ld
	if rd > d {
		d = rd
	}
	if d < 1 {
		d = 1
	}
	emit := l * r / d
	if emit < 1 && l > 0 && r > 0 {
		return 1
	}
	return emit
}

func (p *ProductPlan) AccessRowCount() int {
	l, r := p.left.AccessRowCount(), p.right.AccessRowCount()
	le, re := p.left.EmitRowCount(), p.right.EmitRowCount()
	if p.isCross() {
		return l + r + le*re
	}
	return l + r + le + re
}

// sideDistinct estimates the number of distinct join keys one side
// produces. With base-table statistics in reach the key column's distinct
// count is used; a join-of-joins side falls back to its emit count, i.e.
// all keys assumed distinct.
func sideDistinct(p Plan, cols []int) int {
	ts := p.Stats()
	src := p.ScanSource()
	if ts == nil || src == nil || len(cols) == 0 {
		return p.EmitRowCount()
	}
	name := p.Schema().Column(cols[0]).Name
	off, err := src.Schema().Offset(name)
	if err != nil || off >= len(ts.Columns) {
		return p.EmitRowCount()
	}
	d := ts.Columns[off].Distinct
	if d < 1 {
		return p.EmitRowCount()
	}
	return d
}

func (p *ProductPlan) EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error) {
	left, err := p.left.EmitExecutor(ctx)
	if err != nil {
		return nil, err
	}
	if p.rightIdx != nil {
		src := p.right.ScanSource()
		if src == nil {
			return nil, types.ErrInternal.New("index join without a right scan source")
		}
		return executor.NewIndexJoin(ctx, left, p.leftCols, src, p.rightIdx), nil
	}
	right, err := p.right.EmitExecutor(ctx)
	if err != nil {
		_ = left.Close()
		return nil, err
	}
	if p.isCross() {
		return executor.NewCrossJoin(left, right), nil
	}
	return executor.NewHashJoin(left, p.leftCols, right, p.rightCols), nil
}

func (p *ProductPlan) Dump(b *strings.Builder, ind int) {
	switch {
	case p.isCross():
		fmt.Fprintf(b, "CrossJoin: (estimated cost: %d)\n", p.AccessRowCount())
	case p.rightIdx != nil:
		fmt.Fprintf(b, "IndexJoin: left%v right%v via %s (estimated cost: %d)\n",
			p.leftCols, p.rightCols, p.rightIdx.Sc.Name, p.AccessRowCount())
	default:
		fmt.Fprintf(b, "HashJoin: left%v right%v (estimated cost: %d)\n",
			p.leftCols, p.rightCols, p.AccessRowCount())
	}
	pad(b, ind+2)
	p.left.Dump(b, ind+2)
	b.WriteByte('\n')
	pad(b, ind+2)
	p.right.Dump(b, ind+2)
}
