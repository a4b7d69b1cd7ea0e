package plan

import (
	"fmt"
	"math"
	"strings"

	"tupledb/internal/database"
	"tupledb/internal/executor"
	"tupledb/internal/expression"
	"tupledb/internal/index"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// FullScanPlan reads a whole table.
type FullScanPlan struct {
	tbl   *table.Table
	stats *table.TableStatistics
}

// NewFullScan builds a full-scan plan.
func NewFullScan(tbl *table.Table, stats *table.TableStatistics) *FullScanPlan {
	return &FullScanPlan{tbl: tbl, stats: stats}
}

func (p *FullScanPlan) Schema() *types.Schema            { return p.tbl.Schema() }
func (p *FullScanPlan) ScanSource() *table.Table         { return p.tbl }
func (p *FullScanPlan) Stats() *table.TableStatistics    { return p.stats }
func (p *FullScanPlan) AccessRowCount() int              { return p.stats.RowCount }
func (p *FullScanPlan) EmitRowCount() int                { return p.stats.RowCount }

func (p *FullScanPlan) EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error) {
	return executor.NewFullScan(ctx, p.tbl), nil
}

func (p *FullScanPlan) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "FullScan: %s (estimated cost: %d)", p.tbl.Name(), p.AccessRowCount())
}

// IndexScanPlan reads a key range of an index and resolves the heap rows,
// keeping the pushed-down predicate as a residual filter.
type IndexScanPlan struct {
	tbl       *table.Table
	idx       *index.Index
	stats     *table.TableStatistics
	begin     types.Value
	end       types.Value
	ascending bool
	predicate expression.Expression
}

// NewIndexScan builds an index-scan plan. Null bounds are unbounded.
func NewIndexScan(tbl *table.Table, idx *index.Index, stats *table.TableStatistics,
	begin, end types.Value, ascending bool, predicate expression.Expression) *IndexScanPlan {
	return &IndexScanPlan{
		tbl: tbl, idx: idx, stats: stats,
		begin: begin, end: end, ascending: ascending, predicate: predicate,
	}
}

func (p *IndexScanPlan) Schema() *types.Schema         { return p.tbl.Schema() }
func (p *IndexScanPlan) ScanSource() *table.Table      { return p.tbl }
func (p *IndexScanPlan) Stats() *table.TableStatistics { return p.stats }

func (p *IndexScanPlan) EmitRowCount() int {
	return indexRangeEmit(p.idx, p.stats, p.begin, p.end)
}

// AccessRowCount for an index scan is its emit count; the extra tree walk
// is ignored for planning.
func (p *IndexScanPlan) AccessRowCount() int { return p.EmitRowCount() }

func (p *IndexScanPlan) EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error) {
	return executor.NewIndexScan(ctx, p.tbl, p.idx, p.begin, p.end, p.ascending, p.predicate, p.tbl.Schema()), nil
}

func (p *IndexScanPlan) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "IndexScan: %s.%s", p.tbl.Name(), p.idx.Sc.Name)
	if p.predicate != nil {
		fmt.Fprintf(b, " where %s", p.predicate)
	}
}

// indexRangeEmit estimates rows in [begin, end] over the index's first key
// column. A unique-index point lookup emits at most one row.
func indexRangeEmit(idx *index.Index, stats *table.TableStatistics, begin, end types.Value) int {
	if idx.Sc.Unique && !begin.IsNull() && begin.Equal(end) {
		return 1
	}
	keyCol := idx.Sc.Key[0]
	if keyCol >= len(stats.Columns) {
		return stats.RowCount
	}
	est := int(math.Ceil(stats.Columns[keyCol].EstimateRange(begin, end)))
	if est < 1 {
		est = 1
	}
	if stats.RowCount > 0 && est > stats.RowCount {
		est = stats.RowCount
	}
	return est
}

// IndexOnlyScanPlan reads the same key range but emits key ++ include
// columns straight from the index, never touching the heap.
type IndexOnlyScanPlan struct {
	tbl       *table.Table
	idx       *index.Index
	stats     *table.TableStatistics
	begin     types.Value
	end       types.Value
	ascending bool
	predicate expression.Expression
	outSchema *types.Schema
}

// NewIndexOnlyScan builds a covering index scan plan.
func NewIndexOnlyScan(tbl *table.Table, idx *index.Index, stats *table.TableStatistics,
	begin, end types.Value, ascending bool, predicate expression.Expression) *IndexOnlyScanPlan {
	return &IndexOnlyScanPlan{
		tbl: tbl, idx: idx, stats: stats,
		begin: begin, end: end, ascending: ascending, predicate: predicate,
		outSchema: executor.OutputSchemaForIndex(tbl, idx),
	}
}

func (p *IndexOnlyScanPlan) Schema() *types.Schema         { return p.outSchema }
func (p *IndexOnlyScanPlan) ScanSource() *table.Table      { return p.tbl }
func (p *IndexOnlyScanPlan) Stats() *table.TableStatistics { return p.stats }

func (p *IndexOnlyScanPlan) EmitRowCount() int {
	return indexRangeEmit(p.idx, p.stats, p.begin, p.end)
}

func (p *IndexOnlyScanPlan) AccessRowCount() int { return p.EmitRowCount() }

func (p *IndexOnlyScanPlan) EmitExecutor(ctx *database.TransactionContext) (executor.Operator, error) {
	return executor.NewIndexOnlyScan(ctx, p.tbl, p.idx, p.begin, p.end, p.ascending, p.predicate), nil
}

func (p *IndexOnlyScanPlan) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "IndexOnlyScan: %s.%s", p.tbl.Name(), p.idx.Sc.Name)
	if p.predicate != nil {
		fmt.Fprintf(b, " where %s", p.predicate)
	}
}
