package executor

import (
	"fmt"
	"strings"

	"tupledb/internal/database"
	"tupledb/internal/expression"
	"tupledb/internal/index"
	"tupledb/internal/page"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// FullScan emits every row of a table with its heap position.
type FullScan struct {
	tbl  *table.Table
	ctx  *database.TransactionContext
	iter *table.FullScanIterator
	st   state
}

// NewFullScan builds a heap scan operator.
func NewFullScan(ctx *database.TransactionContext, tbl *table.Table) *FullScan {
	return &FullScan{tbl: tbl, ctx: ctx}
}

func (op *FullScan) Next() (*types.Row, *page.RowPosition, error) {
	switch op.st {
	case stateFresh:
		op.iter = op.tbl.BeginFullScan(op.ctx.Txn)
		op.st = stateStreaming
	case stateExhausted, stateClosed:
		return nil, nil, nil
	}
	if !op.iter.Valid() {
		if err := op.iter.Err(); err != nil {
			return nil, nil, err
		}
		op.st = stateExhausted
		return nil, nil, nil
	}
	row := op.iter.Row()
	pos := op.iter.Position()
	op.iter.Next()
	return &row, &pos, nil
}

func (op *FullScan) Close() error {
	op.st = stateClosed
	op.iter = nil
	return nil
}

func (op *FullScan) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "FullScan: %s", op.tbl.Name())
}

// IndexScan walks a key range of an index, resolves each entry to its heap
// row, and applies a residual predicate.
type IndexScan struct {
	tbl       *table.Table
	idx       *index.Index
	ctx       *database.TransactionContext
	begin     types.Value
	end       types.Value
	ascending bool
	predicate expression.Expression
	schema    *types.Schema
	iter      *table.IndexScanIterator
	st        state
}

// NewIndexScan builds an index range scan. Null bounds are unbounded;
// predicate may be nil.
func NewIndexScan(ctx *database.TransactionContext, tbl *table.Table, idx *index.Index,
	begin, end types.Value, ascending bool, predicate expression.Expression, schema *types.Schema) *IndexScan {
	return &IndexScan{
		tbl: tbl, idx: idx, ctx: ctx,
		begin: begin, end: end, ascending: ascending,
		predicate: predicate, schema: schema,
	}
}

func (op *IndexScan) Next() (*types.Row, *page.RowPosition, error) {
	switch op.st {
	case stateFresh:
		op.iter = op.tbl.BeginIndexScan(op.ctx.Txn, op.idx, op.begin, op.end, op.ascending)
		op.st = stateStreaming
	case stateExhausted, stateClosed:
		return nil, nil, nil
	}
	for op.iter.Valid() {
		row := op.iter.Row()
		pos := op.iter.Position()
		op.iter.Next()
		if op.predicate != nil {
			v, err := op.predicate.Evaluate(row, op.schema)
			if err != nil {
				return nil, nil, err
			}
			if !v.Truthy() {
				continue
			}
		}
		return &row, &pos, nil
	}
	if err := op.iter.Err(); err != nil {
		return nil, nil, err
	}
	op.st = stateExhausted
	return nil, nil, nil
}

func (op *IndexScan) Close() error {
	op.st = stateClosed
	op.iter = nil
	return nil
}

func (op *IndexScan) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "IndexScan: %s.%s", op.tbl.Name(), op.idx.Sc.Name)
	if op.predicate != nil {
		fmt.Fprintf(b, " where %s", op.predicate)
	}
}

// IndexOnlyScan walks the same key range but never touches the heap: it
// emits key columns followed by include columns, and evaluates the residual
// predicate against that derived schema.
type IndexOnlyScan struct {
	tbl       *table.Table
	idx       *index.Index
	ctx       *database.TransactionContext
	begin     types.Value
	end       types.Value
	ascending bool
	predicate expression.Expression
	outSchema *types.Schema
	iter      *table.IndexScanIterator
	st        state
}

// OutputSchemaForIndex derives the key++include schema an index-only scan
// produces over a table.
func OutputSchemaForIndex(tbl *table.Table, idx *index.Index) *types.Schema {
	sc := tbl.Schema()
	cols := make([]types.Column, 0, len(idx.Sc.Key)+len(idx.Sc.Include))
	for _, off := range idx.Sc.Key {
		cols = append(cols, sc.Column(off))
	}
	for _, off := range idx.Sc.Include {
		cols = append(cols, sc.Column(off))
	}
	return &types.Schema{Columns: cols}
}

// NewIndexOnlyScan builds a covering index scan.
func NewIndexOnlyScan(ctx *database.TransactionContext, tbl *table.Table, idx *index.Index,
	begin, end types.Value, ascending bool, predicate expression.Expression) *IndexOnlyScan {
	return &IndexOnlyScan{
		tbl: tbl, idx: idx, ctx: ctx,
		begin: begin, end: end, ascending: ascending,
		predicate: predicate,
		outSchema: OutputSchemaForIndex(tbl, idx),
	}
}

// Schema returns the key++include schema of the scan's output.
func (op *IndexOnlyScan) Schema() *types.Schema { return op.outSchema }

func (op *IndexOnlyScan) Next() (*types.Row, *page.RowPosition, error) {
	switch op.st {
	case stateFresh:
		op.iter = op.tbl.BeginIndexOnlyScan(op.ctx.Txn, op.idx, op.begin, op.end, op.ascending)
		op.st = stateStreaming
	case stateExhausted, stateClosed:
		return nil, nil, nil
	}
	for op.iter.Valid() {
		row := op.iter.Key().Concat(op.iter.Include())
		pos := op.iter.Position()
		op.iter.Next()
		if op.predicate != nil {
			v, err := op.predicate.Evaluate(row, op.outSchema)
			if err != nil {
				return nil, nil, err
			}
			if !v.Truthy() {
				continue
			}
		}
		return &row, &pos, nil
	}
	if err := op.iter.Err(); err != nil {
		return nil, nil, err
	}
	op.st = stateExhausted
	return nil, nil, nil
}

func (op *IndexOnlyScan) Close() error {
	op.st = stateClosed
	op.iter = nil
	return nil
}

func (op *IndexOnlyScan) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "IndexOnlyScan: %s.%s", op.tbl.Name(), op.idx.Sc.Name)
	if op.predicate != nil {
		fmt.Fprintf(b, " where %s", op.predicate)
	}
}
