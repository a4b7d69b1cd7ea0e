package executor

import (
	"fmt"
	"strings"

	"tupledb/internal/database"
	"tupledb/internal/index"
	"tupledb/internal/page"
	"tupledb/internal/table"
	"tupledb/internal/types"
)

// CrossJoin materializes its right child on the first Next, then emits
// left ++ right for every pair.
type CrossJoin struct {
	left     Operator
	right    Operator
	rightTab []types.Row
	rightIdx int
	holdLeft *types.Row
	st       state
}

// NewCrossJoin builds a nested-loop product over a materialized right side.
func NewCrossJoin(left, right Operator) *CrossJoin {
	return &CrossJoin{left: left, right: right}
}

func (op *CrossJoin) build() error {
	op.st = stateBuilding
	for {
		row, _, err := op.right.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		op.rightTab = append(op.rightTab, *row)
	}
	op.rightIdx = len(op.rightTab)
	op.st = stateStreaming
	return nil
}

func (op *CrossJoin) Next() (*types.Row, *page.RowPosition, error) {
	switch op.st {
	case stateFresh:
		if err := op.build(); err != nil {
			return nil, nil, err
		}
	case stateExhausted, stateClosed:
		return nil, nil, nil
	}
	for {
		if op.rightIdx < len(op.rightTab) {
			out := op.holdLeft.Concat(op.rightTab[op.rightIdx])
			op.rightIdx++
			return &out, nil, nil
		}
		row, _, err := op.left.Next()
		if err != nil {
			return nil, nil, err
		}
		if row == nil {
			op.st = stateExhausted
			return nil, nil, nil
		}
		op.holdLeft = row
		op.rightIdx = 0
		if len(op.rightTab) == 0 {
			op.st = stateExhausted
			return nil, nil, nil
		}
	}
}

func (op *CrossJoin) Close() error {
	if op.st == stateClosed {
		return nil
	}
	op.st = stateClosed
	op.rightTab = nil
	lErr := op.left.Close()
	rErr := op.right.Close()
	if lErr != nil {
		return lErr
	}
	return rErr
}

func (op *CrossJoin) Dump(b *strings.Builder, ind int) {
	b.WriteString("CrossJoin:\n")
	pad(b, ind+2)
	op.left.Dump(b, ind+2)
	b.WriteByte('\n')
	pad(b, ind+2)
	op.right.Dump(b, ind+2)
}

// HashJoin materializes the right side into a multimap keyed by the
// memcomparable encoding of the join columns, then probes it with each left
// row. Duplicates on both sides are preserved.
type HashJoin struct {
	left      Operator
	leftCols  []int
	right     Operator
	rightCols []int

	buckets  map[string][]types.Row
	matches  []types.Row
	matchIdx int
	holdLeft *types.Row
	st       state
}

// NewHashJoin builds an equi-join over column offsets of each side.
func NewHashJoin(left Operator, leftCols []int, right Operator, rightCols []int) *HashJoin {
	return &HashJoin{left: left, leftCols: leftCols, right: right, rightCols: rightCols}
}

func (op *HashJoin) build() error {
	op.st = stateBuilding
	op.buckets = make(map[string][]types.Row)
	for {
		row, _, err := op.right.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		keyRow := row.Extract(op.rightCols)
		if hasNull(keyRow) {
			// a null key equals nothing, itself included
			continue
		}
		key := string(keyRow.EncodeMemcomparable())
		op.buckets[key] = append(op.buckets[key], *row)
	}
	op.st = stateStreaming
	return nil
}

func (op *HashJoin) Next() (*types.Row, *page.RowPosition, error) {
	switch op.st {
	case stateFresh:
		if err := op.build(); err != nil {
			return nil, nil, err
		}
	case stateExhausted, stateClosed:
		return nil, nil, nil
	}
	for {
		if op.matchIdx < len(op.matches) {
			out := op.holdLeft.Concat(op.matches[op.matchIdx])
			op.matchIdx++
			return &out, nil, nil
		}
		row, _, err := op.left.Next()
		if err != nil {
			return nil, nil, err
		}
		if row == nil {
			op.st = stateExhausted
			return nil, nil, nil
		}
		op.holdLeft = row
		keyRow := row.Extract(op.leftCols)
		if hasNull(keyRow) {
			op.matches = nil
			op.matchIdx = 0
			continue
		}
		op.matches = op.buckets[string(keyRow.EncodeMemcomparable())]
		op.matchIdx = 0
	}
}

func hasNull(r types.Row) bool {
	for _, v := range r.Values {
		if v.IsNull() {
			return true
		}
	}
	return false
}

func (op *HashJoin) Close() error {
	if op.st == stateClosed {
		return nil
	}
	op.st = stateClosed
	op.buckets = nil
	op.matches = nil
	lErr := op.left.Close()
	rErr := op.right.Close()
	if lErr != nil {
		return lErr
	}
	return rErr
}

func (op *HashJoin) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "HashJoin: left%v right%v\n", op.leftCols, op.rightCols)
	pad(b, ind+2)
	op.left.Dump(b, ind+2)
	b.WriteByte('\n')
	pad(b, ind+2)
	op.right.Dump(b, ind+2)
}

// IndexJoin probes the right table's index with each left row's key and
// emits left ++ right for every match. It re-enters its building phase
// every time the left cursor advances.
type IndexJoin struct {
	ctx      *database.TransactionContext
	left     Operator
	leftCols []int
	rightTab *table.Table
	rightIdx *index.Index

	holdLeft *types.Row
	rightIt  *table.IndexScanIterator
	st       state
}

// NewIndexJoin builds a lookup join against an index of the right table.
func NewIndexJoin(ctx *database.TransactionContext, left Operator, leftCols []int,
	rightTab *table.Table, rightIdx *index.Index) *IndexJoin {
	return &IndexJoin{
		ctx: ctx, left: left, leftCols: leftCols,
		rightTab: rightTab, rightIdx: rightIdx,
	}
}

// load advances the left cursor until a probe yields at least one match.
func (op *IndexJoin) load() error {
	op.st = stateBuilding
	for {
		row, _, err := op.left.Next()
		if err != nil {
			return err
		}
		if row == nil {
			op.st = stateExhausted
			return nil
		}
		op.holdLeft = row
		key := row.Extract(op.leftCols).Get(0)
		if key.IsNull() {
			continue
		}
		op.rightIt = op.rightTab.BeginIndexScan(op.ctx.Txn, op.rightIdx, key, key, true)
		if err := op.rightIt.Err(); err != nil {
			return err
		}
		if op.rightIt.Valid() {
			op.st = stateStreaming
			return nil
		}
	}
}

func (op *IndexJoin) Next() (*types.Row, *page.RowPosition, error) {
	switch op.st {
	case stateFresh:
		if err := op.load(); err != nil {
			return nil, nil, err
		}
	case stateExhausted, stateClosed:
		return nil, nil, nil
	}
	for op.st == stateStreaming {
		if op.rightIt.Valid() {
			out := op.holdLeft.Concat(op.rightIt.Row())
			op.rightIt.Next()
			return &out, nil, nil
		}
		if err := op.rightIt.Err(); err != nil {
			return nil, nil, err
		}
		if err := op.load(); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func (op *IndexJoin) Close() error {
	if op.st == stateClosed {
		return nil
	}
	op.st = stateClosed
	op.rightIt = nil
	return op.left.Close()
}

func (op *IndexJoin) Dump(b *strings.Builder, ind int) {
	fmt.Fprintf(b, "IndexJoin: left%v with %s.%s\n", op.leftCols, op.rightTab.Name(), op.rightIdx.Sc.Name)
	pad(b, ind+2)
	op.left.Dump(b, ind+2)
}
