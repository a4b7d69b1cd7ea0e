package table

import (
	"tupledb/internal/index"
	"tupledb/internal/page"
	"tupledb/internal/transaction"
	"tupledb/internal/types"
)

// Iterator is the storage-level row cursor the scan operators pull from.
// Valid reports whether the cursor sits on a row; Err surfaces a failure
// (lock conflict, decode error) that ended the scan early.
type Iterator interface {
	Valid() bool
	Row() types.Row
	Position() page.RowPosition
	Next()
	Err() error
}

// FullScanIterator walks every live slot of a table's heap pages in
// position order.
type FullScanIterator struct {
	tbl     *Table
	txn     *transaction.Transaction
	pageIdx int
	slot    int
	row     types.Row
	pos     page.RowPosition
	valid   bool
	err     error
}

// BeginFullScan opens a heap scan positioned on the first row.
func (t *Table) BeginFullScan(txn *transaction.Transaction) *FullScanIterator {
	it := &FullScanIterator{tbl: t, txn: txn, slot: -1}
	it.advance()
	return it
}

// Valid reports whether the iterator is on a row.
func (it *FullScanIterator) Valid() bool { return it.valid }

// Row returns the current row.
func (it *FullScanIterator) Row() types.Row { return it.row }

// Position returns the current row's heap position.
func (it *FullScanIterator) Position() page.RowPosition { return it.pos }

// Err returns the error that stopped the scan, if any.
func (it *FullScanIterator) Err() error { return it.err }

// Next moves to the following live slot.
func (it *FullScanIterator) Next() { it.advance() }

func (it *FullScanIterator) advance() {
	it.valid = false
	for it.pageIdx < len(it.tbl.pageIDs) {
		p := it.tbl.pm.Get(it.tbl.pageIDs[it.pageIdx])
		if p == nil {
			it.err = types.ErrNotFound.New("heap page missing")
			return
		}
		for it.slot+1 < p.SlotCount() {
			it.slot++
			payload, ok := p.Read(uint16(it.slot))
			if !ok {
				continue
			}
			rp := page.RowPosition{Page: p.ID, Slot: uint16(it.slot)}
			if err := it.txn.AcquireRead(rp); err != nil {
				it.err = err
				return
			}
			row, err := decodeRow(payload)
			if err != nil {
				it.err = err
				return
			}
			it.row, it.pos, it.valid = row, rp, true
			return
		}
		it.pageIdx++
		it.slot = -1
	}
}

// IndexScanIterator walks a key range of an index, resolving each entry to
// its heap row.
type IndexScanIterator struct {
	tbl       *Table
	idx       *index.Index
	txn       *transaction.Transaction
	cursor    *index.Cursor
	valueIdx  int
	fetchHeap bool
	row       types.Row
	keyRow    types.Row
	include   types.Row
	pos       page.RowPosition
	valid     bool
	err       error
}

// BeginIndexScan opens an index range scan over [begin, end] (inclusive;
// null bounds are unbounded) in the given direction. Every entry is
// resolved to its heap row.
func (t *Table) BeginIndexScan(txn *transaction.Transaction, idx *index.Index,
	begin, end types.Value, ascending bool) *IndexScanIterator {
	it := &IndexScanIterator{
		tbl:       t,
		idx:       idx,
		txn:       txn,
		cursor:    idx.Scan(begin, end, ascending),
		valueIdx:  -1,
		fetchHeap: true,
	}
	it.advance()
	return it
}

// BeginIndexOnlyScan is BeginIndexScan without the heap dereference: Row
// stays empty and callers use Key and Include only.
func (t *Table) BeginIndexOnlyScan(txn *transaction.Transaction, idx *index.Index,
	begin, end types.Value, ascending bool) *IndexScanIterator {
	it := &IndexScanIterator{
		tbl:      t,
		idx:      idx,
		txn:      txn,
		cursor:   idx.Scan(begin, end, ascending),
		valueIdx: -1,
	}
	it.advance()
	return it
}

// Valid reports whether the iterator is on an entry.
func (it *IndexScanIterator) Valid() bool { return it.valid }

// Row returns the heap row the current entry points at.
func (it *IndexScanIterator) Row() types.Row { return it.row }

// Key returns the decoded key columns of the current entry.
func (it *IndexScanIterator) Key() types.Row { return it.keyRow }

// Include returns the covering column values of the current entry.
func (it *IndexScanIterator) Include() types.Row { return it.include }

// Position returns the current entry's heap position.
func (it *IndexScanIterator) Position() page.RowPosition { return it.pos }

// Err returns the error that stopped the scan, if any.
func (it *IndexScanIterator) Err() error { return it.err }

// Next moves to the next entry in scan order.
func (it *IndexScanIterator) Next() { it.advance() }

func (it *IndexScanIterator) advance() {
	it.valid = false
	for it.cursor.Valid() {
		values := it.cursor.Values()
		it.valueIdx++
		if it.valueIdx >= len(values) {
			it.cursor.Next()
			it.valueIdx = -1
			continue
		}
		rp, include, err := index.DecodePayload(values[it.valueIdx])
		if err != nil {
			it.err = err
			return
		}
		keyRow, err := types.DecodeRowMemcomparable(it.cursor.Key())
		if err != nil {
			it.err = err
			return
		}
		var row types.Row
		if it.fetchHeap {
			row, err = it.tbl.Read(it.txn, rp)
			if err != nil {
				it.err = err
				return
			}
		}
		it.row, it.keyRow, it.include, it.pos, it.valid = row, keyRow, include, rp, true
		return
	}
}
