// Package table implements heap tables over slotted pages, their scan
// iterators, and the per-table statistics the optimizer consumes.
package table

import (
	"tupledb/internal/encoding"
	"tupledb/internal/index"
	"tupledb/internal/page"
	"tupledb/internal/transaction"
	"tupledb/internal/types"
)

// Table is a heap of rows stored across slotted pages, plus the ordered
// indexes maintained on every mutation.
type Table struct {
	schema  *types.Schema
	pm      *page.Manager
	pageIDs []page.ID
	indexes []*index.Index
}

// NewTable creates an empty heap for the schema.
func NewTable(schema *types.Schema, pm *page.Manager) *Table {
	return &Table{schema: schema, pm: pm}
}

// RestoreTable rebinds a table to heap pages recorded in the catalog.
// Indexes are re-attached (and backfilled) by the caller.
func RestoreTable(schema *types.Schema, pm *page.Manager, pageIDs []page.ID) *Table {
	return &Table{schema: schema, pm: pm, pageIDs: pageIDs}
}

// Schema returns the table schema.
func (t *Table) Schema() *types.Schema { return t.schema }

// Name returns the table name.
func (t *Table) Name() string { return t.schema.Name }

// Indexes returns the live indexes.
func (t *Table) Indexes() []*index.Index { return t.indexes }

// PageIDs returns the heap pages in allocation order.
func (t *Table) PageIDs() []page.ID { return t.pageIDs }

// AttachIndex registers an index and backfills it from the current heap
// contents.
func (t *Table) AttachIndex(txn *transaction.Transaction, sc index.Schema) (*index.Index, error) {
	idx := index.NewIndex(sc)
	it := t.BeginFullScan(txn)
	for it.Valid() {
		if err := it.Err(); err != nil {
			return nil, err
		}
		if err := idx.Insert(it.Row(), it.Position()); err != nil {
			return nil, err
		}
		it.Next()
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	t.indexes = append(t.indexes, idx)
	return idx, nil
}

// GetIndex resolves an index by name.
func (t *Table) GetIndex(name string) (*index.Index, error) {
	for _, idx := range t.indexes {
		if idx.Sc.Name == name {
			return idx, nil
		}
	}
	return nil, types.ErrNameResolution.New("index " + name + " on table " + t.Name())
}

// validate checks arity, column types, and NOT NULL constraints.
func (t *Table) validate(row types.Row) error {
	if row.Len() != t.schema.ColumnCount() {
		return types.ErrTypeMismatch.New(t.Name(), "row arity", t.schema.Name)
	}
	for i, col := range t.schema.Columns {
		v := row.Get(i)
		if v.IsNull() {
			if col.Constraint.Type == types.ConstraintNotNull || col.Constraint.Type == types.ConstraintPrimary {
				return types.ErrInvalidQuery.New("null value in NOT NULL column " + col.Name.String())
			}
			continue
		}
		if v.Type != col.Type {
			return types.ErrTypeMismatch.New(v.Type, "stored into", col.Type)
		}
	}
	return nil
}

func encodeRow(row types.Row) []byte {
	e := encoding.NewEncoder()
	e.Row(row)
	return e.Bytes()
}

func decodeRow(payload []byte) (types.Row, error) {
	row, err := encoding.NewDecoder(payload).Row()
	if err != nil {
		return types.Row{}, types.ErrInternal.New("corrupt heap row: " + err.Error())
	}
	return row, nil
}

// Insert appends a row, locks it exclusively, logs the insert, and updates
// every index. The new row's position is returned.
func (t *Table) Insert(txn *transaction.Transaction, row types.Row) (page.RowPosition, error) {
	if err := t.validate(row); err != nil {
		return page.InvalidRowPosition(), err
	}
	payload := encodeRow(row)
	p := t.pm.InsertWithRoom(t.pageIDs, len(payload))
	known := false
	for _, id := range t.pageIDs {
		if id == p.ID {
			known = true
			break
		}
	}
	if !known {
		t.pageIDs = append(t.pageIDs, p.ID)
	}
	slot := p.Insert(payload)
	rp := page.RowPosition{Page: p.ID, Slot: slot}
	if err := txn.AcquireWrite(rp); err != nil {
		return page.InvalidRowPosition(), err
	}
	if err := txn.Log(page.WALInsert, rp, payload); err != nil {
		return page.InvalidRowPosition(), err
	}
	for _, idx := range t.indexes {
		if err := idx.Insert(row, rp); err != nil {
			return page.InvalidRowPosition(), err
		}
	}
	return rp, nil
}

// Read fetches the row at a position under a shared lock.
func (t *Table) Read(txn *transaction.Transaction, rp page.RowPosition) (types.Row, error) {
	if err := txn.AcquireRead(rp); err != nil {
		return types.Row{}, err
	}
	p := t.pm.Get(rp.Page)
	if p == nil {
		return types.Row{}, types.ErrNotFound.New("page " + rp.String())
	}
	payload, ok := p.Read(rp.Slot)
	if !ok {
		return types.Row{}, types.ErrNotFound.New("row " + rp.String())
	}
	return decodeRow(payload)
}

// Update replaces the row at a position under an exclusive lock, fixing up
// the indexes with the before and after images.
func (t *Table) Update(txn *transaction.Transaction, rp page.RowPosition, row types.Row) error {
	if err := t.validate(row); err != nil {
		return err
	}
	if err := txn.AcquireWrite(rp); err != nil {
		return err
	}
	p := t.pm.Get(rp.Page)
	if p == nil {
		return types.ErrNotFound.New("page " + rp.String())
	}
	old, ok := p.Read(rp.Slot)
	if !ok {
		return types.ErrNotFound.New("row " + rp.String())
	}
	oldRow, err := decodeRow(old)
	if err != nil {
		return err
	}
	payload := encodeRow(row)
	if err := txn.Log(page.WALUpdate, rp, payload); err != nil {
		return err
	}
	p.Update(rp.Slot, payload)
	for _, idx := range t.indexes {
		idx.Remove(oldRow, rp)
		if err := idx.Insert(row, rp); err != nil {
			return err
		}
	}
	return nil
}

// Delete tombstones the row at a position under an exclusive lock.
func (t *Table) Delete(txn *transaction.Transaction, rp page.RowPosition) error {
	if err := txn.AcquireWrite(rp); err != nil {
		return err
	}
	p := t.pm.Get(rp.Page)
	if p == nil {
		return types.ErrNotFound.New("page " + rp.String())
	}
	old, ok := p.Read(rp.Slot)
	if !ok {
		return types.ErrNotFound.New("row " + rp.String())
	}
	oldRow, err := decodeRow(old)
	if err != nil {
		return err
	}
	if err := txn.Log(page.WALDelete, rp, nil); err != nil {
		return err
	}
	p.Delete(rp.Slot)
	for _, idx := range t.indexes {
		idx.Remove(oldRow, rp)
	}
	return nil
}
