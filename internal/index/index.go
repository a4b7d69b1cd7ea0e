package index

import (
	"fmt"
	"strings"

	"tupledb/internal/encoding"
	"tupledb/internal/page"
	"tupledb/internal/types"
)

// Schema describes an index: which column offsets form the key, which extra
// offsets are carried as covering (include) columns, and uniqueness.
type Schema struct {
	Name    string
	Key     []int
	Include []int
	Unique  bool
}

// GenerateKey extracts and encodes the key columns of a row.
func (s Schema) GenerateKey(row types.Row) []byte {
	return row.Extract(s.Key).EncodeMemcomparable()
}

// String renders the index schema for EXPLAIN output.
func (s Schema) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Unique {
		b.WriteString(" unique")
	}
	b.WriteString(" key{")
	for i, k := range s.Key {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", k)
	}
	b.WriteString("}")
	if len(s.Include) > 0 {
		b.WriteString(" include{")
		for i, k := range s.Include {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%d", k)
		}
		b.WriteString("}")
	}
	return b.String()
}

// Index is a live B+tree index over a table. Entries map the key encoding
// to a payload holding the heap position and the include column values.
type Index struct {
	Sc   Schema
	tree *BTree
}

// NewIndex builds an empty index for the schema.
func NewIndex(sc Schema) *Index {
	return &Index{Sc: sc, tree: NewBTree()}
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int { return idx.tree.Len() }

// encodePayload packs a row position and the include values.
func (idx *Index) encodePayload(rp page.RowPosition, row types.Row) []byte {
	e := encoding.NewEncoder()
	e.Uint64(uint64(rp.Page))
	e.Uint64(uint64(rp.Slot))
	e.Row(row.Extract(idx.Sc.Include))
	return e.Bytes()
}

// DecodePayload unpacks one index entry payload.
func DecodePayload(payload []byte) (page.RowPosition, types.Row, error) {
	d := encoding.NewDecoder(payload)
	pg, err := d.Uint64()
	if err != nil {
		return page.InvalidRowPosition(), types.Row{}, err
	}
	slot, err := d.Uint64()
	if err != nil {
		return page.InvalidRowPosition(), types.Row{}, err
	}
	include, err := d.Row()
	if err != nil {
		return page.InvalidRowPosition(), types.Row{}, err
	}
	return page.RowPosition{Page: page.ID(pg), Slot: uint16(slot)}, include, nil
}

// Insert adds a row's index entry.
func (idx *Index) Insert(row types.Row, rp page.RowPosition) error {
	return idx.tree.Insert(idx.Sc.GenerateKey(row), idx.encodePayload(rp, row), idx.Sc.Unique)
}

// Remove drops a row's index entry.
func (idx *Index) Remove(row types.Row, rp page.RowPosition) {
	idx.tree.Remove(idx.Sc.GenerateKey(row), idx.encodePayload(rp, row))
}

// Scan opens a cursor over [begin, end] in the requested direction. Null
// bound values mean unbounded. Both bounds are single-value keys against
// the first key column, matching what the planner emits.
func (idx *Index) Scan(begin, end types.Value, ascending bool) *Cursor {
	var lo, hi []byte
	if !begin.IsNull() {
		lo = types.NewRow(begin).EncodeMemcomparable()
	}
	if !end.IsNull() {
		hi = keyUpperBound(end)
	}
	if ascending {
		return idx.tree.Seek(lo, hi, true)
	}
	// descending iterates from end down to begin
	var dlo []byte
	if !end.IsNull() {
		dlo = keyUpperBound(end)
	}
	var dhi []byte
	if !begin.IsNull() {
		dhi = types.NewRow(begin).EncodeMemcomparable()
	}
	return idx.tree.Seek(dlo, dhi, false)
}

// keyUpperBound returns the largest encoded key whose first column equals v,
// so that multi-column keys with the same leading value stay inside an
// inclusive range. Appending 0xFF bytes works because no encoding tag is
// 0xFF.
func keyUpperBound(v types.Value) []byte {
	b := v.EncodeMemcomparable(nil)
	return append(b, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
}
