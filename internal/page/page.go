// Package page implements the slotted heap pages rows live in, the page
// manager that owns them, and the write-ahead log that makes page mutations
// durable.
package page

import (
	"fmt"
	"math"

	"tupledb/internal/encoding"
)

// ID identifies a page.
type ID uint64

// InvalidPageID marks an unassigned page reference.
const InvalidPageID ID = math.MaxUint64

// RowPosition locates a heap tuple: the page it lives on and its slot.
type RowPosition struct {
	Page ID
	Slot uint16
}

// InvalidRowPosition returns a position that IsValid rejects.
func InvalidRowPosition() RowPosition {
	return RowPosition{Page: InvalidPageID, Slot: math.MaxUint16}
}

// IsValid reports whether the position refers to a real slot.
func (rp RowPosition) IsValid() bool {
	return rp.Page != InvalidPageID && rp.Slot != math.MaxUint16
}

func (rp RowPosition) String() string {
	return fmt.Sprintf("{%d:%d}", rp.Page, rp.Slot)
}

// Page is a slotted page: an ordered list of payload slots. A nil slot is a
// tombstone left by delete so that later slots keep their positions.
type Page struct {
	ID    ID
	slots [][]byte
	used  int
	dirty bool
}

// NewPage returns an empty page.
func NewPage(id ID) *Page {
	return &Page{ID: id}
}

// SlotCount returns the number of slots, tombstones included.
func (p *Page) SlotCount() int { return len(p.slots) }

// UsedBytes returns the payload bytes currently stored.
func (p *Page) UsedBytes() int { return p.used }

// Dirty reports whether the page changed since the last flush.
func (p *Page) Dirty() bool { return p.dirty }

// Insert appends a payload and returns its slot.
func (p *Page) Insert(payload []byte) uint16 {
	p.slots = append(p.slots, append([]byte(nil), payload...))
	p.used += len(payload)
	p.dirty = true
	return uint16(len(p.slots) - 1)
}

// Read returns the payload at slot, or false for tombstones and
// out-of-range slots.
func (p *Page) Read(slot uint16) ([]byte, bool) {
	if int(slot) >= len(p.slots) || p.slots[slot] == nil {
		return nil, false
	}
	return p.slots[slot], true
}

// Update replaces the payload at slot.
func (p *Page) Update(slot uint16, payload []byte) bool {
	if int(slot) >= len(p.slots) || p.slots[slot] == nil {
		return false
	}
	p.used += len(payload) - len(p.slots[slot])
	p.slots[slot] = append([]byte(nil), payload...)
	p.dirty = true
	return true
}

// Delete tombstones the slot.
func (p *Page) Delete(slot uint16) bool {
	if int(slot) >= len(p.slots) || p.slots[slot] == nil {
		return false
	}
	p.used -= len(p.slots[slot])
	p.slots[slot] = nil
	p.dirty = true
	return true
}

// serialize writes the page through the codec.
func (p *Page) serialize(e *encoding.Encoder) {
	e.Uint64(uint64(p.ID))
	e.Uint64(uint64(len(p.slots)))
	for _, s := range p.slots {
		if s == nil {
			e.Uint64(0)
			continue
		}
		e.Uint64(1)
		e.Bytes2(s)
	}
}

// deserializePage reads one page back.
func deserializePage(d *encoding.Decoder) (*Page, error) {
	id, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	p := NewPage(ID(id))
	p.slots = make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		live, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		if live == 0 {
			p.slots = append(p.slots, nil)
			continue
		}
		b, err := d.Bytes2()
		if err != nil {
			return nil, err
		}
		p.slots = append(p.slots, b)
		p.used += len(b)
	}
	p.dirty = false
	return p, nil
}
