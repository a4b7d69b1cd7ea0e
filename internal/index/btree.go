// Package index implements the ordered secondary index structures: a
// B+tree over memcomparable keys and the index schema/metadata around it.
package index

import (
	"bytes"

	"tupledb/internal/types"
)

const btreeOrder = 64

// BTree is a B+tree keyed by memcomparable byte strings. Leaves are linked
// both ways for range scans in either direction. Keys are unique inside the
// tree; a non-unique index folds its duplicates into the entry payload.
type BTree struct {
	root *btreeNode
	size int
}

type btreeNode struct {
	leaf     bool
	keys     [][]byte
	values   [][][]byte // leaf only, one payload list per key
	children []*btreeNode
	next     *btreeNode
	prev     *btreeNode
}

// NewBTree returns an empty tree.
func NewBTree() *BTree {
	return &BTree{root: &btreeNode{leaf: true}}
}

// Len returns the number of distinct keys.
func (t *BTree) Len() int { return t.size }

// Insert adds a payload under key. With unique set, inserting a key that
// already exists fails with ErrConflict; otherwise the payload is appended
// to the key's list.
func (t *BTree) Insert(key, value []byte, unique bool) error {
	leaf := t.findLeaf(key)
	idx, found := leaf.search(key)
	if found {
		if unique {
			return types.ErrConflict.New("duplicate key in unique index")
		}
		leaf.values[idx] = append(leaf.values[idx], append([]byte(nil), value...))
		return nil
	}
	leaf.insertAt(idx, append([]byte(nil), key...), append([]byte(nil), value...))
	t.size++
	if len(leaf.keys) > btreeOrder {
		t.splitFrom(leaf)
	}
	return nil
}

// Remove deletes one payload under key. With a nil value the whole entry
// goes; otherwise only the matching payload is removed, and the entry goes
// when its list empties.
func (t *BTree) Remove(key, value []byte) bool {
	leaf := t.findLeaf(key)
	idx, found := leaf.search(key)
	if !found {
		return false
	}
	if value != nil {
		kept := leaf.values[idx][:0]
		removed := false
		for _, v := range leaf.values[idx] {
			if !removed && bytes.Equal(v, value) {
				removed = true
				continue
			}
			kept = append(kept, v)
		}
		leaf.values[idx] = kept
		if !removed {
			return false
		}
		if len(kept) > 0 {
			return true
		}
	}
	leaf.removeAt(idx)
	t.size--
	return true
}

// Get returns the payload list stored under key.
func (t *BTree) Get(key []byte) ([][]byte, bool) {
	leaf := t.findLeaf(key)
	if idx, found := leaf.search(key); found {
		return leaf.values[idx], true
	}
	return nil, false
}

func (t *BTree) findLeaf(key []byte) *btreeNode {
	n := t.root
	for !n.leaf {
		i, _ := n.search(key)
		if i >= len(n.children) {
			i = len(n.children) - 1
		}
		n = n.children[i]
	}
	return n
}

// search returns the position of key, or where it would be inserted.
func (n *btreeNode) search(key []byte) (int, bool) {
	lo, hi := 0, len(n.keys)
	for lo < hi {
		mid := (lo + hi) / 2
		switch bytes.Compare(n.keys[mid], key) {
		case 0:
			if n.leaf {
				return mid, true
			}
			return mid + 1, true
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

func (n *btreeNode) insertAt(i int, key, value []byte) {
	n.keys = append(n.keys, nil)
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = key
	n.values = append(n.values, nil)
	copy(n.values[i+1:], n.values[i:])
	n.values[i] = [][]byte{value}
}

func (n *btreeNode) removeAt(i int) {
	n.keys = append(n.keys[:i], n.keys[i+1:]...)
	n.values = append(n.values[:i], n.values[i+1:]...)
}

// splitFrom splits an overfull leaf and propagates splits upward, finding
// each parent by a scan from the root; the tree is small enough in memory
// that a parent scan is fine.
func (t *BTree) splitFrom(leaf *btreeNode) {
	mid := len(leaf.keys) / 2
	right := &btreeNode{
		leaf:   true,
		keys:   append([][]byte(nil), leaf.keys[mid:]...),
		values: append([][][]byte(nil), leaf.values[mid:]...),
	}
	leaf.keys = leaf.keys[:mid]
	leaf.values = leaf.values[:mid]
	right.next = leaf.next
	if right.next != nil {
		right.next.prev = right
	}
	right.prev = leaf
	leaf.next = right
	t.insertInternal(leaf, right, right.keys[0])
}

func (t *BTree) insertInternal(left, right *btreeNode, sep []byte) {
	parent := t.findParent(t.root, left)
	if parent == nil {
		t.root = &btreeNode{
			keys:     [][]byte{sep},
			children: []*btreeNode{left, right},
		}
		return
	}
	i, _ := parent.search(sep)
	parent.keys = append(parent.keys, nil)
	copy(parent.keys[i+1:], parent.keys[i:])
	parent.keys[i] = sep
	parent.children = append(parent.children, nil)
	copy(parent.children[i+2:], parent.children[i+1:])
	parent.children[i+1] = right
	if len(parent.keys) > btreeOrder {
		t.splitInternal(parent)
	}
}

func (t *BTree) splitInternal(n *btreeNode) {
	mid := len(n.keys) / 2
	sep := n.keys[mid]
	right := &btreeNode{
		keys:     append([][]byte(nil), n.keys[mid+1:]...),
		children: append([]*btreeNode(nil), n.children[mid+1:]...),
	}
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]
	t.insertInternal(n, right, sep)
}

func (t *BTree) findParent(cur, child *btreeNode) *btreeNode {
	if cur.leaf {
		return nil
	}
	for _, c := range cur.children {
		if c == child {
			return cur
		}
	}
	for _, c := range cur.children {
		if p := t.findParent(c, child); p != nil {
			return p
		}
	}
	return nil
}

// Cursor walks entries in key order between inclusive bounds. Nil bounds
// are unbounded.
type Cursor struct {
	node      *btreeNode
	idx       int
	end       []byte
	ascending bool
}

// Seek positions a cursor on the first entry within [begin, end] (or the
// last, descending). A nil begin starts at the corresponding edge.
func (t *BTree) Seek(begin, end []byte, ascending bool) *Cursor {
	c := &Cursor{end: end, ascending: ascending}
	if ascending {
		n := t.root
		if begin == nil {
			for !n.leaf {
				n = n.children[0]
			}
			c.node, c.idx = n, 0
		} else {
			leaf := t.findLeaf(begin)
			i, _ := leaf.search(begin)
			c.node, c.idx = leaf, i
			c.skipForwardIfExhausted()
		}
	} else {
		n := t.root
		if begin == nil {
			for !n.leaf {
				n = n.children[len(n.children)-1]
			}
			c.node, c.idx = n, len(n.keys)-1
		} else {
			leaf := t.findLeaf(begin)
			i, found := leaf.search(begin)
			if !found {
				i--
			}
			c.node, c.idx = leaf, i
			c.skipBackwardIfExhausted()
		}
	}
	return c
}

func (c *Cursor) skipForwardIfExhausted() {
	for c.node != nil && c.idx >= len(c.node.keys) {
		c.node = c.node.next
		c.idx = 0
	}
}

func (c *Cursor) skipBackwardIfExhausted() {
	for c.node != nil && c.idx < 0 {
		c.node = c.node.prev
		if c.node != nil {
			c.idx = len(c.node.keys) - 1
		}
	}
}

// Valid reports whether the cursor points at an entry within bounds.
func (c *Cursor) Valid() bool {
	if c.node == nil || c.idx < 0 || c.idx >= len(c.node.keys) {
		return false
	}
	if c.end == nil {
		return true
	}
	cmp := bytes.Compare(c.node.keys[c.idx], c.end)
	if c.ascending {
		return cmp <= 0
	}
	return cmp >= 0
}

// Key returns the current entry's key.
func (c *Cursor) Key() []byte { return c.node.keys[c.idx] }

// Values returns the current entry's payload list.
func (c *Cursor) Values() [][]byte { return c.node.values[c.idx] }

// Next advances in the iteration direction.
func (c *Cursor) Next() {
	if c.node == nil {
		return
	}
	if c.ascending {
		c.idx++
		c.skipForwardIfExhausted()
	} else {
		c.idx--
		c.skipBackwardIfExhausted()
	}
}
