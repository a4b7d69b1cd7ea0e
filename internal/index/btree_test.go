package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/page"
	"tupledb/internal/types"
)

func intKey(v int64) []byte {
	return types.NewInt64(v).EncodeMemcomparable(nil)
}

func TestBTreeSortedIteration(t *testing.T) {
	tree := NewBTree()
	// enough keys to force several leaf and internal splits
	for i := 999; i >= 0; i-- {
		require.NoError(t, tree.Insert(intKey(int64(i)), []byte(fmt.Sprint(i)), true))
	}
	require.Equal(t, 1000, tree.Len())

	c := tree.Seek(nil, nil, true)
	prev := int64(-1)
	count := 0
	for c.Valid() {
		v, _, err := types.DecodeMemcomparable(c.Key())
		require.NoError(t, err)
		require.Greater(t, v.Int, prev)
		prev = v.Int
		count++
		c.Next()
	}
	require.Equal(t, 1000, count)
}

func TestBTreeRangeInclusive(t *testing.T) {
	tree := NewBTree()
	for i := int64(0); i < 100; i += 10 {
		require.NoError(t, tree.Insert(intKey(i), nil, true))
	}

	c := tree.Seek(intKey(20), intKey(50), true)
	var got []int64
	for c.Valid() {
		v, _, err := types.DecodeMemcomparable(c.Key())
		require.NoError(t, err)
		got = append(got, v.Int)
		c.Next()
	}
	require.Equal(t, []int64{20, 30, 40, 50}, got)

	// begin between keys starts at the next larger key
	c = tree.Seek(intKey(25), intKey(45), true)
	got = nil
	for c.Valid() {
		v, _, err := types.DecodeMemcomparable(c.Key())
		require.NoError(t, err)
		got = append(got, v.Int)
		c.Next()
	}
	require.Equal(t, []int64{30, 40}, got)
}

func TestBTreeDescending(t *testing.T) {
	tree := NewBTree()
	for i := int64(0); i < 10; i++ {
		require.NoError(t, tree.Insert(intKey(i), nil, true))
	}
	c := tree.Seek(intKey(7), intKey(3), false)
	var got []int64
	for c.Valid() {
		v, _, err := types.DecodeMemcomparable(c.Key())
		require.NoError(t, err)
		got = append(got, v.Int)
		c.Next()
	}
	require.Equal(t, []int64{7, 6, 5, 4, 3}, got)
}

func TestBTreeUniqueViolation(t *testing.T) {
	tree := NewBTree()
	require.NoError(t, tree.Insert(intKey(1), []byte("a"), true))
	err := tree.Insert(intKey(1), []byte("b"), true)
	require.True(t, types.ErrConflict.Is(err))
}

func TestBTreeDuplicatePayloads(t *testing.T) {
	tree := NewBTree()
	require.NoError(t, tree.Insert(intKey(1), []byte("a"), false))
	require.NoError(t, tree.Insert(intKey(1), []byte("b"), false))
	require.Equal(t, 1, tree.Len())

	vals, ok := tree.Get(intKey(1))
	require.True(t, ok)
	require.Len(t, vals, 2)

	require.True(t, tree.Remove(intKey(1), []byte("a")))
	vals, ok = tree.Get(intKey(1))
	require.True(t, ok)
	require.Len(t, vals, 1)
	require.Equal(t, []byte("b"), vals[0])

	require.True(t, tree.Remove(intKey(1), []byte("b")))
	_, ok = tree.Get(intKey(1))
	require.False(t, ok)
	require.Equal(t, 0, tree.Len())
}

func TestIndexInsertScan(t *testing.T) {
	sc := Schema{Name: "idx", Key: []int{0}, Include: []int{1}, Unique: true}
	idx := NewIndex(sc)

	rows := []types.Row{
		types.NewRow(types.NewInt64(3), types.NewVarchar("c")),
		types.NewRow(types.NewInt64(1), types.NewVarchar("a")),
		types.NewRow(types.NewInt64(2), types.NewVarchar("b")),
	}
	for i, row := range rows {
		require.NoError(t, idx.Insert(row, rpAt(uint64(i))))
	}

	c := idx.Scan(types.NewInt64(1), types.NewInt64(2), true)
	var names []string
	for c.Valid() {
		for _, payload := range c.Values() {
			_, include, err := DecodePayload(payload)
			require.NoError(t, err)
			names = append(names, include.Get(0).Str)
		}
		c.Next()
	}
	require.Equal(t, []string{"a", "b"}, names)

	// unbounded scan sees everything
	c = idx.Scan(types.Null(), types.Null(), true)
	count := 0
	for c.Valid() {
		count++
		c.Next()
	}
	require.Equal(t, 3, count)
}

func rpAt(p uint64) page.RowPosition {
	return page.RowPosition{Page: page.ID(p), Slot: 0}
}
