package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/index"
	"tupledb/internal/page"
	"tupledb/internal/transaction"
	"tupledb/internal/types"
)

func testEnv(t *testing.T) (*page.Manager, *transaction.Manager) {
	t.Helper()
	pm, err := page.NewManager(page.ManagerOptions{PageSize: 256})
	require.NoError(t, err)
	return pm, transaction.NewManager(transaction.NewLockManager(), nil)
}

func scoresSchema() *types.Schema {
	return types.NewSchema("test_table", []types.Column{
		types.NewColumn("key", types.TypeInt64),
		types.NewColumn("name", types.TypeVarchar),
		types.NewColumn("score", types.TypeDouble),
	})
}

func scoresRows() []types.Row {
	return []types.Row{
		types.NewRow(types.NewInt64(0), types.NewVarchar("hello"), types.NewDouble(1.2)),
		types.NewRow(types.NewInt64(3), types.NewVarchar("piyo"), types.NewDouble(12.2)),
		types.NewRow(types.NewInt64(1), types.NewVarchar("world"), types.NewDouble(4.9)),
		types.NewRow(types.NewInt64(2), types.NewVarchar("arise"), types.NewDouble(4.14)),
	}
}

func TestTableInsertReadScan(t *testing.T) {
	pm, tm := testEnv(t)
	tbl := NewTable(scoresSchema(), pm)
	txn := tm.Begin()

	var positions []page.RowPosition
	for _, row := range scoresRows() {
		rp, err := tbl.Insert(txn, row)
		require.NoError(t, err)
		positions = append(positions, rp)
	}

	got, err := tbl.Read(txn, positions[1])
	require.NoError(t, err)
	require.True(t, got.Equal(scoresRows()[1]))

	seen := 0
	it := tbl.BeginFullScan(txn)
	for it.Valid() {
		require.True(t, it.Position().IsValid())
		seen++
		it.Next()
	}
	require.NoError(t, it.Err())
	require.Equal(t, 4, seen)
}

func TestTableUpdateDelete(t *testing.T) {
	pm, tm := testEnv(t)
	tbl := NewTable(scoresSchema(), pm)
	txn := tm.Begin()

	rp, err := tbl.Insert(txn, scoresRows()[0])
	require.NoError(t, err)

	updated := types.NewRow(types.NewInt64(0), types.NewVarchar("renamed"), types.NewDouble(9.9))
	require.NoError(t, tbl.Update(txn, rp, updated))
	got, err := tbl.Read(txn, rp)
	require.NoError(t, err)
	require.True(t, got.Equal(updated))

	require.NoError(t, tbl.Delete(txn, rp))
	_, err = tbl.Read(txn, rp)
	require.True(t, types.ErrNotFound.Is(err))
}

func TestTableValidation(t *testing.T) {
	pm, tm := testEnv(t)
	sc := types.NewSchema("t", []types.Column{
		types.NewColumn("id", types.TypeInt64, types.Constraint{Type: types.ConstraintNotNull}),
		types.NewColumn("v", types.TypeVarchar),
	})
	tbl := NewTable(sc, pm)
	txn := tm.Begin()

	_, err := tbl.Insert(txn, types.NewRow(types.NewInt64(1)))
	require.True(t, types.ErrTypeMismatch.Is(err))

	_, err = tbl.Insert(txn, types.NewRow(types.Null(), types.NewVarchar("x")))
	require.True(t, types.ErrInvalidQuery.Is(err))

	_, err = tbl.Insert(txn, types.NewRow(types.NewVarchar("wrong"), types.NewVarchar("x")))
	require.True(t, types.ErrTypeMismatch.Is(err))

	// null into a nullable column is fine
	_, err = tbl.Insert(txn, types.NewRow(types.NewInt64(1), types.Null()))
	require.NoError(t, err)
}

func TestTableIndexMaintenance(t *testing.T) {
	pm, tm := testEnv(t)
	tbl := NewTable(scoresSchema(), pm)
	txn := tm.Begin()

	for _, row := range scoresRows() {
		_, err := tbl.Insert(txn, row)
		require.NoError(t, err)
	}
	idx, err := tbl.AttachIndex(txn, index.Schema{
		Name: "idx_key", Key: []int{0}, Include: []int{1}, Unique: true,
	})
	require.NoError(t, err)
	require.Equal(t, 4, idx.Len())

	// point lookup through the index
	it := tbl.BeginIndexScan(txn, idx, types.NewInt64(2), types.NewInt64(2), true)
	require.True(t, it.Valid())
	require.True(t, it.Row().Equal(scoresRows()[3]))
	it.Next()
	require.False(t, it.Valid())

	// range scan in key order
	it = tbl.BeginIndexScan(txn, idx, types.NewInt64(1), types.NewInt64(3), true)
	var keys []int64
	for it.Valid() {
		keys = append(keys, it.Row().Get(0).Int)
		it.Next()
	}
	require.NoError(t, it.Err())
	require.Equal(t, []int64{1, 2, 3}, keys)

	// updates move index entries
	rp, err := tbl.Insert(txn, types.NewRow(types.NewInt64(9), types.NewVarchar("nine"), types.NewDouble(0)))
	require.NoError(t, err)
	require.NoError(t, tbl.Update(txn, rp, types.NewRow(types.NewInt64(10), types.NewVarchar("ten"), types.NewDouble(0))))

	it = tbl.BeginIndexScan(txn, idx, types.NewInt64(9), types.NewInt64(9), true)
	require.False(t, it.Valid())
	it = tbl.BeginIndexScan(txn, idx, types.NewInt64(10), types.NewInt64(10), true)
	require.True(t, it.Valid())

	// deletes drop them
	require.NoError(t, tbl.Delete(txn, rp))
	it = tbl.BeginIndexScan(txn, idx, types.NewInt64(10), types.NewInt64(10), true)
	require.False(t, it.Valid())
}

func TestIndexOnlyScanSkipsHeap(t *testing.T) {
	pm, tm := testEnv(t)
	tbl := NewTable(scoresSchema(), pm)
	txn := tm.Begin()
	for _, row := range scoresRows() {
		_, err := tbl.Insert(txn, row)
		require.NoError(t, err)
	}
	idx, err := tbl.AttachIndex(txn, index.Schema{
		Name: "idx_key", Key: []int{0}, Include: []int{1}, Unique: true,
	})
	require.NoError(t, err)

	it := tbl.BeginIndexOnlyScan(txn, idx, types.NewInt64(0), types.NewInt64(1), true)
	var names []string
	for it.Valid() {
		require.Zero(t, it.Row().Len())
		names = append(names, it.Include().Get(0).Str)
		it.Next()
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"hello", "world"}, names)
}

func TestUniqueIndexRejectsDuplicates(t *testing.T) {
	pm, tm := testEnv(t)
	tbl := NewTable(scoresSchema(), pm)
	txn := tm.Begin()

	_, err := tbl.AttachIndex(txn, index.Schema{Name: "pk", Key: []int{0}, Unique: true})
	require.NoError(t, err)

	_, err = tbl.Insert(txn, scoresRows()[0])
	require.NoError(t, err)
	_, err = tbl.Insert(txn, scoresRows()[0])
	require.True(t, types.ErrConflict.Is(err))
}
