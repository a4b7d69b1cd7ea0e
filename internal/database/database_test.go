package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/config"
	"tupledb/internal/index"
	"tupledb/internal/types"
)

func usersSchema() *types.Schema {
	return types.NewSchema("users", []types.Column{
		types.NewColumn("id", types.TypeInt64, types.Constraint{Type: types.ConstraintPrimary}),
		types.NewColumn("name", types.TypeVarchar),
	})
}

func TestCreateAndResolve(t *testing.T) {
	db, err := OpenInMemory(nil)
	require.NoError(t, err)
	ctx := db.BeginContext()

	tbl, err := db.CreateTable(ctx, usersSchema())
	require.NoError(t, err)

	// a primary key gets its unique index automatically
	idx, err := tbl.GetIndex("users_pkey")
	require.NoError(t, err)
	require.True(t, idx.Sc.Unique)

	_, err = db.CreateTable(ctx, usersSchema())
	require.True(t, types.ErrInvalidQuery.Is(err))

	_, err = db.GetTable("nope")
	require.True(t, types.ErrNameResolution.Is(err))

	_, err = db.GetStatistics("users")
	require.NoError(t, err)

	require.Equal(t, []string{"users"}, db.TableNames())
}

func TestStatisticsRefresh(t *testing.T) {
	db, err := OpenInMemory(nil)
	require.NoError(t, err)
	ctx := db.BeginContext()
	tbl, err := db.CreateTable(ctx, usersSchema())
	require.NoError(t, err)

	for i := int64(0); i < 10; i++ {
		_, err := tbl.Insert(ctx.Txn, types.NewRow(types.NewInt64(i), types.NewVarchar("u")))
		require.NoError(t, err)
	}
	require.NoError(t, db.RefreshStatistics(ctx, "users"))

	ts, err := db.GetStatistics("users")
	require.NoError(t, err)
	require.Equal(t, 10, ts.RowCount)
	require.Equal(t, 10, ts.Columns[0].Distinct)
	require.Equal(t, 1, ts.Columns[1].Distinct)
}

func TestConflictSurfaced(t *testing.T) {
	db, err := OpenInMemory(nil)
	require.NoError(t, err)
	ctx1 := db.BeginContext()
	tbl, err := db.CreateTable(ctx1, usersSchema())
	require.NoError(t, err)
	rp, err := tbl.Insert(ctx1.Txn, types.NewRow(types.NewInt64(1), types.NewVarchar("a")))
	require.NoError(t, err)

	ctx2 := db.BeginContext()
	_, err = tbl.Read(ctx2.Txn, rp)
	require.True(t, types.ErrConflict.Is(err))

	require.NoError(t, ctx1.Commit())
	_, err = tbl.Read(ctx2.Txn, rp)
	require.NoError(t, err)
	require.NoError(t, ctx2.Commit())
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DataDirectory = dir

	db, err := Open(cfg, nil)
	require.NoError(t, err)
	ctx := db.BeginContext()
	tbl, err := db.CreateTable(ctx, usersSchema())
	require.NoError(t, err)
	_, err = db.CreateIndex(ctx, "users", index.Schema{
		Name: "idx_name", Key: []int{1},
	})
	require.NoError(t, err)

	want := []types.Row{
		types.NewRow(types.NewInt64(1), types.NewVarchar("alice")),
		types.NewRow(types.NewInt64(2), types.NewVarchar("bob")),
	}
	for _, row := range want {
		_, err := tbl.Insert(ctx.Txn, row)
		require.NoError(t, err)
	}
	require.NoError(t, db.RefreshStatistics(ctx, "users"))
	require.NoError(t, ctx.Commit())
	require.NoError(t, db.Close())

	re, err := Open(cfg, nil)
	require.NoError(t, err)
	defer re.Close()

	tbl2, err := re.GetTable("users")
	require.NoError(t, err)
	require.Len(t, tbl2.Indexes(), 2)

	ctx2 := re.BeginContext()
	it := tbl2.BeginFullScan(ctx2.Txn)
	var got []types.Row
	for it.Valid() {
		got = append(got, it.Row())
		it.Next()
	}
	require.NoError(t, it.Err())
	require.Len(t, got, 2)
	for i := range want {
		require.True(t, got[i].Equal(want[i]))
	}

	ts, err := re.GetStatistics("users")
	require.NoError(t, err)
	require.Equal(t, 2, ts.RowCount)

	// the rebuilt index answers point lookups
	idx, err := tbl2.GetIndex("idx_name")
	require.NoError(t, err)
	scan := tbl2.BeginIndexScan(ctx2.Txn, idx, types.NewVarchar("bob"), types.NewVarchar("bob"), true)
	require.True(t, scan.Valid())
	require.Equal(t, int64(2), scan.Row().Get(0).Int)
	require.NoError(t, ctx2.Commit())
}
