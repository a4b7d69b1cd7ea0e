package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/encoding"
	"tupledb/internal/expression"
	"tupledb/internal/types"
)

func builtStats(t *testing.T) (*TableStatistics, *types.Schema) {
	t.Helper()
	pm, tm := testEnv(t)
	tbl := NewTable(scoresSchema(), pm)
	txn := tm.Begin()
	for _, row := range scoresRows() {
		_, err := tbl.Insert(txn, row)
		require.NoError(t, err)
	}
	// one duplicate key and one null score
	_, err := tbl.Insert(txn, types.NewRow(types.NewInt64(2), types.NewVarchar("again"), types.Null()))
	require.NoError(t, err)

	ts := NewTableStatistics(tbl.Schema())
	require.NoError(t, ts.Update(txn, tbl))
	return ts, tbl.Schema()
}

func TestStatisticsUpdate(t *testing.T) {
	ts, _ := builtStats(t)
	require.Equal(t, 5, ts.RowCount)

	key := ts.Columns[0]
	require.Equal(t, 5, key.Count)
	require.Equal(t, 4, key.Distinct)
	require.True(t, key.Min.Equal(types.NewInt64(0)))
	require.True(t, key.Max.Equal(types.NewInt64(3)))

	// nulls are not counted per column
	score := ts.Columns[2]
	require.Equal(t, 4, score.Count)
	require.True(t, score.Min.Equal(types.NewDouble(1.2)))
	require.True(t, score.Max.Equal(types.NewDouble(12.2)))
}

func TestVarcharPrefixClamp(t *testing.T) {
	pm, tm := testEnv(t)
	sc := types.NewSchema("t", []types.Column{types.NewColumn("s", types.TypeVarchar)})
	tbl := NewTable(sc, pm)
	txn := tm.Begin()
	_, err := tbl.Insert(txn, types.NewRow(types.NewVarchar("aaaaaaaaaaaaaaaa")))
	require.NoError(t, err)
	_, err = tbl.Insert(txn, types.NewRow(types.NewVarchar("zzzzzzzzzzzzzzzz")))
	require.NoError(t, err)

	ts := NewTableStatistics(sc)
	require.NoError(t, ts.Update(txn, tbl))
	require.Len(t, ts.Columns[0].Min.Str, 8)
	require.Len(t, ts.Columns[0].Max.Str, 8)
}

func TestReductionFactor(t *testing.T) {
	ts, sc := builtStats(t)

	colConst := expression.NewBinary(
		expression.NewColumnRef("key"), expression.OpEq,
		expression.NewConstant(types.NewInt64(2)))
	require.InDelta(t, 4, ts.ReductionFactor(sc, colConst), 1e-9)

	constCol := expression.NewBinary(
		expression.NewConstant(types.NewVarchar("hello")), expression.OpEq,
		expression.NewColumnRef("name"))
	require.InDelta(t, 5, ts.ReductionFactor(sc, constCol), 1e-9)

	colCol := expression.NewBinary(
		expression.NewColumnRef("key"), expression.OpEq,
		expression.NewColumnRef("name"))
	require.InDelta(t, 4, ts.ReductionFactor(sc, colCol), 1e-9)

	eqConsts := expression.NewBinary(
		expression.NewConstant(types.NewInt64(1)), expression.OpEq,
		expression.NewConstant(types.NewInt64(1)))
	require.InDelta(t, 1, ts.ReductionFactor(sc, eqConsts), 1e-9)

	neConsts := expression.NewBinary(
		expression.NewConstant(types.NewInt64(1)), expression.OpEq,
		expression.NewConstant(types.NewInt64(2)))
	require.True(t, math.IsInf(ts.ReductionFactor(sc, neConsts), 1))

	and := expression.NewBinary(colConst, expression.OpAnd, constCol)
	require.InDelta(t, 20, ts.ReductionFactor(sc, and), 1e-9)

	or := expression.NewBinary(colConst, expression.OpOr, constCol)
	require.InDelta(t, 9, ts.ReductionFactor(sc, or), 1e-9)

	// shapes the model does not understand pass through
	lt := expression.NewBinary(
		expression.NewColumnRef("key"), expression.OpLt,
		expression.NewConstant(types.NewInt64(2)))
	require.InDelta(t, 1, ts.ReductionFactor(sc, lt), 1e-9)
}

func TestEstimateRange(t *testing.T) {
	ts, _ := builtStats(t)
	key := ts.Columns[0] // ints 0..3, count 5

	full := key.EstimateRange(types.Null(), types.Null())
	require.InDelta(t, 5, full, 1e-9)

	half := key.EstimateRange(types.NewInt64(0), types.NewInt64(1))
	require.InDelta(t, 2.5, half, 1e-9)

	point := key.EstimateRange(types.NewInt64(2), types.NewInt64(2))
	require.InDelta(t, 1.25, point, 1e-9)

	outside := key.EstimateRange(types.NewInt64(10), types.NewInt64(20))
	require.Zero(t, outside)
}

func TestStatisticsCodecRoundTrip(t *testing.T) {
	ts, _ := builtStats(t)

	e := encoding.NewEncoder()
	ts.Encode(e)
	got, err := DecodeStatistics(encoding.NewDecoder(e.Bytes()))
	require.NoError(t, err)
	require.Equal(t, ts.RowCount, got.RowCount)
	require.Len(t, got.Columns, len(ts.Columns))
	for i := range ts.Columns {
		require.Equal(t, ts.Columns[i].Count, got.Columns[i].Count)
		require.Equal(t, ts.Columns[i].Distinct, got.Columns[i].Distinct)
		require.True(t, ts.Columns[i].Min.Equal(got.Columns[i].Min))
		require.True(t, ts.Columns[i].Max.Equal(got.Columns[i].Max))
	}
}
