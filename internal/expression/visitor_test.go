package expression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/types"
)

func TestReferencedColumns(t *testing.T) {
	e := NewBinary(
		NewBinary(NewColumnRef("a"), OpAdd, NewColumnRef("t.b")),
		OpEq,
		NewColumnRef("a"),
	)
	cols := ReferencedColumns(e)
	require.Len(t, cols, 2)
	require.Contains(t, cols, types.ParseColumnName("a"))
	require.Contains(t, cols, types.ParseColumnName("t.b"))
}

func TestTouchesOnlyAndReferences(t *testing.T) {
	sc := types.NewSchema("t", []types.Column{
		types.NewColumn("a", types.TypeInt64),
		types.NewColumn("b", types.TypeInt64),
	})
	local := NewBinary(NewColumnRef("a"), OpLt, NewColumnRef("b"))
	foreign := NewBinary(NewColumnRef("a"), OpEq, NewColumnRef("u.c"))

	require.True(t, TouchesOnly(local, sc))
	require.False(t, TouchesOnly(foreign, sc))
	require.True(t, References(foreign, sc))
	require.False(t, References(NewConstant(types.NewInt64(1)), sc))
	// constants touch any schema trivially
	require.True(t, TouchesOnly(NewConstant(types.NewInt64(1)), sc))
}

func TestSplitAndJoinConjunction(t *testing.T) {
	a := NewBinary(NewColumnRef("a"), OpEq, NewConstant(types.NewInt64(1)))
	b := NewBinary(NewColumnRef("b"), OpGt, NewConstant(types.NewInt64(2)))
	c := NewBinary(NewColumnRef("c"), OpNe, NewConstant(types.NewInt64(3)))

	conj := NewBinary(NewBinary(a, OpAnd, b), OpAnd, c)
	parts := SplitConjunction(conj)
	require.Len(t, parts, 3)
	require.True(t, parts[0].Equal(a))
	require.True(t, parts[1].Equal(b))
	require.True(t, parts[2].Equal(c))

	// OR is not split
	disj := NewBinary(a, OpOr, b)
	require.Len(t, SplitConjunction(disj), 1)

	rejoined := JoinConjunction(parts)
	require.True(t, rejoined.Equal(conj))
	require.Nil(t, JoinConjunction(nil))
}

func TestHasAggregate(t *testing.T) {
	plain := NewBinary(NewColumnRef("a"), OpAdd, NewConstant(types.NewInt64(1)))
	require.False(t, HasAggregate(plain))

	agg := NewAggregateRef(AggSum, NewColumnRef("a"))
	require.True(t, HasAggregate(agg))
	require.True(t, HasAggregate(NewBinary(agg, OpAdd, NewConstant(types.NewInt64(1)))))
}
