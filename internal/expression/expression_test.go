package expression

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/types"
)

var testSchema = types.NewSchema("test_table", []types.Column{
	types.NewColumn("key", types.TypeInt64),
	types.NewColumn("name", types.TypeVarchar),
	types.NewColumn("score", types.TypeDouble),
})

var testRow = types.NewRow(
	types.NewInt64(1), types.NewVarchar("world"), types.NewDouble(4.9),
)

func constant(v types.Value) Expression { return NewConstant(v) }

func evalConst(t *testing.T, e Expression) types.Value {
	t.Helper()
	v, err := e.Evaluate(types.Row{}, testSchema)
	require.NoError(t, err)
	return v
}

func TestConstantEval(t *testing.T) {
	require.Equal(t, types.NewInt64(1), evalConst(t, constant(types.NewInt64(1))))
	require.Equal(t, types.NewVarchar("hello"), evalConst(t, constant(types.NewVarchar("hello"))))
	require.Equal(t, types.NewDouble(1.1), evalConst(t, constant(types.NewDouble(1.1))))
}

func TestColumnRefEval(t *testing.T) {
	v, err := NewColumnRef("name").Evaluate(testRow, testSchema)
	require.NoError(t, err)
	require.Equal(t, types.NewVarchar("world"), v)

	v, err = NewColumnRef("test_table.key").Evaluate(testRow, testSchema)
	require.NoError(t, err)
	require.Equal(t, types.NewInt64(1), v)

	_, err = NewColumnRef("nope").Evaluate(testRow, testSchema)
	require.True(t, types.ErrNameResolution.Is(err))
}

func TestBinaryArithmetic(t *testing.T) {
	cases := []struct {
		l, r types.Value
		op   BinaryOp
		want types.Value
	}{
		{types.NewInt64(1), types.NewInt64(2), OpAdd, types.NewInt64(3)},
		{types.NewVarchar("hello"), types.NewVarchar(" world"), OpAdd, types.NewVarchar("hello world")},
		{types.NewInt64(1), types.NewInt64(2), OpSub, types.NewInt64(-1)},
		{types.NewInt64(1), types.NewInt64(2), OpMul, types.NewInt64(2)},
		{types.NewInt64(10), types.NewInt64(2), OpDiv, types.NewInt64(5)},
		{types.NewInt64(13), types.NewInt64(5), OpMod, types.NewInt64(3)},
	}
	for _, c := range cases {
		got := evalConst(t, NewBinary(constant(c.l), c.op, constant(c.r)))
		require.True(t, c.want.Equal(got), "%s %s %s", c.l, c.op, c.r)
	}

	got := evalConst(t, NewBinary(constant(types.NewDouble(8.8)), OpDiv, constant(types.NewDouble(2.2))))
	require.InDelta(t, 4.0, got.Dbl, 1e-9)
}

func TestBinaryComparisons(t *testing.T) {
	truev, falsev := types.NewBool(true), types.NewBool(false)
	cases := []struct {
		l, r types.Value
		op   BinaryOp
		want types.Value
	}{
		{types.NewInt64(120), types.NewInt64(120), OpEq, truev},
		{types.NewInt64(13), types.NewInt64(5), OpEq, falsev},
		{types.NewVarchar("hello"), types.NewVarchar("world"), OpNe, truev},
		{types.NewInt64(100), types.NewInt64(12312), OpLt, truev},
		{types.NewInt64(120), types.NewInt64(120), OpLt, falsev},
		{types.NewVarchar("aaa"), types.NewVarchar("aaab"), OpLt, truev},
		{types.NewInt64(120), types.NewInt64(120), OpLe, truev},
		{types.NewDouble(13.3), types.NewDouble(5.0), OpGt, truev},
		{types.NewVarchar("b"), types.NewVarchar("a"), OpGe, truev},
	}
	for _, c := range cases {
		got := evalConst(t, NewBinary(constant(c.l), c.op, constant(c.r)))
		require.True(t, c.want.Equal(got), "%s %s %s", c.l, c.op, c.r)
	}
}

func TestBinaryNullPropagation(t *testing.T) {
	ops := []BinaryOp{OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe}
	for _, op := range ops {
		got := evalConst(t, NewBinary(constant(types.Null()), op, constant(types.NewInt64(1))))
		require.True(t, got.IsNull(), "NULL %s 1", op)
		got = evalConst(t, NewBinary(constant(types.NewInt64(1)), op, constant(types.Null())))
		require.True(t, got.IsNull(), "1 %s NULL", op)
	}
}

func TestThreeValuedLogic(t *testing.T) {
	null := constant(types.Null())
	yes := constant(types.NewInt64(1))
	no := constant(types.NewInt64(0))

	// AND: false dominates, then null
	require.True(t, evalConst(t, NewBinary(no, OpAnd, null)).Equal(types.NewBool(false)))
	require.True(t, evalConst(t, NewBinary(null, OpAnd, no)).Equal(types.NewBool(false)))
	require.True(t, evalConst(t, NewBinary(yes, OpAnd, null)).IsNull())
	require.True(t, evalConst(t, NewBinary(yes, OpAnd, yes)).Equal(types.NewBool(true)))

	// OR: true dominates, then null
	require.True(t, evalConst(t, NewBinary(yes, OpOr, null)).Equal(types.NewBool(true)))
	require.True(t, evalConst(t, NewBinary(null, OpOr, yes)).Equal(types.NewBool(true)))
	require.True(t, evalConst(t, NewBinary(no, OpOr, null)).IsNull())
	require.True(t, evalConst(t, NewBinary(no, OpOr, no)).Equal(types.NewBool(false)))
}

func TestBinaryTypeMismatch(t *testing.T) {
	_, err := NewBinary(constant(types.NewInt64(1)), OpAdd, constant(types.NewVarchar("x"))).
		Evaluate(types.Row{}, testSchema)
	require.True(t, types.ErrTypeMismatch.Is(err))

	_, err = NewBinary(constant(types.NewInt64(1)), OpDiv, constant(types.NewInt64(0))).
		Evaluate(types.Row{}, testSchema)
	require.True(t, types.ErrArithmetic.Is(err))
}

func TestUnary(t *testing.T) {
	require.True(t, evalConst(t, NewUnary(OpIsNull, constant(types.Null()))).Equal(types.NewBool(true)))
	require.True(t, evalConst(t, NewUnary(OpIsNull, constant(types.NewInt64(0)))).Equal(types.NewBool(false)))
	require.True(t, evalConst(t, NewUnary(OpIsNotNull, constant(types.Null()))).Equal(types.NewBool(false)))
	require.True(t, evalConst(t, NewUnary(OpNot, constant(types.NewInt64(0)))).Equal(types.NewBool(true)))
	require.True(t, evalConst(t, NewUnary(OpNot, constant(types.Null()))).IsNull())
	require.True(t, evalConst(t, NewUnary(OpNeg, constant(types.NewInt64(3)))).Equal(types.NewInt64(-3)))
	require.True(t, evalConst(t, NewUnary(OpNeg, constant(types.NewDouble(2.5)))).Equal(types.NewDouble(-2.5)))
}

func TestCase(t *testing.T) {
	c := NewCase([]WhenClause{
		{When: NewBinary(NewColumnRef("key"), OpEq, constant(types.NewInt64(1))), Then: constant(types.NewVarchar("one"))},
		{When: NewBinary(NewColumnRef("key"), OpEq, constant(types.NewInt64(2))), Then: constant(types.NewVarchar("two"))},
	}, constant(types.NewVarchar("other")))

	v, err := c.Evaluate(testRow, testSchema)
	require.NoError(t, err)
	require.Equal(t, types.NewVarchar("one"), v)

	noMatch := NewCase([]WhenClause{
		{When: constant(types.NewInt64(0)), Then: constant(types.NewVarchar("never"))},
	}, nil)
	v, err = noMatch.Evaluate(testRow, testSchema)
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestIn(t *testing.T) {
	in := NewIn(NewColumnRef("key"), []Expression{
		constant(types.NewInt64(3)), constant(types.NewInt64(1)),
	})
	v, err := in.Evaluate(testRow, testSchema)
	require.NoError(t, err)
	require.True(t, v.Equal(types.NewBool(true)))

	miss := NewIn(NewColumnRef("key"), []Expression{constant(types.NewInt64(9))})
	v, err = miss.Evaluate(testRow, testSchema)
	require.NoError(t, err)
	require.True(t, v.Equal(types.NewBool(false)))

	nullChild := NewIn(constant(types.Null()), []Expression{constant(types.NewInt64(1))})
	v, err = nullChild.Evaluate(testRow, testSchema)
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestCoalesce(t *testing.T) {
	f := NewFunctionCall("coalesce", constant(types.Null()), constant(types.NewInt64(7)))
	v, err := f.Evaluate(types.Row{}, testSchema)
	require.NoError(t, err)
	require.Equal(t, types.NewInt64(7), v)

	allNull := NewFunctionCall("coalesce", constant(types.Null()), constant(types.Null()))
	v, err = allNull.Evaluate(types.Row{}, testSchema)
	require.NoError(t, err)
	require.True(t, v.IsNull())

	_, err = NewFunctionCall("no_such_fn").Evaluate(types.Row{}, testSchema)
	require.True(t, types.ErrNameResolution.Is(err))
}

func TestAggregateDirectEvalFails(t *testing.T) {
	agg := NewAggregateRef(AggSum, NewColumnRef("key"))
	_, err := agg.Evaluate(testRow, testSchema)
	require.True(t, types.ErrInternal.Is(err))
}

func TestEvaluateJoinResolution(t *testing.T) {
	left := types.NewSchema("l", []types.Column{types.NewColumn("a", types.TypeInt64), types.NewColumn("b", types.TypeVarchar)})
	right := types.NewSchema("r", []types.Column{types.NewColumn("c", types.TypeInt64), types.NewColumn("d", types.TypeVarchar)})
	lrow := types.NewRow(types.NewInt64(2), types.NewVarchar("y"))
	rrow := types.NewRow(types.NewInt64(2), types.NewVarchar("p"))

	pred := NewBinary(NewColumnRef("l.a"), OpEq, NewColumnRef("r.c"))
	v, err := pred.EvaluateJoin(lrow, left, rrow, right)
	require.NoError(t, err)
	require.True(t, v.Truthy())

	// unqualified names resolve across sides
	v, err = NewColumnRef("d").EvaluateJoin(lrow, left, rrow, right)
	require.NoError(t, err)
	require.Equal(t, types.NewVarchar("p"), v)

	// a name on both sides is ambiguous
	both := types.NewSchema("x", []types.Column{types.NewColumn("a", types.TypeInt64)})
	_, err = NewColumnRef("a").EvaluateJoin(lrow, left, types.NewRow(types.NewInt64(1)), both)
	require.True(t, types.ErrAmbiguousColumn.Is(err))
}

func TestExpressionEqualAndString(t *testing.T) {
	a := NewBinary(NewColumnRef("key"), OpEq, constant(types.NewInt64(1)))
	b := NewBinary(NewColumnRef("key"), OpEq, constant(types.NewInt64(1)))
	c := NewBinary(NewColumnRef("key"), OpEq, constant(types.NewInt64(2)))
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.Equal(t, "(key = 1)", a.String())

	agg := NewAggregateRef(AggCount, nil)
	require.Equal(t, "COUNT(*)", agg.String())
}

func TestExpressionPurity(t *testing.T) {
	e := NewBinary(NewColumnRef("score"), OpMul, constant(types.NewDouble(2)))
	first, err := e.Evaluate(testRow, testSchema)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := e.Evaluate(testRow, testSchema)
		require.NoError(t, err)
		require.True(t, first.Equal(again))
	}
}
