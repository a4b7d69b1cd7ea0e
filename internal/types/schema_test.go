package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	return NewSchema("t", []Column{
		NewColumn("key", TypeInt64),
		NewColumn("name", TypeVarchar),
		NewColumn("score", TypeDouble),
	})
}

func TestSchemaQualifierInheritance(t *testing.T) {
	sc := testSchema()
	for _, c := range sc.Columns {
		require.Equal(t, "t", c.Name.Qualifier)
	}
}

func TestSchemaOffset(t *testing.T) {
	sc := testSchema()

	off, err := sc.Offset(ParseColumnName("name"))
	require.NoError(t, err)
	require.Equal(t, 1, off)

	off, err = sc.Offset(ParseColumnName("t.score"))
	require.NoError(t, err)
	require.Equal(t, 2, off)

	_, err = sc.Offset(ParseColumnName("missing"))
	require.True(t, ErrNameResolution.Is(err))

	_, err = sc.Offset(ParseColumnName("u.key"))
	require.True(t, ErrNameResolution.Is(err))
}

func TestSchemaConcatAndAmbiguity(t *testing.T) {
	left := NewSchema("l", []Column{NewColumn("id", TypeInt64), NewColumn("v", TypeVarchar)})
	right := NewSchema("r", []Column{NewColumn("id", TypeInt64), NewColumn("w", TypeVarchar)})
	joined := left.Concat(right)

	require.Equal(t, "", joined.Name)
	require.Equal(t, 4, joined.ColumnCount())

	// qualified references stay unambiguous
	off, err := joined.Offset(ParseColumnName("r.id"))
	require.NoError(t, err)
	require.Equal(t, 2, off)

	// a bare name present on both sides is ambiguous
	_, err = joined.Offset(ParseColumnName("id"))
	require.True(t, ErrAmbiguousColumn.Is(err))

	// a bare name present once resolves
	off, err = joined.Offset(ParseColumnName("w"))
	require.NoError(t, err)
	require.Equal(t, 3, off)
}

func TestRowOps(t *testing.T) {
	r := NewRow(NewInt64(1), NewVarchar("a"), NewDouble(2.5))
	require.Equal(t, 3, r.Len())

	ext := r.Extract([]int{2, 0})
	require.True(t, ext.Equal(NewRow(NewDouble(2.5), NewInt64(1))))

	cat := r.Concat(NewRow(NewInt64(9)))
	require.Equal(t, 4, cat.Len())
	require.True(t, cat.Get(3).Equal(NewInt64(9)))

	require.True(t, r.Equal(r.Copy()))
	require.False(t, r.Equal(NewRow(NewInt64(1))))
}
