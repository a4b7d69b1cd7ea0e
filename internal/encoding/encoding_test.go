package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/types"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.Uint64(0).Uint64(300).Int64(-42).Float64(3.25).String("hello").Bytes2([]byte{0, 1, 2})

	d := NewDecoder(e.Bytes())
	u, err := d.Uint64()
	require.NoError(t, err)
	require.EqualValues(t, 0, u)
	u, err = d.Uint64()
	require.NoError(t, err)
	require.EqualValues(t, 300, u)
	i, err := d.Int64()
	require.NoError(t, err)
	require.EqualValues(t, -42, i)
	f, err := d.Float64()
	require.NoError(t, err)
	require.Equal(t, 3.25, f)
	s, err := d.String()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
	b, err := d.Bytes2()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2}, b)
	require.Zero(t, d.Remaining())
}

func TestValueAndRowRoundTrip(t *testing.T) {
	row := types.NewRow(
		types.Null(),
		types.NewInt64(-7),
		types.NewDouble(1.5),
		types.NewVarchar("x\x00y"),
	)
	e := NewEncoder()
	e.Row(row)

	got, err := NewDecoder(e.Bytes()).Row()
	require.NoError(t, err)
	require.True(t, row.Equal(got))
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := NewDecoder(nil).Uint64()
	require.Error(t, err)
	_, err = NewDecoder([]byte{0x05, 'a'}).String()
	require.Error(t, err)
}
