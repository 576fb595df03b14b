package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSortSpec(t *testing.T) {
	s, err := ParseSortSpec("population:DESC, country ,life_exp:asc")
	require.NoError(t, err)
	require.Equal(t, SortSpec{
		{Column: "population", Dir: Desc},
		{Column: "country", Dir: Asc},
		{Column: "life_exp", Dir: Asc},
	}, s)

	s, err = ParseSortSpec("  ")
	require.NoError(t, err)
	require.Nil(t, s)

	_, err = ParseSortSpec("country:sideways")
	require.ErrorIs(t, err, ErrBadDirection)
}

func TestPageRequest(t *testing.T) {
	p := PageRequest{PageIndex: 3, PageSize: 25}
	require.NoError(t, p.Validate())
	require.Equal(t, uint64(75), p.Offset())
	require.Equal(t, uint64(25), p.Limit())

	require.ErrorIs(t, PageRequest{PageIndex: -1, PageSize: 10}.Validate(), ErrBadPage)
	require.ErrorIs(t, PageRequest{PageSize: 0}.Validate(), ErrBadPage)
}

func TestOpNames(t *testing.T) {
	require.Equal(t, "<>", OpNe.Symbol())
	require.Equal(t, "CONTAINS", OpContains.String())
	require.Equal(t, "?", Op(42).Symbol())
}

func TestRecordRowJSONKeepsColumnOrder(t *testing.T) {
	r := RecordRow{}
	r.Set("population", Number(4.2e7))
	r.Set("country", String("Kenya"))
	r.Set("gdp_percap", Null())
	r.Set("population", Number(43000000))

	b, err := json.Marshal([]RecordRow{r})
	require.NoError(t, err)
	require.Equal(t, `[{"population":43000000,"country":"Kenya","gdp_percap":null}]`, string(b))
	require.Equal(t, 3, r.Len())

	v, ok := r.Get("country")
	require.True(t, ok)
	require.Equal(t, "Kenya", v.String())
	_, ok = r.Get("missing")
	require.False(t, ok)
}

func TestValueUnmarshal(t *testing.T) {
	var vs []Value
	require.NoError(t, json.Unmarshal([]byte(`[null, "70", 70.5]`), &vs))
	require.Equal(t, []Value{Null(), String("70"), Number(70.5)}, vs)
	require.Equal(t, []any{nil, "70", 70.5}, []any{vs[0].Arg(), vs[1].Arg(), vs[2].Arg()})

	var v Value
	require.Error(t, json.Unmarshal([]byte(`true`), &v))
}

type fixedDecimal struct {
	units int64
	scale int
}

func (d fixedDecimal) Float64() float64 {
	f := float64(d.units)
	for i := 0; i < d.scale; i++ {
		f /= 10
	}
	return f
}

func TestAsFloat(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want float64
	}{
		{int8(-3), -3},
		{uint(7), 7},
		{uint8(255), 255},
		{uint16(65535), 65535},
		{uint64(1 << 40), 1 << 40},
		{float32(1.5), 1.5},
		{fixedDecimal{units: 12345, scale: 2}, 123.45},
		{big.NewInt(1_000_000_007), 1_000_000_007},
	} {
		got, ok := AsFloat(tc.in)
		require.True(t, ok, "%T", tc.in)
		require.InDelta(t, tc.want, got, 1e-9, "%T", tc.in)
	}
	for _, in := range []any{nil, "12", []byte("12"), true} {
		_, ok := AsFloat(in)
		require.False(t, ok, "%T", in)
	}
}
