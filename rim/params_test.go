package rim_test

import (
	"testing"

	"github.com/megashaper/shaper/rim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	r, err := rim.DecodeRecord([]byte(`{"geo_part":"rim","whl_dia":20,"n_holes":5,"spoke_dropdown":"Lambo Style"}`))
	require.NoError(t, err)
	assert.Equal(t, 20.0, r.WheelDia)
	assert.Equal(t, 5.0, r.Holes)

	_, err = rim.DecodeRecord([]byte(`{"whl_dia":20,"rim_color":"red"}`))
	assert.ErrorIs(t, err, rim.ErrValidation)

	_, err = rim.DecodeRecord([]byte(`{"whl_dia":"twenty"}`))
	assert.ErrorIs(t, err, rim.ErrValidation)
}

func TestDecodeRecordFile(t *testing.T) {
	r, err := rim.DecodeRecordFile([]byte(`{
	// 20mm rim for the small chassis
	geo_part: "rim",
	whl_dia: 20,
	n_holes: 5,
	spoke_dropdown: 'LamboStyle',
}`))
	require.NoError(t, err)
	assert.Equal(t, 20.0, r.WheelDia)
	assert.Equal(t, 5.0, r.Holes)
	assert.Equal(t, "LamboStyle", r.SpokeDropdown)

	_, err = rim.DecodeRecordFile([]byte(`{whl_dia: 20, rim_color: "red"}`))
	assert.ErrorIs(t, err, rim.ErrValidation)

	_, err = rim.DecodeRecordFile([]byte(`{whl_dia: 20`))
	assert.ErrorIs(t, err, rim.ErrValidation)
}

func TestRecordKey(t *testing.T) {
	a, err := rim.DecodeRecord([]byte(`{"whl_dia":20,"axl_dia":3,"spoke_dropdown":"Lambo Style","geo_part":"RIM"}`))
	require.NoError(t, err)
	b, err := rim.DecodeRecord([]byte(`{"geo_part":"rim","spoke_dropdown":"LamboStyle","axl_dia":3,"whl_dia":20}`))
	require.NoError(t, err)
	assert.Equal(t, a.Key(), b.Key())
	assert.Len(t, a.Key(), 64)

	b.AxleDia = 3.5
	assert.NotEqual(t, a.Key(), b.Key())

	// omitted part defaults to rim
	c := a
	c.GeoPart = ""
	assert.Equal(t, a.Key(), c.Key())
}
