package form2_test

import (
	"math"
	"testing"

	"github.com/megashaper/shaper/form2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestPolygonDistance(t *testing.T) {
	square := []r2.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	s, err := form2.Polygon(square)
	require.NoError(t, err)

	tests := []struct {
		p    r2.Vec
		want float64
	}{
		{r2.Vec{X: 1, Y: 1}, -1},
		{r2.Vec{X: 0.5, Y: 1}, -0.5},
		{r2.Vec{X: 3, Y: 1}, 1},
		{r2.Vec{X: 3, Y: 3}, math.Sqrt2},
		{r2.Vec{X: 2, Y: 1}, 0},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, s.Evaluate(tc.p), 1e-12, "at %v", tc.p)
	}
	assert.Equal(t, r2.Box{Min: r2.Vec{}, Max: r2.Vec{X: 2, Y: 2}}, s.Bounds())

	// orientation does not change the sign
	cw := []r2.Vec{square[3], square[2], square[1], square[0]}
	s2, err := form2.Polygon(cw)
	require.NoError(t, err)
	assert.InDelta(t, -1, s2.Evaluate(r2.Vec{X: 1, Y: 1}), 1e-12)
}

func TestPolygonErrors(t *testing.T) {
	_, err := form2.Polygon([]r2.Vec{{X: 0}, {X: 1}})
	var se *form2.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "polygon", se.Op)

	_, err = form2.Polygon([]r2.Vec{{X: 0}, {X: math.NaN()}, {Y: 1}})
	assert.Error(t, err)

	_, err = form2.Vertices(form2.NewPolygon())
	assert.Error(t, err)
}

func TestBuilderChamfer(t *testing.T) {
	b := form2.NewPolygon()
	b.Add(0, 0)
	b.Add(4, 0).Chamfer(1)
	b.Add(4, 4)
	b.Add(0, 4).Chamfer(3) // too large for the 4mm edges, stays sharp
	b.Close()
	v, err := form2.Vertices(b)
	require.NoError(t, err)
	assert.Equal(t, []r2.Vec{
		{X: 0, Y: 0},
		{X: 3, Y: 0}, {X: 4, Y: 1},
		{X: 4, Y: 4},
		{X: 0, Y: 4},
	}, v)

	open := form2.NewPolygon()
	open.Add(0, 0).Chamfer(1)
	open.Add(4, 0)
	open.Add(4, 4)
	v, err = form2.Vertices(open)
	require.NoError(t, err)
	assert.Len(t, v, 3, "endpoints of an open polyline are not chamfered")
}
