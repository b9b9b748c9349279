package form3_test

import (
	"testing"

	"github.com/megashaper/shaper/form3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCylinder(t *testing.T) {
	c, err := form3.Cylinder(4, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, -1, c.Evaluate(r3.Vec{}), 1e-12)
	assert.InDelta(t, 1, c.Evaluate(r3.Vec{X: 2}), 1e-12)
	assert.InDelta(t, 1, c.Evaluate(r3.Vec{Z: 3}), 1e-12)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 2}, c.Bounds().Max)
}

func TestCylinderErrors(t *testing.T) {
	for _, tc := range []struct{ h, r, round float64 }{
		{0, 1, 0},
		{1, -1, 0},
		{1, 1, -0.1},
		{4, 1, 1.5},
		{1, 2, 0.75},
	} {
		_, err := form3.Cylinder(tc.h, tc.r, tc.round)
		var se *form3.ShapeError
		require.ErrorAs(t, err, &se, "%+v", tc)
		assert.Equal(t, "cylinder", se.Op)
	}
}
