package must3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// cylinder is centered on the origin with its axis along z. The distance
// field is exact, rounded edges included.
type cylinder struct {
	halfHeight float64 // of the unrounded core
	radius     float64 // of the unrounded core
	round      float64
	bb         r3.Box
}

// Cylinder returns the SDF3 of a z-aligned cylinder. Edges are rounded
// with radius round when it is positive. It panics on non-positive sizes
// or a rounding that does not fit.
func Cylinder(height, radius, round float64) *cylinder {
	switch {
	case !(radius > 0):
		panic("radius <= 0")
	case !(height > 0):
		panic("height <= 0")
	case round < 0:
		panic("round < 0")
	case round > radius:
		panic("round > radius")
	case 2*round > height:
		panic("height < 2 * round")
	}
	half := r3.Vec{X: radius, Y: radius, Z: height / 2}
	return &cylinder{
		halfHeight: height/2 - round,
		radius:     radius - round,
		round:      round,
		bb:         r3.Box{Min: r3.Scale(-1, half), Max: half},
	}
}

func (c *cylinder) Evaluate(p r3.Vec) float64 {
	// Distance to the rectangle |r| <= radius, |z| <= halfHeight in the
	// (r,z) half plane, inflated by the rounding.
	dr := math.Hypot(p.X, p.Y) - c.radius
	dz := math.Abs(p.Z) - c.halfHeight
	inside := math.Min(math.Max(dr, dz), 0)
	outside := math.Hypot(math.Max(dr, 0), math.Max(dz, 0))
	return inside + outside - c.round
}

func (c *cylinder) Bounds() r3.Box { return c.bb }
