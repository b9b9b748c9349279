package shaper

import "gonum.org/v1/gonum/spatial/r2"

// SDF2 is a planar region described by its signed distance field. Rim
// cross-sections are SDF2s in the (r,z) half plane.
type SDF2 interface {
	// Evaluate returns the distance from p to the region's boundary,
	// negative inside.
	Evaluate(p r2.Vec) float64
	// Bounds returns a box containing the whole region.
	Bounds() r2.Box
}
