package shaper

import "gonum.org/v1/gonum/spatial/r3"

// V3i is an integer lattice point. The octree renderer addresses cube
// corners with it so neighbouring cubes share cached distances exactly.
type V3i [3]int

// Add returns a+b.
func (a V3i) Add(b V3i) V3i {
	return V3i{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// AddScalar adds b to every component.
func (a V3i) AddScalar(b int) V3i {
	return V3i{a[0] + b, a[1] + b, a[2] + b}
}

// ToV3 converts the lattice point to a float vector.
func (a V3i) ToV3() r3.Vec {
	return r3.Vec{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}
