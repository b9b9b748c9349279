package shaper

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// SDF3 is a solid described by its signed distance field.
type SDF3 interface {
	// Evaluate returns the distance from p to the solid's surface,
	// negative inside.
	Evaluate(p r3.Vec) float64
	// Bounds returns a box containing the whole solid.
	Bounds() r3.Box
}

// revolution3 is a cross-section swept a full turn about the z axis.
type revolution3 struct {
	section SDF2
	bb      r3.Box
}

// Revolve3D sweeps an (r,z) cross-section one full turn about the z axis.
// The section's X coordinate is the radius and its Y coordinate is z, so a
// section that stays at X >= 0 yields a closed solid of revolution.
func Revolve3D(section SDF2) SDF3 {
	if section == nil {
		panic("nil SDF2 argument")
	}
	bb := section.Bounds()
	r := math.Max(math.Abs(bb.Min.X), math.Abs(bb.Max.X))
	return &revolution3{
		section: section,
		bb: r3.Box{
			Min: r3.Vec{X: -r, Y: -r, Z: bb.Min.Y},
			Max: r3.Vec{X: r, Y: r, Z: bb.Max.Y},
		},
	}
}

func (s *revolution3) Evaluate(p r3.Vec) float64 {
	return s.section.Evaluate(r2.Vec{X: math.Hypot(p.X, p.Y), Y: p.Z})
}

func (s *revolution3) Bounds() r3.Box { return s.bb }

// translate3 moves a solid by a fixed offset.
type translate3 struct {
	sdf SDF3
	v   r3.Vec
}

// Translate3D returns sdf moved by v.
func Translate3D(sdf SDF3, v r3.Vec) SDF3 {
	if sdf == nil {
		panic("nil SDF3 argument")
	}
	return &translate3{sdf: sdf, v: v}
}

func (s *translate3) Evaluate(p r3.Vec) float64 {
	return s.sdf.Evaluate(r3.Sub(p, s.v))
}

func (s *translate3) Bounds() r3.Box {
	bb := s.sdf.Bounds()
	return r3.Box{Min: r3.Add(bb.Min, s.v), Max: r3.Add(bb.Max, s.v)}
}

// diff3 is base with cutter removed.
type diff3 struct {
	base, cutter SDF3
}

// Difference3D returns base minus cutter. The result keeps base's bounds.
func Difference3D(base, cutter SDF3) SDF3 {
	if base == nil || cutter == nil {
		panic("nil argument to Difference3D")
	}
	return &diff3{base: base, cutter: cutter}
}

func (s *diff3) Evaluate(p r3.Vec) float64 {
	return math.Max(s.base.Evaluate(p), -s.cutter.Evaluate(p))
}

func (s *diff3) Bounds() r3.Box { return s.base.Bounds() }
