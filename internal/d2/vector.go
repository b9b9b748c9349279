package d2

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// EqualWithin reports whether a and b differ by at most tol per component.
func EqualWithin(a, b r2.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

// MinElem returns the componentwise minimum of a and b.
func MinElem(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)}
}

// MaxElem returns the componentwise maximum of a and b.
func MaxElem(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)}
}

// Set is a polygon or polyline given by its vertices.
type Set []r2.Vec

// Min returns the componentwise minimum over a non-empty set.
func (a Set) Min() r2.Vec {
	vmin := a[0]
	for _, v := range a[1:] {
		vmin = MinElem(vmin, v)
	}
	return vmin
}

// Max returns the componentwise maximum over a non-empty set.
func (a Set) Max() r2.Vec {
	vmax := a[0]
	for _, v := range a[1:] {
		vmax = MaxElem(vmax, v)
	}
	return vmax
}

// SignedArea returns the signed area of the closed polygon described by the set.
// Counter-clockwise polygons have positive area.
func (a Set) SignedArea() float64 {
	var sum float64
	n := len(a)
	for i := range a {
		j := (i + 1) % n
		sum += r2.Cross(a[i], a[j])
	}
	return sum / 2
}

// SegmentsIntersect reports whether the closed segments a0-a1 and b0-b1 touch
// or cross. Collinear overlapping segments intersect.
func SegmentsIntersect(a0, a1, b0, b1 r2.Vec, tol float64) bool {
	d1 := orient(b0, b1, a0, tol)
	d2 := orient(b0, b1, a1, tol)
	d3 := orient(a0, a1, b0, tol)
	d4 := orient(a0, a1, b1, tol)
	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment(b0, b1, a0, tol)) ||
		(d2 == 0 && onSegment(b0, b1, a1, tol)) ||
		(d3 == 0 && onSegment(a0, a1, b0, tol)) ||
		(d4 == 0 && onSegment(a0, a1, b1, tol))
}

// orient returns the sign of the turn p-q-r, zero when collinear within tol.
func orient(p, q, r r2.Vec, tol float64) int {
	c := r2.Cross(r2.Sub(q, p), r2.Sub(r, p))
	switch {
	case c > tol:
		return 1
	case c < -tol:
		return -1
	}
	return 0
}

// onSegment assumes r is collinear with p-q.
func onSegment(p, q, r r2.Vec, tol float64) bool {
	return r.X <= math.Max(p.X, q.X)+tol && r.X >= math.Min(p.X, q.X)-tol &&
		r.Y <= math.Max(p.Y, q.Y)+tol && r.Y >= math.Min(p.Y, q.Y)-tol
}
