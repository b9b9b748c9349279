package render

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer streams the triangles of a tessellated model.
type Renderer interface {
	// ReadTriangles fills dst with triangles and returns the amount written.
	// io.EOF is returned once the model is exhausted.
	ReadTriangles(dst []Triangle3) (int, error)
}

// Triangle3 is a 3D triangle. Vertices are counter-clockwise when
// seen from the side the normal points to.
type Triangle3 struct {
	V [3]r3.Vec
}

// Normal returns the unit normal of the triangle following the right hand rule.
func (t Triangle3) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0]))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Area returns the area of the triangle.
func (t Triangle3) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0])))
}

// Degenerate returns true if two vertices coincide or the triangle
// area is negligible compared to its longest edge.
func (t Triangle3) Degenerate(tol float64) bool {
	if t.V[0] == t.V[1] || t.V[1] == t.V[2] || t.V[2] == t.V[0] {
		return true
	}
	l := math.Max(r3.Norm2(r3.Sub(t.V[1], t.V[0])), math.Max(r3.Norm2(r3.Sub(t.V[2], t.V[1])), r3.Norm2(r3.Sub(t.V[0], t.V[2]))))
	return 2*t.Area() <= tol*l
}
