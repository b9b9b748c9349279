package render

import (
	"github.com/megashaper/shaper"
	"gonum.org/v1/gonum/spatial/r3"
)

// Marching tetrahedra over the Kuhn split of a cube. Every tetrahedron shares
// the 0-6 diagonal, so neighbouring cubes agree on face diagonals and the
// extracted surface is closed.

const marchingTetMaxTriangles = 12 // 6 tetrahedra, at most 2 triangles each.

// interpolation never lands exactly on a lattice corner.
const mtClamp = 1e-3

var kuhnTets = [6][4]int{
	{0, 6, 1, 2},
	{0, 6, 2, 3},
	{0, 6, 3, 7},
	{0, 6, 7, 4},
	{0, 6, 4, 5},
	{0, 6, 5, 1},
}

type mtCorner struct {
	key shaper.V3i // lattice position, identifies the corner globally
	p   r3.Vec
	d   float64
}

func (c *mtCorner) inside() bool { return c.d < 0 }

// mtToTriangles writes the iso-surface triangles of a leaf cube to dst and
// returns how many were written. dst must hold marchingTetMaxTriangles.
func mtToTriangles(dst []Triangle3, corners *[8]mtCorner) int {
	n := 0
	for _, tet := range kuhnTets {
		var in, out [4]*mtCorner
		var nin, nout int
		for _, idx := range tet {
			c := &corners[idx]
			if c.inside() {
				in[nin] = c
				nin++
			} else {
				out[nout] = c
				nout++
			}
		}
		switch nin {
		case 0, 4:
			continue
		case 1:
			n += mtEmit(dst[n:], in[:1], out[:3],
				mtEdge(in[0], out[0]), mtEdge(in[0], out[1]), mtEdge(in[0], out[2]))
		case 3:
			n += mtEmit(dst[n:], in[:3], out[:1],
				mtEdge(out[0], in[0]), mtEdge(out[0], in[1]), mtEdge(out[0], in[2]))
		case 2:
			// Quad cycle p00 p01 p11 p10, consecutive points share an endpoint.
			p00 := mtEdge(in[0], out[0])
			p01 := mtEdge(in[0], out[1])
			p11 := mtEdge(in[1], out[1])
			p10 := mtEdge(in[1], out[0])
			n += mtEmit(dst[n:], in[:2], out[:2], p00, p01, p11)
			n += mtEmit(dst[n:], in[:2], out[:2], p00, p11, p10)
		}
	}
	return n
}

// mtEmit writes triangle a,b,c oriented so its normal points from the inside
// corners towards the outside corners.
func mtEmit(dst []Triangle3, in, out []*mtCorner, a, b, c r3.Vec) int {
	var cin, cout r3.Vec
	for _, v := range in {
		cin = r3.Add(cin, v.p)
	}
	for _, v := range out {
		cout = r3.Add(cout, v.p)
	}
	dir := r3.Sub(r3.Scale(1/float64(len(out)), cout), r3.Scale(1/float64(len(in)), cin))
	normal := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Dot(normal, dir) < 0 {
		b, c = c, b
	}
	dst[0] = Triangle3{V: [3]r3.Vec{a, b, c}}
	return 1
}

// mtEdge returns the zero crossing on the edge between two corners. Endpoints
// are ordered by lattice key so neighbouring cubes compute bit identical vertices.
func mtEdge(a, b *mtCorner) r3.Vec {
	if keyLess(b.key, a.key) {
		a, b = b, a
	}
	t := a.d / (a.d - b.d)
	t = shaper.Clamp(t, mtClamp, 1-mtClamp)
	return r3.Add(a.p, r3.Scale(t, r3.Sub(b.p, a.p)))
}

func keyLess(a, b shaper.V3i) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}
