package must2

import (
	"fmt"
	"math"

	"github.com/megashaper/shaper"
	"github.com/megashaper/shaper/internal/d2"
	"gonum.org/v1/gonum/spatial/r2"
)

// segment is one polygon edge with its direction precomputed.
type segment struct {
	a, b   r2.Vec
	dir    r2.Vec // unit vector a->b
	length float64
}

// polygon is a closed polygon SDF2. The sign comes from the winding number
// so both orientations evaluate the same.
type polygon struct {
	segs []segment
	bb   r2.Box
}

// Polygon returns the SDF2 of the closed polygon through vertex. The last
// vertex connects back to the first. It panics with fewer than three
// vertices or a NaN coordinate.
func Polygon(vertex []r2.Vec) shaper.SDF2 {
	n := len(vertex)
	if n < 3 {
		panic("polygon needs at least 3 vertices")
	}
	for i, v := range vertex {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) {
			panic(fmt.Sprintf("NaN vertex %d", i))
		}
	}
	if d2.EqualWithin(vertex[0], vertex[n-1], tolerance) {
		n--
	}
	s := &polygon{
		segs: make([]segment, 0, n),
		bb:   r2.Box{Min: vertex[0], Max: vertex[0]},
	}
	for i := 0; i < n; i++ {
		a, b := vertex[i], vertex[(i+1)%n]
		ab := r2.Sub(b, a)
		l := r2.Norm(ab)
		if l == 0 {
			continue
		}
		s.segs = append(s.segs, segment{a: a, b: b, dir: r2.Scale(1/l, ab), length: l})
		s.bb.Min = d2.MinElem(s.bb.Min, a)
		s.bb.Max = d2.MaxElem(s.bb.Max, a)
	}
	if len(s.segs) < 3 {
		panic("polygon collapses to fewer than 3 edges")
	}
	return s
}

func (s *polygon) Evaluate(p r2.Vec) float64 {
	dd := math.Inf(1)
	winding := 0
	for _, sg := range s.segs {
		pa := r2.Sub(p, sg.a)
		t := r2.Dot(pa, sg.dir)
		// side > 0 when p is right of a->b.
		side := -r2.Cross(sg.dir, pa)
		switch {
		case t <= 0:
			dd = math.Min(dd, r2.Norm2(pa))
		case t >= sg.length:
			dd = math.Min(dd, r2.Norm2(r2.Sub(p, sg.b)))
		default:
			dd = math.Min(dd, side*side)
		}
		// Crossing rule from http://geomalgorithms.com/a03-_inclusion.html
		if sg.a.Y <= p.Y {
			if sg.b.Y > p.Y && side < 0 {
				winding++
			}
		} else if sg.b.Y <= p.Y && side > 0 {
			winding--
		}
	}
	d := math.Sqrt(dd)
	if winding != 0 {
		return -d
	}
	return d
}

func (s *polygon) Bounds() r2.Box { return s.bb }

// PolygonBuilder collects polygon vertices, optionally chamfering corners.
type PolygonBuilder struct {
	closed bool
	verts  []Vertex
}

// Vertex is a corner added to a PolygonBuilder.
type Vertex struct {
	pos     r2.Vec
	chamfer float64
}

// NewPolygon returns an empty builder.
func NewPolygon() *PolygonBuilder {
	return &PolygonBuilder{}
}

// Add appends the vertex (x, y) and returns it for decoration.
func (p *PolygonBuilder) Add(x, y float64) *Vertex {
	p.verts = append(p.verts, Vertex{pos: r2.Vec{X: x, Y: y}})
	return &p.verts[len(p.verts)-1]
}

// Chamfer cuts the corner with a straight bevel whose ends sit size away
// from the corner along both adjoining edges. Corners whose edges are too
// short for the bevel are left sharp.
func (v *Vertex) Chamfer(size float64) *Vertex {
	v.chamfer = size
	return v
}

// Close joins the last vertex to the first.
func (p *PolygonBuilder) Close() {
	p.closed = true
}

// Vertices resolves chamfers and returns the final vertex list. Endpoints
// of an open polygon are never chamfered. It panics on an empty builder.
func (p *PolygonBuilder) Vertices() []r2.Vec {
	n := len(p.verts)
	if n == 0 {
		panic("no vertices added to polygon")
	}
	out := make([]r2.Vec, 0, n+4)
	for i, v := range p.verts {
		endpoint := !p.closed && (i == 0 || i == n-1)
		if v.chamfer <= 0 || endpoint || n < 3 {
			out = append(out, v.pos)
			continue
		}
		prev := p.verts[(i+n-1)%n].pos
		next := p.verts[(i+1)%n].pos
		toPrev, toNext := r2.Sub(prev, v.pos), r2.Sub(next, v.pos)
		if v.chamfer >= r2.Norm(toPrev)/2 || v.chamfer >= r2.Norm(toNext)/2 {
			out = append(out, v.pos)
			continue
		}
		out = append(out,
			r2.Add(v.pos, r2.Scale(v.chamfer, r2.Unit(toPrev))),
			r2.Add(v.pos, r2.Scale(v.chamfer, r2.Unit(toNext))),
		)
	}
	return out
}
