package render

import (
	"fmt"

	"github.com/megashaper/shaper/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefectKind names the mesh property a MeshDefect violates.
type DefectKind int

const (
	DefectEmpty DefectKind = iota + 1
	DefectDegenerate
	DefectOpenEdge        // edge with no opposite twin
	DefectNonManifoldEdge // edge shared by more than two faces, or winding inconsistent
	DefectDisconnected
	DefectInverted
)

func (k DefectKind) String() string {
	switch k {
	case DefectEmpty:
		return "empty mesh"
	case DefectDegenerate:
		return "degenerate triangle"
	case DefectOpenEdge:
		return "open edge"
	case DefectNonManifoldEdge:
		return "non-manifold edge"
	case DefectDisconnected:
		return "disconnected shells"
	case DefectInverted:
		return "inward facing normals"
	}
	return "unknown defect"
}

// MeshDefect describes the first property a mesh failed in CheckManifold.
type MeshDefect struct {
	Kind     DefectKind
	Triangle int    // index of an offending triangle, -1 if not applicable
	Point    r3.Vec // location near the defect
	Count    int    // offending edges or shells
}

func (e *MeshDefect) Error() string {
	if e.Triangle < 0 {
		return fmt.Sprintf("%s (count %d)", e.Kind, e.Count)
	}
	return fmt.Sprintf("%s at triangle %d near (%.4g, %.4g, %.4g) (count %d)",
		e.Kind, e.Triangle, e.Point.X, e.Point.Y, e.Point.Z, e.Count)
}

// degenerateTol relates twice the triangle area to its squared longest edge.
const degenerateTol = 1e-12

type edge [2]int

// CheckManifold verifies the triangles describe a single closed, consistently
// wound, outward facing surface without degenerate triangles. Vertices are
// welded by exact position. The returned error is a *MeshDefect.
func CheckManifold(tris []Triangle3) error {
	if len(tris) == 0 {
		return &MeshDefect{Kind: DefectEmpty, Triangle: -1}
	}
	w := weld(tris)
	for i, t := range tris {
		f := w.faces[i]
		if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] || t.Degenerate(degenerateTol) {
			return &MeshDefect{Kind: DefectDegenerate, Triangle: i, Point: t.V[0], Count: 1}
		}
	}
	directed := make(map[edge]int, 3*len(tris))
	for _, f := range w.faces {
		for j := 0; j < 3; j++ {
			directed[edge{f[j], f[(j+1)%3]}]++
		}
	}
	open, multi, first := 0, 0, -1
	var firstKind DefectKind
	for i, f := range w.faces {
		for j := 0; j < 3; j++ {
			e := edge{f[j], f[(j+1)%3]}
			switch {
			case directed[e] > 1 || directed[edge{e[1], e[0]}] > 1:
				multi++
				if first < 0 {
					first, firstKind = i, DefectNonManifoldEdge
				}
			case directed[edge{e[1], e[0]}] == 0:
				open++
				if first < 0 {
					first, firstKind = i, DefectOpenEdge
				}
			}
		}
	}
	if first >= 0 {
		return &MeshDefect{Kind: firstKind, Triangle: first, Point: tris[first].V[0], Count: open + multi}
	}
	if shells := w.components(); shells != 1 {
		return &MeshDefect{Kind: DefectDisconnected, Triangle: -1, Count: shells}
	}
	if v := SignedVolume(tris); v <= 0 {
		return &MeshDefect{Kind: DefectInverted, Triangle: -1}
	}
	return nil
}

// SignedVolume returns the volume enclosed by a closed mesh. It is positive
// when triangle normals point outward.
func SignedVolume(tris []Triangle3) float64 {
	var v float64
	for _, t := range tris {
		v += r3.Dot(t.V[0], r3.Cross(t.V[1], t.V[2]))
	}
	return v / 6
}

// MeshStats summarizes a triangle mesh.
type MeshStats struct {
	Triangles int
	Vertices  int // distinct vertex positions
	Bounds    r3.Box
	Volume    float64
	Area      float64
}

// Stats computes summary statistics of a mesh.
func Stats(tris []Triangle3) MeshStats {
	st := MeshStats{Triangles: len(tris)}
	if len(tris) == 0 {
		return st
	}
	bb := d3.Empty()
	for _, t := range tris {
		for _, v := range t.V {
			bb = bb.Include(v)
		}
		st.Area += t.Area()
	}
	st.Bounds = r3.Box(bb)
	st.Vertices = len(weld(tris).verts)
	st.Volume = SignedVolume(tris)
	return st
}

type welded struct {
	verts map[r3.Vec]int
	faces [][3]int
}

func weld(tris []Triangle3) welded {
	w := welded{
		verts: make(map[r3.Vec]int, len(tris)/2+3),
		faces: make([][3]int, len(tris)),
	}
	for i, t := range tris {
		for j, v := range t.V {
			idx, ok := w.verts[v]
			if !ok {
				idx = len(w.verts)
				w.verts[v] = idx
			}
			w.faces[i][j] = idx
		}
	}
	return w
}

// components counts the connected shells with a union find over vertices.
func (w welded) components() int {
	parent := make([]int, len(w.verts))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, f := range w.faces {
		union(f[0], f[1])
		union(f[1], f[2])
	}
	roots := make(map[int]struct{})
	for _, f := range w.faces {
		roots[find(f[0])] = struct{}{}
	}
	return len(roots)
}
