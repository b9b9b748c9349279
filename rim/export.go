package rim

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/megashaper/shaper/helpers/matter"
	"github.com/megashaper/shaper/render"
	"go.uber.org/zap"
)

const (
	// DefaultMaxCells caps the octree resolution along the longest axis.
	DefaultMaxCells = 256
	// DefaultTireCells is the fixed resolution of tire meshes.
	DefaultTireCells = 64

	minCells = 16
)

// MeshResult is an exported binary STL and what went into it.
type MeshResult struct {
	STL        []byte
	Stats      render.MeshStats
	Cells      int     // octree cells along the longest axis
	CellSize   float64 // leaf cube side in mm
	Resolution float64 // resolution requested by the print settings
	Notes      []string
}

// Base64 returns the STL bytes encoded for JSON transport.
func (m *MeshResult) Base64() string {
	return base64.StdEncoding.EncodeToString(m.STL)
}

// Exporter tessellates solids and serializes them to binary STL.
type Exporter struct {
	MaxCells int // zero uses DefaultMaxCells
	Logger   *zap.Logger
}

// Export tessellates s at the resolution the printer reproduces, never
// coarser than the solid's thinnest section allows, and verifies the mesh
// before serializing it.
func (e *Exporter) Export(ctx context.Context, s *Solid, pr matter.Printer) (*MeshResult, error) {
	res := pr.Resolution()
	if !(res > 0) {
		return nil, newError(KindInternal, CompExporter, "non-positive resolution %g", res)
	}
	longAxis := meshSpan(s.Bounds)
	cells := max(int(math.Ceil(longAxis/res)), minCells)
	var notes []string
	if limit := e.maxCells(); cells > limit {
		notes = append(notes, fmt.Sprintf("tessellated at %.3g mm instead of %.3g mm to fit %d cells",
			longAxis/float64(limit), res, limit))
		cells = limit
	}
	m, err := e.ExportCells(ctx, s, cells)
	if err != nil {
		return nil, err
	}
	m.Resolution = res
	m.Notes = append(notes, m.Notes...)
	return m, nil
}

// ExportCells tessellates s with cells along its longest axis, raised to
// what its thinnest section needs.
func (e *Exporter) ExportCells(ctx context.Context, s *Solid, cells int) (*MeshResult, error) {
	if cells < 2 {
		return nil, newError(KindInternal, CompExporter, "cell count %d below 2", cells)
	}
	var notes []string
	if need := s.MinCells(); cells < need {
		if err := s.fit(CompExporter, e.maxCells()); err != nil {
			return nil, err
		}
		notes = append(notes, fmt.Sprintf("refined to %d cells to resolve the %.3g mm section set by %s",
			need, s.Thinnest, s.ThinField))
		cells = need
	}
	oc := render.NewOctreeRenderer(s.SDF, cells)
	tris, err := render.RenderAll(ctx, oc)
	if err != nil {
		return nil, contextError(err, CompExporter)
	}
	if err := render.CheckManifold(tris); err != nil {
		e.logger().Error("exported mesh failed manifold check",
			zap.Int("cells", cells), zap.Int("triangles", len(tris)), zap.Error(err))
		return nil, &Error{Kind: KindNonManifold, Component: CompExporter, Msg: "final mesh", Err: err}
	}
	var buf bytes.Buffer
	buf.Grow(84 + 50*len(tris))
	if err := render.WriteSTL(&buf, tris); err != nil {
		return nil, Wrap(err, KindInternal, CompExporter, "writing STL")
	}
	st := render.Stats(tris)
	e.logger().Debug("mesh exported", zap.Int("cells", cells), zap.Int("triangles", st.Triangles), zap.Float64("volume", st.Volume))
	return &MeshResult{
		STL:      buf.Bytes(),
		Stats:    st,
		Cells:    cells,
		CellSize: oc.CellSize(),
		Notes:    notes,
	}, nil
}

func (e *Exporter) maxCells() int {
	if e.MaxCells > 0 {
		return e.MaxCells
	}
	return DefaultMaxCells
}

func (e *Exporter) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
