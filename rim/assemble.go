package rim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/megashaper/shaper"
	"github.com/megashaper/shaper/internal/d3"
	"github.com/megashaper/shaper/render"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCheckCells is the least sampling density of the manifold check run
// after every boolean step.
const DefaultCheckCells = 32

// samplesAcross is how many leaf cells every mesh fits across the thinnest
// section. Coarser sampling breaks thin walls into separate shells.
const samplesAcross = 2

// Solid is the assembled rim as a distance field.
type Solid struct {
	SDF    shaper.SDF3
	Steps  int // boolean steps applied after the revolve
	Bounds r3.Box

	// Thinnest is the narrowest solid section, set by the ThinField record
	// field. Zero when unknown.
	Thinnest  float64
	ThinField string
	thinKind  Kind
}

// meshSpan is the longest axis of the box tessellated for b.
func meshSpan(b r3.Box) float64 {
	return d3.Max(d3.Box(b).ScaleAboutCenter(1.01).Size())
}

// MinCells returns the leaf cells along the longest axis needed to resolve
// the thinnest section.
func (s *Solid) MinCells() int {
	if !(s.Thinnest > 0) {
		return 0
	}
	return int(math.Ceil(samplesAcross * meshSpan(s.Bounds) / s.Thinnest))
}

// fit fails when the thinnest section cannot be resolved within limit cells.
func (s *Solid) fit(comp Component, limit int) error {
	need := s.MinCells()
	if need <= limit {
		return nil
	}
	kind := s.thinKind
	if kind == "" {
		kind = KindDegenerate
	}
	return &Error{
		Kind:      kind,
		Component: comp,
		Msg: fmt.Sprintf("%.3g mm section needs %d cells across %.3g mm, limit %d",
			s.Thinnest, need, meshSpan(s.Bounds), limit),
		Fields: []FieldError{{
			Field:   s.ThinField,
			Message: fmt.Sprintf("leaves a %.3g mm section too thin to mesh at this part size", s.Thinnest),
		}},
	}
}

// Assembler revolves a profile and subtracts features from it.
type Assembler struct {
	// CheckCells is the least octree resolution of intermediate manifold
	// checks; thin sections raise it. Zero uses DefaultCheckCells, negative
	// disables the checks.
	CheckCells int
	// MaxCells caps the resolution any mesh of the solid may need. Zero uses
	// DefaultMaxCells.
	MaxCells int
	Logger   *zap.Logger
}

// Assemble revolves p a full turn and subtracts every feature in order. The
// result is checked to be a single closed outward mesh after the revolve and
// after each subtraction.
func (a *Assembler) Assemble(ctx context.Context, p *Profile, fs FeatureSet) (*Solid, error) {
	log := a.logger()
	prof, err := p.SDF()
	if err != nil {
		return nil, Wrap(err, KindDegenerate, CompAssembler, "profile polygon")
	}
	var s shaper.SDF3 = shaper.Revolve3D(prof)
	sol := &Solid{
		Bounds:    s.Bounds(),
		Thinnest:  p.Layout.Thinnest,
		ThinField: p.Layout.ThinField,
		thinKind:  KindDegenerate,
	}
	if fs.Ligament > 0 && (sol.ThinField == "" || fs.Ligament < sol.Thinnest) {
		sol.Thinnest, sol.ThinField, sol.thinKind = fs.Ligament, "hole_dia", KindHoleOverlap
	}
	if err := sol.fit(CompAssembler, a.maxCells()); err != nil {
		return nil, err
	}
	cells := a.checkCells(sol)
	if err := a.check(ctx, s, cells, 0, "revolve"); err != nil {
		return nil, err
	}
	for i, f := range fs.Features {
		cut, err := f.SDF()
		if err != nil {
			return nil, Wrap(err, KindInternal, CompAssembler, "feature "+f.Name)
		}
		s = shaper.Difference3D(s, cut)
		if err := a.check(ctx, s, cells, i+1, f.Name); err != nil {
			return nil, err
		}
	}
	log.Debug("solid assembled", zap.Int("steps", len(fs.Features)),
		zap.Float64("thinnest", sol.Thinnest), zap.String("thin_field", sol.ThinField))
	sol.SDF, sol.Steps = s, len(fs.Features)
	return sol, nil
}

// checkCells returns the check resolution, negative when checks are off.
func (a *Assembler) checkCells(s *Solid) int {
	cells := a.CheckCells
	if cells == 0 {
		cells = DefaultCheckCells
	}
	if cells < 0 {
		return cells
	}
	return max(cells, s.MinCells())
}

func (a *Assembler) maxCells() int {
	if a.MaxCells > 0 {
		return a.MaxCells
	}
	return DefaultMaxCells
}

func (a *Assembler) check(ctx context.Context, s shaper.SDF3, cells, step int, name string) error {
	if err := ctx.Err(); err != nil {
		return contextError(err, CompAssembler)
	}
	if cells < 0 {
		return nil
	}
	tris, err := render.RenderAll(ctx, render.NewOctreeRenderer(s, cells))
	if err != nil {
		return contextError(err, CompAssembler)
	}
	if err := render.CheckManifold(tris); err != nil {
		a.logger().Error("non-manifold intermediate solid",
			zap.Int("step", step), zap.String("operation", name), zap.Int("cells", cells),
			zap.Int("triangles", len(tris)), zap.Error(err))
		return &Error{Kind: KindNonManifold, Component: CompAssembler, Msg: "after " + name, Err: err}
	}
	return nil
}

func (a *Assembler) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// contextError maps context expiry to Timeout. Cancellation by the caller is
// reported the same way since the computation was abandoned.
func contextError(err error, comp Component) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Component: comp, Msg: "computation budget exceeded", Err: err}
	}
	return Wrap(err, KindInternal, comp, "")
}
