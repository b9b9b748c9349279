package rim

import (
	"fmt"
	"math"

	"github.com/megashaper/shaper"
	"github.com/megashaper/shaper/form3"
	"github.com/megashaper/shaper/helpers/matter"
	"gonum.org/v1/gonum/spatial/r3"
)

// holeMargin extends cut cylinders past the profile so no skin is left on the faces.
const holeMargin = 1.0

// Feature is a solid primitive subtracted from the revolved profile.
type Feature struct {
	Name   string
	Angle  float64 // radians, counter-clockwise from +x
	Center r3.Vec  // center of the cylinder
	Radius float64
	Height float64 // along z
}

// SDF returns the feature as a positioned cylinder.
func (f Feature) SDF() (shaper.SDF3, error) {
	cyl, err := form3.Cylinder(f.Height, f.Radius, 0)
	if err != nil {
		return nil, err
	}
	return shaper.Translate3D(cyl, f.Center), nil
}

// FeatureSet is ordered by increasing angle starting at 0.
type FeatureSet struct {
	Features []Feature
	// Ligament is the narrowest web left between adjacent features, zero
	// when no two features neighbor each other.
	Ligament float64
}

func (fs FeatureSet) Len() int { return len(fs.Features) }

// FeatureOptions tune feature generation.
type FeatureOptions struct {
	// Material, when set, enlarges holes to compensate for shrinkage.
	Material *matter.ViscousMaterial
}

// GenerateFeatures derives the cut features of the design's family. It is a
// pure function of its inputs.
func GenerateFeatures(d RimDesign, p *Profile, opts FeatureOptions) (FeatureSet, error) {
	switch s := d.Style.(type) {
	case SpeedDisk:
		return FeatureSet{}, nil
	case LamboStyle:
		return lamboHoles(s, p, opts)
	case Spokes:
		return FeatureSet{}, newError(KindUnimplemented, CompFeatures, "Spokes family has no geometry yet")
	default:
		return FeatureSet{}, newError(KindInternal, CompFeatures, "unhandled family %T", d.Style)
	}
}

// lamboHoles places n holes evenly on the pitch circle, the first at 0°.
func lamboHoles(s LamboStyle, p *Profile, opts FeatureOptions) (FeatureSet, error) {
	n := s.Holes
	if n < 1 {
		return FeatureSet{}, newError(KindInternal, CompFeatures, "lambo style with %d holes", n)
	}
	l := p.Layout
	holeR := s.HoleDia / 2
	if n >= 2 {
		chord := 2 * s.PitchRadius * math.Sin(math.Pi/float64(n))
		if s.HoleDia > chord {
			return FeatureSet{}, newError(KindHoleOverlap, CompFeatures,
				"hole diameter %.4g exceeds chord spacing %.4g of %d holes on radius %.4g", s.HoleDia, chord, n, s.PitchRadius)
		}
	}
	if s.PitchRadius-holeR < l.HubOuterR {
		return FeatureSet{}, newError(KindHoleOverlap, CompFeatures,
			"holes reach radius %.4g inside hub wall at %.4g", s.PitchRadius-holeR, l.HubOuterR)
	}
	if s.PitchRadius+holeR > l.BarrelInnerR {
		return FeatureSet{}, newError(KindHoleOverlap, CompFeatures,
			"holes reach radius %.4g past barrel wall at %.4g", s.PitchRadius+holeR, l.BarrelInnerR)
	}
	cutR := holeR
	if opts.Material != nil {
		cutR = opts.Material.InternalDimScale(s.HoleDia) / 2
	}
	var ligament float64
	if n >= 2 {
		ligament = 2*s.PitchRadius*math.Sin(math.Pi/float64(n)) - 2*cutR
		if ligament <= geomTol {
			return FeatureSet{}, newError(KindHoleOverlap, CompFeatures,
				"shrinkage compensated holes of diameter %.4g leave no web between %d holes on radius %.4g", 2*cutR, n, s.PitchRadius)
		}
	}
	bb := p.Bounds()
	zc := (bb.Min.Y + bb.Max.Y) / 2
	height := bb.Max.Y - bb.Min.Y + 2*holeMargin
	fs := FeatureSet{Features: make([]Feature, n), Ligament: ligament}
	for k := 0; k < n; k++ {
		theta := 2 * math.Pi * float64(k) / float64(n)
		sin, cos := math.Sincos(theta)
		fs.Features[k] = Feature{
			Name:   fmt.Sprintf("hole-%d", k),
			Angle:  theta,
			Center: r3.Vec{X: s.PitchRadius * cos, Y: s.PitchRadius * sin, Z: zc},
			Radius: cutR,
			Height: height,
		}
	}
	return fs, nil
}
