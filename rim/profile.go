package rim

import (
	"math"

	"github.com/megashaper/shaper"
	"github.com/megashaper/shaper/form2"
	"github.com/megashaper/shaper/internal/d2"
	"gonum.org/v1/gonum/spatial/r2"
)

// Perimeters per rim wall. Hub and barrel walls are this many extrusions wide.
const wallPerimeters = 3

// geomTol is the length below which two profile points are considered equal.
const geomTol = 1e-9

// Layout locates the rim walls in the (r, z) plane. r is radial, z axial.
type Layout struct {
	AxleR        float64 // bore radius
	HubOuterR    float64
	BarrelInnerR float64
	OuterR       float64 // barrel outer radius, excluding shoulder
	Width        float64

	HubZ0, HubZ1       float64 // axial extent of the hub
	WebBarrelZ0        float64 // web faces where they meet the barrel
	WebBarrelZ1        float64
	WebHubZ0, WebHubZ1 float64 // web faces where they meet the hub

	// Thinnest is the narrowest solid section of the profile and
	// ThinField the record field that sets it.
	Thinnest  float64
	ThinField string
}

// thinner records t as the narrowest section when it is clearly below the
// current one. Ties keep the field recorded first.
func (l *Layout) thinner(t float64, field string) {
	if l.ThinField == "" || t < l.Thinnest-geomTol {
		l.Thinnest, l.ThinField = t, field
	}
}

// Profile is a closed counter-clockwise cross section revolved about the z axis.
type Profile struct {
	Points []r2.Vec // x is radius, y is axial position
	Layout Layout
}

// SDF returns the distance field of the profile polygon.
func (p *Profile) SDF() (shaper.SDF2, error) {
	return form2.Polygon(p.Points)
}

// Bounds returns the bounding box of the profile points.
func (p *Profile) Bounds() r2.Box {
	set := d2.Set(p.Points)
	return r2.Box{Min: set.Min(), Max: set.Max()}
}

// BuildProfile computes the rim cross section: axle bore, hub, dished web,
// barrel and, when its height is positive, a shoulder on the outer barrel.
func BuildProfile(d RimDesign) (*Profile, error) {
	wall := d.Print.Wall(wallPerimeters)
	web := d.Print.RoundUpLayers(wall)
	l := Layout{
		AxleR:        d.AxleDia / 2,
		OuterR:       d.WheelDia / 2,
		Width:        d.Width,
		WebBarrelZ0:  d.BackSpacing,
		WebBarrelZ1:  d.BackSpacing + web,
		WebHubZ0:     d.BackSpacing + d.ConvexDepth,
		WebHubZ1:     d.BackSpacing + d.ConvexDepth + web,
		HubZ0:        0,
		HubZ1:        math.Max(d.Width, d.BackSpacing+d.ConvexDepth+web),
		BarrelInnerR: d.WheelDia/2 - wall,
	}
	l.HubOuterR = l.AxleR + wall
	if l.HubOuterR >= l.BarrelInnerR {
		return nil, newError(KindDegenerate, CompProfile,
			"hub outer radius %.3g reaches barrel inner radius %.3g", l.HubOuterR, l.BarrelInnerR)
	}
	l.thinner(wall, "nzl_wdt")
	// The dished web is a slanted slab; its thickness is measured normal to it.
	span := l.BarrelInnerR - l.HubOuterR
	l.thinner(web*span/math.Hypot(span, d.ConvexDepth), "cnv_dtp")
	if l.WebBarrelZ1 > d.Width+geomTol {
		return nil, newError(KindDegenerate, CompProfile,
			"web at %.3g..%.3g exceeds barrel width %.3g", l.WebBarrelZ0, l.WebBarrelZ1, d.Width)
	}
	sh := d.Shoulder
	if sh.Height > 0 && sh.Position+sh.Width > d.Width+geomTol {
		return nil, newError(KindDegenerate, CompProfile,
			"shoulder at %.3g..%.3g exceeds barrel width %.3g", sh.Position, sh.Position+sh.Width, d.Width)
	}
	if sh.Height > 0 {
		l.thinner(sh.Width, "sld_wdt")
	}

	b := form2.NewPolygon()
	// hub and inner web face
	b.Add(l.AxleR, l.HubZ1)
	b.Add(l.AxleR, l.HubZ0)
	b.Add(l.HubOuterR, l.HubZ0)
	b.Add(l.HubOuterR, l.WebHubZ0)
	// barrel, back half
	b.Add(l.BarrelInnerR, l.WebBarrelZ0)
	b.Add(l.BarrelInnerR, 0)
	b.Add(l.OuterR, 0)
	if sh.Height > 0 {
		b.Add(l.OuterR, sh.Position)
		b.Add(l.OuterR+sh.Height, sh.Position)
		b.Add(l.OuterR+sh.Height, sh.Position+sh.Width)
		b.Add(l.OuterR, sh.Position+sh.Width)
	}
	b.Add(l.OuterR, d.Width)
	b.Add(l.BarrelInnerR, d.Width)
	b.Add(l.BarrelInnerR, l.WebBarrelZ1)
	// web front face back to the hub
	b.Add(l.HubOuterR, l.WebHubZ1)
	b.Add(l.HubOuterR, l.HubZ1)
	b.Close()
	pts, err := form2.Vertices(b)
	if err != nil {
		return nil, Wrap(err, KindInternal, CompProfile, "resolving profile vertices")
	}
	pts = dedup(pts)
	p := &Profile{Points: pts, Layout: l}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

// dedup drops consecutive coincident points, including the closing one.
func dedup(pts []r2.Vec) []r2.Vec {
	out := pts[:0:0]
	for _, p := range pts {
		if len(out) > 0 && d2.EqualWithin(out[len(out)-1], p, geomTol) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && d2.EqualWithin(out[0], out[len(out)-1], geomTol) {
		out = out[:len(out)-1]
	}
	return out
}

// check fails with ProfileDegenerate when the polygon is not simple and
// counter-clockwise.
func (p *Profile) check() error {
	pts := p.Points
	n := len(pts)
	if n < 3 {
		return newError(KindDegenerate, CompProfile, "profile collapsed to %d points", n)
	}
	for i := 0; i < n; i++ {
		a0, a1 := pts[i], pts[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue // adjacent edges share a vertex
			}
			b0, b1 := pts[j], pts[(j+1)%n]
			if d2.SegmentsIntersect(a0, a1, b0, b1, geomTol) {
				return newError(KindDegenerate, CompProfile,
					"edge %d (%.3g,%.3g)-(%.3g,%.3g) intersects edge %d", i, a0.X, a0.Y, a1.X, a1.Y, j)
			}
		}
	}
	// adjacent edges folding back onto each other
	for i := 0; i < n; i++ {
		prev, cur, next := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
		u, w := r2.Sub(cur, prev), r2.Sub(next, cur)
		if math.Abs(r2.Cross(u, w)) <= geomTol && r2.Dot(u, w) < 0 {
			return newError(KindDegenerate, CompProfile, "profile reverses at (%.3g,%.3g)", cur.X, cur.Y)
		}
	}
	if area := d2.Set(pts).SignedArea(); area <= 0 {
		return newError(KindDegenerate, CompProfile, "profile is not counter-clockwise (area %.3g)", area)
	}
	return nil
}
