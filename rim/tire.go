package rim

import (
	"math"

	"github.com/megashaper/shaper/form2"
)

// BuildTireProfile returns the tire cross section: a band from the wheel to
// the tire radius over the wheel width with chamfered tread edges.
func BuildTireProfile(d TireDesign) (*Profile, error) {
	ri, ro := d.WheelDia/2, d.TireDia/2
	thick := ro - ri
	if thick <= geomTol {
		return nil, newError(KindDegenerate, CompProfile, "tire diameter %.4g leaves no tread over wheel diameter %.4g", d.TireDia, d.WheelDia)
	}
	chamfer := 0.25 * math.Min(thick, d.Width)
	b := form2.NewPolygon()
	b.Add(ri, 0)
	b.Add(ro, 0).Chamfer(chamfer)
	b.Add(ro, d.Width).Chamfer(chamfer)
	b.Add(ri, d.Width)
	b.Close()
	pts, err := form2.Vertices(b)
	if err != nil {
		return nil, Wrap(err, KindInternal, CompProfile, "resolving tire vertices")
	}
	l := Layout{AxleR: ri, OuterR: ro, Width: d.Width, HubZ1: d.Width}
	l.thinner(thick, "tre_dia")
	l.thinner(d.Width, "whl_wdt")
	p := &Profile{Points: dedup(pts), Layout: l}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}
