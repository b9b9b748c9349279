package rim_test

import (
	"math"
	"testing"

	"github.com/megashaper/shaper/internal/d2"
	"github.com/megashaper/shaper/rim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func design(t testing.TB, r rim.Record) rim.RimDesign {
	t.Helper()
	v, err := rim.Validate(r)
	require.NoError(t, err)
	d, ok := v.Design.(rim.RimDesign)
	require.True(t, ok)
	return d
}

func TestBuildProfileExample(t *testing.T) {
	p, err := rim.BuildProfile(design(t, example()))
	require.NoError(t, err)
	assert.Positive(t, d2.Set(p.Points).SignedArea(), "profile must be counter-clockwise")

	l := p.Layout
	assert.InDelta(t, 1.5, l.AxleR, 1e-12)
	assert.InDelta(t, 2.7, l.HubOuterR, 1e-12)
	assert.InDelta(t, 8.8, l.BarrelInnerR, 1e-12)
	assert.InDelta(t, 10, l.OuterR, 1e-12)

	bb := p.Bounds()
	assert.InDelta(t, 1.5, bb.Min.X, 1e-12)
	assert.InDelta(t, 11, bb.Max.X, 1e-12, "shoulder adds its height to the outer radius")
	assert.InDelta(t, 0, bb.Min.Y, 1e-12)
	assert.InDelta(t, 10, bb.Max.Y, 1e-12)

	// shoulder corners in order
	assert.Contains(t, p.Points, r2.Vec{X: 11, Y: 2})
	assert.Contains(t, p.Points, r2.Vec{X: 11, Y: 7})
	for i := 1; i < len(p.Points); i++ {
		assert.NotEqual(t, p.Points[i-1], p.Points[i], "consecutive points must differ")
	}
}

func TestBuildProfileWithoutShoulder(t *testing.T) {
	r := example()
	r.ShoulderH = 0
	p, err := rim.BuildProfile(design(t, r))
	require.NoError(t, err)
	assert.InDelta(t, 10, p.Bounds().Max.X, 1e-12)
}

func TestBuildProfileDishedWeb(t *testing.T) {
	r := example()
	r.BackSpacing = 2
	r.ConvexDepth = 3
	p, err := rim.BuildProfile(design(t, r))
	require.NoError(t, err)
	l := p.Layout
	assert.InDelta(t, 2, l.WebBarrelZ0, 1e-12)
	assert.InDelta(t, 5, l.WebHubZ0, 1e-12)
	assert.InDelta(t, l.WebBarrelZ1-l.WebBarrelZ0, l.WebHubZ1-l.WebHubZ0, 1e-12)
	assert.Positive(t, d2.Set(p.Points).SignedArea())

	sdf, err := p.SDF()
	require.NoError(t, err)
	mid := (l.HubOuterR + l.BarrelInnerR) / 2
	assert.Negative(t, sdf.Evaluate(r2.Vec{X: mid, Y: (l.WebBarrelZ0 + l.WebHubZ1) / 2}), "web interior")
	assert.Positive(t, sdf.Evaluate(r2.Vec{X: mid, Y: 9.5}), "space in front of the web")
}

func TestBuildProfileThinnestSection(t *testing.T) {
	p, err := rim.BuildProfile(design(t, example()))
	require.NoError(t, err)
	assert.Equal(t, "nzl_wdt", p.Layout.ThinField)
	assert.InDelta(t, 1.2, p.Layout.Thinnest, 1e-9)

	r := example()
	r.ConvexDepth = 8
	p, err = rim.BuildProfile(design(t, r))
	require.NoError(t, err)
	assert.Equal(t, "cnv_dtp", p.Layout.ThinField, "a steep web is thinner normal to its faces")
	assert.InDelta(t, 1.2*6.1/math.Hypot(6.1, 8), p.Layout.Thinnest, 1e-9)

	r = example()
	r.ShoulderW = 0.5
	p, err = rim.BuildProfile(design(t, r))
	require.NoError(t, err)
	assert.Equal(t, "sld_wdt", p.Layout.ThinField)
	assert.InDelta(t, 0.5, p.Layout.Thinnest, 1e-12)

	r.ShoulderH = 0
	p, err = rim.BuildProfile(design(t, r))
	require.NoError(t, err)
	assert.Equal(t, "nzl_wdt", p.Layout.ThinField, "no fin without shoulder height")
}

func TestBuildProfileDegenerate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*rim.Record)
	}{
		{"hub meets barrel", func(r *rim.Record) { r.AxleDia = 16 }},
		{"web beyond width", func(r *rim.Record) { r.BackSpacing = 9.5 }},
		{"shoulder beyond width", func(r *rim.Record) { r.WheelWidth = 8; r.ShoulderPos = 4; r.ShoulderW = 5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := example()
			tc.edit(&r)
			_, err := rim.BuildProfile(design(t, r))
			require.Error(t, err)
			assert.ErrorIs(t, err, rim.ErrDegenerate)
			assert.Equal(t, rim.CompProfile, rim.ComponentOf(err))
		})
	}
}

func TestBuildTireProfile(t *testing.T) {
	p, err := rim.BuildTireProfile(rim.TireDesign{WheelDia: 20, Width: 10, TireDia: 24})
	require.NoError(t, err)
	bb := p.Bounds()
	assert.InDelta(t, 10, bb.Min.X, 1e-12)
	assert.InDelta(t, 12, bb.Max.X, 1e-12)
	assert.Positive(t, d2.Set(p.Points).SignedArea())
	assert.Greater(t, len(p.Points), 4, "tread edges are chamfered")
	assert.Equal(t, "tre_dia", p.Layout.ThinField)
	assert.InDelta(t, 2, p.Layout.Thinnest, 1e-12)

	_, err = rim.BuildTireProfile(rim.TireDesign{WheelDia: 20, Width: 10, TireDia: 20})
	assert.ErrorIs(t, err, rim.ErrDegenerate)
}
