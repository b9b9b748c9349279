package rim_test

import (
	"errors"
	"math"
	"testing"

	"github.com/megashaper/shaper/rim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// example is the reference LamboStyle rim: every input within range.
func example() rim.Record {
	return rim.Record{
		GeoPart:       "rim",
		WheelDia:      20,
		AxleDia:       3,
		WheelWidth:    10,
		TireDia:       24,
		ShoulderH:     1,
		ShoulderW:     5,
		ShoulderPos:   2,
		Holes:         5,
		MainDia:       6,
		HoleDia:       5,
		SpokeDropdown: "LamboStyle",
	}
}

func fieldNames(err error) []string {
	var re *rim.Error
	if !errors.As(err, &re) {
		return nil
	}
	var names []string
	for _, f := range re.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestValidateExample(t *testing.T) {
	v, err := rim.Validate(example())
	require.NoError(t, err)
	assert.Empty(t, v.Warnings)
	d, ok := v.Design.(rim.RimDesign)
	require.True(t, ok)
	assert.Equal(t, rim.LamboStyle{Holes: 5, PitchRadius: 6, HoleDia: 5}, d.Style)
	assert.Equal(t, rim.DefaultLayer, d.Print.Layer)
	assert.Equal(t, rim.DefaultNozzle, d.Print.Nozzle)
	assert.Equal(t, rim.Shoulder{Height: 1, Width: 5, Position: 2}, d.Shoulder)
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	r := example()
	r.WheelDia = -1
	r.WheelWidth = 0
	r.HoleDia = 0
	r.Holes = 2.5
	_, err := rim.Validate(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, rim.ErrValidation)
	assert.Equal(t, rim.CompValidator, rim.ComponentOf(err))
	names := fieldNames(err)
	for _, f := range []string{"whl_dia", "whl_wdt", "n_holes", "hole_dia"} {
		assert.Contains(t, names, f)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*rim.Record)
		field string
	}{
		{"axle wider than wheel", func(r *rim.Record) { r.AxleDia = 20 }, "axl_dia"},
		{"tire smaller than wheel", func(r *rim.Record) { r.TireDia = 19 }, "tre_dia"},
		{"negative shoulder position", func(r *rim.Record) { r.ShoulderPos = -1 }, "sld_pos"},
		{"shoulder without width", func(r *rim.Record) { r.ShoulderW = 0 }, "sld_wdt"},
		{"shoulder past wheel radius", func(r *rim.Record) { r.ShoulderPos = 6; r.ShoulderW = 5 }, "sld_wdt"},
		{"zero holes", func(r *rim.Record) { r.Holes = 0 }, "n_holes"},
		{"too many holes", func(r *rim.Record) { r.Holes = rim.MaxHoles + 1 }, "n_holes"},
		{"zero pitch", func(r *rim.Record) { r.MainDia = 0 }, "main_dia"},
		{"NaN wheel", func(r *rim.Record) { r.WheelDia = math.NaN() }, "whl_dia"},
		{"unknown family", func(r *rim.Record) { r.SpokeDropdown = "Wire" }, "spoke_dropdown"},
		{"unknown part", func(r *rim.Record) { r.GeoPart = "hubcap" }, "geo_part"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := example()
			tc.edit(&r)
			_, err := rim.Validate(r)
			require.Error(t, err)
			assert.Equal(t, rim.KindValidation, rim.KindOf(err))
			assert.Contains(t, fieldNames(err), tc.field)
		})
	}
}

func TestValidateClamps(t *testing.T) {
	r := example()
	r.LayerHeight = -0.2
	r.NozzleWidth = 5
	r.BackSpacing = -1
	v, err := rim.Validate(r)
	require.NoError(t, err)
	d := v.Design.(rim.RimDesign)
	assert.Equal(t, rim.MinLayer, d.Print.Layer)
	assert.Equal(t, rim.MaxNozzle, d.Print.Nozzle)
	assert.Zero(t, d.BackSpacing)
	assert.Len(t, v.Warnings, 3)
}

func TestValidateFamilyFieldsIgnored(t *testing.T) {
	for _, family := range []string{"SpeedDisk", "Spokes", "Speed Disk"} {
		r := example()
		r.SpokeDropdown = family
		r.Holes = -3
		r.HoleDia = math.Inf(1)
		v, err := rim.Validate(r)
		require.NoError(t, err, family)
		assert.NotEqual(t, "LamboStyle", v.Design.(rim.RimDesign).Style.Family())
	}
}

func TestValidateTire(t *testing.T) {
	r := rim.Record{GeoPart: "Tire", WheelDia: 20, WheelWidth: 10, TireDia: 24, AxleDia: 99, SpokeDropdown: "nonsense"}
	v, err := rim.Validate(r)
	require.NoError(t, err)
	assert.Equal(t, rim.TireDesign{WheelDia: 20, Width: 10, TireDia: 24}, v.Design)

	r.TireDia = 18
	_, err = rim.Validate(r)
	assert.Equal(t, []string{"tre_dia"}, fieldNames(err))
}

func TestValidateInRangeHasNoWarnings(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		whl := rapid.Float64Range(10, 200).Draw(t, "whl_dia")
		r := rim.Record{
			WheelDia:      whl,
			AxleDia:       rapid.Float64Range(0.5, whl/2).Draw(t, "axl_dia"),
			WheelWidth:    rapid.Float64Range(2, 60).Draw(t, "whl_wdt"),
			TireDia:       whl + rapid.Float64Range(0, 40).Draw(t, "tread"),
			BackSpacing:   rapid.Float64Range(0, 5).Draw(t, "bck_spc"),
			LayerHeight:   rapid.Float64Range(rim.MinLayer, rim.MaxLayer).Draw(t, "lyr_hgt"),
			NozzleWidth:   rapid.Float64Range(rim.MinNozzle, rim.MaxNozzle).Draw(t, "nzl_wdt"),
			SpokeDropdown: rapid.SampledFrom([]string{"SpeedDisk", "Spokes"}).Draw(t, "family"),
		}
		v, err := rim.Validate(r)
		if err != nil {
			t.Fatalf("valid record rejected: %v", err)
		}
		if len(v.Warnings) != 0 {
			t.Fatalf("unexpected warnings %v", v.Warnings)
		}
	})
}

func TestValidatePrintSettingsAlwaysClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := example()
		r.LayerHeight = rapid.Float64Range(-10, 10).Draw(t, "lyr_hgt")
		r.NozzleWidth = rapid.Float64Range(-10, 10).Draw(t, "nzl_wdt")
		v, err := rim.Validate(r)
		if err != nil {
			t.Fatalf("print settings must clamp, not fail: %v", err)
		}
		pr := v.Design.(rim.RimDesign).Print
		if pr.Layer < rim.MinLayer || pr.Layer > rim.MaxLayer {
			t.Fatalf("layer %g out of range", pr.Layer)
		}
		if pr.Nozzle < rim.MinNozzle || pr.Nozzle > rim.MaxNozzle {
			t.Fatalf("nozzle %g out of range", pr.Nozzle)
		}
	})
}
