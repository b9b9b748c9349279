package rim

import (
	"fmt"
	"math"

	"github.com/megashaper/shaper/helpers/matter"
)

// Printable ranges. Values outside are clamped with a warning.
const (
	MinLayer  = 0.04
	MaxLayer  = 1.0
	MinNozzle = 0.1
	MaxNozzle = 2.0

	// Used when the record leaves print settings unset (zero).
	DefaultLayer  = 0.12
	DefaultNozzle = 0.4

	MaxHoles = 64
)

type validator struct {
	fields   []FieldError
	warnings []string
}

func (v *validator) fail(field, format string, args ...any) {
	v.fields = append(v.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) warn(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) finite(field string, x float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		v.fail(field, "must be a finite number")
		return false
	}
	return true
}

func (v *validator) positive(field string, x float64) {
	if v.finite(field, x) && x <= 0 {
		v.fail(field, "must be > 0, got %g", x)
	}
}

// nonNegative clamps negative values to zero with a warning.
func (v *validator) nonNegative(field string, x float64) float64 {
	if !v.finite(field, x) {
		return 0
	}
	if x < 0 {
		v.warn("%s %g clamped to 0", field, x)
		return 0
	}
	return x
}

// printSetting clamps a print setting into [lo, hi]. Zero means unset.
func (v *validator) printSetting(field string, x, lo, hi, def float64) float64 {
	if !v.finite(field, x) {
		return def
	}
	switch {
	case x == 0:
		return def
	case x < lo:
		v.warn("%s %g clamped to minimum %g", field, x, lo)
		return lo
	case x > hi:
		v.warn("%s %g clamped to maximum %g", field, x, hi)
		return hi
	}
	return x
}

// Validate normalizes a wire record into a Design. Every violated constraint
// is reported in the returned *Error, not just the first.
func Validate(r Record) (Validated, error) {
	r = r.canonical()
	v := &validator{}
	var d Design
	switch Part(r.GeoPart) {
	case PartRim:
		d = v.rim(r)
	case PartTire:
		d = v.tire(r)
	default:
		v.fail("geo_part", "unknown part %q, want rim or tire", r.GeoPart)
	}
	if len(v.fields) > 0 {
		return Validated{}, &Error{
			Kind:      KindValidation,
			Component: CompValidator,
			Msg:       fmt.Sprintf("%d invalid field(s)", len(v.fields)),
			Fields:    v.fields,
		}
	}
	return Validated{Design: d, Warnings: v.warnings}, nil
}

func (v *validator) wheel(r Record) {
	v.positive("whl_dia", r.WheelDia)
	v.positive("whl_wdt", r.WheelWidth)
	if v.finite("tre_dia", r.TireDia) && r.TireDia < r.WheelDia {
		v.fail("tre_dia", "tire diameter %g smaller than wheel diameter %g", r.TireDia, r.WheelDia)
	}
}

func (v *validator) tire(r Record) Design {
	v.wheel(r)
	return TireDesign{WheelDia: r.WheelDia, Width: r.WheelWidth, TireDia: r.TireDia}
}

func (v *validator) rim(r Record) Design {
	v.wheel(r)
	v.positive("axl_dia", r.AxleDia)
	if r.AxleDia >= r.WheelDia && r.WheelDia > 0 {
		v.fail("axl_dia", "axle diameter %g not smaller than wheel diameter %g", r.AxleDia, r.WheelDia)
	}
	d := RimDesign{
		WheelDia:    r.WheelDia,
		AxleDia:     r.AxleDia,
		Width:       r.WheelWidth,
		TireDia:     r.TireDia,
		BackSpacing: v.nonNegative("bck_spc", r.BackSpacing),
		ConvexDepth: v.nonNegative("cnv_dtp", r.ConvexDepth),
		Shoulder: Shoulder{
			Height:   v.nonNegative("sld_hgt", r.ShoulderH),
			Width:    r.ShoulderW,
			Position: r.ShoulderPos,
		},
		Print: matter.Printer{
			Layer:  v.printSetting("lyr_hgt", r.LayerHeight, MinLayer, MaxLayer, DefaultLayer),
			Nozzle: v.printSetting("nzl_wdt", r.NozzleWidth, MinNozzle, MaxNozzle, DefaultNozzle),
		},
	}
	if v.finite("sld_pos", r.ShoulderPos) && r.ShoulderPos < 0 {
		v.fail("sld_pos", "must be >= 0, got %g", r.ShoulderPos)
	}
	if v.finite("sld_wdt", r.ShoulderW) && r.ShoulderW < 0 {
		v.fail("sld_wdt", "must be >= 0, got %g", r.ShoulderW)
	}
	if d.Shoulder.Height > 0 && r.ShoulderW == 0 {
		v.fail("sld_wdt", "must be > 0 when sld_hgt > 0")
	}
	if r.ShoulderPos+r.ShoulderW > r.WheelDia/2 {
		v.fail("sld_wdt", "shoulder position + width %g exceeds wheel radius %g", r.ShoulderPos+r.ShoulderW, r.WheelDia/2)
	}
	d.Style = v.style(r)
	return d
}

func (v *validator) style(r Record) Style {
	switch r.SpokeDropdown {
	case "SpeedDisk":
		return SpeedDisk{}
	case "Spokes":
		return Spokes{}
	case "LamboStyle":
	default:
		v.fail("spoke_dropdown", "unknown family %q, want SpeedDisk, LamboStyle or Spokes", r.SpokeDropdown)
		return nil
	}
	s := LamboStyle{PitchRadius: r.MainDia, HoleDia: r.HoleDia}
	if v.finite("n_holes", r.Holes) {
		switch {
		case r.Holes != math.Trunc(r.Holes):
			v.fail("n_holes", "must be a whole number, got %g", r.Holes)
		case r.Holes < 1:
			v.fail("n_holes", "must be >= 1, got %g", r.Holes)
		case r.Holes > MaxHoles:
			v.fail("n_holes", "must be <= %d, got %g", MaxHoles, r.Holes)
		default:
			s.Holes = int(r.Holes)
		}
	}
	v.positive("main_dia", r.MainDia)
	v.positive("hole_dia", r.HoleDia)
	return s
}
