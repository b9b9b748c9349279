// Package matter holds material and printer rules that turn nominal
// dimensions into printable ones.
package matter

import "math"

var (
	// PLA (polylactic acid) is the most widely used plastic filament material in 3D printing.
	PLA = ViscousMaterial{shrink: 0.2e-2, pullShrink: .45} // 0.2% shrinkage
)

type ViscousMaterial struct {
	// shrink is the thermal contraction shrinkage of a material once the material
	// cools to room temperature after the heated bed is turned off.
	shrink float64
	// pullShrink takes into account viscoelastic shrinkage.
	pullShrink float64
}

// InternalDimScale returns the dimension to model so an internal feature
// such as a hole prints at the real size.
func (m ViscousMaterial) InternalDimScale(real float64) float64 {
	if real <= 0 {
		panic("InternalDimScale only works for non-zero dimensions")
	}
	return real*(m.shrink+1) + m.pullShrink
}

// Printer describes the resolution of an FDM printer.
type Printer struct {
	Layer  float64 // layer height
	Nozzle float64 // extrusion width
}

// Wall returns the thickness of a wall made of the given amount of perimeters.
func (p Printer) Wall(perimeters int) float64 {
	return float64(perimeters) * p.Nozzle
}

// RoundUpLayers returns the smallest whole number of layers at least h tall.
func (p Printer) RoundUpLayers(h float64) float64 {
	n := math.Ceil(h/p.Layer - 1e-9)
	if n < 1 {
		n = 1
	}
	return n * p.Layer
}

// Resolution is the finest feature size the printer reproduces. An
// extrusion draws nothing narrower than its own width.
func (p Printer) Resolution() float64 {
	return p.Nozzle
}
