// Package form2 builds 2D shapes, reporting bad input as errors. The
// panicking constructors live in form2/must2.
package form2

import (
	"fmt"

	"github.com/megashaper/shaper"
	"github.com/megashaper/shaper/form2/must2"
	"gonum.org/v1/gonum/spatial/r2"
)

// ShapeError reports a shape that could not be built.
type ShapeError struct {
	Op     string
	Reason any
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Reason)
}

func catch(op string, err *error) {
	if r := recover(); r != nil {
		*err = &ShapeError{Op: op, Reason: r}
	}
}

// Polygon returns the SDF2 of the closed polygon through vertex.
func Polygon(vertex []r2.Vec) (s shaper.SDF2, err error) {
	defer catch("polygon", &err)
	return must2.Polygon(vertex), nil
}

// NewPolygon returns an empty polygon builder.
func NewPolygon() *must2.PolygonBuilder {
	return must2.NewPolygon()
}

// Vertices resolves the builder's chamfers into a vertex list.
func Vertices(p *must2.PolygonBuilder) (v []r2.Vec, err error) {
	defer catch("polygon vertices", &err)
	return p.Vertices(), nil
}
