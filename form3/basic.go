// Package form3 builds 3D primitives, reporting bad dimensions as errors.
// The panicking constructors live in form3/must3.
package form3

import (
	"fmt"

	"github.com/megashaper/shaper"
	"github.com/megashaper/shaper/form3/must3"
)

// ShapeError reports a primitive that could not be built.
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

// Cylinder returns a z-aligned cylinder centered on the origin, with edges
// rounded by round when it is positive.
func Cylinder(height, radius, round float64) (s shaper.SDF3, err error) {
	defer catch("cylinder", &err)
	return must3.Cylinder(height, radius, round), nil
}
