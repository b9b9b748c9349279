package d3

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Box is an axis aligned bounding box.
type Box r3.Box

// Empty returns an inverted box that the first Include replaces.
func Empty() Box {
	inf := Elem(math.Inf(1))
	return Box{Min: inf, Max: r3.Scale(-1, inf)}
}

// Include grows the box to contain v.
func (a Box) Include(v r3.Vec) Box {
	return Box{Min: minElem(a.Min, v), Max: maxElem(a.Max, v)}
}

// Size returns the edge lengths of the box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// Center returns the midpoint of the box.
func (a Box) Center() r3.Vec {
	return r3.Add(a.Min, r3.Scale(0.5, a.Size()))
}

// ScaleAboutCenter scales the box by k keeping its center fixed. Meshers
// pad the sampling volume this way so no surface lies on its boundary.
func (a Box) ScaleAboutCenter(k float64) Box {
	half := r3.Scale(0.5*k, a.Size())
	c := a.Center()
	return Box{Min: r3.Sub(c, half), Max: r3.Add(c, half)}
}
