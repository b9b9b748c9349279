package shaper

// Clamp limits x to [lo, hi]. lo must not exceed hi.
func Clamp(x, lo, hi float64) float64 {
	switch {
	case x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}
