package matter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter(t *testing.T) {
	p := Printer{Layer: 0.12, Nozzle: 0.4}
	assert.InDelta(t, 1.2, p.Wall(3), 1e-12)
	assert.InDelta(t, 0.4, p.Resolution(), 1e-12)

	for _, tc := range []struct{ h, want float64 }{
		{0.01, 0.12},
		{0.12, 0.12},
		{0.36, 0.36},
		{0.37, 0.48},
	} {
		assert.InDelta(t, tc.want, p.RoundUpLayers(tc.h), 1e-9, "h=%v", tc.h)
	}
}

func TestInternalDimScale(t *testing.T) {
	assert.InDelta(t, 5*1.002+0.45, PLA.InternalDimScale(5), 1e-12)
	assert.Panics(t, func() { PLA.InternalDimScale(0) })
}
