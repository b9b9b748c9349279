package rim

import (
	"fmt"
	"strings"
)

// StatusMessage describes a generated mesh for the response. Warnings only
// appear when the validator clamped a value.
func StatusMessage(d Design, fs FeatureSet, m *MeshResult, warnings []string) string {
	var b strings.Builder
	switch d := d.(type) {
	case RimDesign:
		fmt.Fprintf(&b, "%s rim %gx%g mm", d.Style.Family(), d.WheelDia, d.Width)
		if fs.Len() > 0 {
			fmt.Fprintf(&b, " with %d holes", fs.Len())
		}
	case TireDesign:
		fmt.Fprintf(&b, "tire %gx%g mm (visualization only)", d.TireDia, d.Width)
	}
	if m != nil {
		fmt.Fprintf(&b, ": %d triangles, %.3g mm cells", m.Stats.Triangles, m.CellSize)
		for _, n := range m.Notes {
			b.WriteString("; ")
			b.WriteString(n)
		}
	}
	if len(warnings) > 0 {
		b.WriteString("; warnings: ")
		b.WriteString(strings.Join(warnings, ", "))
	}
	return b.String()
}
