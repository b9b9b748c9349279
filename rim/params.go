// Package rim turns wheel parameter records into printable rim and tire meshes.
//
// A request flows through Validate, BuildProfile, GenerateFeatures,
// Assemble and Export. Every stage returns an *Error naming its kind
// and component on failure.
package rim

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/megashaper/shaper/helpers/matter"
	"github.com/titanous/json5"
)

// Record is the wire parameter record sent by the dashboard. Lengths in mm.
type Record struct {
	GeoPart       string  `json:"geo_part"`
	WheelDia      float64 `json:"whl_dia"`
	AxleDia       float64 `json:"axl_dia"`
	WheelWidth    float64 `json:"whl_wdt"`
	TireDia       float64 `json:"tre_dia"`
	BackSpacing   float64 `json:"bck_spc"`
	ConvexDepth   float64 `json:"cnv_dtp"`
	ShoulderH     float64 `json:"sld_hgt"`
	ShoulderW     float64 `json:"sld_wdt"`
	ShoulderPos   float64 `json:"sld_pos"`
	Holes         float64 `json:"n_holes"`
	MainDia       float64 `json:"main_dia"`
	HoleDia       float64 `json:"hole_dia"`
	LayerHeight   float64 `json:"lyr_hgt"`
	NozzleWidth   float64 `json:"nzl_wdt"`
	SpokeDropdown string  `json:"spoke_dropdown"`
}

// DecodeRecord parses a JSON record. Unknown fields are rejected.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return Record{}, &Error{Kind: KindValidation, Component: CompValidator, Msg: "malformed parameter record", Err: err}
	}
	return r, nil
}

// DecodeRecordFile parses a hand-written parameter file. Files may use JSON5
// comments, unquoted keys and trailing commas; the record is otherwise held
// to the same rules as DecodeRecord.
func DecodeRecordFile(data []byte) (Record, error) {
	var v map[string]any
	if err := json5.Unmarshal(data, &v); err != nil {
		return Record{}, &Error{Kind: KindValidation, Component: CompValidator, Msg: "malformed parameter file", Err: err}
	}
	strict, err := json.Marshal(v)
	if err != nil {
		return Record{}, &Error{Kind: KindValidation, Component: CompValidator, Msg: "malformed parameter file", Err: err}
	}
	return DecodeRecord(strict)
}

// canonical returns the record with spelling variants folded.
func (r Record) canonical() Record {
	r.GeoPart = strings.ToLower(strings.TrimSpace(r.GeoPart))
	if r.GeoPart == "" {
		r.GeoPart = string(PartRim)
	}
	r.SpokeDropdown = strings.ReplaceAll(strings.TrimSpace(r.SpokeDropdown), " ", "")
	return r
}

// Key is the SHA-256 of the canonical JSON encoding. Identical requests
// share a key regardless of field order on the wire.
func (r Record) Key() string {
	c := r.canonical()
	b, err := json.Marshal(c)
	if err != nil {
		// NaN and Inf have no JSON encoding.
		b = []byte(fmt.Sprintf("%#v", c))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Part selects rim or tire generation.
type Part string

const (
	PartRim  Part = "rim"
	PartTire Part = "tire"
)

// Design is a validated, normalized request. It is either RimDesign or TireDesign.
type Design interface {
	Part() Part
	isDesign()
}

// Shoulder is the bead lip raised on the outer barrel.
type Shoulder struct {
	Height   float64
	Width    float64
	Position float64 // axial offset from the back face
}

// RimDesign is a normalized rim request.
type RimDesign struct {
	WheelDia    float64
	AxleDia     float64
	Width       float64
	TireDia     float64
	BackSpacing float64
	ConvexDepth float64
	Shoulder    Shoulder
	Print       matter.Printer
	Style       Style
}

func (RimDesign) Part() Part { return PartRim }
func (RimDesign) isDesign()  {}

// TireDesign is a normalized tire request. Tires are for visualization only.
type TireDesign struct {
	WheelDia float64
	Width    float64
	TireDia  float64
}

func (TireDesign) Part() Part { return PartTire }
func (TireDesign) isDesign()  {}

// Style is the closed set of rim families: SpeedDisk, LamboStyle or Spokes.
type Style interface {
	Family() string
	isStyle()
}

// SpeedDisk is a solid disk rim.
type SpeedDisk struct{}

// LamboStyle cuts a ring of round holes through the web.
type LamboStyle struct {
	Holes       int
	PitchRadius float64 // radius of the circle the hole centers sit on
	HoleDia     float64
}

// Spokes is reserved; no geometry is defined for it.
type Spokes struct{}

func (SpeedDisk) Family() string  { return "SpeedDisk" }
func (LamboStyle) Family() string { return "LamboStyle" }
func (Spokes) Family() string     { return "Spokes" }
func (SpeedDisk) isStyle()        {}
func (LamboStyle) isStyle()       {}
func (Spokes) isStyle()           {}

// Validated is the Validator output.
type Validated struct {
	Design   Design
	Warnings []string // clamped values, reported in the status message
}
