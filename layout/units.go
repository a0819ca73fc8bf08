package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for font sizes and line-height.
// Card templates are authored in pixels; the canvas renderer maps one pixel to
// one canvas millimetre, so pt values convert through the mm constants below.

// Unit represents the original unit of a length value as specified in DSL.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, treated as pixels
	UnitPX               // pixels
	UnitPT               // points
)

// Conversion constants between pt and mm (= px on the card canvas).
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitPX:
		return "px"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToPX converts this length to card pixels.
func (l Length) ToPX() float64 {
	if l.Unit == UnitPT {
		return l.Value * PtToMm
	}
	return l.Value
}

// ToPT converts this length to points.
func (l Length) ToPT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.Value * MmToPt
}

// ParseLength parses a DSL length string ("40px", "30pt", "12") preserving its unit.
func ParseLength(value string) Length {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"pt", UnitPT}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}
	}
	return Length{Value: f, Unit: unit}
}

// LineHeightKind distinguishes factor-based vs absolute line-height values.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec preserves original author intent: either a factor of the
// font's line metric (e.g., 1.5x) or an absolute distance (e.g., 52px).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight parses "1.5x", "1.5" (factor) or "52px"/"30pt" (absolute).
func ParseLineHeight(value string) LineHeightSpec {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: DefaultLineHeight}
	}
	if strings.HasSuffix(v, "px") || strings.HasSuffix(v, "pt") {
		return LineHeightSpec{Kind: LineHeightAbsolute, Len: ParseLength(v)}
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64)
	if err != nil || f <= 0 {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: DefaultLineHeight}
	}
	return LineHeightSpec{Kind: LineHeightFactor, Factor: f}
}

// Resolve returns the multiplier applied to lineMetric by the box engine.
func (s LineHeightSpec) Resolve(lineMetric float64) float64 {
	switch s.Kind {
	case LineHeightFactor:
		if s.Factor > 0 {
			return s.Factor
		}
	case LineHeightAbsolute:
		if lineMetric > 0 {
			return s.Len.ToPX() / lineMetric
		}
	}
	return DefaultLineHeight
}
