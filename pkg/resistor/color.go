package resistor

import "fmt"

// Color is one of the twelve colours used on resistor bodies. Its numeric
// value is the digit (or multiplier exponent) it encodes.
type Color int

const (
	Black Color = iota
	Brown
	Red
	Orange
	Yellow
	Green
	Blue
	Violet
	Gray
	White
	Gold
	Silver
)

// Percent is an RGB triple where each channel is expressed in percent of
// full brightness.
type Percent struct {
	R, G, B float64
}

type colorInfo struct {
	name  string
	label string
	rgb   Percent
}

var colors = [...]colorInfo{
	Black:  {"black", "PRE", Percent{0, 0, 0}},
	Brown:  {"brown", "MAR", Percent{30, 10, 0}},
	Red:    {"red", "VER", Percent{50, 0, 0}},
	Orange: {"orange", "LAR", Percent{50, 15, 0}},
	Yellow: {"yellow", "AMA", Percent{40, 40, 0}},
	Green:  {"green", "VRD", Percent{0, 50, 0}},
	Blue:   {"blue", "AZU", Percent{0, 0, 50}},
	Violet: {"violet", "VIO", Percent{25, 0, 40}},
	Gray:   {"gray", "CIN", Percent{10, 10, 10}},
	White:  {"white", "BRA", Percent{30, 30, 30}},
	Gold:   {"gold", "DOU", Percent{40, 25, 0}},
	Silver: {"silver", "PRA", Percent{20, 20, 25}},
}

// ColorAt returns the colour for index i, rejecting anything outside 0..11.
func ColorAt(i int) (Color, error) {
	if i < 0 || i >= len(colors) {
		return 0, fmt.Errorf("%w: %d", ErrColorIndex, i)
	}
	return Color(i), nil
}

func (c Color) valid() bool { return c >= 0 && int(c) < len(colors) }

// Label is the three letter abbreviation shown on the panel.
func (c Color) Label() string {
	if !c.valid() {
		return "???"
	}
	return colors[c].label
}

// RGB returns the light strip colour of c.
func (c Color) RGB() Percent {
	if !c.valid() {
		return Percent{}
	}
	return colors[c].rgb
}

func (c Color) String() string {
	if !c.valid() {
		return fmt.Sprintf("Color(%d)", int(c))
	}
	return colors[c].name
}
