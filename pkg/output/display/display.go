// Package display draws the measurement and its colour bands on a small
// monochrome panel.
package display

import (
	"fmt"
	"math"

	"github.com/ericogr/ohmmeter/pkg/output"
	"github.com/ericogr/ohmmeter/pkg/resistor"
)

// Panel is the drawing surface. Coordinates are pixels from the top-left
// corner; text is placed by the top-left of its first glyph.
type Panel interface {
	Fill(on bool)
	Rect(x, y, w, h int, on bool)
	Line(x0, y0, x1, y1 int, on bool)
	DrawText(s string, x, y int)
	Flush() error
	Close() error
}

// Band label slots.
var bandSlots = [3]struct{ X, Y int }{{23, 20}, {53, 20}, {83, 20}}

type DisplayOutput struct {
	panel Panel
}

func New(p Panel) output.Output { return &DisplayOutput{panel: p} }

func (d *DisplayOutput) Publish(m resistor.Measurement) error {
	p := d.panel
	p.Fill(false)
	p.Rect(3, 3, 122, 60, true)
	p.Line(3, 37, 123, 37, true)
	p.DrawText(fmt.Sprintf("%.0f", m.Nominal), 8, 6)
	for i, slot := range bandSlots {
		p.DrawText(m.Labels[i], slot.X, slot.Y)
	}
	p.DrawText("ADC", 13, 39)
	p.DrawText("Resisten.", 50, 39)
	p.Line(44, 37, 44, 60, true)
	p.DrawText(fmt.Sprintf("%.0f", m.Average), 8, 51)
	p.DrawText(resistanceText(m), 59, 51)
	return p.Flush()
}

func (d *DisplayOutput) Close() error { return d.panel.Close() }

func resistanceText(m resistor.Measurement) string {
	if m.OpenCircuit || math.IsInf(m.Resistance, 0) || math.IsNaN(m.Resistance) {
		return "OL"
	}
	return fmt.Sprintf("%.0f", m.Resistance)
}
