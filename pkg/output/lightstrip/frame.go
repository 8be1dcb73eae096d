// Package lightstrip shows the colour bands on a strip of addressable LEDs.
package lightstrip

import (
	"fmt"
	"math"

	"github.com/ericogr/ohmmeter/pkg/resistor"
)

const (
	// FrameSize is the number of pixels on the strip (a 5x5 matrix).
	FrameSize = 25

	PixelDigit1     = 11
	PixelDigit2     = 12
	PixelMultiplier = 13
)

// Pixel is a device colour with 8 bits per channel.
type Pixel struct {
	R, G, B uint8
}

// Word packs the pixel in the strip's wire order: green, red, blue.
func (p Pixel) Word() uint32 {
	return uint32(p.G)<<16 | uint32(p.R)<<8 | uint32(p.B)
}

// Frame is a complete strip image. It is rebuilt and sent in full every cycle.
type Frame [FrameSize]Pixel

// PercentToByte converts a channel percentage into device intensity.
func PercentToByte(p float64) uint8 {
	if !(p > 0) {
		return 0
	}
	if p >= 100 {
		return 255
	}
	return uint8(math.Round(255 * p / 100))
}

// PixelFor returns the device colour of c.
func PixelFor(c resistor.Color) Pixel {
	rgb := c.RGB()
	return Pixel{R: PercentToByte(rgb.R), G: PercentToByte(rgb.G), B: PercentToByte(rgb.B)}
}

// BuildFrame lights the three reserved pixels with the band colours and
// leaves every other pixel off.
func BuildFrame(b resistor.Bands) (Frame, error) {
	var f Frame
	cs, err := b.Colors()
	if err != nil {
		return f, fmt.Errorf("build frame: %w", err)
	}
	f[PixelDigit1] = PixelFor(cs[0])
	f[PixelDigit2] = PixelFor(cs[1])
	f[PixelMultiplier] = PixelFor(cs[2])
	return f, nil
}

// Words returns the frame in transmission form.
func (f Frame) Words() []uint32 {
	out := make([]uint32, len(f))
	for i, p := range f {
		out[i] = p.Word()
	}
	return out
}
