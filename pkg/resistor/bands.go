package resistor

import (
	"fmt"
	"math"
)

// Bands is the two significant digits and the power of ten of a value.
type Bands struct {
	Digit1     int `json:"digit1"`
	Digit2     int `json:"digit2"`
	Multiplier int `json:"multiplier"`
}

// Decode splits a standard value into its colour bands. The value must have at
// most two significant digits; extra digits are truncated away.
func Decode(value float64) (Bands, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 1 {
		return Bands{}, fmt.Errorf("%w: %v", ErrInvalidValue, value)
	}
	v := int64(value)
	var b Bands
	for v >= 100 {
		v /= 10
		b.Multiplier++
	}
	b.Digit1 = int(v / 10)
	b.Digit2 = int(v % 10)
	if _, err := ColorAt(b.Multiplier); err != nil {
		return Bands{}, fmt.Errorf("decode %v: %w", value, err)
	}
	return b, nil
}

// Colors maps each band to its colour.
func (b Bands) Colors() ([3]Color, error) {
	var out [3]Color
	for i, idx := range [3]int{b.Digit1, b.Digit2, b.Multiplier} {
		if i < 2 && idx > 9 {
			return out, fmt.Errorf("%w: digit %d", ErrColorIndex, idx)
		}
		c, err := ColorAt(idx)
		if err != nil {
			return out, err
		}
		out[i] = c
	}
	return out, nil
}

// Labels returns the panel labels for the three bands.
func (b Bands) Labels() ([3]string, error) {
	cs, err := b.Colors()
	if err != nil {
		return [3]string{}, err
	}
	return [3]string{cs[0].Label(), cs[1].Label(), cs[2].Label()}, nil
}

// Value rebuilds the resistance encoded by the bands.
func (b Bands) Value() float64 {
	return float64(b.Digit1*10+b.Digit2) * math.Pow10(b.Multiplier)
}

func (b Bands) String() string {
	cs, err := b.Colors()
	if err != nil {
		return fmt.Sprintf("invalid(%d,%d,%d)", b.Digit1, b.Digit2, b.Multiplier)
	}
	return fmt.Sprintf("%s-%s-%s", cs[0], cs[1], cs[2])
}
