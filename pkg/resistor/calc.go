package resistor

import (
	"errors"
	"math"
)

var (
	ErrEmptyTable   = errors.New("resistor: empty value table")
	ErrInvalidValue = errors.New("resistor: value cannot be decoded")
	ErrColorIndex   = errors.New("resistor: colour index out of range")
)

// Resistance inverts the voltage divider. The known resistor sits on the high
// side, so the reading is proportional to the voltage across the unknown one.
// A reading equal to fullScale (open circuit) yields +Inf.
func Resistance(reading, known, fullScale float64) float64 {
	return known * reading / (fullScale - reading)
}

// Nearest returns the table entry closest to value. On equal distance the
// entry that comes first in the table wins. An infinite value (open circuit)
// maps to the largest entry.
func Nearest(value float64, table []float64) (float64, error) {
	if len(table) == 0 {
		return 0, ErrEmptyTable
	}
	if math.IsInf(value, 1) {
		best := table[0]
		for _, v := range table[1:] {
			if v > best {
				best = v
			}
		}
		return best, nil
	}

	best := table[0]
	bestDiff := math.Abs(value - table[0])
	for _, v := range table[1:] {
		if d := math.Abs(value - v); d < bestDiff {
			bestDiff = d
			best = v
		}
	}
	return best, nil
}
