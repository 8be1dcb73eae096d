// Package resistor turns divider readings into standard resistor values and
// their colour band code.
package resistor

// e24 holds the subset of the E24 series the meter can resolve, in ascending
// order. Every entry has exactly two significant digits.
var e24 = [...]float64{
	510, 560, 620, 680, 750, 820, 910,
	1000, 1100, 1200, 1300, 1500, 1600, 1800, 2000,
	2200, 2400, 2700, 3000, 3300, 3600, 3900, 4300,
	4700, 5100, 5600, 6200, 6800, 7500, 8200, 9100,
	10000, 11000, 12000, 13000, 15000, 16000, 18000,
	20000, 22000, 24000, 27000, 30000, 33000, 36000,
	39000, 43000, 47000, 51000, 56000, 62000, 68000,
	75000, 82000, 91000, 100000,
}

// E24 returns a copy of the standard value table.
func E24() []float64 {
	out := make([]float64, len(e24))
	copy(out, e24[:])
	return out
}
