package resistor

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Measurement is the outcome of one sampling cycle.
type Measurement struct {
	Timestamp   time.Time `json:"timestamp"`
	Average     float64   `json:"average"`
	StdDev      float64   `json:"stddev"`
	Voltage     float64   `json:"voltage"`
	Resistance  float64   `json:"resistance"`
	Nominal     float64   `json:"nominal"`
	OpenCircuit bool      `json:"open_circuit"`
	Bands       Bands     `json:"bands"`
	Labels      [3]string `json:"labels"`
}

// FormatOhms renders a resistance the way it is printed on schematics:
// 510R, 4k7, 10k, 1M. Non-finite values render as OL.
func FormatOhms(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "OL"
	case math.Abs(v) >= 1e6:
		return withUnit(v/1e6, "M")
	case math.Abs(v) >= 1e3:
		return withUnit(v/1e3, "k")
	default:
		return withUnit(v, "R")
	}
}

func withUnit(x float64, unit string) string {
	s := strconv.FormatFloat(math.Round(x*100)/100, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i] + unit + s[i+1:]
	}
	return s + unit
}
