package sensor

import (
	"math"
	"math/rand"
	"sync"

	"github.com/ericogr/ohmmeter/pkg/config"
)

// SimulatedSource produces the code a divider would report for a fixed
// resistor, with optional uniform noise of +/- Noise codes.
type SimulatedSource struct {
	resistance float64
	known      float64
	fullScale  int
	noise      int
	mu         sync.Mutex
	rnd        *rand.Rand
}

func NewSimulatedSource(cfg config.Config) Source {
	return &SimulatedSource{
		resistance: cfg.Simulation.Resistance,
		known:      cfg.KnownResistance,
		fullScale:  cfg.FullScale,
		noise:      cfg.Simulation.Noise,
		rnd:        rand.New(rand.NewSource(cfg.Simulation.Seed)),
	}
}

func (f *SimulatedSource) ReadRaw() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code := f.ideal()
	if f.noise > 0 {
		code += f.rnd.Intn(2*f.noise+1) - f.noise
	}
	if code < 0 {
		code = 0
	}
	if code > f.fullScale {
		code = f.fullScale
	}
	return code, nil
}

// ideal is the noiseless code; an infinite resistance reads full scale.
func (f *SimulatedSource) ideal() int {
	if math.IsInf(f.resistance, 1) {
		return f.fullScale
	}
	return int(math.Round(float64(f.fullScale) * f.resistance / (f.resistance + f.known)))
}

func (f *SimulatedSource) Close() error { return nil }
