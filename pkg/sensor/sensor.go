// Package sensor acquires raw codes from the divider's analog input.
package sensor

import (
	"fmt"

	"github.com/ericogr/ohmmeter/pkg/config"
)

// Source returns single conversions from one analog channel. The channel is
// selected when the source is built.
type Source interface {
	ReadRaw() (int, error)
	Close() error
}

// New builds the source selected by cfg.SensorType.
func New(cfg config.Config) (Source, error) {
	switch cfg.SensorType {
	case config.SensorReal:
		return NewADS1115Source(cfg)
	case config.SensorSimulation:
		return NewSimulatedSource(cfg), nil
	default:
		return nil, fmt.Errorf("unknown sensor type %q", cfg.SensorType)
	}
}
