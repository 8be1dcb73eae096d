// Package meter runs the measurement cycle: sample, convert, match, decode
// and publish.
package meter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ericogr/ohmmeter/pkg/config"
	"github.com/ericogr/ohmmeter/pkg/output"
	"github.com/ericogr/ohmmeter/pkg/resistor"
	"github.com/ericogr/ohmmeter/pkg/sensor"
	"go.uber.org/zap"
)

// Entry is a named output. A positive Interval skips cycles until that much
// time has passed since the entry last published.
type Entry struct {
	Name     string
	Output   output.Output
	Interval time.Duration

	last time.Time
}

func (e *Entry) due(now time.Time) bool {
	return e.Interval <= 0 || e.last.IsZero() || now.Sub(e.last) >= e.Interval
}

// Meter holds everything one cycle needs. Only the per-output publish times
// change between cycles.
type Meter struct {
	sampler   *sensor.Sampler
	table     []float64
	known     float64
	fullScale float64
	vref      float64
	interval  time.Duration
	outputs   []Entry
	log       *zap.SugaredLogger
}

func New(cfg config.Config, src sensor.Source, outputs []Entry, log *zap.SugaredLogger) *Meter {
	return &Meter{
		sampler:   sensor.NewSampler(src, cfg.SampleCount, time.Duration(cfg.SampleDelayMs)*time.Millisecond),
		table:     resistor.E24(),
		known:     cfg.KnownResistance,
		fullScale: float64(cfg.FullScale),
		vref:      cfg.ReferenceVoltage,
		interval:  time.Duration(cfg.IntervalMs) * time.Millisecond,
		outputs:   outputs,
		log:       log,
	}
}

// Measure runs one sampling burst and decodes the result.
func (m *Meter) Measure(ctx context.Context) (resistor.Measurement, error) {
	r, err := m.sampler.Sample(ctx)
	if err != nil {
		return resistor.Measurement{}, fmt.Errorf("sample: %w", err)
	}
	res := resistor.Resistance(r.Average, m.known, m.fullScale)
	nominal, err := resistor.Nearest(res, m.table)
	if err != nil {
		return resistor.Measurement{}, err
	}
	bands, err := resistor.Decode(nominal)
	if err != nil {
		return resistor.Measurement{}, err
	}
	labels, err := bands.Labels()
	if err != nil {
		return resistor.Measurement{}, err
	}
	return resistor.Measurement{
		Timestamp:   r.Timestamp,
		Average:     r.Average,
		StdDev:      r.StdDev,
		Voltage:     r.Average * m.vref / m.fullScale,
		Resistance:  res,
		Nominal:     nominal,
		OpenCircuit: r.Average >= m.fullScale || math.IsInf(res, 0) || math.IsNaN(res),
		Bands:       bands,
		Labels:      labels,
	}, nil
}

// Run measures and publishes until ctx is done. A failed cycle or output is
// logged and the loop carries on with the next cycle.
func (m *Meter) Run(ctx context.Context) error {
	m.log.Infow("meter started",
		"known_resistance", m.known,
		"full_scale", m.fullScale,
		"samples", m.sampler.Count,
		"interval", m.interval,
		"outputs", len(m.outputs))
	for {
		ms, err := m.Measure(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			m.log.Errorw("measurement failed", "error", err)
		default:
			m.publish(ms)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.interval):
		}
	}
}

func (m *Meter) publish(ms resistor.Measurement) {
	if ms.OpenCircuit {
		m.log.Debugw("open circuit", "adc", ms.Average)
	}
	m.log.Debugw("measurement",
		"adc", ms.Average,
		"stddev", ms.StdDev,
		"resistance", ms.Resistance,
		"nominal", ms.Nominal,
		"bands", ms.Bands.String())
	now := time.Now()
	for i := range m.outputs {
		e := &m.outputs[i]
		if !e.due(now) {
			continue
		}
		e.last = now
		if err := e.Output.Publish(ms); err != nil {
			m.log.Warnw("output publish failed", "output", e.Name, "error", err)
		}
	}
}

// Close closes every output.
func (m *Meter) Close() error {
	var errs []error
	for _, e := range m.outputs {
		if err := e.Output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}
