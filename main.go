package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericogr/ohmmeter/pkg/config"
	"github.com/ericogr/ohmmeter/pkg/logging"
	"github.com/ericogr/ohmmeter/pkg/meter"
	"github.com/ericogr/ohmmeter/pkg/output/console"
	"github.com/ericogr/ohmmeter/pkg/output/display"
	"github.com/ericogr/ohmmeter/pkg/output/httpapi"
	"github.com/ericogr/ohmmeter/pkg/output/lightstrip"
	"github.com/ericogr/ohmmeter/pkg/output/mqtt"
	"github.com/ericogr/ohmmeter/pkg/reset"
	"github.com/ericogr/ohmmeter/pkg/sensor"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Errorw("ohmmeter stopped", "error", err)
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reset.Start(ctx, cfg.Reset, log); err != nil {
		return fmt.Errorf("reset button: %w", err)
	}

	src, err := sensor.New(cfg)
	if err != nil {
		return fmt.Errorf("sensor: %w", err)
	}
	defer src.Close()

	entries, err := initOutputs(cfg, log)
	if err != nil {
		return err
	}
	m := meter.New(cfg, src, entries, log)
	defer func() {
		if err := m.Close(); err != nil {
			log.Warnw("closing outputs", "error", err)
		}
	}()

	log.Infow("starting", "sensor", cfg.SensorType, "cycle", cycleDuration(cfg))
	return m.Run(ctx)
}

// cycleDuration is the nominal time between two published measurements.
func cycleDuration(cfg config.Config) time.Duration {
	burst := time.Duration(cfg.SampleCount) * time.Duration(cfg.SampleDelayMs) * time.Millisecond
	return burst + time.Duration(cfg.IntervalMs)*time.Millisecond
}

// initOutputs creates one output per configured entry, in order. If any of
// them fails the ones already opened are closed again.
func initOutputs(cfg config.Config, log *zap.SugaredLogger) ([]meter.Entry, error) {
	entries := make([]meter.Entry, 0, len(cfg.Outputs))
	fail := func(err error) ([]meter.Entry, error) {
		var errs []error
		for _, e := range entries {
			errs = append(errs, e.Output.Close())
		}
		return nil, errors.Join(append([]error{err}, errs...)...)
	}
	for _, o := range cfg.Outputs {
		switch o.Type {
		case config.OutputConsole:
			entries = append(entries, meter.Entry{Name: o.Type, Output: console.NewConsole()})
		case config.OutputDisplay:
			dc := config.DisplayConfig{I2CBus: "1", Width: 128, Height: 64}
			if o.Display != nil {
				dc = *o.Display
			}
			panel, err := display.NewSSD1306(dc)
			if err != nil {
				return fail(fmt.Errorf("display: %w", err))
			}
			entries = append(entries, meter.Entry{Name: o.Type, Output: display.New(panel)})
		case config.OutputLightStrip:
			var lc config.LightStripConfig
			if o.LightStrip != nil {
				lc = *o.LightStrip
			}
			out, err := lightstrip.NewFromConfig(lc, log)
			if err != nil {
				return fail(err)
			}
			entries = append(entries, meter.Entry{Name: o.Type, Output: out})
		case config.OutputMQTT:
			var mc config.MQTTConfig
			if o.MQTT != nil {
				mc = *o.MQTT
			}
			out, err := mqtt.NewMQTT(mc, log)
			if err != nil {
				return fail(err)
			}
			entries = append(entries, meter.Entry{Name: o.Type, Output: out, Interval: outputInterval(o)})
		case config.OutputHTTP:
			addr := ""
			if o.HTTP != nil {
				addr = o.HTTP.Listen
			}
			out, err := httpapi.New(addr, log)
			if err != nil {
				return fail(fmt.Errorf("http: %w", err))
			}
			entries = append(entries, meter.Entry{Name: o.Type, Output: out, Interval: outputInterval(o)})
		default:
			return fail(fmt.Errorf("unknown output type %q", o.Type))
		}
	}
	return entries, nil
}

// outputInterval is the publish throttle of a network output. The panel and
// the light strip always follow the latest measurement.
func outputInterval(o config.OutputConfig) time.Duration {
	return time.Duration(o.IntervalMs) * time.Millisecond
}
