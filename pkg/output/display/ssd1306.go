package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/ericogr/ohmmeter/pkg/config"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// NewSSD1306 opens the OLED on the configured bus and returns a canvas that
// pushes the whole frame to it on Flush.
func NewSSD1306(cfg config.DisplayConfig) (Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	opts := ssd1306.DefaultOpts
	if cfg.Width > 0 {
		opts.W = cfg.Width
	}
	if cfg.Height > 0 {
		opts.H = cfg.Height
	}
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("ssd1306: %w", err)
	}
	flush := func(img image.Image) error {
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}
	closeFn := func() error {
		return errors.Join(dev.Halt(), bus.Close())
	}
	return NewCanvas(opts.W, opts.H, flush, closeFn), nil
}
