// Package reset watches the maintenance button and hands the device over to
// its maintenance mode when it is pressed.
//
// The watcher runs beside the measurement loop and may fire at any point of a
// cycle. It shares no state with the loop, and a production Resetter never
// returns, so no synchronisation is needed.
package reset

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ericogr/ohmmeter/pkg/config"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const pollInterval = 500 * time.Millisecond

// Resetter puts the device into maintenance mode.
type Resetter interface {
	Reset()
}

// CommandResetter runs an external command (for example a reboot into the
// bootloader) and then terminates the process.
type CommandResetter struct {
	Command []string
	log     *zap.SugaredLogger
	exit    func(int)
}

func NewCommandResetter(command []string, log *zap.SugaredLogger) *CommandResetter {
	return &CommandResetter{Command: command, log: log, exit: os.Exit}
}

func (c *CommandResetter) Reset() {
	code := 0
	if len(c.Command) > 0 {
		cmd := exec.Command(c.Command[0], c.Command[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			c.log.Errorw("maintenance command failed", "command", c.Command, "error", err)
			code = 1
		}
	}
	_ = c.log.Sync()
	c.exit(code)
}

// Watch arms pin as a pulled-up, falling-edge input and calls r.Reset on the
// first press. It returns when ctx is done or after Reset returns.
func Watch(ctx context.Context, pin gpio.PinIn, r Resetter, log *zap.SugaredLogger) error {
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("arm %s: %w", pin.Name(), err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pin.WaitForEdge(pollInterval) {
			log.Warnw("maintenance button pressed", "pin", pin.Name())
			r.Reset()
			return nil
		}
	}
}

// OpenPin looks up a GPIO by name in the periph registry. The host drivers
// must already be loaded.
func OpenPin(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown gpio %q", name)
	}
	return pin, nil
}

// Start resolves the configured pin and runs Watch in the background. An
// empty pin disables the watcher.
func Start(ctx context.Context, cfg config.ResetConfig, log *zap.SugaredLogger) error {
	if cfg.Pin == "" {
		return nil
	}
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host init: %w", err)
	}
	pin, err := OpenPin(cfg.Pin)
	if err != nil {
		return err
	}
	r := NewCommandResetter(cfg.Command, log)
	go func() {
		if err := Watch(ctx, pin, r, log); err != nil && ctx.Err() == nil {
			log.Errorw("reset watcher stopped", "pin", cfg.Pin, "error", err)
		}
	}()
	return nil
}
