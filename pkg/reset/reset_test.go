package reset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ericogr/ohmmeter/pkg/config"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type countingResetter struct {
	calls int
}

func (c *countingResetter) Reset() { c.calls++ }

// pressedPin delivers one falling edge as soon as Watch arms it. Arming
// flushes edges queued before it.
type pressedPin struct {
	*gpiotest.Pin
}

func (p *pressedPin) In(pull gpio.Pull, edge gpio.Edge) error {
	if err := p.Pin.In(pull, edge); err != nil {
		return err
	}
	p.EdgesChan <- gpio.Low
	return nil
}

func TestWatchResetsOnEdge(t *testing.T) {
	pin := &pressedPin{&gpiotest.Pin{N: "GPIO6", EdgesChan: make(chan gpio.Level, 1)}}
	r := &countingResetter{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Watch(ctx, pin, r, zap.NewNop().Sugar()); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("Reset calls: got %d want 1", r.calls)
	}
	pin.Lock()
	pull := pin.P
	pin.Unlock()
	if pull != gpio.PullUp {
		t.Fatalf("pin pull: got %v want PullUp", pull)
	}
}

func TestOpenPin(t *testing.T) {
	p := &gpiotest.Pin{N: "OHM_RESET_BTN", Num: 9006}
	if err := gpioreg.Register(p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	t.Cleanup(func() { _ = gpioreg.Unregister("OHM_RESET_BTN") })
	got, err := OpenPin("OHM_RESET_BTN")
	if err != nil {
		t.Fatalf("OpenPin: %v", err)
	}
	if got.Name() != "OHM_RESET_BTN" {
		t.Fatalf("OpenPin returned %s", got.Name())
	}
	if _, err := OpenPin("OHM_NO_SUCH_PIN"); err == nil {
		t.Fatalf("expected error for unknown pin")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO6", EdgesChan: make(chan gpio.Level)}
	r := &countingResetter{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Watch(ctx, pin, r, zap.NewNop().Sugar())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Watch: got %v want DeadlineExceeded", err)
	}
	if r.calls != 0 {
		t.Fatalf("Reset called without a press")
	}
}

func TestCommandResetter(t *testing.T) {
	code := -1
	r := NewCommandResetter([]string{"true"}, zap.NewNop().Sugar())
	r.exit = func(c int) { code = c }
	r.Reset()
	if code != 0 {
		t.Fatalf("exit code: got %d want 0", code)
	}

	r = NewCommandResetter([]string{"/nonexistent/maintenance"}, zap.NewNop().Sugar())
	r.exit = func(c int) { code = c }
	r.Reset()
	if code != 1 {
		t.Fatalf("exit code: got %d want 1", code)
	}
}

func TestStartDisabled(t *testing.T) {
	if err := Start(context.Background(), config.ResetConfig{}, zap.NewNop().Sugar()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}
