package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// ToggleInput is the physical mode-toggle control, read as a logical level.
// Edge detection (inactive→active) lives in the bridge, which compares the
// current level against the last-read one; there is no time-based debounce.
type ToggleInput interface {
	Level() bool
	Close() error
}

// gpioToggle reads a push button on a GPIO line. Active-low with pull-up,
// the usual wiring for a momentary button to ground.
type gpioToggle struct {
	line *gpiod.Line
}

func newGPIOToggle(chip string, pin int) (*gpioToggle, error) {
	line, err := gpiod.RequestLine(chip, pin, gpiod.AsInput, gpiod.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request toggle pin %d on %s: %w", pin, chip, err)
	}
	return &gpioToggle{line: line}, nil
}

func (t *gpioToggle) Level() bool {
	v, err := t.line.Value()
	if err != nil {
		return false
	}
	return v == 0 // active-low
}

func (t *gpioToggle) Close() error { return t.line.Close() }

// signalToggle stands in for the button when no GPIO is configured: each
// SIGUSR1 is one press, surfaced as a single active-level poll.
type signalToggle struct {
	pressed atomic.Bool
	ch      chan os.Signal
}

func newSignalToggle() *signalToggle {
	t := &signalToggle{ch: make(chan os.Signal, 1)}
	signal.Notify(t.ch, syscall.SIGUSR1)
	go func() {
		for range t.ch {
			t.pressed.Store(true)
		}
	}()
	return t
}

func (t *signalToggle) Level() bool { return t.pressed.Swap(false) }

func (t *signalToggle) Close() error {
	signal.Stop(t.ch)
	close(t.ch)
	return nil
}
