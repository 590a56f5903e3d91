// Package periph drives the module's M0/M1/AUX lines through periph.io.
package periph

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/mbalug7/lora-e32/hal"
)

// Lines owns the three GPIO pins wired to the module.
type Lines struct {
	m0, m1, aux gpio.PinIO

	mu     sync.Mutex
	sel    [2]hal.Level
	closed bool
}

// Open initializes the periph host and claims the pins by name, e.g. "GPIO23".
// Both select lines start low (normal mode); AUX is an input pulled up to
// the idle level.
func Open(m0, m1, aux string) (*Lines, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io host: %w", err)
	}
	var pins [3]gpio.PinIO
	for i, name := range []string{m0, m1, aux} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("failed to open pin %s", name)
		}
		pins[i] = p
	}
	l := &Lines{m0: pins[0], m1: pins[1], aux: pins[2]}

	if err := l.m0.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("failed to set %s as output: %w", m0, err)
	}
	if err := l.m1.Out(gpio.Low); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to set %s as output: %w", m1, err), l.Close())
	}
	if err := l.aux.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to set %s as input: %w", aux, err), l.Close())
	}
	return l, nil
}

func (l *Lines) SetSelect(m0, m1 hal.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("gpio lines closed")
	}
	if err := l.m0.Out(gpio.Level(m0)); err != nil {
		return fmt.Errorf("failed to drive M0: %w", err)
	}
	if err := l.m1.Out(gpio.Level(m1)); err != nil {
		return fmt.Errorf("failed to drive M1: %w", err)
	}
	l.sel = [2]hal.Level{m0, m1}
	return nil
}

func (l *Lines) Selected() (hal.Level, hal.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sel[0], l.sel[1]
}

func (l *Lines) Status() hal.Level {
	return hal.Level(l.aux.Read())
}

// Close turns the select lines back into floating inputs and halts all pins.
func (l *Lines) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, p := range []gpio.PinIO{l.m0, l.m1} {
		if err := p.In(gpio.Float, gpio.NoEdge); err != nil {
			errs = append(errs, fmt.Errorf("failed to release %s: %w", p.Name(), err))
		}
	}
	for _, p := range []gpio.PinIO{l.m0, l.m1, l.aux} {
		if err := p.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("failed to halt %s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}
