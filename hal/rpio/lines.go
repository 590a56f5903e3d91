// Package rpio drives the module's M0/M1/AUX lines through direct BCM2835
// register access with go-rpio.
package rpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/mbalug7/lora-e32/hal"
)

type Lines struct {
	m0, m1, aux rpio.Pin

	mu     sync.Mutex
	sel    [2]hal.Level
	closed bool
}

// Open maps GPIO memory and configures the pins, given as BCM numbers.
func Open(m0, m1, aux int) (*Lines, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to map gpio memory: %w", err)
	}
	l := &Lines{m0: rpio.Pin(m0), m1: rpio.Pin(m1), aux: rpio.Pin(aux)}

	l.m0.Output()
	l.m0.Low()
	l.m1.Output()
	l.m1.Low()
	l.aux.Input()
	l.aux.PullUp()
	return l, nil
}

func (l *Lines) SetSelect(m0, m1 hal.Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("gpio lines closed")
	}
	write(l.m0, m0)
	write(l.m1, m1)
	l.sel = [2]hal.Level{m0, m1}
	return nil
}

func (l *Lines) Selected() (hal.Level, hal.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sel[0], l.sel[1]
}

func (l *Lines) Status() hal.Level {
	return l.aux.Read() == rpio.High
}

func (l *Lines) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.m0.Input()
	l.m1.Input()
	l.aux.PullOff()
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("failed to unmap gpio memory: %w", err)
	}
	return nil
}

func write(p rpio.Pin, level hal.Level) {
	if level {
		p.High()
		return
	}
	p.Low()
}
