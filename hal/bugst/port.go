// Package bugst opens the module UART with go.bug.st/serial.
package bugst

import (
	"fmt"

	"go.bug.st/serial"

	"github.com/mbalug7/lora-e32/hal"
)

var parityMap = map[hal.Parity]serial.Parity{
	hal.ParityNone:  serial.NoParity,
	hal.ParityOdd:   serial.OddParity,
	hal.ParityEven:  serial.EvenParity,
	hal.ParityMark:  serial.MarkParity,
	hal.ParitySpace: serial.SpaceParity,
}

// Open opens the port 8 data bits, 1 stop bit, with cfg's baud and parity.
// Reads give up after cfg.ReadTimeout so callers can poll.
func Open(cfg hal.SerialConfig) (hal.Port, error) {
	parity, ok := parityMap[cfg.Parity]
	if !ok {
		return nil, fmt.Errorf("unsupported parity %q", cfg.Parity)
	}
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   parity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Name, err)
	}
	return p, nil
}
