// Package tarm opens the module UART with github.com/tarm/serial, the
// serial library used by the go-ebyte-lora drivers.
package tarm

import (
	"errors"
	"fmt"
	"io"

	"github.com/tarm/serial"

	"github.com/mbalug7/lora-e32/hal"
)

type Port struct {
	p *serial.Port
}

func Open(cfg hal.SerialConfig) (hal.Port, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
		Size:        8,
		Parity:      serial.Parity(cfg.Parity),
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}
	return &Port{p: p}, nil
}

// Read reports a read timeout as zero bytes rather than io.EOF.
func (obj *Port) Read(b []byte) (int, error) {
	n, err := obj.p.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (obj *Port) Write(b []byte) (int, error) {
	return obj.p.Write(b)
}

// ResetInputBuffer flushes both directions; tarm/serial has no per-direction flush.
func (obj *Port) ResetInputBuffer() error {
	return obj.p.Flush()
}

func (obj *Port) ResetOutputBuffer() error {
	return obj.p.Flush()
}

func (obj *Port) Close() error {
	return obj.p.Close()
}
