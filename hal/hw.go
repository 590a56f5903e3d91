package hal

import (
	"io"
	"time"

	ebyte "github.com/mbalug7/go-ebyte-lora/pkg/hal"
)

type Parity byte

// Level is the logical state of a digital line.
type Level bool

// Mode is the operating mode selected by the M0/M1 lines.
type Mode = ebyte.ChipMode

const (
	ParityNone  Parity = 'N'
	ParityOdd   Parity = 'O'
	ParityEven  Parity = 'E'
	ParityMark  Parity = 'M' // parity bit is always 1
	ParitySpace Parity = 'S' // parity bit is always 0
)

const (
	Low  Level = false
	High Level = true
)

const (
	ModeNormal    = ebyte.ModeNormal
	ModeWakeUp    = ebyte.ModeWakeUp
	ModePowerSave = ebyte.ModePowerSave
	ModeSleep     = ebyte.ModeSleep
	// ModeConfig is sleep mode, the only mode in which the module accepts
	// configuration commands on its UART.
	ModeConfig = ModeSleep
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Lines drives the two mode-select outputs (M0, M1) and samples the
// status input (AUX). AUX reads High while the module is idle.
type Lines interface {
	SetSelect(m0, m1 Level) error
	Selected() (m0, m1 Level)
	Status() Level
	// Close stops driving the select lines and releases all three pins.
	Close() error
}

// Port is the UART link to the module. Read returns zero bytes, with a nil
// error or io.EOF, when nothing arrives within the port's short read timeout.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// SerialConfig describes how a Port backend opens the device.
type SerialConfig struct {
	Name        string
	Baud        int
	Parity      Parity
	ReadTimeout time.Duration
}

// LinesForMode returns the M0/M1 levels that select mode.
func LinesForMode(mode Mode) (m0, m1 Level, ok bool) {
	switch mode {
	case ModeNormal:
		return Low, Low, true
	case ModeWakeUp:
		return High, Low, true
	case ModePowerSave:
		return Low, High, true
	case ModeSleep:
		return High, High, true
	}
	return Low, Low, false
}

// ModeFromLines maps M0/M1 levels to the mode they select.
func ModeFromLines(m0, m1 Level) Mode {
	switch {
	case m0 == Low && m1 == Low:
		return ModeNormal
	case m0 == High && m1 == Low:
		return ModeWakeUp
	case m0 == Low && m1 == High:
		return ModePowerSave
	default:
		return ModeSleep
	}
}

func ModeName(mode Mode) string {
	switch mode {
	case ModeNormal:
		return "normal"
	case ModeWakeUp:
		return "wake-up"
	case ModePowerSave:
		return "power-saving"
	case ModeSleep:
		return "sleep"
	}
	return "unknown"
}
