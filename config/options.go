package config

import (
	"fmt"

	"github.com/mbalug7/lora-e32/e32"
	"github.com/mbalug7/lora-e32/hal"
)

var parityMap = map[string]hal.Parity{
	"N": hal.ParityNone,
	"O": hal.ParityOdd,
	"E": hal.ParityEven,
}

// HAL returns the settings a serial backend opens the port with.
func (obj SerialConfig) HAL() hal.SerialConfig {
	p, ok := parityMap[obj.Parity]
	if !ok {
		p = hal.ParityNone
	}
	return hal.SerialConfig{
		Name:        obj.Port,
		Baud:        obj.Baud,
		Parity:      p,
		ReadTimeout: obj.ReadTimeout,
	}
}

// Frame is the configuration frame the binary dialect writes on open.
func (obj RadioConfig) Frame() e32.ConfigFrame {
	frame := e32.ConfigFrame{
		Head:     0xC0,
		AddrHigh: byte(obj.Address >> 8),
		AddrLow:  byte(obj.Address),
		Speed:    obj.Speed,
		Channel:  obj.Channel,
		Options:  obj.Options,
	}
	if obj.Temporary {
		frame.Head = 0xC2
	}
	return frame
}

func (obj ATConfig) Settings() e32.ATSettings {
	s := e32.DefaultATSettings()
	s.Address = obj.Address
	s.NetworkID = obj.NetworkID
	s.Power = obj.Power
	if len(obj.Parameter) == 4 {
		copy(s.Parameter[:], obj.Parameter)
	}
	return s
}

// DriverOptions translates a validated and normalized config into driver
// options.
func DriverOptions(cfg *Config) ([]e32.Option, error) {
	sum, err := e32.ChecksumByName(cfg.Link.Checksum)
	if err != nil {
		return nil, err
	}

	var dialect e32.Dialect
	switch cfg.Radio.Dialect {
	case "binary":
		dialect = e32.Binary(cfg.Radio.Frame())
	case "at":
		dialect = e32.AT(cfg.Radio.AT.Settings())
	default:
		return nil, fmt.Errorf("unknown dialect %q", cfg.Radio.Dialect)
	}

	t := cfg.Timing
	return []e32.Option{
		e32.WithPollInterval(t.PollInterval),
		e32.WithSettleDelay(t.SettleDelay),
		e32.WithModeTimeout(t.ModeTimeout),
		e32.WithReadyTimeout(t.ReadyTimeout),
		e32.WithTransmitTimeout(t.TransmitTimeout),
		e32.WithResponseTimeout(t.ResponseTimeout),
		e32.WithConfigGap(t.ConfigGap),
		e32.WithReceiveTimeout(t.ReceiveTimeout),
		e32.WithInterPacketWindow(t.InterPacketWindow),
		e32.WithATResponseWindow(t.ATResponseWindow),
		e32.WithChunkSize(cfg.Link.ChunkSize),
		e32.WithChecksum(sum),
		e32.WithSplitHeader(cfg.Link.SplitHeader),
		e32.WithDialect(dialect),
	}, nil
}
