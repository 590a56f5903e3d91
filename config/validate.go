package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbalug7/lora-e32/e32"
)

var validBauds = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true,
	19200: true, 38400: true, 57600: true, 115200: true,
}

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ---- serial ----
	switch strings.ToLower(cfg.Serial.Backend) {
	case "bugst", "tarm":
	default:
		return fmt.Errorf("serial.backend %q: must be bugst or tarm", cfg.Serial.Backend)
	}
	if cfg.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if !validBauds[cfg.Serial.Baud] {
		return fmt.Errorf("serial.baud %d: not supported by the module", cfg.Serial.Baud)
	}
	switch strings.ToUpper(cfg.Serial.Parity) {
	case "N", "O", "E":
	default:
		return fmt.Errorf("serial.parity %q: must be N, O or E", cfg.Serial.Parity)
	}
	if cfg.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive")
	}

	// ---- gpio ----
	backend := strings.ToLower(cfg.GPIO.Backend)
	if backend != "periph" && backend != "rpio" {
		return fmt.Errorf("gpio.backend %q: must be periph or rpio", cfg.GPIO.Backend)
	}
	pins := map[string]string{"m0": cfg.GPIO.M0, "m1": cfg.GPIO.M1, "aux": cfg.GPIO.Aux}
	seen := make(map[string]string)
	for _, name := range []string{"m0", "m1", "aux"} {
		pin := pins[name]
		if pin == "" {
			return fmt.Errorf("gpio.%s is required", name)
		}
		key := canonicalPin(pin)
		if backend == "rpio" {
			if _, err := PinNumber(pin); err != nil {
				return fmt.Errorf("gpio.%s: %w", name, err)
			}
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("gpio.%s and gpio.%s share pin %s", prev, name, pin)
		}
		seen[key] = name
	}

	// ---- radio ----
	switch strings.ToLower(cfg.Radio.Dialect) {
	case "binary":
	case "at":
		if len(cfg.Radio.AT.Parameter) != 4 {
			return fmt.Errorf("radio.at.parameter needs 4 values, got %d", len(cfg.Radio.AT.Parameter))
		}
	default:
		return fmt.Errorf("radio.dialect %q: must be binary or at", cfg.Radio.Dialect)
	}

	// ---- timing ----
	durations := []struct {
		name     string
		d        time.Duration
		zeroOkay bool
	}{
		{"poll_interval", cfg.Timing.PollInterval, false},
		{"settle_delay", cfg.Timing.SettleDelay, true},
		{"mode_timeout", cfg.Timing.ModeTimeout, false},
		{"ready_timeout", cfg.Timing.ReadyTimeout, false},
		{"transmit_timeout", cfg.Timing.TransmitTimeout, false},
		{"response_timeout", cfg.Timing.ResponseTimeout, false},
		{"config_gap", cfg.Timing.ConfigGap, true},
		{"receive_timeout", cfg.Timing.ReceiveTimeout, false},
		{"inter_packet_window", cfg.Timing.InterPacketWindow, false},
		{"at_response_window", cfg.Timing.ATResponseWindow, false},
	}
	for _, d := range durations {
		if d.d < 0 || (d.d == 0 && !d.zeroOkay) {
			return fmt.Errorf("timing.%s must be positive, got %s", d.name, d.d)
		}
	}

	// ---- link ----
	if cfg.Link.ChunkSize <= 0 || cfg.Link.ChunkSize > e32.MaxChunkSize {
		return fmt.Errorf("link.chunk_size %d: allowed 1..%d", cfg.Link.ChunkSize, e32.MaxChunkSize)
	}
	if _, err := e32.ChecksumByName(strings.ToLower(cfg.Link.Checksum)); err != nil {
		return fmt.Errorf("link.checksum: %w", err)
	}

	// ---- program ----
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q: must be text or json", cfg.Log.Format)
	}
	switch strings.ToLower(cfg.Log.Output) {
	case "", "stderr", "stdout", "file":
	default:
		return fmt.Errorf("log.output %q: must be stderr, stdout or file", cfg.Log.Output)
	}
	if strings.ToLower(cfg.Log.Output) == "file" && cfg.Log.FilePath == "" {
		return fmt.Errorf("log.file_path is required when log.output is file")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	if cfg.Redis.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if cfg.Redis.Channel == "" && cfg.Redis.List == "" {
			return fmt.Errorf("redis needs a channel or a list")
		}
	}

	return nil
}
