package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Normalize canonicalizes names and fills the optional keys Validate left
// open. It must be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Serial.Backend = strings.ToLower(cfg.Serial.Backend)
	cfg.Serial.Parity = strings.ToUpper(cfg.Serial.Parity)

	cfg.GPIO.Backend = strings.ToLower(cfg.GPIO.Backend)
	if cfg.GPIO.Backend == "periph" {
		// periph resolves pins by name, so a bare BCM number becomes GPIOn
		cfg.GPIO.M0 = canonicalPin(cfg.GPIO.M0)
		cfg.GPIO.M1 = canonicalPin(cfg.GPIO.M1)
		cfg.GPIO.Aux = canonicalPin(cfg.GPIO.Aux)
	}

	cfg.Radio.Dialect = strings.ToLower(cfg.Radio.Dialect)
	cfg.Link.Checksum = strings.ToLower(cfg.Link.Checksum)
	if cfg.Link.Checksum == "" {
		cfg.Link.Checksum = "crc16-xmodem"
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Log.Output = strings.ToLower(cfg.Log.Output)
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
}

// PinNumber returns the BCM number of a pin given as "23" or "GPIO23".
func PinNumber(pin string) (int, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(pin)), "GPIO")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 53 {
		return 0, fmt.Errorf("pin %q is not a BCM GPIO number", pin)
	}
	return n, nil
}

func canonicalPin(pin string) string {
	if n, err := PinNumber(pin); err == nil {
		return "GPIO" + strconv.Itoa(n)
	}
	return strings.TrimSpace(pin)
}
