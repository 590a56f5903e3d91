package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mbalug7/lora-e32/e32"
	"github.com/mbalug7/lora-e32/hal/stub"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) error = %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lora.yaml")
	data := `
serial:
  backend: TARM
  port: /dev/ttyUSB0
gpio:
  backend: periph
  m0: "17"
  m1: GPIO27
  aux: "22"
radio:
  channel: 0x17
  options: 0x44
  temporary: true
timing:
  receive_timeout: 5s
link:
  checksum: CRC32
log:
  level: DEBUG
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	Normalize(cfg)

	if cfg.Serial.Backend != "tarm" || cfg.Serial.Port != "/dev/ttyUSB0" || cfg.Serial.Baud != 9600 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.GPIO.M0 != "GPIO17" || cfg.GPIO.M1 != "GPIO27" || cfg.GPIO.Aux != "GPIO22" {
		t.Errorf("gpio = %+v", cfg.GPIO)
	}
	if cfg.Radio.Channel != 0x17 || cfg.Radio.Options != 0x44 || cfg.Radio.Speed != 0x1A {
		t.Errorf("radio = %+v", cfg.Radio)
	}
	if cfg.Timing.ReceiveTimeout != 5*time.Second || cfg.Timing.PollInterval != 10*time.Millisecond {
		t.Errorf("timing = %+v", cfg.Timing)
	}
	if cfg.Link.Checksum != "crc32" || cfg.Log.Level != "debug" {
		t.Errorf("link = %+v, log = %+v", cfg.Link, cfg.Log)
	}
	frame := cfg.Radio.Frame()
	if frame.Head != 0xC2 || frame.Channel != 0x17 || frame.Options != 0x44 {
		t.Errorf("Frame() = %s", frame)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}
	if _, err := Parse([]byte("serial: [unclosed")); err == nil {
		t.Error("Parse(bad yaml) error = nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown serial backend", func(c *Config) { c.Serial.Backend = "usb" }, "serial.backend"},
		{"missing port", func(c *Config) { c.Serial.Port = "" }, "serial.port"},
		{"odd baud", func(c *Config) { c.Serial.Baud = 14400 }, "serial.baud"},
		{"bad parity", func(c *Config) { c.Serial.Parity = "M" }, "serial.parity"},
		{"unknown gpio backend", func(c *Config) { c.GPIO.Backend = "sysfs" }, "gpio.backend"},
		{"missing aux", func(c *Config) { c.GPIO.Aux = "" }, "gpio.aux"},
		{"shared pin", func(c *Config) { c.GPIO.M1 = "23" }, "share pin"},
		{"rpio pin name", func(c *Config) { c.GPIO.Backend = "rpio"; c.GPIO.M0 = "P1_16" }, "gpio.m0"},
		{"unknown dialect", func(c *Config) { c.Radio.Dialect = "ascii" }, "radio.dialect"},
		{"at parameter", func(c *Config) { c.Radio.Dialect = "at"; c.Radio.AT.Parameter = []int{12} }, "radio.at.parameter"},
		{"zero poll", func(c *Config) { c.Timing.PollInterval = 0 }, "timing.poll_interval"},
		{"negative gap", func(c *Config) { c.Timing.ConfigGap = -time.Millisecond }, "timing.config_gap"},
		{"chunk too big", func(c *Config) { c.Link.ChunkSize = 59 }, "link.chunk_size"},
		{"unknown checksum", func(c *Config) { c.Link.Checksum = "sha1" }, "link.checksum"},
		{"log file path", func(c *Config) { c.Log.Output = "file" }, "log.file_path"},
		{"redis target", func(c *Config) { c.Redis.Enabled = true; c.Redis.Channel = "" }, "channel or a list"},
		{"zero settle allowed", func(c *Config) { c.Timing.SettleDelay = 0 }, ""},
		{"rpio numbers", func(c *Config) { c.GPIO.Backend = "rpio"; c.GPIO.M0 = "5" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestPinNumber(t *testing.T) {
	tests := []struct {
		pin     string
		want    int
		wantErr bool
	}{
		{"23", 23, false},
		{"GPIO4", 4, false},
		{"gpio17", 17, false},
		{" 5 ", 5, false},
		{"GPIO", 0, true},
		{"54", 0, true},
		{"P1_16", 0, true},
	}
	for _, tt := range tests {
		got, err := PinNumber(tt.pin)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("PinNumber(%q) = %d, %v", tt.pin, got, err)
		}
	}
}

func TestDriverOptions(t *testing.T) {
	cfg := Default()
	Normalize(cfg)
	opts, err := DriverOptions(cfg)
	if err != nil {
		t.Fatalf("DriverOptions() error = %v", err)
	}
	if len(opts) == 0 {
		t.Fatal("DriverOptions() returned no options")
	}

	cfg.Radio.Dialect = "at"
	if _, err := DriverOptions(cfg); err != nil {
		t.Fatalf("DriverOptions(at) error = %v", err)
	}

	cfg.Link.Checksum = "adler"
	if _, err := DriverOptions(cfg); err == nil {
		t.Error("DriverOptions(unknown checksum) error = nil")
	}
}

func TestSerialHAL(t *testing.T) {
	cfg := Default()
	cfg.Serial.Parity = "E"
	got := cfg.Serial.HAL()
	if got.Name != "/dev/serial0" || got.Baud != 9600 || got.Parity != 'E' {
		t.Errorf("HAL() = %+v", got)
	}
}

func TestDriverOptionsConfigureModule(t *testing.T) {
	cfg := Default()
	cfg.Radio.Address = 0x0203
	cfg.Radio.Channel = 0x06
	cfg.Timing.PollInterval = time.Millisecond
	cfg.Timing.SettleDelay = 0
	cfg.Timing.ConfigGap = 0
	cfg.Timing.ResponseTimeout = 20 * time.Millisecond
	Normalize(cfg)

	opts, err := DriverOptions(cfg)
	if err != nil {
		t.Fatalf("DriverOptions() error = %v", err)
	}
	radio := stub.New()
	d, err := e32.Open(context.Background(), radio.Lines(), radio.Port(), opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if got, want := radio.Params(), cfg.Radio.Frame().Bytes(); !bytes.Equal(got, want) {
		t.Errorf("module params = % X, want % X", got, want)
	}
}
