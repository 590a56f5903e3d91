package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	GPIO    GPIOConfig    `yaml:"gpio"`
	Radio   RadioConfig   `yaml:"radio"`
	Timing  TimingConfig  `yaml:"timing"`
	Link    LinkConfig    `yaml:"link"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Redis   RedisConfig   `yaml:"redis"`
}

// ---- HARDWARE ----

type SerialConfig struct {
	Backend     string        `yaml:"backend"` // bugst | tarm
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	Parity      string        `yaml:"parity"` // N | O | E
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type GPIOConfig struct {
	Backend string `yaml:"backend"` // periph | rpio
	M0      string `yaml:"m0"`
	M1      string `yaml:"m1"`
	Aux     string `yaml:"aux"`
}

// ---- RADIO ----

type RadioConfig struct {
	Dialect   string   `yaml:"dialect"` // binary | at
	Address   uint16   `yaml:"address"`
	Speed     uint8    `yaml:"speed"`
	Channel   uint8    `yaml:"channel"`
	Options   uint8    `yaml:"options"`
	Temporary bool     `yaml:"temporary"`
	AT        ATConfig `yaml:"at"`
}

type ATConfig struct {
	Address   int   `yaml:"address"`
	NetworkID int   `yaml:"network_id"`
	Parameter []int `yaml:"parameter"`
	Power     int   `yaml:"power"`
}

type TimingConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	ModeTimeout       time.Duration `yaml:"mode_timeout"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout"`
	TransmitTimeout   time.Duration `yaml:"transmit_timeout"`
	ResponseTimeout   time.Duration `yaml:"response_timeout"`
	ConfigGap         time.Duration `yaml:"config_gap"`
	ReceiveTimeout    time.Duration `yaml:"receive_timeout"`
	InterPacketWindow time.Duration `yaml:"inter_packet_window"`
	ATResponseWindow  time.Duration `yaml:"at_response_window"`
}

type LinkConfig struct {
	ChunkSize   int    `yaml:"chunk_size"`
	Checksum    string `yaml:"checksum"`
	SplitHeader bool   `yaml:"split_header"`
}

// ---- PROGRAM ----

type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"` // text | json
	Output   string `yaml:"output"` // stderr | stdout | file
	FilePath string `yaml:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	// List keeps the last ListSize packets; empty disables it.
	List     string `yaml:"list"`
	ListSize int64  `yaml:"list_size"`
}

// Load reads a YAML file on top of Default. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Default is the wiring of a Raspberry Pi with the module on the primary
// UART and M0/M1/AUX on BCM 23/24/25.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Backend:     "bugst",
			Port:        "/dev/serial0",
			Baud:        9600,
			Parity:      "N",
			ReadTimeout: 50 * time.Millisecond,
		},
		GPIO: GPIOConfig{
			Backend: "periph",
			M0:      "GPIO23",
			M1:      "GPIO24",
			Aux:     "GPIO25",
		},
		Radio: RadioConfig{
			Dialect: "binary",
			Address: 0x0000,
			Speed:   0x1A,
			Channel: 0x0F,
			Options: 0x47,
			AT: ATConfig{
				Parameter: []int{12, 7, 1, 4},
				Power:     15,
			},
		},
		Timing: TimingConfig{
			PollInterval:      10 * time.Millisecond,
			SettleDelay:       50 * time.Millisecond,
			ModeTimeout:       2 * time.Second,
			ReadyTimeout:      5 * time.Second,
			TransmitTimeout:   5 * time.Second,
			ResponseTimeout:   2 * time.Second,
			ConfigGap:         20 * time.Millisecond,
			ReceiveTimeout:    2 * time.Second,
			InterPacketWindow: 500 * time.Millisecond,
			ATResponseWindow:  500 * time.Millisecond,
		},
		Link: LinkConfig{
			ChunkSize: 58,
			Checksum:  "crc16-xmodem",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Channel:  "lora_packets",
			ListSize: 1000,
		},
	}
}
