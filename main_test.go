package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mbalug7/lora-e32/config"
)

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Serial.Port != "/dev/serial0" || cfg.Radio.Dialect != "binary" {
		t.Errorf("defaults not applied: %+v", cfg.Serial)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lora.yaml")
	if err := os.WriteFile(path, []byte("link:\n  chunk_size: 64\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig() accepted chunk_size 64")
	}
}

func TestOpenModuleSimulated(t *testing.T) {
	cfg := config.Default()
	config.Normalize(cfg)
	log := logrus.New()
	log.SetOutput(io.Discard)

	module, err := openModule(context.Background(), cfg, log, true)
	if err != nil {
		t.Fatalf("openModule() error = %v", err)
	}
	defer module.Close()

	frame := module.Frame()
	if frame.Options != cfg.Radio.Options || frame.Channel != cfg.Radio.Channel {
		t.Errorf("Frame() = %+v, want options %#x channel %#x", frame, cfg.Radio.Options, cfg.Radio.Channel)
	}
}

func TestSetupLogger(t *testing.T) {
	log := setupLogger(config.LogConfig{Level: "debug", Format: "json", Output: "stdout"})
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("formatter = %T", log.Formatter)
	}
	if log.Out != os.Stdout {
		t.Error("output is not stdout")
	}

	log = setupLogger(config.LogConfig{Level: "bogus"})
	if log.GetLevel() != logrus.InfoLevel || log.Out != os.Stderr {
		t.Errorf("fallback logger = %v, %v", log.GetLevel(), log.Out)
	}
}
