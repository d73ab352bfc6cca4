package config

import (
	"errors"
	"testing"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/qrs"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPPort != "8081" {
		t.Errorf("Expected HTTP port 8081, got %s", cfg.HTTPPort)
	}
	if cfg.RedisTTL != 24*time.Hour {
		t.Errorf("Expected TTL 24h, got %v", cfg.RedisTTL)
	}
	if cfg.BatchSize != 36 {
		t.Errorf("Expected batch 36, got %d", cfg.BatchSize)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("OFFLINE_STORAGE", "memory")
	t.Setenv("REPORT_TTL_SECONDS", "60")
	t.Setenv("ECG_SAMPLE_RATE", "250")
	t.Setenv("SPECTRAL_HARMONICS", "bad")

	cfg := LoadConfig()

	if cfg.Storage != "memory" {
		t.Errorf("Expected memory storage, got %s", cfg.Storage)
	}
	if cfg.RedisTTL != time.Minute {
		t.Errorf("Expected TTL 1m, got %v", cfg.RedisTTL)
	}
	if cfg.SampleRate != 250 {
		t.Errorf("Expected sample rate 250, got %v", cfg.SampleRate)
	}
	if cfg.Harmonics != 5 {
		t.Errorf("Expected default harmonics for invalid value, got %d", cfg.Harmonics)
	}
}

func TestDetectorConfig(t *testing.T) {
	cfg := LoadConfig()

	dc, err := cfg.DetectorConfig(500)
	if err != nil {
		t.Fatalf("DetectorConfig failed: %v", err)
	}
	if dc.SampleRate != 500 || dc.SlotUnit != qrs.SlotPerSample {
		t.Errorf("Unexpected detector config: %v %v", dc.SampleRate, dc.SlotUnit)
	}

	if _, err := cfg.DetectorConfig(0); !errors.Is(err, qrs.ErrInvalidSampleRate) {
		t.Errorf("Expected ErrInvalidSampleRate, got %v", err)
	}

	cfg.SlotUnit = "beat"
	if _, err := cfg.DetectorConfig(360); err == nil {
		t.Error("Expected error for unknown slot unit")
	}
}
