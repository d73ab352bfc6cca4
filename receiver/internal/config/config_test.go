package config

import (
	"errors"
	"testing"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/qrs"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.SampleRate != 360 {
		t.Errorf("Expected sample rate 360, got %v", cfg.SampleRate)
	}
	if cfg.FrameFormat != "ble" {
		t.Errorf("Expected ble frame format, got %s", cfg.FrameFormat)
	}
	if cfg.PublishEvery != 150 {
		t.Errorf("Expected publish every 150 samples, got %d", cfg.PublishEvery)
	}
	if cfg.OutOfOrderTolerance != 50*time.Millisecond {
		t.Errorf("Expected 50ms tolerance, got %v", cfg.OutOfOrderTolerance)
	}

	dc, err := cfg.DetectorConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dc.SlotUnit != qrs.SlotPerSample {
		t.Errorf("Expected per-sample slots by default, got %v", dc.SlotUnit)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("ECG_SAMPLE_RATE", "250")
	t.Setenv("ECG_SLOT_UNIT", "call")
	t.Setenv("BATCH_MAX_SAMPLES", "not-a-number")

	cfg := Load()

	if cfg.SampleRate != 250 {
		t.Errorf("Expected sample rate 250, got %v", cfg.SampleRate)
	}
	if cfg.BatchMaxSamples != 36 {
		t.Errorf("Expected fallback to default batch size, got %d", cfg.BatchMaxSamples)
	}

	dc, err := cfg.DetectorConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dc.SlotUnit != qrs.SlotPerCall {
		t.Errorf("Expected per-call slots, got %v", dc.SlotUnit)
	}
}

func TestDetectorConfig_Invalid(t *testing.T) {
	cfg := Load()
	cfg.SampleRate = -1

	_, err := cfg.DetectorConfig()
	if !errors.Is(err, qrs.ErrInvalidSampleRate) {
		t.Errorf("Expected ErrInvalidSampleRate, got %v", err)
	}

	cfg = Load()
	cfg.SlotUnit = "beat"
	if _, err := cfg.DetectorConfig(); err == nil {
		t.Error("Expected error for unknown slot unit")
	}
}
