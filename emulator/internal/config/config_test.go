package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Output.Mode != ModeGRPC || cfg.Signal.Source != SourceSynthetic {
		t.Errorf("Unexpected defaults: mode=%s source=%s", cfg.Output.Mode, cfg.Signal.Source)
	}
	if cfg.Signal.SampleRate != 360 || cfg.Emulator.BatchSamples != 36 {
		t.Errorf("Expected 360 Hz and batch 36, got %v and %d", cfg.Signal.SampleRate, cfg.Emulator.BatchSamples)
	}
	if !cfg.Emulator.Realtime || cfg.Emulator.Duration != 0 {
		t.Errorf("Expected realtime without time limit, got realtime=%v duration=%v", cfg.Emulator.Realtime, cfg.Emulator.Duration)
	}
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := Load([]string{
		"-mode", "nats", "-source", "csv", "-csv", "rec.csv",
		"-duration", "90s", "-batch", "10", "-realtime=false", "-format", "packed11",
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Output.Mode != ModeNATS || cfg.Output.FrameFormat != "packed11" {
		t.Errorf("Unexpected output %+v", cfg.Output)
	}
	if cfg.Signal.CSVFile != "rec.csv" || cfg.Emulator.Duration != 90*time.Second {
		t.Errorf("Unexpected signal %+v / %+v", cfg.Signal, cfg.Emulator)
	}
	if cfg.Emulator.Realtime {
		t.Error("Expected realtime to be disabled")
	}
}

func TestLoad_FileMode(t *testing.T) {
	cfg, err := Load([]string{"-mode", "file", "-out", "out/rec.csv", "-duration", "20s"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Output.Mode != ModeFile || cfg.Output.FilePath != "out/rec.csv" {
		t.Errorf("Unexpected output %+v", cfg.Output)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := [][]string{
		{"-mode", "udp"},
		{"-source", "mic"},
		{"-batch", "7"},
		{"-batch", "0"},
		{"-fs", "0"},
		{"-session", ""},
		{"-mode", "file", "-out", ""},
	}

	for _, args := range tests {
		if _, err := Load(args); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%v: expected ErrInvalidConfig, got %v", args, err)
		}
	}
}
