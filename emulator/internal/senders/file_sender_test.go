package senders

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Krimson/ecg-monitory/pkg/packet"
)

func TestFileSender_WritesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records", "ecg.csv")

	sender, err := NewFileSender(path, packet.FormatBLE, 250)
	if err != nil {
		t.Fatalf("NewFileSender failed: %v", err)
	}

	ctx := context.Background()
	if err := sender.Send(ctx, []float64{2048.4, 3000}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := sender.Send(ctx, []float64{-5, 70000}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	want := "time_sec,value\n" +
		"0.000000,2048\n" +
		"0.004000,3000\n" +
		"0.008000,0\n" +
		"0.012000,65535\n"
	if string(data) != want {
		t.Errorf("Unexpected file content:\n%s", data)
	}

	m := sender.Metrics()
	if m.TotalSent != 2 || m.SamplesSent != 4 {
		t.Errorf("Expected 2 messages with 4 samples, got %d and %d", m.TotalSent, m.SamplesSent)
	}
}

func TestFileSender_Packed11Range(t *testing.T) {
	var sb strings.Builder
	sender, err := newFileSender(&sb, nil, packet.FormatPacked11, 360)
	if err != nil {
		t.Fatalf("newFileSender failed: %v", err)
	}

	if err := sender.Send(context.Background(), []float64{4000}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.HasSuffix(sb.String(), ",2047\n") {
		t.Errorf("Expected value clamped to 2047, got %q", sb.String())
	}
}
