package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/Krimson/ecg-monitory/offline-service/config"
	"github.com/Krimson/ecg-monitory/offline-service/internal/repository"
	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
	"github.com/Krimson/ecg-monitory/pkg/ecgsim"
)

func newTestService(t *testing.T) (*ECGService, *repository.MemoryCache, *repository.MemoryArchive) {
	t.Helper()
	cfg := config.LoadConfig()
	cfg.SlotUnit = "sample"
	cache := repository.NewMemoryCache(cfg.RedisTTL)
	archive := repository.NewMemoryArchive()
	return NewECGService(cfg, cache, archive), cache, archive
}

// recordCSV формирует запись 75 уд/мин в формате time,value
func recordCSV(t *testing.T, seconds int, header bool) string {
	t.Helper()
	cfg := ecgsim.DefaultConfig()
	cfg.Amplitude = 800
	cfg.Wander = 150
	cfg.WanderHz = 5
	gen, err := ecgsim.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}

	var sb strings.Builder
	if header {
		sb.WriteString("time_sec,value\n")
	}
	for i, v := range gen.Samples(360 * seconds) {
		sb.WriteString(strconv.FormatFloat(float64(i)/360, 'g', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestECGService_ProcessCSV(t *testing.T) {
	svc, cache, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.ProcessCSV(ctx, strings.NewReader(recordCSV(t, 20, true)), "rec-1", 0)
	if err != nil {
		t.Fatalf("ProcessCSV failed: %v", err)
	}

	if resp.SessionID != "rec-1" || resp.Status != "processed" {
		t.Errorf("Unexpected response header: %s %s", resp.SessionID, resp.Status)
	}
	if resp.Report.SampleRate != 360 {
		t.Errorf("Expected sample rate 360 from time column, got %v", resp.Report.SampleRate)
	}
	if resp.Report.BeatCount != 13 {
		t.Errorf("Expected 13 beats, got %d", resp.Report.BeatCount)
	}
	if len(resp.Report.Beats) > 0 && resp.Report.Beats[0].SampleIndex != 3636 {
		t.Errorf("Expected first beat at 3636, got %d", resp.Report.Beats[0].SampleIndex)
	}
	if !resp.Report.Spectral.Valid {
		t.Error("Expected a spectral estimate for a 20s record")
	}
	if !strings.Contains(resp.Message, "13 beats") {
		t.Errorf("Unexpected message %q", resp.Message)
	}

	cached, err := cache.GetSession(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Report not cached: %v", err)
	}
	if cached.Status != models.StatusPending {
		t.Errorf("Expected pending status, got %s", cached.Status)
	}
}

func TestECGService_ProcessCSV_SampleRateOverride(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.ProcessCSV(context.Background(), strings.NewReader(recordCSV(t, 2, false)), "rec-2", 250)
	if err != nil {
		t.Fatalf("ProcessCSV failed: %v", err)
	}
	if resp.Report.SampleRate != 250 {
		t.Errorf("Expected sample rate 250 from request, got %v", resp.Report.SampleRate)
	}
	if resp.Report.Trained {
		t.Error("Expected a 2s record to stay in training")
	}
}

func TestECGService_ProcessCSV_Invalid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	inputs := map[string]string{
		"empty":       "",
		"header only": "time,value\n",
		"not numbers": "time,value\na,b\nc,d\n",
		"one column":  "1\n2\n3\n",
	}
	for name, input := range inputs {
		if _, err := svc.ProcessCSV(ctx, strings.NewReader(input), "bad", 0); !errors.Is(err, models.ErrInvalidCSV) {
			t.Errorf("%s: expected ErrInvalidCSV, got %v", name, err)
		}
	}
}

func TestECGService_SaveDecision(t *testing.T) {
	svc, cache, archive := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ProcessCSV(ctx, strings.NewReader(recordCSV(t, 12, true)), "rec-3", 0); err != nil {
		t.Fatalf("ProcessCSV failed: %v", err)
	}

	resp, err := svc.HandleDecision(ctx, &models.SaveDecision{SessionID: "rec-3", Save: true})
	if err != nil {
		t.Fatalf("HandleDecision failed: %v", err)
	}
	if resp.Status != models.StatusSaved {
		t.Errorf("Expected saved status, got %s", resp.Status)
	}

	saved, err := archive.GetReport(ctx, "rec-3")
	if err != nil {
		t.Fatalf("Report not archived: %v", err)
	}
	if saved.Report.SampleCount != 4320 {
		t.Errorf("Expected 4320 archived samples, got %d", saved.Report.SampleCount)
	}

	cached, _ := cache.GetSession(ctx, "rec-3")
	if cached == nil || cached.Status != models.StatusSaved {
		t.Errorf("Expected cached status saved, got %+v", cached)
	}

	// После удаления из кеша отчет читается из архива
	if err := cache.DeleteSession(ctx, "rec-3"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	report, err := svc.GetReport(ctx, "rec-3")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if report.Status != models.StatusSaved {
		t.Errorf("Expected archived report, got status %s", report.Status)
	}
}

func TestECGService_DiscardDecision(t *testing.T) {
	svc, _, archive := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ProcessCSV(ctx, strings.NewReader(recordCSV(t, 2, true)), "rec-4", 0); err != nil {
		t.Fatalf("ProcessCSV failed: %v", err)
	}

	resp, err := svc.HandleDecision(ctx, &models.SaveDecision{SessionID: "rec-4", Save: false})
	if err != nil {
		t.Fatalf("HandleDecision failed: %v", err)
	}
	if resp.Status != "cancelled" {
		t.Errorf("Expected cancelled status, got %s", resp.Status)
	}

	if _, err := svc.GetReport(ctx, "rec-4"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after discard, got %v", err)
	}
	if _, err := archive.GetReport(ctx, "rec-4"); err == nil {
		t.Error("Discarded report must not be archived")
	}

	if _, err := svc.HandleDecision(ctx, &models.SaveDecision{SessionID: "rec-4", Save: true}); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound for a second decision, got %v", err)
	}
}

func TestEstimateSampleRate(t *testing.T) {
	tests := []struct {
		times []float64
		want  float64
	}{
		{[]float64{0, 0.004, 0.008, 0.012}, 250},
		{[]float64{1.5}, 0},
		{[]float64{2, 2, 2}, 0},
		{[]float64{3, 2, 1}, 0},
	}
	for _, tt := range tests {
		if got := estimateSampleRate(tt.times); got != tt.want {
			t.Errorf("estimateSampleRate(%v) = %v, want %v", tt.times, got, tt.want)
		}
	}
}

func TestIsHeader(t *testing.T) {
	if !isHeader([]string{"time_sec", "value"}) {
		t.Error("Expected time_sec to be a header")
	}
	if isHeader([]string{"0.0", "2048"}) {
		t.Error("Expected numeric row not to be a header")
	}
}
