package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

func TestMemoryCache_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Hour)

	session := &models.AnalysisSession{
		SessionID: "rec-1",
		Status:    models.StatusPending,
		Report:    models.ECGReport{BeatCount: 13, Beats: []models.BeatPoint{{SampleIndex: 3636, TimeSec: 10.1, RR: 10.1}}},
	}
	if err := cache.SaveSession(ctx, "rec-1", session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := cache.GetSession(ctx, "rec-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Report.BeatCount != 13 || got.Report.Beats[0].SampleIndex != 3636 {
		t.Errorf("Unexpected report %+v", got.Report)
	}

	// Изменение полученной копии не затрагивает кеш
	got.Status = models.StatusSaved
	again, _ := cache.GetSession(ctx, "rec-1")
	if again.Status != models.StatusPending {
		t.Errorf("Expected cached status pending, got %s", again.Status)
	}

	if err := cache.DeleteSession(ctx, "rec-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := cache.GetSession(ctx, "rec-1"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := cache.DeleteSession(ctx, "rec-1"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestMemoryCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	cache := NewMemoryCache(time.Minute)
	cache.now = func() time.Time { return now }

	if err := cache.SaveSession(ctx, "rec-2", &models.AnalysisSession{SessionID: "rec-2"}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	now = now.Add(59 * time.Second)
	if _, err := cache.GetSession(ctx, "rec-2"); err != nil {
		t.Fatalf("Expected session before TTL, got %v", err)
	}

	now = now.Add(time.Second)
	if _, err := cache.GetSession(ctx, "rec-2"); !errors.Is(err, models.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired, got %v", err)
	}
	if stats := cache.GetStats(); stats["active_sessions"] != 0 {
		t.Errorf("Expected expired session to be evicted, got %v", stats["active_sessions"])
	}
}

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	archive := NewMemoryArchive()

	if _, err := archive.GetReport(ctx, "missing"); !errors.Is(err, models.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	session := &models.AnalysisSession{SessionID: "rec-3", Status: models.StatusPending}
	if err := archive.SaveReport(ctx, session); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if session.Status != models.StatusPending {
		t.Error("SaveReport must not modify the caller's session")
	}

	got, err := archive.GetReport(ctx, "rec-3")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.Status != models.StatusSaved {
		t.Errorf("Expected status saved, got %s", got.Status)
	}
}
