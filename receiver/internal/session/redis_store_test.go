package session

import (
	"testing"
	"time"
)

func TestParseMetricsHash(t *testing.T) {
	data := map[string]string{
		"state":           "armed",
		"threshold":       "741.52",
		"sample_count":    "7200",
		"beat_count":      "13",
		"last_beat_index": "7092",
		"avg_rr":          "0.8",
		"avg_hr":          "75",
		"count_hr":        "72",
		"min_hr":          "74.5",
		"max_hr":          "75.5",
		"has_extrema":     "1",
		"computations":    "16",
		"history":         "[75,75,75]",
		"updated_at":      "1700000000",
	}

	m := parseMetricsHash("s1", data)

	if m.SessionID != "s1" || m.State != "armed" {
		t.Errorf("Unexpected identity fields: %s %s", m.SessionID, m.State)
	}
	if m.SampleCount != 7200 || m.BeatCount != 13 || m.LastBeatIndex != 7092 {
		t.Errorf("Unexpected counters: %d %d %d", m.SampleCount, m.BeatCount, m.LastBeatIndex)
	}
	if m.AvgHR != 75 || m.CountHR != 72 || m.AvgRR != 0.8 {
		t.Errorf("Unexpected rate fields: %v %v %v", m.AvgHR, m.CountHR, m.AvgRR)
	}
	if !m.HasExtrema || m.MinHR != 74.5 || m.MaxHR != 75.5 {
		t.Errorf("Unexpected extrema: %v %v %v", m.HasExtrema, m.MinHR, m.MaxHR)
	}
	if m.Computations != 16 || len(m.History) != 3 {
		t.Errorf("Unexpected history: %d %v", m.Computations, m.History)
	}
	if !m.UpdatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Unexpected updated_at %v", m.UpdatedAt)
	}
}

func TestParseMetricsHash_Defaults(t *testing.T) {
	m := parseMetricsHash("s2", map[string]string{"state": "training"})

	if m.LastBeatIndex != -1 {
		t.Errorf("Expected last beat index -1 without beats, got %d", m.LastBeatIndex)
	}
	if m.HasExtrema {
		t.Error("Expected no extrema by default")
	}
}

func TestRedisKeys(t *testing.T) {
	if got := beatsKey("abc"); got != "session:abc:beats" {
		t.Errorf("Unexpected beats key %s", got)
	}
	if got := filteredDataKey("abc"); got != "session:abc:filtered:ecg" {
		t.Errorf("Unexpected filtered key %s", got)
	}
}
