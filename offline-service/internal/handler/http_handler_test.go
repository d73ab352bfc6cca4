package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/Krimson/ecg-monitory/offline-service/config"
	"github.com/Krimson/ecg-monitory/offline-service/internal/repository"
	"github.com/Krimson/ecg-monitory/offline-service/internal/service"
	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
	"github.com/Krimson/ecg-monitory/pkg/ecgsim"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	cfg := config.LoadConfig()
	svc := service.NewECGService(cfg, repository.NewMemoryCache(cfg.RedisTTL), repository.NewMemoryArchive())
	mux := http.NewServeMux()
	NewHTTPHandler(svc, cfg.MaxUploadMB).RegisterRoutes(mux)
	return mux
}

func syntheticCSV(t *testing.T, seconds int) string {
	t.Helper()
	gen, err := ecgsim.New(ecgsim.DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}
	var sb strings.Builder
	sb.WriteString("time,value\n")
	for i, v := range gen.Samples(360 * seconds) {
		sb.WriteString(strconv.FormatFloat(float64(i)/360, 'g', -1, 64) + "," + strconv.FormatFloat(v, 'g', -1, 64) + "\n")
	}
	return sb.String()
}

func uploadRequest(t *testing.T, fields map[string]string, csvData string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	if csvData != "" {
		fw, err := mw.CreateFormFile("ecg_file", "record.csv")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		fw.Write([]byte(csvData))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDecisionAndGet(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, map[string]string{"session_id": "rec-1"}, syntheticCSV(t, 20)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var upload models.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &upload); err != nil {
		t.Fatalf("Failed to decode upload response: %v", err)
	}
	if upload.SessionID != "rec-1" {
		t.Errorf("Expected session rec-1, got %s", upload.SessionID)
	}
	if upload.Report.BeatCount == 0 {
		t.Error("Expected beats in a 20s record")
	}
	if !upload.Report.Spectral.Valid || upload.Report.Spectral.HeartRate < 73 || upload.Report.Spectral.HeartRate > 77 {
		t.Errorf("Expected spectral estimate near 75, got %+v", upload.Report.Spectral)
	}

	decision, _ := json.Marshal(models.SaveDecision{SessionID: "rec-1", Save: true})
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/decision", bytes.NewReader(decision)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for decision, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session?session_id=rec-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for session, got %d", rec.Code)
	}
	var session models.AnalysisSession
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if session.Status != models.StatusSaved {
		t.Errorf("Expected saved status, got %s", session.Status)
	}
}

func TestUploadGeneratesSessionID(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, nil, syntheticCSV(t, 1)))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var upload models.UploadResponse
	json.Unmarshal(rec.Body.Bytes(), &upload)
	if len(upload.SessionID) != 36 {
		t.Errorf("Expected generated UUID session id, got %q", upload.SessionID)
	}
}

func TestUploadErrors(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"wrong method", httptest.NewRequest(http.MethodGet, "/upload", nil), http.StatusMethodNotAllowed},
		{"missing file", uploadRequest(t, map[string]string{"session_id": "x"}, ""), http.StatusBadRequest},
		{"bad csv", uploadRequest(t, nil, "time,value\nfoo,bar\n"), http.StatusBadRequest},
		{"bad sample rate", uploadRequest(t, map[string]string{"sample_rate": "-1"}, "0,1\n"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, tt.req)
		if rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.code, rec.Code)
		}
	}
}

func TestDecisionAndSessionErrors(t *testing.T) {
	mux := newTestMux(t)

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"invalid body", httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader("{")), http.StatusBadRequest},
		{"missing session id", httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(`{"save":true}`)), http.StatusBadRequest},
		{"unknown session", httptest.NewRequest(http.MethodPost, "/decision", strings.NewReader(`{"session_id":"nope","save":true}`)), http.StatusNotFound},
		{"session without id", httptest.NewRequest(http.MethodGet, "/session", nil), http.StatusBadRequest},
		{"session not found", httptest.NewRequest(http.MethodGet, "/session?session_id=nope", nil), http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, tt.req)
		if rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.code, rec.Code)
		}
	}
}

func TestGetStats(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/stats", nil))

	var stats map[string]map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats["cache"]["backend"] != "memory" || stats["archive"]["backend"] != "memory" {
		t.Errorf("Unexpected stats %v", stats)
	}
}
