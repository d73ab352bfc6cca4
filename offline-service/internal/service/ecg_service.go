package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Krimson/ecg-monitory/offline-service/config"
	"github.com/Krimson/ecg-monitory/offline-service/internal/analysis"
	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

type ECGService struct {
	cfg       *config.Config
	cacheRepo CacheRepository
	dbRepo    DBRepository
	now       func() time.Time
}

func NewECGService(cfg *config.Config, cacheRepo CacheRepository, dbRepo DBRepository) *ECGService {
	return &ECGService{
		cfg:       cfg,
		cacheRepo: cacheRepo,
		dbRepo:    dbRepo,
		now:       time.Now,
	}
}

// ProcessCSV разбирает запись (time,value), прогоняет ее через детектор QRS
// и кладет отчет в кеш до решения о сохранении.
// sampleRate <= 0 - частота определяется по столбцу времени.
func (s *ECGService) ProcessCSV(ctx context.Context, file io.Reader, sessionID string, sampleRate float64) (*models.UploadResponse, error) {
	log.Printf("[INFO] Starting ECG CSV processing for session: %s", sessionID)

	record, err := parseECGCSV(file)
	if err != nil {
		return nil, err
	}

	source := "request"
	if sampleRate <= 0 {
		sampleRate, source = estimateSampleRate(record.TimeSec), "time column"
		if sampleRate <= 0 {
			sampleRate, source = s.cfg.SampleRate, "config"
		}
	}
	log.Printf("[INFO] Session %s: %d samples at %.2f Hz (rate from %s)",
		sessionID, len(record.Value), sampleRate, source)

	detectorCfg, err := s.cfg.DetectorConfig(sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidCSV, err)
	}

	report, err := analysis.Analyze(record, analysis.Options{
		Detector:      detectorCfg,
		BatchSize:     s.cfg.BatchSize,
		MaxPlotPoints: s.cfg.MaxPlotPoints,
		Spectral: analysis.SpectralOptions{
			MinBPM:    s.cfg.MinBPM,
			MaxBPM:    s.cfg.MaxBPM,
			Harmonics: s.cfg.Harmonics,
			PadFactor: 4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze record: %w", err)
	}

	session := &models.AnalysisSession{
		SessionID: sessionID,
		Report:    *report,
		CreatedAt: s.now(),
		Status:    models.StatusPending,
	}
	if err := s.cacheRepo.SaveSession(ctx, sessionID, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	message := fmt.Sprintf("Detected %d beats in %.1f s", report.BeatCount, report.DurationSec)
	if !report.Trained {
		message = "Record is shorter than the detector training period"
	}
	if report.Spectral.Valid {
		message += fmt.Sprintf("; spectral estimate %.1f bpm", report.Spectral.HeartRate)
	}

	log.Printf("[INFO] Session %s processed: beats=%d avg_hr=%.1f spectral_hr=%.1f",
		sessionID, report.BeatCount, report.AvgHR, report.Spectral.HeartRate)

	return &models.UploadResponse{
		SessionID: sessionID,
		Status:    "processed",
		Report:    *report,
		Message:   message,
	}, nil
}

// HandleDecision сохраняет отчет в архив или удаляет его из кеша
func (s *ECGService) HandleDecision(ctx context.Context, decision *models.SaveDecision) (*models.DecisionResponse, error) {
	log.Printf("[INFO] Processing decision for session %s: save=%t", decision.SessionID, decision.Save)

	session, err := s.cacheRepo.GetSession(ctx, decision.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session data: %w", err)
	}

	if !decision.Save {
		if err := s.cacheRepo.DeleteSession(ctx, decision.SessionID); err != nil {
			return nil, fmt.Errorf("failed to delete session: %w", err)
		}

		log.Printf("[INFO] Session %s discarded", decision.SessionID)

		return &models.DecisionResponse{
			Status:  "cancelled",
			Message: "Report was not saved and has been deleted",
			Data: map[string]interface{}{
				"session_id": decision.SessionID,
				"beat_count": session.Report.BeatCount,
				"avg_hr":     session.Report.AvgHR,
			},
		}, nil
	}

	if err := s.dbRepo.SaveReport(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save to database: %w", err)
	}

	// Обновляем статус в кеше
	session.Status = models.StatusSaved
	if err := s.cacheRepo.SaveSession(ctx, decision.SessionID, session); err != nil {
		log.Printf("[WARN] Failed to update session status in cache for %s: %v", decision.SessionID, err)
	}

	return &models.DecisionResponse{
		Status:  models.StatusSaved,
		Message: "Report successfully saved to database",
		Data: map[string]interface{}{
			"session_id":  session.SessionID,
			"beat_count":  session.Report.BeatCount,
			"avg_hr":      session.Report.AvgHR,
			"spectral_hr": session.Report.Spectral.HeartRate,
			"created_at":  session.CreatedAt,
			"saved_at":    s.now(),
		},
	}, nil
}

// GetReport ищет отчет в кеше, затем в архиве
func (s *ECGService) GetReport(ctx context.Context, sessionID string) (*models.AnalysisSession, error) {
	session, err := s.cacheRepo.GetSession(ctx, sessionID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, models.ErrSessionNotFound) && !errors.Is(err, models.ErrSessionExpired) {
		return nil, err
	}
	return s.dbRepo.GetReport(ctx, sessionID)
}

// Stats - состояние хранилищ для отладки
func (s *ECGService) Stats() map[string]interface{} {
	return map[string]interface{}{
		"cache":   s.cacheRepo.GetStats(),
		"archive": s.dbRepo.GetStats(),
	}
}

// parseECGCSV читает файл из двух колонок: time_sec, value
func parseECGCSV(file io.Reader) (*models.ECGRecord, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV: %v", models.ErrInvalidCSV, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty CSV file", models.ErrInvalidCSV)
	}

	result := &models.ECGRecord{
		TimeSec: make([]float64, 0, len(records)),
		Value:   make([]float64, 0, len(records)),
	}

	startIndex := 0
	if isHeader(records[0]) {
		startIndex = 1
	}

	skipped := 0
	for i := startIndex; i < len(records); i++ {
		if len(records[i]) < 2 {
			skipped++
			continue
		}

		timeVal, err := strconv.ParseFloat(strings.TrimSpace(records[i][0]), 64)
		if err != nil {
			skipped++
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(records[i][1]), 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			skipped++
			continue
		}

		result.TimeSec = append(result.TimeSec, timeVal)
		result.Value = append(result.Value, value)
	}

	if skipped > 0 {
		log.Printf("[WARN] Skipped %d malformed CSV lines", skipped)
	}
	if len(result.Value) == 0 {
		return nil, fmt.Errorf("%w: no valid records found", models.ErrInvalidCSV)
	}

	return result, nil
}

// estimateSampleRate определяет частоту по среднему шагу столбца времени, 0 если шаг не определен
func estimateSampleRate(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	span := times[len(times)-1] - times[0]
	if !(span > 0) {
		return 0
	}
	return math.Round(float64(len(times)-1)/span*100) / 100
}

// Вспомогательные функции
func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}

	firstCell := strings.ToLower(strings.TrimSpace(row[0]))
	if _, err := strconv.ParseFloat(firstCell, 64); err == nil {
		return false
	}

	headerIndicators := []string{"time", "sec", "sample", "ecg", "value"}
	for _, indicator := range headerIndicators {
		if strings.Contains(firstCell, indicator) {
			return true
		}
	}

	return false
}
