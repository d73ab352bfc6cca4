package models

import (
	"errors"
	"time"
)

// ECGRecord - записанный сигнал ЭКГ
type ECGRecord struct {
	TimeSec []float64 `json:"time_sec"`
	Value   []float64 `json:"value"`
}

// BeatPoint - обнаруженный комплекс QRS
type BeatPoint struct {
	SampleIndex int     `json:"sample_index"`
	TimeSec     float64 `json:"time_sec"`
	RR          float64 `json:"rr"`
}

// RRSummary - статистика интервалов R-R без первого удара
type RRSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// SpectralEstimate - оценка ЧСС по спектру сигнала
type SpectralEstimate struct {
	Valid       bool    `json:"valid"`
	HeartRate   float64 `json:"heart_rate"`
	FrequencyHz float64 `json:"frequency_hz"`
	PeakRatio   float64 `json:"peak_ratio"`
}

// ECGReport - результат анализа записи
type ECGReport struct {
	SampleRate   float64          `json:"sample_rate"`
	SampleCount  int              `json:"sample_count"`
	DurationSec  float64          `json:"duration_sec"`
	State        string           `json:"state"`
	Trained      bool             `json:"trained"`
	Threshold    float64          `json:"threshold"`
	BeatCount    int              `json:"beat_count"`
	Beats        []BeatPoint      `json:"beats"`
	RR           RRSummary        `json:"rr"`
	AvgHR        float64          `json:"avg_hr"`
	CountHR      float64          `json:"count_hr"`
	WindowHR     float64          `json:"window_hr"`
	AvgRR        float64          `json:"avg_rr"`
	MinHR        *float64         `json:"min_hr,omitempty"`
	MaxHR        *float64         `json:"max_hr,omitempty"`
	RateHistory  []float64        `json:"rate_history"`
	Computations int              `json:"computations"`
	Spectral     SpectralEstimate `json:"spectral"`
	FilteredECG  ECGRecord        `json:"filtered_ecg"`
}

// AnalysisSession - отчет, ожидающий решения о сохранении
type AnalysisSession struct {
	SessionID string    `json:"session_id"`
	Report    ECGReport `json:"report"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}

// Статусы сессии анализа
const (
	StatusPending = "pending"
	StatusSaved   = "saved"
)

type SaveDecision struct {
	SessionID string `json:"session_id"`
	Save      bool   `json:"save"`
}

// Структуры ответов
type UploadResponse struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Report    ECGReport `json:"report"`
	Message   string    `json:"message,omitempty"`
}

type DecisionResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Ошибки
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidCSV      = errors.New("invalid ECG CSV")
)
