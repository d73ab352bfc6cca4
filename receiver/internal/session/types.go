package session

import (
	"time"

	"github.com/Krimson/ecg-monitory/pkg/qrs"
)

// SessionStatus представляет статус сессии
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusStopped SessionStatus = "STOPPED"
	SessionStatusSaved   SessionStatus = "SAVED"
)

// Session представляет сессию мониторинга ЭКГ
type Session struct {
	ID              string        `json:"id"`
	Status          SessionStatus `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	StoppedAt       *time.Time    `json:"stopped_at,omitempty"`
	SavedAt         *time.Time    `json:"saved_at,omitempty"`
	TotalDurationMs int64         `json:"total_duration_ms"`
	TotalDataPoints int64         `json:"total_data_points"`
	TotalBeats      int64         `json:"total_beats"`
	SampleRate      float64       `json:"sample_rate"`
	Metadata        Metadata      `json:"metadata,omitempty"`
}

// Metadata содержит дополнительную информацию о сессии
type Metadata struct {
	PatientID   string                 `json:"patient_id,omitempty"`
	DoctorID    string                 `json:"doctor_id,omitempty"`
	FacilityID  string                 `json:"facility_id,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	CustomData  map[string]interface{} `json:"custom_data,omitempty"`
	CreatedFrom string                 `json:"created_from,omitempty"` // "web", "mobile", "emulator", "serial"
}

// RhythmMetrics - текущие показатели ритма сессии, снимок состояния детектора
type RhythmMetrics struct {
	SessionID     string    `json:"session_id"`
	State         string    `json:"state"` // training | armed | refractory
	Threshold     float64   `json:"threshold"`
	SampleCount   int64     `json:"sample_count"`
	BeatCount     int64     `json:"beat_count"`
	LastBeatIndex int64     `json:"last_beat_index"` // -1, если ударов еще не было
	AvgRR         float64   `json:"avg_rr"`
	AvgHR         float64   `json:"avg_hr"`
	CountHR       float64   `json:"count_hr"`
	MinHR         float64   `json:"min_hr"`
	MaxHR         float64   `json:"max_hr"`
	HasExtrema    bool      `json:"has_extrema"`
	Computations  int       `json:"computations"`
	History       []float64 `json:"history,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BeatEvent - обнаруженный комплекс QRS
type BeatEvent struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	SampleIndex int64     `json:"sample_index"`
	TimeSec     float64   `json:"time_sec"` // От начала сессии
	TsMS        int64     `json:"ts_ms"`    // Временная метка отсчета от источника
	RR          float64   `json:"rr"`
	CreatedAt   time.Time `json:"created_at"`
}

// RatePoint - значение ЧСС после очередного пересчета окна R-R
type RatePoint struct {
	SessionID   string  `json:"session_id"`
	Computation int     `json:"computation"`
	TimeSec     float64 `json:"time_sec"`
	AvgRR       float64 `json:"avg_rr"`
	AvgHR       float64 `json:"avg_hr"`
	CountHR     float64 `json:"count_hr"`
}

// FilteredDataPoint представляет отфильтрованную точку ЭКГ
type FilteredDataPoint struct {
	TimeSec float64 `json:"time_sec"`
	Value   float64 `json:"value"`
}

// SessionData представляет все данные сессии для хранения
type SessionData struct {
	Session     *Session            `json:"session"`
	Metrics     *RhythmMetrics      `json:"metrics"`
	Beats       []BeatEvent         `json:"beats"`
	RateSeries  []RatePoint         `json:"rate_series"`
	FilteredECG []FilteredDataPoint `json:"filtered_ecg"`
}

// Update - порция данных для live-подписчиков (websocket, NATS)
type Update struct {
	SessionID string              `json:"session_id"`
	Metrics   *RhythmMetrics      `json:"metrics,omitempty"`
	Beat      *BeatEvent          `json:"beat,omitempty"`
	Filtered  []FilteredDataPoint `json:"filtered,omitempty"`
}

// CreateSessionRequest представляет запрос на создание сессии
type CreateSessionRequest struct {
	PatientID   string                 `json:"patient_id,omitempty"`
	DoctorID    string                 `json:"doctor_id,omitempty"`
	FacilityID  string                 `json:"facility_id,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	CustomData  map[string]interface{} `json:"custom_data,omitempty"`
	CreatedFrom string                 `json:"created_from,omitempty"`
}

// SessionResponse представляет ответ с информацией о сессии
type SessionResponse struct {
	Session *Session       `json:"session"`
	Metrics *RhythmMetrics `json:"metrics,omitempty"`
}

// SaveSessionRequest представляет запрос на сохранение сессии
type SaveSessionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// NewRhythmMetrics снимает показатели с детектора
func NewRhythmMetrics(sessionID string, det *qrs.Detector) *RhythmMetrics {
	stats := det.Stats()

	lastBeat := int64(-1)
	if idx, ok := det.LastBeat(); ok {
		lastBeat = int64(idx)
	}

	return &RhythmMetrics{
		SessionID:     sessionID,
		State:         det.State().String(),
		Threshold:     det.Threshold(),
		SampleCount:   int64(det.SampleCount()),
		BeatCount:     int64(det.BeatCount()),
		LastBeatIndex: lastBeat,
		AvgRR:         stats.AvgRR,
		AvgHR:         stats.AvgHR,
		CountHR:       stats.CountHR,
		MinHR:         stats.MinHR,
		MaxHR:         stats.MaxHR,
		HasExtrema:    stats.HasExtrema,
		Computations:  stats.Computations,
		History:       stats.History,
		UpdatedAt:     time.Now(),
	}
}

// ConvertFiltered превращает выход фильтра в точки с временем от начала сессии
func ConvertFiltered(values []float64, firstIndex int, sampleRate float64) []FilteredDataPoint {
	points := make([]FilteredDataPoint, 0, len(values))
	for i, v := range values {
		points = append(points, FilteredDataPoint{
			TimeSec: float64(firstIndex+i) / sampleRate,
			Value:   v,
		})
	}
	return points
}
