// Package analysis прогоняет записанный сигнал ЭКГ через детектор QRS
// и собирает отчет для оффлайн-сервиса.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
	"github.com/Krimson/ecg-monitory/pkg/qrs"
)

// ErrEmptySignal - в записи нет отсчетов
var ErrEmptySignal = errors.New("signal has no samples")

// Options - параметры анализа
type Options struct {
	Detector      qrs.Config
	BatchSize     int
	MaxPlotPoints int
	Spectral      SpectralOptions
}

// DefaultOptions возвращает параметры, совпадающие с потоком приемника: пакеты по 0.1 сек.
func DefaultOptions() Options {
	return Options{
		Detector:      qrs.DefaultConfig(),
		BatchSize:     36,
		MaxPlotPoints: 2000,
		Spectral:      DefaultSpectralOptions(),
	}
}

// Analyze подает запись в новый детектор пакетами по BatchSize отсчетов.
// Время ударов отсчитывается от первой метки времени записи.
func Analyze(record *models.ECGRecord, opts Options) (*models.ECGReport, error) {
	values := record.Value
	if len(values) == 0 {
		return nil, ErrEmptySignal
	}

	det, err := qrs.New(opts.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	fs := det.SampleRate()
	startSec := 0.0
	if len(record.TimeSec) > 0 {
		startSec = record.TimeSec[0]
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = len(values)
	}

	filtered := make([]float64, 0, len(values))
	beats := make([]models.BeatPoint, 0)
	for i := 0; i < len(values); i += batch {
		end := i + batch
		if end > len(values) {
			end = len(values)
		}
		upd := det.FeedSamples(values[i:end])
		filtered = append(filtered, upd.Filtered...)
		if upd.Beat != nil {
			beats = append(beats, models.BeatPoint{
				SampleIndex: upd.Beat.Index,
				TimeSec:     startSec + float64(upd.Beat.Index)/fs,
				RR:          upd.Beat.RR,
			})
		}
	}

	stats := det.Stats()
	report := &models.ECGReport{
		SampleRate:   fs,
		SampleCount:  det.SampleCount(),
		DurationSec:  float64(len(values)) / fs,
		State:        det.State().String(),
		Trained:      !det.IsTraining(),
		Threshold:    det.Threshold(),
		BeatCount:    det.BeatCount(),
		Beats:        beats,
		RR:           summarizeRR(beats),
		AvgHR:        stats.AvgHR,
		CountHR:      stats.CountHR,
		WindowHR:     stats.WindowHR,
		AvgRR:        stats.AvgRR,
		RateHistory:  stats.History,
		Computations: stats.Computations,
		Spectral:     SpectralRate(values, fs, opts.Spectral),
		FilteredECG:  decimate(filtered, startSec, fs, opts.MaxPlotPoints),
	}
	if report.RateHistory == nil {
		report.RateHistory = []float64{}
	}
	if minHR, ok := det.MinHR(); ok {
		report.MinHR = &minHR
	}
	if maxHR, ok := det.MaxHR(); ok {
		report.MaxHR = &maxHR
	}

	return report, nil
}

// summarizeRR считает статистику R-R. Первый удар отсчитан от начала записи и не учитывается.
func summarizeRR(beats []models.BeatPoint) models.RRSummary {
	if len(beats) < 2 {
		return models.RRSummary{}
	}

	rr := make([]float64, 0, len(beats)-1)
	for _, b := range beats[1:] {
		rr = append(rr, b.RR)
	}

	mean, std := stat.MeanStdDev(rr, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return models.RRSummary{
		Count:  len(rr),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(rr),
		Max:    floats.Max(rr),
	}
}

// decimate прореживает отфильтрованный сигнал до maxPoints точек для графика
func decimate(filtered []float64, startSec, fs float64, maxPoints int) models.ECGRecord {
	step := 1
	if maxPoints > 0 && len(filtered) > maxPoints {
		step = (len(filtered) + maxPoints - 1) / maxPoints
	}

	out := models.ECGRecord{
		TimeSec: make([]float64, 0, len(filtered)/step+1),
		Value:   make([]float64, 0, len(filtered)/step+1),
	}
	for i := 0; i < len(filtered); i += step {
		out.TimeSec = append(out.TimeSec, startSec+float64(i)/fs)
		out.Value = append(out.Value, filtered[i])
	}
	return out
}
