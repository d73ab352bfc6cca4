package batch

import (
	"context"
	"fmt"
	"log"
)

// LogSink пишет краткую информацию о батче в лог
type LogSink struct{}

func (ls *LogSink) Consume(ctx context.Context, b Batch) error {
	spanMS := b.T1MS - b.T0MS
	log.Printf("[BATCH] session=%s points=%d span_ms=%d t0=%d t1=%d",
		b.SessionID,
		len(b.Points),
		spanMS,
		b.T0MS,
		b.T1MS)
	return nil
}

// SampleProcessor принимает упорядоченные отсчеты сессии.
// Реализуется менеджером сессий, владеющим детекторами QRS.
type SampleProcessor interface {
	ProcessSamples(ctx context.Context, sessionID string, t0MS int64, values []float64) error
}

// DetectorSink передает каждый батч целиком в детектор сессии.
// Один батч соответствует одному вызову FeedSamples.
type DetectorSink struct {
	processor SampleProcessor
}

// NewDetectorSink создает sink поверх обработчика отсчетов
func NewDetectorSink(processor SampleProcessor) *DetectorSink {
	return &DetectorSink{processor: processor}
}

// Consume реализует интерфейс Sink
func (ds *DetectorSink) Consume(ctx context.Context, b Batch) error {
	if len(b.Points) == 0 {
		return nil
	}

	if err := ds.processor.ProcessSamples(ctx, b.SessionID, b.T0MS, b.Values()); err != nil {
		return fmt.Errorf("failed to process batch for session %s: %w", b.SessionID, err)
	}
	return nil
}

// CompositeSink объединяет несколько Sink для последовательной обработки батчей
type CompositeSink struct {
	sinks []Sink
}

// NewCompositeSink создает новый композитный Sink
func NewCompositeSink(sinks ...Sink) *CompositeSink {
	return &CompositeSink{
		sinks: sinks,
	}
}

// Consume отправляет batch во все подключенные sink'и
func (cs *CompositeSink) Consume(ctx context.Context, b Batch) error {
	for _, sink := range cs.sinks {
		if err := sink.Consume(ctx, b); err != nil {
			log.Printf("[ERROR] Sink failed to consume batch: %v", err)
			// Не возвращаем ошибку, продолжаем обработку в других sink'ах
		}
	}
	return nil
}
