package batch

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Krimson/ecg-monitory/receiver/internal/config"
)

// Batcher собирает отсчеты каждой сессии в батчи и передает их в Sink.
// Единственный flushWorker гарантирует, что батчи одной сессии доходят
// до детектора последовательно и в порядке сброса.
type Batcher struct {
	cfg     *config.Config
	sink    Sink
	mu      sync.RWMutex
	batches map[string]*currentBatch

	flushChan chan Batch
	stopChan  chan struct{}

	stats struct {
		mu         sync.RWMutex
		received   int64
		dropped    int64
		flushed    int64
		outOfOrder int64
	}
}

func NewBatcher(cfg *config.Config, sink Sink) *Batcher {
	b := &Batcher{
		cfg:       cfg,
		sink:      sink,
		batches:   make(map[string]*currentBatch),
		flushChan: make(chan Batch, 100),
		stopChan:  make(chan struct{}),
	}

	go b.flushWorker()
	go b.timerFlusher()

	return b
}

// Add добавляет отсчет в батч его сессии. Невалидные и слишком старые
// отсчеты отбрасываются и учитываются в статистике.
func (b *Batcher) Add(sample Sample) error {
	if err := b.validateSample(sample); err != nil {
		b.incrementDropped()
		log.Printf("[WARN] Invalid sample dropped: %v", err)
		return nil
	}

	key := sample.SessionID
	point := Point{
		TsMS:  sample.TsMS,
		Value: sample.Value,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	batch, exists := b.batches[key]
	if !exists {
		batch = newCurrentBatch(key, b.cfg.BatchMaxSamples)
		b.batches[key] = batch
	}

	if len(batch.Points) > 0 {
		timeDiff := batch.T1MS - point.TsMS

		if timeDiff > b.cfg.DropTooOldMS {
			b.incrementDropped()
			log.Printf("[WARN] Sample too old, dropped: session=%s ts_diff=%d", key, timeDiff)
			return nil
		}

		if timeDiff > b.cfg.OutOfOrderTolerance.Milliseconds() {
			b.incrementOutOfOrder()
			log.Printf("[WARN] Out of order sample: session=%s ts_diff=%d", key, timeDiff)
		}

		tempSpan := point.TsMS - batch.T0MS
		if point.TsMS < batch.T0MS {
			tempSpan = batch.T1MS - point.TsMS
		}
		if tempSpan > b.cfg.BatchMaxSpanMS {
			b.flushBatch(batch)
		}
	}

	batch.addPoint(point, time.Now().UnixMilli())
	b.incrementReceived()

	if batch.shouldFlushBySize(b.cfg.BatchMaxSamples) {
		b.flushBatch(batch)
	}

	return nil
}

// AddSeries добавляет подряд идущие отсчеты одной сессии с равным шагом по времени
func (b *Batcher) AddSeries(sessionID string, t0MS int64, periodMS float64, values []float64) error {
	for i, v := range values {
		ts := t0MS + int64(math.Round(float64(i)*periodMS))
		if err := b.Add(Sample{SessionID: sessionID, TsMS: ts, Value: v}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batcher) validateSample(sample Sample) error {
	if sample.SessionID == "" {
		return fmt.Errorf("empty session_id")
	}

	if sample.TsMS <= 0 {
		return fmt.Errorf("invalid timestamp: %d", sample.TsMS)
	}

	if math.IsNaN(sample.Value) || math.IsInf(sample.Value, 0) {
		return fmt.Errorf("invalid value: %f", sample.Value)
	}

	return nil
}

func (b *Batcher) flushBatch(batch *currentBatch) {
	if len(batch.Points) == 0 {
		return
	}

	batchCopy := batch.clone()

	batch.reset()

	select {
	case b.flushChan <- batchCopy:
		b.incrementFlushed()
	default:
		log.Printf("[WARN] Flush channel full, batch dropped")
		b.incrementDropped()
	}
}

func (b *Batcher) flushWorker() {
	for {
		select {
		case batch := <-b.flushChan:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := b.sink.Consume(ctx, batch); err != nil {
				log.Printf("[ERROR] Failed to consume batch: %v", err)
			}
			cancel()

		case <-b.stopChan:
			return
		}
	}
}

func (b *Batcher) timerFlusher() {
	ticker := time.NewTicker(time.Duration(b.cfg.FlushIntervalMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flushOldBatches()

		case <-b.stopChan:
			return
		}
	}
}

func (b *Batcher) flushOldBatches() {
	now := time.Now().UnixMilli()
	flushIntervalMS := b.cfg.FlushIntervalMS

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, batch := range b.batches {
		if len(batch.Points) > 0 &&
			(now-batch.lastAddedMS) >= flushIntervalMS {
			b.flushBatch(batch)
		}
	}
}

// Forget сбрасывает и удаляет батч завершенной сессии
func (b *Batcher) Forget(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if batch, ok := b.batches[sessionID]; ok {
		b.flushBatch(batch)
		delete(b.batches, sessionID)
	}
}

func (b *Batcher) Stop() {
	log.Printf("[INFO] Stopping batcher...")

	b.flushAllBatches()

	for len(b.flushChan) > 0 {
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	select {
	case <-b.stopChan:
	default:
		close(b.stopChan)
	}

	b.logStats()
}

func (b *Batcher) flushAllBatches() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, batch := range b.batches {
		if len(batch.Points) > 0 {
			b.flushBatch(batch)
		}
	}
}

// Методы для работы со статистикой
func (b *Batcher) incrementReceived() {
	b.stats.mu.Lock()
	b.stats.received++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementDropped() {
	b.stats.mu.Lock()
	b.stats.dropped++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementFlushed() {
	b.stats.mu.Lock()
	b.stats.flushed++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementOutOfOrder() {
	b.stats.mu.Lock()
	b.stats.outOfOrder++
	b.stats.mu.Unlock()
}

func (b *Batcher) logStats() {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	log.Printf("[STATS] received=%d dropped=%d flushed=%d out_of_order=%d",
		b.stats.received,
		b.stats.dropped,
		b.stats.flushed,
		b.stats.outOfOrder)
}

func (b *Batcher) GetStats() (received, dropped, flushed, outOfOrder int64) {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	return b.stats.received, b.stats.dropped, b.stats.flushed, b.stats.outOfOrder
}
