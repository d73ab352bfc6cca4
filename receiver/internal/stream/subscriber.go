package stream

import (
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/wave"
	"github.com/nats-io/nats.go"
)

// resyncMS - расхождение часов сессии с текущим временем, после которого часы сбрасываются
const resyncMS = 1000

// SeriesAdder принимает серию равноотстоящих отсчетов (реализуется batch.Batcher)
type SeriesAdder interface {
	AddSeries(sessionID string, t0MS int64, periodMS float64, values []float64) error
}

// Subscriber принимает волну ЭКГ из NATS и передает ее в батчер
type Subscriber struct {
	adder    SeriesAdder
	periodMS float64
	now      func() time.Time

	mu     sync.Mutex
	clocks map[string]float64 // Метка времени следующего отсчета по сессиям

	sub *nats.Subscription

	received int64
	dropped  int64
}

// NewSubscriber создает подписчика для частоты дискретизации sampleRate
func NewSubscriber(adder SeriesAdder, sampleRate float64) *Subscriber {
	return &Subscriber{
		adder:    adder,
		periodMS: 1000 / sampleRate,
		now:      time.Now,
		clocks:   make(map[string]float64),
	}
}

// Start подписывается на тему волны (например ecg.wave.*)
func (s *Subscriber) Start(nc *nats.Conn, subject string) error {
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := s.handle(msg.Subject, msg.Data); err != nil {
			log.Printf("[WARN] [NATS] Dropped wave message on %s: %v", msg.Subject, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s.sub = sub
	log.Printf("[NATS] Subscribed to %s", subject)
	return nil
}

// Stop отписывается от темы
func (s *Subscriber) Stop() {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			log.Printf("[WARN] [NATS] Failed to unsubscribe: %v", err)
		}
	}
	log.Printf("[NATS] Subscriber stopped: received=%d, dropped=%d",
		atomic.LoadInt64(&s.received), atomic.LoadInt64(&s.dropped))
}

// handle декодирует сообщение и передает отсчеты с метками времени
func (s *Subscriber) handle(subject string, data []byte) error {
	values, err := wave.Decode(data)
	if err != nil {
		atomic.AddInt64(&s.dropped, 1)
		return err
	}
	if len(values) == 0 {
		return nil
	}

	sessionID := SessionFromSubject(subject)
	t0MS := s.advanceClock(sessionID, len(values))

	atomic.AddInt64(&s.received, int64(len(values)))
	return s.adder.AddSeries(sessionID, t0MS, s.periodMS, values)
}

// advanceClock возвращает метку первого отсчета и сдвигает часы сессии
func (s *Subscriber) advanceClock(sessionID string, n int) int64 {
	nowMS := float64(s.now().UnixMilli())

	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.clocks[sessionID]
	if !ok || math.Abs(nowMS-next) > resyncMS {
		next = nowMS
	}
	s.clocks[sessionID] = next + float64(n)*s.periodMS
	return int64(math.Round(next))
}

// GetStats возвращает число принятых отсчетов и отброшенных сообщений
func (s *Subscriber) GetStats() (received, dropped int64) {
	return atomic.LoadInt64(&s.received), atomic.LoadInt64(&s.dropped)
}
