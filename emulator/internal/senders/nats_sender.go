package senders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/wave"
)

// natsConn - часть *nats.Conn, нужная отправителю
type natsConn interface {
	Publish(subj string, data []byte) error
	Flush() error
}

// NATSSender публикует волну в тему ecg.wave.<session_id>
type NATSSender struct {
	conn    natsConn
	subject string

	mu      sync.Mutex
	metrics SenderMetrics
}

// NewNATSSender создает отправителя; pattern - тема подписки приемника (ecg.wave.*)
func NewNATSSender(conn natsConn, pattern, sessionID string) *NATSSender {
	return &NATSSender{
		conn:    conn,
		subject: wave.Subject(pattern, sessionID),
	}
}

// Subject возвращает тему публикации
func (s *NATSSender) Subject() string {
	return s.subject
}

func (s *NATSSender) Send(ctx context.Context, values []float64) error {
	payload := wave.Encode(values)

	start := time.Now()
	err := s.conn.Publish(s.subject, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.metrics.TotalFailed++
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	s.metrics.TotalSent++
	s.metrics.SamplesSent += int64(len(values))
	s.metrics.BytesTransferred += int64(len(payload))
	s.metrics.LastSendTime = time.Since(start)
	return nil
}

func (s *NATSSender) Metrics() SenderMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Close дожидается доставки опубликованных сообщений серверу
func (s *NATSSender) Close() error {
	return s.conn.Flush()
}
