package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Krimson/ecg-monitory/receiver/internal/session"
	"github.com/nats-io/nats.go"
)

// ParamMsg - показатели ритма, публикуемые в NATS
type ParamMsg struct {
	Subject   string   `json:"subject"`
	SessionID string   `json:"session_id"`
	Ts        int64    `json:"ts"`
	State     string   `json:"state"`
	HR        float64  `json:"hr"`
	CountHR   float64  `json:"count_hr"`
	RR        float64  `json:"rr"`
	MinHR     *float64 `json:"min_hr,omitempty"`
	MaxHR     *float64 `json:"max_hr,omitempty"`
	BeatCount int64    `json:"beat_count"`
	BeatIndex *int64   `json:"beat_index,omitempty"`
}

// publishConn - часть *nats.Conn, нужная публикатору
type publishConn interface {
	Publish(subj string, data []byte) error
}

// Publisher публикует показатели ритма (реализует session.Notifier)
type Publisher struct {
	conn    publishConn
	subject string
}

// NewPublisher создает публикатор; показатели уходят в <subject>.<session_id>
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	return &Publisher{conn: nc, subject: subject}
}

// Notify публикует обновление, если в нем есть показатели ритма
func (p *Publisher) Notify(ctx context.Context, update *session.Update) error {
	msg, ok := paramsFromUpdate(update)
	if !ok {
		return nil
	}

	subject := p.subject + "." + update.SessionID
	msg.Subject = subject

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	if err := p.conn.Publish(subject, b); err != nil {
		return fmt.Errorf("failed to publish params to %s: %w", subject, err)
	}

	if msg.BeatIndex != nil {
		log.Printf("[NATS] Session %s: beat at %d, HR %.1f BPM", update.SessionID, *msg.BeatIndex, msg.HR)
	}
	return nil
}

func paramsFromUpdate(update *session.Update) (*ParamMsg, bool) {
	m := update.Metrics
	if m == nil {
		return nil, false
	}

	msg := &ParamMsg{
		SessionID: update.SessionID,
		Ts:        m.UpdatedAt.UnixMilli(),
		State:     m.State,
		HR:        m.AvgHR,
		CountHR:   m.CountHR,
		RR:        m.AvgRR,
		BeatCount: m.BeatCount,
	}
	if m.HasExtrema {
		minHR, maxHR := m.MinHR, m.MaxHR
		msg.MinHR = &minHR
		msg.MaxHR = &maxHR
	}
	if update.Beat != nil {
		idx := update.Beat.SampleIndex
		msg.BeatIndex = &idx
	}
	return msg, true
}
