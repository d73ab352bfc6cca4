package senders

import (
	"context"
	"errors"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/ecgsim"
	"github.com/Krimson/ecg-monitory/pkg/packet"
)

// Ошибки отправителей
var (
	ErrSendFailed       = errors.New("failed to send data")
	ErrConnectionFailed = errors.New("connection failed")
)

// DataSender интерфейс для отправки отсчетов
type DataSender interface {
	// Send отправляет порцию отсчетов одним сообщением
	Send(ctx context.Context, values []float64) error

	// Metrics возвращает метрики отправки
	Metrics() SenderMetrics

	// Close дожидается подтверждений и освобождает ресурсы
	Close() error
}

// SenderMetrics содержит метрики отправки
type SenderMetrics struct {
	TotalSent        int
	TotalFailed      int
	SamplesSent      int64
	BytesTransferred int64
	LastSendTime     time.Duration
	AckedFrames      uint64
	AckedSamples     uint64
}

// quantize переводит значения в отсчеты АЦП допустимого для формата диапазона
func quantize(values []float64, format packet.Format) []uint16 {
	max := 0xFFFF
	if format == packet.FormatPacked11 {
		max = 0x7FF
	}

	out := make([]uint16, len(values))
	for i, v := range values {
		out[i] = uint16(ecgsim.Quantize(v, max))
	}
	return out
}
