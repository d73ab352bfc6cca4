// Package serialsource читает кадры проводного датчика ЭКГ с последовательного порта.
package serialsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/packet"
	"go.bug.st/serial"
)

// framesPerRead - сколько кадров читается за один вызов Read
const framesPerRead = 64

// SeriesAdder принимает серию равноотстоящих отсчетов (реализуется batch.Batcher)
type SeriesAdder interface {
	AddSeries(sessionID string, t0MS int64, periodMS float64, values []float64) error
}

// Options - параметры порта и потока
type Options struct {
	Port       string
	BaudRate   int
	SessionID  string
	Format     packet.Format
	SampleRate float64
}

// Source превращает поток байт датчика в отсчеты сессии
type Source struct {
	opts     Options
	adder    SeriesAdder
	periodMS float64
	now      func() time.Time

	samples uint64
	frames  uint64
}

// NewSource создает источник
func NewSource(opts Options, adder SeriesAdder) *Source {
	return &Source{
		opts:     opts,
		adder:    adder,
		periodMS: 1000 / opts.SampleRate,
		now:      time.Now,
	}
}

// Open открывает последовательный порт в режиме 8N1
func Open(opts Options) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(opts.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", opts.Port, err)
	}
	return port, nil
}

// Run читает r до EOF или отмены контекста. Неполный кадр ждет следующего чтения.
func (s *Source) Run(ctx context.Context, r io.Reader) error {
	frameSize := packet.FrameSize(s.opts.Format)
	buf := make([]byte, frameSize*framesPerRead)
	var pending []byte

	startMS := s.now().UnixMilli()
	log.Printf("[SERIAL] Reading %s frames for session %s", s.opts.Format, s.opts.SessionID)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			whole := len(pending) / frameSize * frameSize
			if whole > 0 {
				s.emit(startMS, pending[:whole])
				pending = append(pending[:0], pending[whole:]...)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("[SERIAL] Stream finished: frames=%d, samples=%d", s.frames, s.samples)
				return nil
			}
			return fmt.Errorf("failed to read serial stream: %w", err)
		}
	}
}

// emit декодирует целые кадры и передает отсчеты с метками от начала потока
func (s *Source) emit(startMS int64, data []byte) {
	values, err := packet.Decode(s.opts.Format, data)
	if err != nil {
		log.Printf("[WARN] [SERIAL] Failed to decode frames: %v", err)
		return
	}

	t0MS := startMS + int64(math.Round(float64(s.samples)*s.periodMS))
	if err := s.adder.AddSeries(s.opts.SessionID, t0MS, s.periodMS, values); err != nil {
		log.Printf("[WARN] [SERIAL] Failed to add samples: %v", err)
	}

	s.frames += uint64(len(data) / packet.FrameSize(s.opts.Format))
	s.samples += uint64(len(values))
}

// GetStats возвращает число принятых кадров и отсчетов
func (s *Source) GetStats() (frames, samples uint64) {
	return s.frames, s.samples
}
