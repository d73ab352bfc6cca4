package senders

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/packet"
)

// FileSender пишет отсчеты в CSV (time_sec,value), пригодный для загрузки в оффлайн-сервис
type FileSender struct {
	mu         sync.Mutex
	file       io.Closer
	buf        *bufio.Writer
	writer     *csv.Writer
	format     packet.Format
	sampleRate float64
	written    int64
	metrics    SenderMetrics
}

// NewFileSender создает файл записи, при необходимости вместе с директорией
func NewFileSender(filePath string, format packet.Format, sampleRate float64) (*FileSender, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	s, err := newFileSender(file, file, format, sampleRate)
	if err != nil {
		file.Close()
		return nil, err
	}
	return s, nil
}

func newFileSender(w io.Writer, closer io.Closer, format packet.Format, sampleRate float64) (*FileSender, error) {
	buf := bufio.NewWriterSize(w, 4096)
	s := &FileSender{
		file:       closer,
		buf:        buf,
		writer:     csv.NewWriter(buf),
		format:     format,
		sampleRate: sampleRate,
	}
	if err := s.writer.Write([]string{"time_sec", "value"}); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return s, nil
}

// Send дописывает отсчеты, квантованные так же, как при отправке кадрами
func (s *FileSender) Send(ctx context.Context, values []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	bytes := 0
	for _, v := range quantize(values, s.format) {
		row := []string{
			strconv.FormatFloat(float64(s.written)/s.sampleRate, 'f', 6, 64),
			strconv.Itoa(int(v)),
		}
		if err := s.writer.Write(row); err != nil {
			s.metrics.TotalFailed++
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		s.written++
		bytes += len(row[0]) + len(row[1]) + 2
	}

	s.metrics.TotalSent++
	s.metrics.SamplesSent += int64(len(values))
	s.metrics.BytesTransferred += int64(bytes)
	s.metrics.LastSendTime = time.Since(start)
	return nil
}

func (s *FileSender) Metrics() SenderMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Close сбрасывает буферы и закрывает файл
func (s *FileSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("final flush failed: %w", err)
	}
	if err := s.buf.Flush(); err != nil {
		return fmt.Errorf("final flush failed: %w", err)
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
