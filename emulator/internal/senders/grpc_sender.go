package senders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Krimson/ecg-monitory/pkg/packet"
	ecgv1 "github.com/Krimson/ecg-monitory/proto/ecg"
)

// GRPCSender отправляет кадры датчика в поток PushSamples приемника
type GRPCSender struct {
	conn      *grpc.ClientConn
	stream    ecgv1.SampleService_PushSamplesClient
	sessionID string
	format    packet.Format

	acksDone chan struct{}
	ackErr   error

	mu      sync.Mutex
	metrics SenderMetrics
}

// NewGRPCSender подключается к приемнику и открывает поток для сессии
func NewGRPCSender(ctx context.Context, serverAddr, sessionID string, format packet.Format, opts ...grpc.DialOption) (*GRPCSender, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(serverAddr, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ctx = metadata.AppendToOutgoingContext(ctx,
		ecgv1.MetadataSessionID, sessionID,
		ecgv1.MetadataFrameFormat, string(format),
	)
	stream, err := ecgv1.NewSampleServiceClient(conn).PushSamples(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	s := &GRPCSender{
		conn:      conn,
		stream:    stream,
		sessionID: sessionID,
		format:    format,
		acksDone:  make(chan struct{}),
	}
	go s.receiveAcks()
	return s, nil
}

// Send кодирует отсчеты в кадры формата и отправляет одним сообщением
func (s *GRPCSender) Send(ctx context.Context, values []float64) error {
	frame, err := packet.Encode(s.format, quantize(values, s.format))
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	start := time.Now()
	err = s.stream.Send(wrapperspb.Bytes(frame))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.metrics.TotalFailed++
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	s.metrics.TotalSent++
	s.metrics.SamplesSent += int64(len(values))
	s.metrics.BytesTransferred += int64(len(frame))
	s.metrics.LastSendTime = time.Since(start)
	return nil
}

func (s *GRPCSender) receiveAcks() {
	defer close(s.acksDone)
	for {
		ack, err := s.stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("Failed to receive ack: %v", err)
				s.mu.Lock()
				s.ackErr = err
				s.mu.Unlock()
			}
			return
		}

		sessionID, frames, samples := ecgv1.ParseAck(ack)
		s.mu.Lock()
		s.metrics.AckedFrames = frames
		s.metrics.AckedSamples = samples
		s.mu.Unlock()

		log.Printf("Received ack for session %s: frames=%d samples=%d", sessionID, frames, samples)
	}
}

// Metrics возвращает метрики отправки
func (s *GRPCSender) Metrics() SenderMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// Close закрывает поток и ждет последнего подтверждения
func (s *GRPCSender) Close() error {
	closeErr := s.stream.CloseSend()
	<-s.acksDone

	s.mu.Lock()
	ackErr := s.ackErr
	s.mu.Unlock()

	if err := s.conn.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if ackErr != nil {
		return ackErr
	}
	return closeErr
}
