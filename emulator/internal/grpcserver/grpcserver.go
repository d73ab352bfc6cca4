// Package grpcserver - приемник-заглушка для локальной проверки эмулятора:
// принимает кадры PushSamples, считает их и отвечает подтверждениями.
package grpcserver

import (
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Krimson/ecg-monitory/pkg/packet"
	ecgv1 "github.com/Krimson/ecg-monitory/proto/ecg"
)

type Server struct {
	ecgv1.UnimplementedSampleServiceServer
	ackEvery uint64

	mu       sync.RWMutex
	sessions map[string]*SessionStats
}

type SessionStats struct {
	ReceivedCount uint64 // Кадры
	SampleCount   uint64
	LastUpdate    time.Time
	LastValue     float64
}

func NewServer(ackEvery uint64) *Server {
	if ackEvery == 0 {
		ackEvery = 10
	}
	return &Server{
		ackEvery: ackEvery,
		sessions: make(map[string]*SessionStats),
	}
}

func (s *Server) PushSamples(stream ecgv1.SampleService_PushSamplesServer) error {
	md, _ := metadata.FromIncomingContext(stream.Context())
	var sessionID, formatName string
	if v := md.Get(ecgv1.MetadataSessionID); len(v) > 0 {
		sessionID = v[0]
	}
	if v := md.Get(ecgv1.MetadataFrameFormat); len(v) > 0 {
		formatName = v[0]
	}
	if sessionID == "" {
		return status.Error(codes.InvalidArgument, "missing session id")
	}
	format, err := packet.ParseFormat(formatName)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	log.Printf("New connection for session: %s (format %s)", sessionID, format)

	var receivedCount, sampleCount uint64
	for {
		frame, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("Stream closed for session %s", sessionID)
				return stream.Send(ecgv1.NewAck(sessionID, receivedCount, sampleCount))
			}
			log.Printf("Stream closed for session %s: %v", sessionID, err)
			return err
		}

		values, err := packet.Decode(format, frame.GetValue())
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "malformed frame: %v", err)
		}

		// Обновляем статистику
		s.mu.Lock()
		stats, exists := s.sessions[sessionID]
		if !exists {
			stats = &SessionStats{}
			s.sessions[sessionID] = stats
		}
		stats.ReceivedCount++
		stats.SampleCount += uint64(len(values))
		stats.LastUpdate = time.Now()
		stats.LastValue = values[len(values)-1]
		s.mu.Unlock()

		receivedCount++
		sampleCount += uint64(len(values))

		// Отправляем подтверждение каждые ackEvery кадров
		if receivedCount%s.ackEvery == 0 {
			if err := stream.Send(ecgv1.NewAck(sessionID, receivedCount, sampleCount)); err != nil {
				log.Printf("Failed to send ack: %v", err)
				return err
			}
		}
	}
}

func (s *Server) GetSessionStats(sessionID string) *SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if stats, exists := s.sessions[sessionID]; exists {
		copied := *stats
		return &copied
	}
	return nil
}

func (s *Server) GetAllSessions() map[string]SessionStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make(map[string]SessionStats)
	for k, v := range s.sessions {
		sessions[k] = *v
	}
	return sessions
}
