package server

import (
	"errors"
	"io"
	"log"
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Krimson/ecg-monitory/pkg/packet"
	ecgv1 "github.com/Krimson/ecg-monitory/proto/ecg"
	"github.com/Krimson/ecg-monitory/receiver/internal/config"
)

// SeriesAdder принимает серию равноотстоящих отсчетов (реализуется batch.Batcher)
type SeriesAdder interface {
	AddSeries(sessionID string, t0MS int64, periodMS float64, values []float64) error
}

// SampleServer реализует ecgv1.SampleServiceServer
type SampleServer struct {
	ecgv1.UnimplementedSampleServiceServer
	cfg     *config.Config
	batcher SeriesAdder
	now     func() time.Time
}

// NewSampleServer создает новый экземпляр SampleServer
func NewSampleServer(cfg *config.Config, batcher SeriesAdder) *SampleServer {
	return &SampleServer{
		cfg:     cfg,
		batcher: batcher,
		now:     time.Now,
	}
}

// PushSamples обрабатывает стрим кадров датчика от клиента.
// Сессия и формат кадра передаются в metadata потока.
func (s *SampleServer) PushSamples(stream ecgv1.SampleService_PushSamplesServer) error {
	sessionID, format, err := s.streamParams(stream)
	if err != nil {
		return err
	}

	log.Printf("[INFO] New PushSamples stream started: session=%s format=%s", sessionID, format)

	periodMS := 1000 / s.cfg.SampleRate
	startMS := s.now().UnixMilli()

	// Счетчики для Ack
	var (
		received uint64
		samples  uint64
	)

	for {
		frame, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("[INFO] PushSamples stream finished normally: session=%s frames=%d samples=%d",
					sessionID, received, samples)
				return s.sendAck(stream, sessionID, received, samples)
			}
			if status.Code(err) == codes.Canceled {
				log.Printf("[INFO] PushSamples stream context cancelled")
				return err
			}
			log.Printf("[ERROR] Failed to receive frame: %v", err)
			return err
		}

		values, err := packet.Decode(format, frame.GetValue())
		if err != nil {
			log.Printf("[WARN] Malformed frame from session %s: %v", sessionID, err)
			return status.Errorf(codes.InvalidArgument, "malformed frame %d: %v", received+1, err)
		}

		t0MS := startMS + int64(math.Round(float64(samples)*periodMS))
		if err := s.batcher.AddSeries(sessionID, t0MS, periodMS, values); err != nil {
			// Не возвращаем ошибку, продолжаем обработку
			log.Printf("[WARN] Failed to process frame: %v", err)
		}

		received++
		samples += uint64(len(values))

		// Отправляем Ack каждые ACK_EVERY_N кадров
		if s.cfg.AckEveryN > 0 && received%uint64(s.cfg.AckEveryN) == 0 {
			if err := s.sendAck(stream, sessionID, received, samples); err != nil {
				return err
			}
		}
	}
}

// streamParams читает идентификатор сессии и формат кадра из metadata
func (s *SampleServer) streamParams(stream ecgv1.SampleService_PushSamplesServer) (string, packet.Format, error) {
	md, _ := metadata.FromIncomingContext(stream.Context())

	sessionID := firstValue(md, ecgv1.MetadataSessionID)
	if sessionID == "" {
		return "", "", status.Error(codes.InvalidArgument, "missing "+ecgv1.MetadataSessionID+" metadata")
	}

	name := firstValue(md, ecgv1.MetadataFrameFormat)
	if name == "" {
		name = s.cfg.FrameFormat
	}
	format, err := packet.ParseFormat(name)
	if err != nil {
		return "", "", status.Error(codes.InvalidArgument, err.Error())
	}
	return sessionID, format, nil
}

func (s *SampleServer) sendAck(stream ecgv1.SampleService_PushSamplesServer, sessionID string, received, samples uint64) error {
	if err := stream.Send(ecgv1.NewAck(sessionID, received, samples)); err != nil {
		log.Printf("[ERROR] Failed to send ack: %v", err)
		return err
	}
	log.Printf("[DEBUG] Sent ack: session=%s frames=%d samples=%d", sessionID, received, samples)
	return nil
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
