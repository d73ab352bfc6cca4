package health

import (
	"context"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// SampleService - имя сервиса приема кадров для проверок здоровья
const SampleService = "ecg.v1.SampleService"

// HealthServer реализует grpc_health_v1.HealthServer с уведомлениями Watch
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	mu       sync.RWMutex
	services map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
	watchers map[string]map[chan grpc_health_v1.HealthCheckResponse_ServingStatus]struct{}
}

func NewHealthServer() *HealthServer {
	return &HealthServer{
		services: make(map[string]grpc_health_v1.HealthCheckResponse_ServingStatus),
		watchers: make(map[string]map[chan grpc_health_v1.HealthCheckResponse_ServingStatus]struct{}),
	}
}

// Check возвращает статус сервиса; пустое имя - статус сервера целиком
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	servingStatus, exists := h.services[req.GetService()]
	if !exists {
		if req.GetService() == "" {
			return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
		}
		return nil, status.Error(codes.NotFound, "service not found")
	}

	return &grpc_health_v1.HealthCheckResponse{
		Status: servingStatus,
	}, nil
}

// Watch отправляет текущий статус и затем каждое его изменение
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	service := req.GetService()
	updates := make(chan grpc_health_v1.HealthCheckResponse_ServingStatus, 1)

	h.mu.Lock()
	current, exists := h.services[service]
	if !exists {
		current = grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN
		if service == "" {
			current = grpc_health_v1.HealthCheckResponse_SERVING
		}
	}
	if h.watchers[service] == nil {
		h.watchers[service] = make(map[chan grpc_health_v1.HealthCheckResponse_ServingStatus]struct{})
	}
	h.watchers[service][updates] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.watchers[service], updates)
		h.mu.Unlock()
	}()

	if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: current}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case next := <-updates:
			if next == current {
				continue
			}
			current = next
			if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: current}); err != nil {
				return err
			}
		}
	}
}

// SetServingStatus помечает сервисы как работающие
func (h *HealthServer) SetServingStatus(services ...string) {
	for _, service := range services {
		h.setStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
	}
}

// SetNotServingStatus помечает сервисы как остановленные
func (h *HealthServer) SetNotServingStatus(services ...string) {
	for _, service := range services {
		h.setStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
}

func (h *HealthServer) setStatus(service string, servingStatus grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.services[service] = servingStatus

	for ch := range h.watchers[service] {
		// Наблюдателю нужен только последний статус
		select {
		case <-ch:
		default:
		}
		ch <- servingStatus
	}
}
