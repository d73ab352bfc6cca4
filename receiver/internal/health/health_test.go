package health

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthServer_Check(t *testing.T) {
	h := NewHealthServer()
	ctx := context.Background()

	resp, err := h.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil || resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Expected overall SERVING, got %v (%v)", resp, err)
	}

	if _, err := h.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: SampleService}); status.Code(err) != codes.NotFound {
		t.Errorf("Expected NotFound for unregistered service, got %v", err)
	}

	h.SetServingStatus("", SampleService)
	h.SetNotServingStatus(SampleService)

	resp, err = h.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: SampleService})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING, got %v", resp.Status)
	}
}

func TestHealthServer_WatchReceivesChanges(t *testing.T) {
	h := NewHealthServer()
	h.SetServingStatus(SampleService)

	lis := bufconn.Listen(1 << 16)
	srv := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, h)
	go srv.Serve(lis)
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := grpc_health_v1.NewHealthClient(conn).Watch(ctx, &grpc_health_v1.HealthCheckRequest{Service: SampleService})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if first.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING, got %v", first.Status)
	}

	h.SetNotServingStatus(SampleService)

	next, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if next.Status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING, got %v", next.Status)
	}
}
