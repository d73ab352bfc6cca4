package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/Krimson/ecg-monitory/emulator/internal/grpcserver"
	ecgv1 "github.com/Krimson/ecg-monitory/proto/ecg"
)

func main() {
	port := flag.Int("port", 50051, "Port for gRPC server")
	ackEvery := flag.Uint64("ack", 10, "Ack every N frames")
	flag.Parse()

	server := grpcserver.NewServer(*ackEvery)
	grpcServer := grpc.NewServer()
	ecgv1.RegisterSampleServiceServer(grpcServer, server)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	log.Printf("Starting gRPC sink on port %d", *port)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Горутина для мониторинга статистики
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			sessions := server.GetAllSessions()
			log.Printf("=== Sink Statistics ===")
			log.Printf("Sessions: %d", len(sessions))
			for sessionID, stats := range sessions {
				log.Printf("Session %s: frames=%d, samples=%d, last=%.0f, last_update=%v",
					sessionID, stats.ReceivedCount, stats.SampleCount, stats.LastValue,
					time.Since(stats.LastUpdate).Round(time.Millisecond))
			}
		}
	}()

	<-stop
	log.Println("Shutting down server...")
	grpcServer.GracefulStop()
	log.Println("Server stopped")
}
