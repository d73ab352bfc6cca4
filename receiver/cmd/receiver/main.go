package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Krimson/ecg-monitory/pkg/packet"
	"github.com/Krimson/ecg-monitory/pkg/wave"
	ecgv1 "github.com/Krimson/ecg-monitory/proto/ecg"
	_ "github.com/Krimson/ecg-monitory/receiver/docs" // Swagger docs
	"github.com/Krimson/ecg-monitory/receiver/internal/batch"
	"github.com/Krimson/ecg-monitory/receiver/internal/config"
	"github.com/Krimson/ecg-monitory/receiver/internal/health"
	"github.com/Krimson/ecg-monitory/receiver/internal/serialsource"
	"github.com/Krimson/ecg-monitory/receiver/internal/server"
	"github.com/Krimson/ecg-monitory/receiver/internal/session"
	"github.com/Krimson/ecg-monitory/receiver/internal/stream"
	"github.com/Krimson/ecg-monitory/receiver/internal/websocket"
)

// @title ECG Receiver API
// @version 1.0
// @description Сессии мониторинга ЭКГ: ЧСС, интервалы R-R и обнаруженные комплексы QRS
// @host localhost:8080
// @BasePath /
// @schemes http

func main() {
	log.Printf("[INFO] Starting receiver server...")

	cfg := config.Load()
	log.Printf("[INFO] Configuration loaded: grpc_port=%s http_port=%s batch_max_samples=%d sample_rate=%.0f",
		cfg.GRPCPort, cfg.HTTPPort, cfg.BatchMaxSamples, cfg.SampleRate)

	detectorCfg, err := cfg.DetectorConfig()
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if _, err := packet.ParseFormat(cfg.FrameFormat); err != nil {
		log.Fatalf("[FATAL] Invalid ECG_FRAME_FORMAT: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis - горячие данные сессий
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("[FATAL] Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}
	defer redisClient.Close()
	log.Printf("[INFO] Connected to Redis at %s", cfg.RedisAddr)

	// PostgreSQL - архив сессий
	repo, err := session.NewPostgresRepositoryFromDSN(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[FATAL] Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()
	if err := session.MigrateUp(repo.DB()); err != nil {
		log.Fatalf("[FATAL] Failed to apply migrations: %v", err)
	}
	log.Printf("[INFO] Connected to PostgreSQL, schema is up to date")

	manager := session.NewManager(session.NewRedisStore(redisClient), repo, session.Settings{
		Detector:       detectorCfg,
		PublishEvery:   cfg.PublishEvery,
		FilteredWindow: cfg.FilteredWindowSeconds,
		DataTTLSeconds: cfg.SessionDataTTLSeconds,
	})

	// Live-обновления: WebSocket и, при наличии, NATS
	hub := websocket.NewHub()
	go hub.Run(ctx)
	manager.AddNotifier(hub)

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = wave.Connect(cfg.NATSURL, "ecg-receiver")
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to NATS at %s: %v", cfg.NATSURL, err)
		}
		defer nc.Drain()
		manager.AddNotifier(stream.NewPublisher(nc, cfg.NATSParamsSubject))
		log.Printf("[INFO] Publishing rhythm parameters to %s.<session_id>", cfg.NATSParamsSubject)
	}

	sink := batch.NewCompositeSink(batch.NewDetectorSink(manager), &batch.LogSink{})
	batcher := batch.NewBatcher(cfg, sink)

	// Источники сигнала помимо gRPC
	if nc != nil {
		subscriber := stream.NewSubscriber(batcher, cfg.SampleRate)
		if err := subscriber.Start(nc, cfg.NATSWaveSubject); err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		defer subscriber.Stop()
	}

	if cfg.SerialPort != "" {
		opts := serialsource.Options{
			Port:       cfg.SerialPort,
			BaudRate:   cfg.SerialBaudRate,
			SessionID:  cfg.SerialSessionID,
			Format:     packet.Format(cfg.FrameFormat),
			SampleRate: cfg.SampleRate,
		}
		port, err := serialsource.Open(opts)
		if err != nil {
			log.Fatalf("[FATAL] %v", err)
		}
		defer port.Close()

		source := serialsource.NewSource(opts, batcher)
		go func() {
			if err := source.Run(ctx, port); err != nil && ctx.Err() == nil {
				log.Printf("[ERROR] [SERIAL] Source stopped: %v", err)
			}
		}()
	}

	// gRPC сервер
	grpcServer := grpc.NewServer()

	sampleServer := server.NewSampleServer(cfg, batcher)
	ecgv1.RegisterSampleServiceServer(grpcServer, sampleServer)

	healthServer := health.NewHealthServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	address := fmt.Sprintf(":%s", cfg.GRPCPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		log.Fatalf("[FATAL] Failed to listen on %s: %v", address, err)
	}

	log.Printf("[INFO] gRPC server listening on %s", address)

	healthServer.SetServingStatus("", health.SampleService)

	// HTTP сервер: API сессий, WebSocket, Swagger
	router := mux.NewRouter()
	session.NewHTTPHandler(manager).RegisterRoutes(router)
	router.HandleFunc("/ws", hub.HandleWebSocket)
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      enableCORS(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrChan := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			serverErrChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		log.Printf("[INFO] HTTP server listening on :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		log.Printf("[ERROR] Server error: %v", err)

	case sig := <-shutdownChan:
		log.Printf("[INFO] Received signal %v, starting graceful shutdown...", sig)
	}

	healthServer.SetNotServingStatus("", health.SampleService)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] HTTP server shutdown: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Printf("[WARN] Graceful shutdown timeout, forcing stop")
		grpcServer.Stop()
	}

	// Останавливаем источники до батчера, чтобы последние отсчеты дошли до детекторов
	cancel()
	batcher.Stop()

	log.Printf("[INFO] Server stopped")
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}
