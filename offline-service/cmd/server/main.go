package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Krimson/ecg-monitory/offline-service/config"
	_ "github.com/Krimson/ecg-monitory/offline-service/docs" // Swagger docs
	"github.com/Krimson/ecg-monitory/offline-service/internal/handler"
	"github.com/Krimson/ecg-monitory/offline-service/internal/repository"
	"github.com/Krimson/ecg-monitory/offline-service/internal/service"
)

// @title Offline ECG Analysis API
// @version 1.0
// @description API для загрузки и анализа записей ЭКГ в формате CSV
// @description
// @description ## Описание
// @description Сервис прогоняет запись через детектор QRS, считает интервалы R-R и историю ЧСС,
// @description а также спектральную оценку ритма. Отчет хранится в Redis до решения о сохранении.

// @host localhost:8081
// @BasePath /
// @schemes http

func main() {
	cfg := config.LoadConfig()
	log.Printf("[INFO] Configuration loaded: http_port=%s storage=%s sample_rate=%.0f",
		cfg.HTTPPort, cfg.Storage, cfg.SampleRate)

	if _, err := cfg.DetectorConfig(cfg.SampleRate); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	ctx := context.Background()

	var (
		cacheRepo service.CacheRepository
		dbRepo    service.DBRepository
	)
	switch cfg.Storage {
	case "memory":
		cacheRepo = repository.NewMemoryCache(cfg.RedisTTL)
		dbRepo = repository.NewMemoryArchive()
		log.Printf("[INFO] Using in-memory report storage")

	case "redis":
		redisRepo := repository.NewRedisRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err := redisRepo.CheckConnection(ctx); err != nil {
			log.Fatalf("[FATAL] Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		log.Printf("[INFO] Connected to Redis at %s", cfg.RedisAddr)

		postgresRepo, err := repository.NewPostgreSQLRepository(cfg.PostgreSQLConnStr)
		if err != nil {
			log.Fatalf("[FATAL] PostgreSQL unavailable: %v", err)
		}
		log.Printf("[INFO] Connected to PostgreSQL")

		cacheRepo, dbRepo = redisRepo, postgresRepo

	default:
		log.Fatalf("[FATAL] Unknown OFFLINE_STORAGE %q: expected redis or memory", cfg.Storage)
	}
	defer cacheRepo.Close()
	defer dbRepo.Close()

	ecgService := service.NewECGService(cfg, cacheRepo, dbRepo)
	httpHandler := handler.NewHTTPHandler(ecgService, cfg.MaxUploadMB)

	// Настройка маршрутов
	mux := http.NewServeMux()
	httpHandler.RegisterRoutes(mux)
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      enableCORS(mux),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[INFO] Offline ECG service starting on port %s", cfg.HTTPPort)
		log.Printf("[INFO] Swagger UI available at http://localhost:%s/swagger/index.html", cfg.HTTPPort)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[FATAL] Server failed: %v", err)
		}
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("[INFO] Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server forced to shutdown: %v", err)
	}

	log.Printf("[INFO] Server exited gracefully")
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			return
		}

		next.ServeHTTP(w, r)
	})
}
