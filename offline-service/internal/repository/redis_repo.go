package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

const keyPrefix = "offline:session:"

type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration

	saved   atomic.Int64
	read    atomic.Int64
	deleted atomic.Int64
}

func NewRedisRepository(addr, password string, db int, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// CheckConnection проверяет доступность Redis
func (r *RedisRepository) CheckConnection(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (r *RedisRepository) SaveSession(ctx context.Context, sessionID string, session *models.AnalysisSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
	r.saved.Add(1)

	log.Printf("[INFO] Report %s saved to Redis with TTL %v (%d beats)", sessionID, r.ttl, session.Report.BeatCount)
	return nil
}

func (r *RedisRepository) GetSession(ctx context.Context, sessionID string) (*models.AnalysisSession, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session models.AnalysisSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	r.read.Add(1)

	return &session, nil
}

func (r *RedisRepository) DeleteSession(ctx context.Context, sessionID string) error {
	deleted, err := r.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	r.deleted.Add(1)

	log.Printf("[INFO] Report %s deleted from Redis", sessionID)
	return nil
}

// GetStats возвращает счетчики операций для /debug/stats
func (r *RedisRepository) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "redis",
		"saved":   r.saved.Load(),
		"read":    r.read.Load(),
		"deleted": r.deleted.Load(),
		"ttl_sec": r.ttl.Seconds(),
	}
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
