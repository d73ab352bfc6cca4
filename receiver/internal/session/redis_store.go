package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore реализует CacheStore для Redis (Infrastructure Layer)
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore создает новый экземпляр RedisStore
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
	}
}

// ===== Ключи Redis =====

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:metadata", sessionID)
}

func metricsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:rhythm:current", sessionID)
}

func beatsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:beats", sessionID)
}

func rateKey(sessionID string) string {
	return fmt.Sprintf("session:%s:rate", sessionID)
}

func filteredDataKey(sessionID string) string {
	return fmt.Sprintf("session:%s:filtered:ecg", sessionID)
}

// ===== Управление сессиями =====

func (r *RedisStore) SetSession(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return r.client.Set(ctx, sessionKey(session.ID), data, 0).Err()
}

func (r *RedisStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	// Удаляем все ключи, связанные с сессией
	pattern := fmt.Sprintf("session:%s:*", sessionID)

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	pipe := r.client.Pipeline()

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	count, err := r.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RedisStore) SetSessionTTL(ctx context.Context, sessionID string, ttl int) error {
	pattern := fmt.Sprintf("session:%s:*", sessionID)
	duration := time.Duration(ttl) * time.Second

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	pipe := r.client.Pipeline()

	for iter.Next(ctx) {
		pipe.Expire(ctx, iter.Val(), duration)
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// ===== Показатели ритма =====

func (r *RedisStore) SetMetrics(ctx context.Context, metrics *RhythmMetrics) error {
	history, err := json.Marshal(metrics.History)
	if err != nil {
		return fmt.Errorf("failed to marshal rate history: %w", err)
	}

	// Сохраняем как Hash для эффективного обновления отдельных полей
	fields := map[string]interface{}{
		"state":           metrics.State,
		"threshold":       metrics.Threshold,
		"sample_count":    metrics.SampleCount,
		"beat_count":      metrics.BeatCount,
		"last_beat_index": metrics.LastBeatIndex,
		"avg_rr":          metrics.AvgRR,
		"avg_hr":          metrics.AvgHR,
		"count_hr":        metrics.CountHR,
		"min_hr":          metrics.MinHR,
		"max_hr":          metrics.MaxHR,
		"has_extrema":     metrics.HasExtrema,
		"computations":    metrics.Computations,
		"history":         history,
		"updated_at":      metrics.UpdatedAt.Unix(),
	}

	return r.client.HSet(ctx, metricsKey(metrics.SessionID), fields).Err()
}

func (r *RedisStore) GetMetrics(ctx context.Context, sessionID string) (*RhythmMetrics, error) {
	data, err := r.client.HGetAll(ctx, metricsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("metrics not found for session: %s", sessionID)
	}

	return parseMetricsHash(sessionID, data), nil
}

// parseMetricsHash восстанавливает показатели из полей Hash
func parseMetricsHash(sessionID string, data map[string]string) *RhythmMetrics {
	metrics := &RhythmMetrics{SessionID: sessionID, LastBeatIndex: -1}

	metrics.State = data["state"]
	if val, ok := data["threshold"]; ok {
		metrics.Threshold, _ = strconv.ParseFloat(val, 64)
	}
	if val, ok := data["sample_count"]; ok {
		metrics.SampleCount, _ = strconv.ParseInt(val, 10, 64)
	}
	if val, ok := data["beat_count"]; ok {
		metrics.BeatCount, _ = strconv.ParseInt(val, 10, 64)
	}
	if val, ok := data["last_beat_index"]; ok {
		metrics.LastBeatIndex, _ = strconv.ParseInt(val, 10, 64)
	}
	if val, ok := data["avg_rr"]; ok {
		metrics.AvgRR, _ = strconv.ParseFloat(val, 64)
	}
	if val, ok := data["avg_hr"]; ok {
		metrics.AvgHR, _ = strconv.ParseFloat(val, 64)
	}
	if val, ok := data["count_hr"]; ok {
		metrics.CountHR, _ = strconv.ParseFloat(val, 64)
	}
	if val, ok := data["min_hr"]; ok {
		metrics.MinHR, _ = strconv.ParseFloat(val, 64)
	}
	if val, ok := data["max_hr"]; ok {
		metrics.MaxHR, _ = strconv.ParseFloat(val, 64)
	}
	if val, ok := data["has_extrema"]; ok {
		// go-redis пишет bool как "1"/"0"
		metrics.HasExtrema, _ = strconv.ParseBool(val)
	}
	if val, ok := data["computations"]; ok {
		metrics.Computations, _ = strconv.Atoi(val)
	}
	if val, ok := data["history"]; ok {
		_ = json.Unmarshal([]byte(val), &metrics.History)
	}
	if val, ok := data["updated_at"]; ok {
		timestamp, _ := strconv.ParseInt(val, 10, 64)
		metrics.UpdatedAt = time.Unix(timestamp, 0)
	}

	return metrics
}

// ===== Удары =====

func (r *RedisStore) AppendBeats(ctx context.Context, sessionID string, beats []BeatEvent) error {
	if len(beats) == 0 {
		return nil
	}

	key := beatsKey(sessionID)
	pipe := r.client.Pipeline()

	for _, beat := range beats {
		data, err := json.Marshal(beat)
		if err != nil {
			return fmt.Errorf("failed to marshal beat: %w", err)
		}
		pipe.RPush(ctx, key, data)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetBeats(ctx context.Context, sessionID string) ([]BeatEvent, error) {
	data, err := r.client.LRange(ctx, beatsKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get beats: %w", err)
	}

	beats := make([]BeatEvent, 0, len(data))
	for _, item := range data {
		var beat BeatEvent
		if err := json.Unmarshal([]byte(item), &beat); err != nil {
			continue // Пропускаем поврежденные записи
		}
		beats = append(beats, beat)
	}

	return beats, nil
}

func (r *RedisStore) GetBeatCount(ctx context.Context, sessionID string) (int, error) {
	count, err := r.client.LLen(ctx, beatsKey(sessionID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ===== История ЧСС =====

func (r *RedisStore) AppendRatePoints(ctx context.Context, sessionID string, points []RatePoint) error {
	if len(points) == 0 {
		return nil
	}

	key := rateKey(sessionID)
	pipe := r.client.Pipeline()

	for _, point := range points {
		data, err := json.Marshal(point)
		if err != nil {
			return fmt.Errorf("failed to marshal rate point: %w", err)
		}
		pipe.RPush(ctx, key, data)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetRatePoints(ctx context.Context, sessionID string) ([]RatePoint, error) {
	data, err := r.client.LRange(ctx, rateKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate series: %w", err)
	}

	points := make([]RatePoint, 0, len(data))
	for _, item := range data {
		var point RatePoint
		if err := json.Unmarshal([]byte(item), &point); err != nil {
			continue
		}
		points = append(points, point)
	}

	return points, nil
}

// ===== Отфильтрованный сигнал =====

func (r *RedisStore) UpdateFilteredData(ctx context.Context, sessionID string, points []FilteredDataPoint, keep int) error {
	if len(points) == 0 {
		return nil
	}

	key := filteredDataKey(sessionID)
	pipe := r.client.Pipeline()

	// Sorted Set со score = time_sec, старые точки срезаются по рангу
	members := make([]redis.Z, 0, len(points))
	for _, point := range points {
		data, err := json.Marshal(point)
		if err != nil {
			return fmt.Errorf("failed to marshal filtered data point: %w", err)
		}
		members = append(members, redis.Z{
			Score:  point.TimeSec,
			Member: data,
		})
	}
	pipe.ZAdd(ctx, key, members...)

	if keep > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-keep-1))
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetFilteredData(ctx context.Context, sessionID string) ([]FilteredDataPoint, error) {
	// Получаем все элементы, отсортированные по score (time_sec)
	data, err := r.client.ZRange(ctx, filteredDataKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get filtered data: %w", err)
	}

	points := make([]FilteredDataPoint, 0, len(data))
	for _, item := range data {
		var point FilteredDataPoint
		if err := json.Unmarshal([]byte(item), &point); err != nil {
			continue
		}
		points = append(points, point)
	}

	return points, nil
}

// ===== Получение всех данных сессии =====

func (r *RedisStore) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	metrics, _ := r.GetMetrics(ctx, sessionID) // Показателей может еще не быть
	beats, _ := r.GetBeats(ctx, sessionID)
	rate, _ := r.GetRatePoints(ctx, sessionID)
	filtered, _ := r.GetFilteredData(ctx, sessionID)

	return &SessionData{
		Session:     session,
		Metrics:     metrics,
		Beats:       beats,
		RateSeries:  rate,
		FilteredECG: filtered,
	}, nil
}
