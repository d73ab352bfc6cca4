package session

import (
	"context"
)

// Repository определяет интерфейс для работы с хранилищем сессий (Domain Layer)
type Repository interface {
	// Управление сессиями
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	ListSessions(ctx context.Context, limit, offset int) ([]*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Итоговые показатели ритма
	SaveMetrics(ctx context.Context, metrics *RhythmMetrics) error
	GetMetrics(ctx context.Context, sessionID string) (*RhythmMetrics, error)

	// Журнал ударов
	SaveBeats(ctx context.Context, beats []BeatEvent) error
	GetBeats(ctx context.Context, sessionID string) ([]BeatEvent, error)

	// История ЧСС
	SaveRatePoints(ctx context.Context, points []RatePoint) error
	GetRatePoints(ctx context.Context, sessionID string) ([]RatePoint, error)

	// Сохранение полных данных сессии
	SaveSessionData(ctx context.Context, data *SessionData) error
}

// CacheStore определяет интерфейс для работы с кэшем (Redis)
type CacheStore interface {
	// Управление сессиями в кэше
	SetSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Показатели (перезаписываются целиком)
	SetMetrics(ctx context.Context, metrics *RhythmMetrics) error
	GetMetrics(ctx context.Context, sessionID string) (*RhythmMetrics, error)

	// Удары (append-only)
	AppendBeats(ctx context.Context, sessionID string, beats []BeatEvent) error
	GetBeats(ctx context.Context, sessionID string) ([]BeatEvent, error)
	GetBeatCount(ctx context.Context, sessionID string) (int, error)

	// История ЧСС (append-only)
	AppendRatePoints(ctx context.Context, sessionID string, points []RatePoint) error
	GetRatePoints(ctx context.Context, sessionID string) ([]RatePoint, error)

	// Отфильтрованный сигнал (Sorted Set, хранится только последнее окно)
	UpdateFilteredData(ctx context.Context, sessionID string, points []FilteredDataPoint, keep int) error
	GetFilteredData(ctx context.Context, sessionID string) ([]FilteredDataPoint, error)

	// Получение всех данных сессии
	GetSessionData(ctx context.Context, sessionID string) (*SessionData, error)

	// Утилиты
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	SetSessionTTL(ctx context.Context, sessionID string, ttl int) error
}

// Notifier получает live-обновления сессий
type Notifier interface {
	Notify(ctx context.Context, update *Update) error
}
