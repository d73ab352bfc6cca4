package service

import (
	"context"

	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

// CacheRepository хранит отчеты до решения о сохранении (Redis)
type CacheRepository interface {
	SaveSession(ctx context.Context, sessionID string, data *models.AnalysisSession) error
	GetSession(ctx context.Context, sessionID string) (*models.AnalysisSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
	GetStats() map[string]interface{}
	CheckConnection(ctx context.Context) error
	Close() error
}

// DBRepository - архив сохраненных отчетов (PostgreSQL)
type DBRepository interface {
	SaveReport(ctx context.Context, session *models.AnalysisSession) error
	GetReport(ctx context.Context, sessionID string) (*models.AnalysisSession, error)
	GetStats() map[string]interface{}
	Close() error
}
