package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	_ "github.com/lib/pq"

	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

type PostgreSQLRepository struct {
	db    *sql.DB
	saved atomic.Int64
}

func NewPostgreSQLRepository(connStr string) (*PostgreSQLRepository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// Создаем таблицу если не существует
	createTableSQL := `
    CREATE TABLE IF NOT EXISTS ecg_reports (
        session_id TEXT PRIMARY KEY,
        report JSONB NOT NULL,
        beat_count INTEGER NOT NULL,
        avg_hr DOUBLE PRECISION NOT NULL,
        spectral_hr DOUBLE PRECISION,
        duration_sec DOUBLE PRECISION NOT NULL,
        created_at TIMESTAMP NOT NULL,
        saved_at TIMESTAMP NOT NULL,
        status TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_ecg_reports_created_at ON ecg_reports(created_at);
    `

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgreSQLRepository{db: db}, nil
}

func (r *PostgreSQLRepository) SaveReport(ctx context.Context, session *models.AnalysisSession) error {
	reportJSON, err := json.Marshal(session.Report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	var spectralHR sql.NullFloat64
	if session.Report.Spectral.Valid {
		spectralHR = sql.NullFloat64{Float64: session.Report.Spectral.HeartRate, Valid: true}
	}

	query := `
    INSERT INTO ecg_reports (session_id, report, beat_count, avg_hr, spectral_hr, duration_sec, created_at, saved_at, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    ON CONFLICT (session_id)
    DO UPDATE SET report = $2, beat_count = $3, avg_hr = $4, spectral_hr = $5, duration_sec = $6, saved_at = $8, status = $9
    `

	_, err = r.db.ExecContext(ctx, query,
		session.SessionID,
		reportJSON,
		session.Report.BeatCount,
		session.Report.AvgHR,
		spectralHR,
		session.Report.DurationSec,
		session.CreatedAt,
		time.Now(),
		models.StatusSaved,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ECG report: %w", err)
	}
	r.saved.Add(1)

	log.Printf("[INFO] Report %s saved to PostgreSQL with %d beats", session.SessionID, session.Report.BeatCount)
	return nil
}

func (r *PostgreSQLRepository) GetReport(ctx context.Context, sessionID string) (*models.AnalysisSession, error) {
	var (
		reportJSON []byte
		session    = models.AnalysisSession{SessionID: sessionID}
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT report, created_at, status FROM ecg_reports WHERE session_id = $1`, sessionID,
	).Scan(&reportJSON, &session.CreatedAt, &session.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ECG report: %w", err)
	}

	if err := json.Unmarshal(reportJSON, &session.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &session, nil
}

func (r *PostgreSQLRepository) GetStats() map[string]interface{} {
	stats := r.db.Stats()
	return map[string]interface{}{
		"backend":          "postgres",
		"saved":            r.saved.Load(),
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
	}
}

func (r *PostgreSQLRepository) Close() error {
	return r.db.Close()
}
