package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// dbExecutor - общее подмножество *sql.DB и *sql.Tx
type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresRepository реализует Repository для PostgreSQL (Infrastructure Layer)
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository создает новый экземпляр PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// NewPostgresRepositoryFromDSN создает репозиторий из строки подключения
func NewPostgresRepositoryFromDSN(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// DB возвращает пул соединений (нужен для миграций)
func (r *PostgresRepository) DB() *sql.DB {
	return r.db
}

// Close закрывает соединение с БД
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// ===== Управление сессиями =====

const sessionColumns = `id, status, started_at, stopped_at, saved_at, total_duration_ms, total_data_points, total_beats, sample_rate, metadata`

func (r *PostgresRepository) CreateSession(ctx context.Context, session *Session) error {
	return createSession(ctx, r.db, session)
}

func createSession(ctx context.Context, db dbExecutor, session *Session) error {
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = db.ExecContext(ctx, query,
		session.ID,
		session.Status,
		session.StartedAt,
		session.StoppedAt,
		session.SavedAt,
		session.TotalDurationMs,
		session.TotalDataPoints,
		session.TotalBeats,
		session.SampleRate,
		metadataJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// rowScanner - общее подмножество *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	var metadataJSON []byte

	err := row.Scan(
		&session.ID,
		&session.Status,
		&session.StartedAt,
		&session.StoppedAt,
		&session.SavedAt,
		&session.TotalDurationMs,
		&session.TotalDataPoints,
		&session.TotalBeats,
		&session.SampleRate,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &session, nil
}

func (r *PostgresRepository) UpdateSession(ctx context.Context, session *Session) error {
	return updateSession(ctx, r.db, session)
}

func updateSession(ctx context.Context, db dbExecutor, session *Session) error {
	metadataJSON, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		UPDATE sessions
		SET status = $2, stopped_at = $3, saved_at = $4, total_duration_ms = $5,
			total_data_points = $6, total_beats = $7, sample_rate = $8, metadata = $9
		WHERE id = $1
	`

	result, err := db.ExecContext(ctx, query,
		session.ID,
		session.Status,
		session.StoppedAt,
		session.SavedAt,
		session.TotalDurationMs,
		session.TotalDataPoints,
		session.TotalBeats,
		session.SampleRate,
		metadataJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("session not found: %s", session.ID)
	}

	return nil
}

func (r *PostgresRepository) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session

	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			continue // Пропускаем поврежденные записи
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queries := []string{
		"DELETE FROM session_filtered_ecg WHERE session_id = $1",
		"DELETE FROM session_rate WHERE session_id = $1",
		"DELETE FROM session_beats WHERE session_id = $1",
		"DELETE FROM session_rhythm WHERE session_id = $1",
		"DELETE FROM sessions WHERE id = $1",
	}

	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query, sessionID); err != nil {
			return fmt.Errorf("failed to delete session data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ===== Показатели ритма =====

func (r *PostgresRepository) SaveMetrics(ctx context.Context, metrics *RhythmMetrics) error {
	return saveMetrics(ctx, r.db, metrics)
}

func saveMetrics(ctx context.Context, db dbExecutor, metrics *RhythmMetrics) error {
	query := `
		INSERT INTO session_rhythm (
			session_id, state, threshold, sample_count, beat_count, last_beat_index,
			avg_rr, avg_hr, count_hr, min_hr, max_hr, has_extrema,
			computations, history, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (session_id) DO UPDATE SET
			state = EXCLUDED.state,
			threshold = EXCLUDED.threshold,
			sample_count = EXCLUDED.sample_count,
			beat_count = EXCLUDED.beat_count,
			last_beat_index = EXCLUDED.last_beat_index,
			avg_rr = EXCLUDED.avg_rr,
			avg_hr = EXCLUDED.avg_hr,
			count_hr = EXCLUDED.count_hr,
			min_hr = EXCLUDED.min_hr,
			max_hr = EXCLUDED.max_hr,
			has_extrema = EXCLUDED.has_extrema,
			computations = EXCLUDED.computations,
			history = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		metrics.SessionID,
		metrics.State,
		metrics.Threshold,
		metrics.SampleCount,
		metrics.BeatCount,
		metrics.LastBeatIndex,
		metrics.AvgRR,
		metrics.AvgHR,
		metrics.CountHR,
		metrics.MinHR,
		metrics.MaxHR,
		metrics.HasExtrema,
		metrics.Computations,
		pq.Array(metrics.History),
		metrics.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save metrics: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetMetrics(ctx context.Context, sessionID string) (*RhythmMetrics, error) {
	query := `
		SELECT session_id, state, threshold, sample_count, beat_count, last_beat_index,
			avg_rr, avg_hr, count_hr, min_hr, max_hr, has_extrema,
			computations, history, updated_at
		FROM session_rhythm
		WHERE session_id = $1
	`

	var metrics RhythmMetrics

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&metrics.SessionID,
		&metrics.State,
		&metrics.Threshold,
		&metrics.SampleCount,
		&metrics.BeatCount,
		&metrics.LastBeatIndex,
		&metrics.AvgRR,
		&metrics.AvgHR,
		&metrics.CountHR,
		&metrics.MinHR,
		&metrics.MaxHR,
		&metrics.HasExtrema,
		&metrics.Computations,
		pq.Array(&metrics.History),
		&metrics.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("metrics not found for session: %s", sessionID)
		}
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}

	return &metrics, nil
}

// ===== Журнал ударов =====

func (r *PostgresRepository) SaveBeats(ctx context.Context, beats []BeatEvent) error {
	if len(beats) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveBeats(ctx, tx, beats); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func saveBeats(ctx context.Context, db dbExecutor, beats []BeatEvent) error {
	query := `
		INSERT INTO session_beats (session_id, sample_index, time_sec, ts_ms, rr, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, sample_index) DO NOTHING
	`

	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, beat := range beats {
		_, err := stmt.ExecContext(ctx,
			beat.SessionID,
			beat.SampleIndex,
			beat.TimeSec,
			beat.TsMS,
			beat.RR,
			beat.CreatedAt,
		)

		if err != nil {
			return fmt.Errorf("failed to insert beat: %w", err)
		}
	}

	return nil
}

func (r *PostgresRepository) GetBeats(ctx context.Context, sessionID string) ([]BeatEvent, error) {
	query := `
		SELECT id, session_id, sample_index, time_sec, ts_ms, rr, created_at
		FROM session_beats
		WHERE session_id = $1
		ORDER BY sample_index ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get beats: %w", err)
	}
	defer rows.Close()

	var beats []BeatEvent

	for rows.Next() {
		var beat BeatEvent

		err := rows.Scan(
			&beat.ID,
			&beat.SessionID,
			&beat.SampleIndex,
			&beat.TimeSec,
			&beat.TsMS,
			&beat.RR,
			&beat.CreatedAt,
		)

		if err != nil {
			continue
		}

		beats = append(beats, beat)
	}

	return beats, rows.Err()
}

// ===== История ЧСС =====

func (r *PostgresRepository) SaveRatePoints(ctx context.Context, points []RatePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveRatePoints(ctx, tx, points); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func saveRatePoints(ctx context.Context, db dbExecutor, points []RatePoint) error {
	query := `
		INSERT INTO session_rate (session_id, computation, time_sec, avg_rr, avg_hr, count_hr)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, computation) DO NOTHING
	`

	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, point := range points {
		_, err := stmt.ExecContext(ctx,
			point.SessionID,
			point.Computation,
			point.TimeSec,
			point.AvgRR,
			point.AvgHR,
			point.CountHR,
		)

		if err != nil {
			return fmt.Errorf("failed to insert rate point: %w", err)
		}
	}

	return nil
}

func (r *PostgresRepository) GetRatePoints(ctx context.Context, sessionID string) ([]RatePoint, error) {
	query := `
		SELECT session_id, computation, time_sec, avg_rr, avg_hr, count_hr
		FROM session_rate
		WHERE session_id = $1
		ORDER BY computation ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate series: %w", err)
	}
	defer rows.Close()

	var points []RatePoint

	for rows.Next() {
		var point RatePoint

		err := rows.Scan(
			&point.SessionID,
			&point.Computation,
			&point.TimeSec,
			&point.AvgRR,
			&point.AvgHR,
			&point.CountHR,
		)

		if err != nil {
			continue
		}

		points = append(points, point)
	}

	return points, rows.Err()
}

// ===== Сохранение полных данных сессии =====

func (r *PostgresRepository) SaveSessionData(ctx context.Context, data *SessionData) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Сохраняем/обновляем сессию
	exists, err := sessionExists(ctx, tx, data.Session.ID)
	if err != nil {
		return err
	}
	if exists {
		err = updateSession(ctx, tx, data.Session)
	} else {
		err = createSession(ctx, tx, data.Session)
	}
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	// 2. Сохраняем итоговые показатели
	if data.Metrics != nil {
		if err := saveMetrics(ctx, tx, data.Metrics); err != nil {
			return err
		}
	}

	// 3. Журнал ударов
	if len(data.Beats) > 0 {
		if err := saveBeats(ctx, tx, data.Beats); err != nil {
			return err
		}
	}

	// 4. История ЧСС
	if len(data.RateSeries) > 0 {
		if err := saveRatePoints(ctx, tx, data.RateSeries); err != nil {
			return err
		}
	}

	// 5. Последнее окно отфильтрованного сигнала одним снимком
	if len(data.FilteredECG) > 0 {
		if err := saveFilteredSnapshot(ctx, tx, data.Session.ID, data.FilteredECG); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func sessionExists(ctx context.Context, db dbExecutor, sessionID string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return exists, nil
}

// saveFilteredSnapshot сохраняет окно отфильтрованного сигнала в JSONB
func saveFilteredSnapshot(ctx context.Context, db dbExecutor, sessionID string, points []FilteredDataPoint) error {
	dataJSON, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal filtered data: %w", err)
	}

	query := `
		INSERT INTO session_filtered_ecg (session_id, from_sec, to_sec, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = db.ExecContext(ctx, query,
		sessionID,
		points[0].TimeSec,
		points[len(points)-1].TimeSec,
		dataJSON,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save filtered data: %w", err)
	}

	return nil
}
