package session

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Krimson/ecg-monitory/pkg/qrs"
	"github.com/google/uuid"
)

// Settings - параметры обработки сигнала в сессиях
type Settings struct {
	Detector       qrs.Config // Конфигурация детектора для новых сессий
	PublishEvery   int        // Период публикации показателей в отсчетах
	FilteredWindow int        // Сколько секунд отфильтрованного сигнала хранить в кэше
	DataTTLSeconds int        // Время жизни данных сохраненной сессии в кэше, 0 - без ограничения
}

// sessionDetector - детектор сессии с собственной блокировкой
type sessionDetector struct {
	mu  sync.Mutex
	det *qrs.Detector
}

// Manager управляет сессиями мониторинга (Application Layer)
type Manager struct {
	cache      CacheStore
	repository Repository
	settings   Settings

	mu             sync.RWMutex
	activeSessions map[string]*Session // Кэш активных сессий в памяти
	detectors      map[string]*sessionDetector

	notifyMu  sync.RWMutex
	notifiers []Notifier
}

// NewManager создает новый менеджер сессий
func NewManager(cache CacheStore, repository Repository, settings Settings) *Manager {
	if settings.PublishEvery <= 0 {
		settings.PublishEvery = 150
	}
	return &Manager{
		cache:          cache,
		repository:     repository,
		settings:       settings,
		activeSessions: make(map[string]*Session),
		detectors:      make(map[string]*sessionDetector),
	}
}

// AddNotifier подключает получателя live-обновлений
func (m *Manager) AddNotifier(n Notifier) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// CreateSession создает новую сессию
func (m *Manager) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	sessionID := uuid.New().String()

	session := &Session{
		ID:         sessionID,
		Status:     SessionStatusActive,
		StartedAt:  time.Now(),
		SampleRate: m.settings.Detector.SampleRate,
		Metadata: Metadata{
			PatientID:   req.PatientID,
			DoctorID:    req.DoctorID,
			FacilityID:  req.FacilityID,
			Notes:       req.Notes,
			CustomData:  req.CustomData,
			CreatedFrom: req.CreatedFrom,
		},
	}

	// Сохраняем в Redis
	if err := m.cache.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session to cache: %w", err)
	}

	// Добавляем в активные сессии
	m.mu.Lock()
	m.activeSessions[sessionID] = session
	m.mu.Unlock()

	log.Printf("[SESSION] Created new session: %s", sessionID)
	return session, nil
}

// GetSession получает сессию по ID
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	// Сначала проверяем в памяти
	m.mu.RLock()
	if session, ok := m.activeSessions[sessionID]; ok {
		m.mu.RUnlock()
		return session, nil
	}
	m.mu.RUnlock()

	// Проверяем в Redis
	session, err := m.cache.GetSession(ctx, sessionID)
	if err == nil {
		return session, nil
	}

	// Проверяем в PostgreSQL
	return m.repository.GetSession(ctx, sessionID)
}

// StopSession останавливает сессию и освобождает ее детектор
func (m *Manager) StopSession(ctx context.Context, sessionID string) error {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}

	m.mu.Lock()
	if session.Status != SessionStatusActive {
		status := session.Status
		m.mu.Unlock()
		return fmt.Errorf("session is not active: %s", status)
	}
	now := time.Now()
	session.Status = SessionStatusStopped
	session.StoppedAt = &now
	session.TotalDurationMs = now.Sub(session.StartedAt).Milliseconds()
	delete(m.activeSessions, sessionID)
	snapshot := *session
	cacheErr := m.cache.SetSession(ctx, &snapshot)
	m.mu.Unlock()

	if cacheErr != nil {
		return fmt.Errorf("failed to update session in cache: %w", cacheErr)
	}

	// Фиксируем последние показатели детектора
	if sd := m.takeDetector(sessionID); sd != nil {
		sd.mu.Lock()
		metrics := NewRhythmMetrics(sessionID, sd.det)
		sd.mu.Unlock()
		if err := m.cache.SetMetrics(ctx, metrics); err != nil {
			log.Printf("[WARN] Failed to store final metrics: %v", err)
		}
	}

	log.Printf("[SESSION] Stopped session: %s, duration: %dms", sessionID, snapshot.TotalDurationMs)
	return nil
}

// SaveSession сохраняет сессию в PostgreSQL
func (m *Manager) SaveSession(ctx context.Context, sessionID string, notes string) error {
	// Получаем все данные из Redis
	sessionData, err := m.cache.GetSessionData(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session data from cache: %w", err)
	}

	if notes != "" {
		sessionData.Session.Metadata.Notes = notes
	}

	now := time.Now()
	sessionData.Session.Status = SessionStatusSaved
	sessionData.Session.SavedAt = &now

	// Сохраняем в PostgreSQL
	if err := m.repository.SaveSessionData(ctx, sessionData); err != nil {
		return fmt.Errorf("failed to save session to database: %w", err)
	}

	// Обновляем статус в Redis
	if err := m.cache.SetSession(ctx, sessionData.Session); err != nil {
		log.Printf("[WARN] Failed to update session status in cache: %v", err)
	}
	if m.settings.DataTTLSeconds > 0 {
		if err := m.cache.SetSessionTTL(ctx, sessionID, m.settings.DataTTLSeconds); err != nil {
			log.Printf("[WARN] Failed to set session TTL: %v", err)
		}
	}

	// Сохраненная сессия больше не принимает отсчеты
	m.mu.Lock()
	delete(m.activeSessions, sessionID)
	m.mu.Unlock()
	m.takeDetector(sessionID)

	log.Printf("[SESSION] Saved session to database: %s (beats=%d)", sessionID, len(sessionData.Beats))
	return nil
}

// ListSessions возвращает список сессий
func (m *Manager) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	return m.repository.ListSessions(ctx, limit, offset)
}

// DeleteSession удаляет сессию
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	// Удаляем из памяти
	m.mu.Lock()
	delete(m.activeSessions, sessionID)
	m.mu.Unlock()
	m.takeDetector(sessionID)

	// Удаляем из Redis
	if err := m.cache.DeleteSession(ctx, sessionID); err != nil {
		log.Printf("[WARN] Failed to delete session from cache: %v", err)
	}

	// Удаляем из PostgreSQL
	if err := m.repository.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session from database: %w", err)
	}

	log.Printf("[SESSION] Deleted session: %s", sessionID)
	return nil
}

// ProcessSamples прогоняет упорядоченные отсчеты через детектор сессии.
// Вызывается по одному разу на батч; отсчеты одного вызова - один пакет детектора.
func (m *Manager) ProcessSamples(ctx context.Context, sessionID string, t0MS int64, values []float64) error {
	if len(values) == 0 {
		return nil
	}

	session, err := m.getOrCreateSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get or create session: %w", err)
	}

	m.mu.RLock()
	status := session.Status
	m.mu.RUnlock()
	if status != SessionStatusActive {
		log.Printf("[WARN] Received samples for non-active session: %s (status: %s)", sessionID, status)
		return nil // Не возвращаем ошибку, просто игнорируем
	}

	sd, err := m.detectorFor(sessionID)
	if err != nil {
		return err
	}
	if sd == nil {
		log.Printf("[WARN] Session %s stopped while samples were in flight", sessionID)
		return nil
	}

	sd.mu.Lock()
	before := sd.det.SampleCount()
	upd := sd.det.FeedSamples(values)
	after := sd.det.SampleCount()
	fs := sd.det.SampleRate()
	publish := upd.Beat != nil || upd.Trained ||
		(!sd.det.IsTraining() && crossed(before, after, m.settings.PublishEvery))
	var metrics *RhythmMetrics
	if publish || upd.RateUpdated {
		metrics = NewRhythmMetrics(sessionID, sd.det)
	}
	sd.mu.Unlock()

	update := &Update{SessionID: sessionID}

	// 1. Отфильтрованный сигнал (скользящее окно в кэше)
	filtered := ConvertFiltered(upd.Filtered, before, fs)
	keep := int(math.Round(float64(m.settings.FilteredWindow) * fs))
	if err := m.cache.UpdateFilteredData(ctx, sessionID, filtered, keep); err != nil {
		log.Printf("[WARN] Failed to update filtered data: %v", err)
	}
	update.Filtered = filtered

	// 2. Журнал ударов
	if upd.Beat != nil {
		beat := BeatEvent{
			SessionID:   sessionID,
			SampleIndex: int64(upd.Beat.Index),
			TimeSec:     float64(upd.Beat.Index) / fs,
			TsMS:        t0MS + int64(math.Round(float64(upd.Beat.Index-before)*1000/fs)),
			RR:          upd.Beat.RR,
			CreatedAt:   time.Now(),
		}
		if err := m.cache.AppendBeats(ctx, sessionID, []BeatEvent{beat}); err != nil {
			log.Printf("[WARN] Failed to append beat: %v", err)
		}
		update.Beat = &beat
	}

	// 3. История ЧСС
	if upd.RateUpdated && metrics != nil {
		point := RatePoint{
			SessionID:   sessionID,
			Computation: metrics.Computations,
			TimeSec:     float64(after) / fs,
			AvgRR:       metrics.AvgRR,
			AvgHR:       metrics.AvgHR,
			CountHR:     metrics.CountHR,
		}
		if err := m.cache.AppendRatePoints(ctx, sessionID, []RatePoint{point}); err != nil {
			log.Printf("[WARN] Failed to append rate point: %v", err)
		}
	}

	// 4. Текущие показатели
	if publish {
		if err := m.cache.SetMetrics(ctx, metrics); err != nil {
			return fmt.Errorf("failed to save metrics: %w", err)
		}
		update.Metrics = metrics
	}

	// 5. Счетчики сессии
	// Запись в кэш под блокировкой: снимок активной сессии не должен
	// перезаписать статус, сохраненный StopSession.
	m.mu.Lock()
	if session.Status == SessionStatusActive {
		session.TotalDataPoints += int64(len(values))
		if upd.Beat != nil {
			session.TotalBeats++
		}
		snapshot := *session
		if err := m.cache.SetSession(ctx, &snapshot); err != nil {
			log.Printf("[WARN] Failed to update session: %v", err)
		}
	}
	m.mu.Unlock()

	if upd.Trained {
		log.Printf("[DETECTOR] Session %s trained: threshold=%.3f", sessionID, metrics.Threshold)
	}
	if upd.Beat != nil {
		log.Printf("[DETECTOR] Session %s beat at %d rr=%.3fs", sessionID, upd.Beat.Index, upd.Beat.RR)
	}

	m.notify(ctx, update)
	return nil
}

// crossed сообщает, пересек ли счетчик кратное every на отрезке (before, after]
func crossed(before, after, every int) bool {
	return before/every != after/every
}

func (m *Manager) notify(ctx context.Context, update *Update) {
	m.notifyMu.RLock()
	defer m.notifyMu.RUnlock()

	for _, n := range m.notifiers {
		if err := n.Notify(ctx, update); err != nil {
			log.Printf("[WARN] Notifier failed for session %s: %v", update.SessionID, err)
		}
	}
}

// detectorFor возвращает детектор сессии, создавая его при первом обращении.
// Для сессии, которой уже нет среди активных, возвращает nil.
func (m *Manager) detectorFor(sessionID string) (*sessionDetector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.activeSessions[sessionID]; !ok || session.Status != SessionStatusActive {
		return nil, nil
	}

	if sd, ok := m.detectors[sessionID]; ok {
		return sd, nil
	}

	det, err := qrs.New(m.settings.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	sd := &sessionDetector{det: det}
	m.detectors[sessionID] = sd

	w, training, refractory := det.Windows()
	log.Printf("[DETECTOR] New detector for session %s: fs=%.1f w=%d training=%d refractory=%d",
		sessionID, det.SampleRate(), w, training, refractory)
	return sd, nil
}

func (m *Manager) takeDetector(sessionID string) *sessionDetector {
	m.mu.Lock()
	defer m.mu.Unlock()

	sd := m.detectors[sessionID]
	delete(m.detectors, sessionID)
	return sd
}

// GetSessionMetrics получает текущие показатели сессии
func (m *Manager) GetSessionMetrics(ctx context.Context, sessionID string) (*RhythmMetrics, error) {
	metrics, err := m.cache.GetMetrics(ctx, sessionID)
	if err == nil {
		return metrics, nil
	}
	return m.repository.GetMetrics(ctx, sessionID)
}

// GetBeats возвращает журнал ударов сессии
func (m *Manager) GetBeats(ctx context.Context, sessionID string) ([]BeatEvent, error) {
	beats, err := m.cache.GetBeats(ctx, sessionID)
	if err == nil && len(beats) > 0 {
		return beats, nil
	}
	return m.repository.GetBeats(ctx, sessionID)
}

// GetRateSeries возвращает историю ЧСС сессии
func (m *Manager) GetRateSeries(ctx context.Context, sessionID string) ([]RatePoint, error) {
	points, err := m.cache.GetRatePoints(ctx, sessionID)
	if err == nil && len(points) > 0 {
		return points, nil
	}
	return m.repository.GetRatePoints(ctx, sessionID)
}

// GetSessionData получает все данные сессии
func (m *Manager) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	return m.cache.GetSessionData(ctx, sessionID)
}

// IsSessionActive проверяет, активна ли сессия
func (m *Manager) IsSessionActive(sessionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.activeSessions[sessionID]
	return exists
}

// getOrCreateSession получает существующую сессию или создает новую.
// Используется для автоматического создания сессий при получении данных от устройств.
func (m *Manager) getOrCreateSession(ctx context.Context, sessionID string) (*Session, error) {
	// Сначала проверяем в памяти (быстро)
	m.mu.RLock()
	if session, exists := m.activeSessions[sessionID]; exists {
		m.mu.RUnlock()
		return session, nil
	}
	m.mu.RUnlock()

	// Проверяем в кэше (Redis)
	session, err := m.cache.GetSession(ctx, sessionID)
	if err == nil {
		if session.Status == SessionStatusActive {
			m.mu.Lock()
			m.activeSessions[sessionID] = session
			m.mu.Unlock()
		}
		return session, nil
	}

	// Проверяем в PostgreSQL (возможно, остановленная сессия)
	session, err = m.repository.GetSession(ctx, sessionID)
	if err == nil {
		log.Printf("[SESSION] Loaded existing session from database: %s (status: %s)", sessionID, session.Status)
		if err := m.cache.SetSession(ctx, session); err != nil {
			log.Printf("[WARN] Failed to cache session: %v", err)
		}
		if session.Status == SessionStatusActive {
			m.mu.Lock()
			m.activeSessions[sessionID] = session
			m.mu.Unlock()
		}
		return session, nil
	}

	// Сессия не найдена нигде - создаем новую
	log.Printf("[SESSION] Auto-creating new session from incoming data: %s", sessionID)

	session = &Session{
		ID:         sessionID,
		Status:     SessionStatusActive,
		StartedAt:  time.Now(),
		SampleRate: m.settings.Detector.SampleRate,
		Metadata: Metadata{
			CreatedFrom: "auto-created",
			Notes:       "Automatically created from device/emulator data",
		},
	}

	if err := m.cache.SetSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save auto-created session to cache: %w", err)
	}

	m.mu.Lock()
	m.activeSessions[sessionID] = session
	m.mu.Unlock()

	log.Printf("[SESSION] Successfully auto-created session: %s", sessionID)
	return session, nil
}
