package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Krimson/ecg-monitory/offline-service/pkg/models"
)

// MemoryCache - кеш отчетов в памяти процесса, замена Redis при OFFLINE_STORAGE=memory
type MemoryCache struct {
	sessions map[string]memoryEntry
	mutex    sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *MemoryCache) CheckConnection(ctx context.Context) error { return nil }

func (r *MemoryCache) SaveSession(ctx context.Context, sessionID string, session *models.AnalysisSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry := memoryEntry{data: data}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}
	r.sessions[sessionID] = entry
	return nil
}

func (r *MemoryCache) GetSession(ctx context.Context, sessionID string) (*models.AnalysisSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, exists := r.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		delete(r.sessions, sessionID)
		log.Printf("[INFO] Report %s expired after TTL", sessionID)
		return nil, fmt.Errorf("%w: %s", models.ErrSessionExpired, sessionID)
	}

	var session models.AnalysisSession
	if err := json.Unmarshal(entry.data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *MemoryCache) DeleteSession(ctx context.Context, sessionID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.sessions[sessionID]; !exists {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *MemoryCache) GetStats() map[string]interface{} {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return map[string]interface{}{
		"backend":         "memory",
		"active_sessions": len(r.sessions),
		"session_ids":     ids,
	}
}

func (r *MemoryCache) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	log.Printf("[INFO] Closing memory cache, active sessions: %d", len(r.sessions))
	r.sessions = make(map[string]memoryEntry)
	return nil
}

// MemoryArchive - архив сохраненных отчетов в памяти, замена PostgreSQL
type MemoryArchive struct {
	sessions map[string]*models.AnalysisSession
	mutex    sync.RWMutex
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		sessions: make(map[string]*models.AnalysisSession),
	}
}

func (p *MemoryArchive) SaveReport(ctx context.Context, session *models.AnalysisSession) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Храним копию со статусом saved
	sessionCopy := *session
	sessionCopy.Status = models.StatusSaved
	p.sessions[session.SessionID] = &sessionCopy
	return nil
}

func (p *MemoryArchive) GetReport(ctx context.Context, sessionID string) (*models.AnalysisSession, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	session, exists := p.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}
	sessionCopy := *session
	return &sessionCopy, nil
}

func (p *MemoryArchive) GetStats() map[string]interface{} {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return map[string]interface{}{
		"backend":        "memory",
		"saved_sessions": len(p.sessions),
	}
}

func (p *MemoryArchive) Close() error { return nil }
