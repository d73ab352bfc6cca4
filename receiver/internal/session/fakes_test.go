package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// memCache - CacheStore в памяти для тестов
type memCache struct {
	mu       sync.Mutex
	sessions map[string]Session
	metrics  map[string]RhythmMetrics
	beats    map[string][]BeatEvent
	rate     map[string][]RatePoint
	filtered map[string][]FilteredDataPoint
	ttl      map[string]int
}

func newMemCache() *memCache {
	return &memCache{
		sessions: make(map[string]Session),
		metrics:  make(map[string]RhythmMetrics),
		beats:    make(map[string][]BeatEvent),
		rate:     make(map[string][]RatePoint),
		filtered: make(map[string][]FilteredDataPoint),
		ttl:      make(map[string]int),
	}
}

func (c *memCache) SetSession(ctx context.Context, session *Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[session.ID] = *session
	return nil
}

func (c *memCache) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return &s, nil
}

func (c *memCache) DeleteSession(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	delete(c.metrics, sessionID)
	delete(c.beats, sessionID)
	delete(c.rate, sessionID)
	delete(c.filtered, sessionID)
	return nil
}

func (c *memCache) SetMetrics(ctx context.Context, metrics *RhythmMetrics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics[metrics.SessionID] = *metrics
	return nil
}

func (c *memCache) GetMetrics(ctx context.Context, sessionID string) (*RhythmMetrics, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.metrics[sessionID]
	if !ok {
		return nil, fmt.Errorf("metrics not found for session: %s", sessionID)
	}
	return &m, nil
}

func (c *memCache) AppendBeats(ctx context.Context, sessionID string, beats []BeatEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beats[sessionID] = append(c.beats[sessionID], beats...)
	return nil
}

func (c *memCache) GetBeats(ctx context.Context, sessionID string) ([]BeatEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]BeatEvent(nil), c.beats[sessionID]...), nil
}

func (c *memCache) GetBeatCount(ctx context.Context, sessionID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.beats[sessionID]), nil
}

func (c *memCache) AppendRatePoints(ctx context.Context, sessionID string, points []RatePoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate[sessionID] = append(c.rate[sessionID], points...)
	return nil
}

func (c *memCache) GetRatePoints(ctx context.Context, sessionID string) ([]RatePoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]RatePoint(nil), c.rate[sessionID]...), nil
}

func (c *memCache) UpdateFilteredData(ctx context.Context, sessionID string, points []FilteredDataPoint, keep int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := append(c.filtered[sessionID], points...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].TimeSec < all[j].TimeSec })
	if keep > 0 && len(all) > keep {
		all = all[len(all)-keep:]
	}
	c.filtered[sessionID] = all
	return nil
}

func (c *memCache) GetFilteredData(ctx context.Context, sessionID string) ([]FilteredDataPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FilteredDataPoint(nil), c.filtered[sessionID]...), nil
}

func (c *memCache) GetSessionData(ctx context.Context, sessionID string) (*SessionData, error) {
	session, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	metrics, _ := c.GetMetrics(ctx, sessionID)
	beats, _ := c.GetBeats(ctx, sessionID)
	rate, _ := c.GetRatePoints(ctx, sessionID)
	filtered, _ := c.GetFilteredData(ctx, sessionID)
	return &SessionData{
		Session:     session,
		Metrics:     metrics,
		Beats:       beats,
		RateSeries:  rate,
		FilteredECG: filtered,
	}, nil
}

func (c *memCache) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[sessionID]
	return ok, nil
}

func (c *memCache) SetSessionTTL(ctx context.Context, sessionID string, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl[sessionID] = ttl
	return nil
}

// memRepo - Repository в памяти для тестов
type memRepo struct {
	mu    sync.Mutex
	saved map[string]*SessionData
}

func newMemRepo() *memRepo {
	return &memRepo{saved: make(map[string]*SessionData)}
}

func (r *memRepo) CreateSession(ctx context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[session.ID] = &SessionData{Session: session}
	return nil
}

func (r *memRepo) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.saved[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return data.Session, nil
}

func (r *memRepo) UpdateSession(ctx context.Context, session *Session) error {
	return r.CreateSession(ctx, session)
}

func (r *memRepo) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sessions []*Session
	for _, data := range r.saved {
		sessions = append(sessions, data.Session)
	}
	return sessions, nil
}

func (r *memRepo) DeleteSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.saved, sessionID)
	return nil
}

func (r *memRepo) SaveMetrics(ctx context.Context, metrics *RhythmMetrics) error { return nil }

func (r *memRepo) GetMetrics(ctx context.Context, sessionID string) (*RhythmMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if data, ok := r.saved[sessionID]; ok && data.Metrics != nil {
		return data.Metrics, nil
	}
	return nil, fmt.Errorf("metrics not found for session: %s", sessionID)
}

func (r *memRepo) SaveBeats(ctx context.Context, beats []BeatEvent) error { return nil }

func (r *memRepo) GetBeats(ctx context.Context, sessionID string) ([]BeatEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if data, ok := r.saved[sessionID]; ok {
		return data.Beats, nil
	}
	return nil, nil
}

func (r *memRepo) SaveRatePoints(ctx context.Context, points []RatePoint) error { return nil }

func (r *memRepo) GetRatePoints(ctx context.Context, sessionID string) ([]RatePoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if data, ok := r.saved[sessionID]; ok {
		return data.RateSeries, nil
	}
	return nil, nil
}

func (r *memRepo) SaveSessionData(ctx context.Context, data *SessionData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[data.Session.ID] = data
	return nil
}

// recordingNotifier собирает live-обновления
type recordingNotifier struct {
	mu      sync.Mutex
	updates []*Update
}

func (n *recordingNotifier) Notify(ctx context.Context, update *Update) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
	return nil
}

func (n *recordingNotifier) beats() []*BeatEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*BeatEvent
	for _, u := range n.updates {
		if u.Beat != nil {
			out = append(out, u.Beat)
		}
	}
	return out
}
