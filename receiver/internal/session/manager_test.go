package session

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/Krimson/ecg-monitory/pkg/ecgsim"
	"github.com/Krimson/ecg-monitory/pkg/qrs"
)

const testBatch = 36 // 0.1 сек. при 360 Гц

func newTestManager(t *testing.T) (*Manager, *memCache, *memRepo, *recordingNotifier) {
	t.Helper()

	dc := qrs.DefaultConfig()
	dc.SlotUnit = qrs.SlotPerSample // как в конфигурации приемника по умолчанию

	cache := newMemCache()
	repo := newMemRepo()
	notifier := &recordingNotifier{}

	m := NewManager(cache, repo, Settings{
		Detector:       dc,
		PublishEvery:   150,
		FilteredWindow: 10,
	})
	m.AddNotifier(notifier)
	return m, cache, repo, notifier
}

func synthSignal(t *testing.T, seconds int) []float64 {
	t.Helper()
	cfg := ecgsim.DefaultConfig()
	cfg.Amplitude = 800
	cfg.Wander = 150
	cfg.WanderHz = 5
	gen, err := ecgsim.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}
	return gen.Samples(360 * seconds)
}

// feed подает сигнал батчами по testBatch отсчетов, шаг батча 100мс
func feed(t *testing.T, m *Manager, sessionID string, signal []float64) {
	t.Helper()
	ctx := context.Background()
	for i, k := 0, 0; i < len(signal); i, k = i+testBatch, k+1 {
		end := i + testBatch
		if end > len(signal) {
			end = len(signal)
		}
		if err := m.ProcessSamples(ctx, sessionID, 1000+int64(k)*100, signal[i:end]); err != nil {
			t.Fatalf("ProcessSamples failed at batch %d: %v", k, err)
		}
	}
}

func TestManager_ProcessSamplesDetectsBeats(t *testing.T) {
	m, cache, _, notifier := newTestManager(t)
	ctx := context.Background()

	feed(t, m, "patient-1", synthSignal(t, 20))

	if !m.IsSessionActive("patient-1") {
		t.Fatal("Expected session to be auto-created and active")
	}

	session, err := cache.GetSession(ctx, "patient-1")
	if err != nil {
		t.Fatalf("Session not cached: %v", err)
	}
	if session.TotalDataPoints != 7200 {
		t.Errorf("Expected 7200 data points, got %d", session.TotalDataPoints)
	}
	if session.TotalBeats != 13 {
		t.Errorf("Expected 13 beats, got %d", session.TotalBeats)
	}
	if session.Metadata.CreatedFrom != "auto-created" {
		t.Errorf("Expected auto-created session, got %q", session.Metadata.CreatedFrom)
	}

	beats, _ := cache.GetBeats(ctx, "patient-1")
	if len(beats) != 13 {
		t.Fatalf("Expected 13 cached beats, got %d", len(beats))
	}
	// Обучение закончилось внутри батча 3600..3635, поиск начался со следующего
	if beats[0].SampleIndex != 3636 {
		t.Errorf("Expected first beat at 3636, got %d", beats[0].SampleIndex)
	}
	if beats[0].TsMS != 11100 {
		t.Errorf("Expected first beat timestamp 11100, got %d", beats[0].TsMS)
	}
	for _, b := range beats[2:] {
		if math.Abs(b.RR-0.8) > 1e-9 {
			t.Errorf("Expected steady RR 0.8s, got %v at %d", b.RR, b.SampleIndex)
		}
	}

	metrics, err := m.GetSessionMetrics(ctx, "patient-1")
	if err != nil {
		t.Fatalf("Metrics not published: %v", err)
	}
	if metrics.SampleCount != 7200 {
		t.Errorf("Expected metrics at sample 7200, got %d", metrics.SampleCount)
	}
	if metrics.BeatCount != 13 {
		t.Errorf("Expected beat count 13, got %d", metrics.BeatCount)
	}
	if math.Abs(metrics.AvgHR-75) > 1 {
		t.Errorf("Expected avg HR near 75, got %v", metrics.AvgHR)
	}
	if metrics.Computations != 16 {
		t.Errorf("Expected 16 rate computations, got %d", metrics.Computations)
	}
	if !metrics.HasExtrema || math.Abs(metrics.MinHR-75) > 1 || math.Abs(metrics.MaxHR-75) > 1 {
		t.Errorf("Unexpected extrema: has=%v min=%v max=%v", metrics.HasExtrema, metrics.MinHR, metrics.MaxHR)
	}

	rate, _ := m.GetRateSeries(ctx, "patient-1")
	if len(rate) == 0 {
		t.Fatal("Expected rate series points")
	}
	if last := rate[len(rate)-1]; last.Computation != 16 {
		t.Errorf("Expected last rate point at computation 16, got %d", last.Computation)
	}

	filtered, _ := cache.GetFilteredData(ctx, "patient-1")
	if len(filtered) != 3600 {
		t.Errorf("Expected 10s filtered window (3600 points), got %d", len(filtered))
	}
	if len(filtered) > 0 && math.Abs(filtered[len(filtered)-1].TimeSec-7199.0/360) > 1e-9 {
		t.Errorf("Unexpected last filtered time %v", filtered[len(filtered)-1].TimeSec)
	}

	if got := len(notifier.beats()); got != 13 {
		t.Errorf("Expected 13 beat notifications, got %d", got)
	}
}

func TestManager_NoMetricsDuringTraining(t *testing.T) {
	m, cache, _, notifier := newTestManager(t)
	ctx := context.Background()

	// 5 секунд - детектор еще обучается
	feed(t, m, "s1", synthSignal(t, 5))

	if _, err := cache.GetMetrics(ctx, "s1"); err == nil {
		t.Error("Expected no published metrics during training")
	}
	if got := len(notifier.beats()); got != 0 {
		t.Errorf("Expected no beats during training, got %d", got)
	}
	if len(notifier.updates) != 50 {
		t.Errorf("Expected one waveform update per batch, got %d", len(notifier.updates))
	}
}

func TestManager_StoppedSessionIgnoresSamples(t *testing.T) {
	m, cache, _, _ := newTestManager(t)
	ctx := context.Background()

	session, err := m.CreateSession(ctx, &CreateSessionRequest{PatientID: "p1", CreatedFrom: "web"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.SampleRate != 360 {
		t.Errorf("Expected session sample rate 360, got %v", session.SampleRate)
	}

	if err := m.ProcessSamples(ctx, session.ID, 1000, []float64{2048, 2048}); err != nil {
		t.Fatalf("ProcessSamples failed: %v", err)
	}
	if err := m.StopSession(ctx, session.ID); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}
	if err := m.StopSession(ctx, session.ID); err == nil {
		t.Error("Expected error when stopping a stopped session")
	}

	// Остановка фиксирует последний снимок детектора
	metrics, err := cache.GetMetrics(ctx, session.ID)
	if err != nil {
		t.Fatalf("Expected final metrics after stop: %v", err)
	}
	if metrics.State != "training" || metrics.SampleCount != 2 {
		t.Errorf("Unexpected final metrics: state=%s samples=%d", metrics.State, metrics.SampleCount)
	}

	if err := m.ProcessSamples(ctx, session.ID, 2000, []float64{2048}); err != nil {
		t.Fatalf("ProcessSamples failed: %v", err)
	}
	cached, _ := cache.GetSession(ctx, session.ID)
	if cached.TotalDataPoints != 2 {
		t.Errorf("Expected samples after stop to be ignored, got %d points", cached.TotalDataPoints)
	}
}

func TestManager_NoDetectorForStoppedSession(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()

	session, err := m.CreateSession(ctx, &CreateSessionRequest{CreatedFrom: "web"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := m.ProcessSamples(ctx, session.ID, 1000, []float64{2048, 2048}); err != nil {
		t.Fatalf("ProcessSamples failed: %v", err)
	}
	if err := m.StopSession(ctx, session.ID); err != nil {
		t.Fatalf("StopSession failed: %v", err)
	}

	// Батч, прошедший проверку статуса до остановки, не должен заново создать детектор
	sd, err := m.detectorFor(session.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sd != nil {
		t.Error("Expected no detector for a stopped session")
	}
	if len(m.detectors) != 0 {
		t.Errorf("Expected no detectors after stop, got %d", len(m.detectors))
	}
}

func TestManager_ConcurrentStopAndProcess(t *testing.T) {
	m, cache, _, _ := newTestManager(t)
	ctx := context.Background()

	session, err := m.CreateSession(ctx, &CreateSessionRequest{CreatedFrom: "web"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	signal := synthSignal(t, 1)

	var wg sync.WaitGroup
	errs := make(chan error, 4*len(signal)/testBatch+4)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i+testBatch <= len(signal); i += testBatch {
				if err := m.ProcessSamples(ctx, session.ID, int64(1000+i), signal[i:i+testBatch]); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.StopSession(ctx, session.ID); err != nil {
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error: %v", err)
	}
	if m.IsSessionActive(session.ID) {
		t.Error("Expected session to be stopped")
	}
	if len(m.detectors) != 0 {
		t.Errorf("Expected no detectors after stop, got %d", len(m.detectors))
	}

	cached, err := cache.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	points := cached.TotalDataPoints
	if err := m.ProcessSamples(ctx, session.ID, 5000, signal[:testBatch]); err != nil {
		t.Fatalf("ProcessSamples failed: %v", err)
	}
	cached, _ = cache.GetSession(ctx, session.ID)
	if cached.TotalDataPoints != points {
		t.Errorf("Expected %d points after stop, got %d", points, cached.TotalDataPoints)
	}
}

func TestManager_SaveSessionArchivesData(t *testing.T) {
	m, cache, repo, _ := newTestManager(t)
	m.settings.DataTTLSeconds = 3600
	ctx := context.Background()

	feed(t, m, "s-save", synthSignal(t, 15))

	if err := m.SaveSession(ctx, "s-save", "sinus rhythm"); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	data, ok := repo.saved["s-save"]
	if !ok {
		t.Fatal("Expected session to be archived")
	}
	if data.Session.Status != SessionStatusSaved || data.Session.SavedAt == nil {
		t.Errorf("Expected saved status, got %s", data.Session.Status)
	}
	if data.Session.Metadata.Notes != "sinus rhythm" {
		t.Errorf("Expected notes to be stored, got %q", data.Session.Metadata.Notes)
	}
	if len(data.Beats) == 0 {
		t.Error("Expected beats in archived data")
	}
	if m.IsSessionActive("s-save") {
		t.Error("Expected saved session to be inactive")
	}
	if cache.ttl["s-save"] != 3600 {
		t.Errorf("Expected cache TTL 3600s, got %d", cache.ttl["s-save"])
	}
}

func TestManager_DeleteSession(t *testing.T) {
	m, cache, _, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.ProcessSamples(ctx, "s-del", 1000, []float64{1, 2, 3}); err != nil {
		t.Fatalf("ProcessSamples failed: %v", err)
	}
	if err := m.DeleteSession(ctx, "s-del"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if exists, _ := cache.SessionExists(ctx, "s-del"); exists {
		t.Error("Expected session to be removed from cache")
	}
	if m.IsSessionActive("s-del") {
		t.Error("Expected session to be removed from memory")
	}
}

func TestCrossed(t *testing.T) {
	tests := []struct {
		before, after, every int
		want                 bool
	}{
		{0, 36, 150, false},
		{144, 180, 150, true},
		{150, 186, 150, false},
		{299, 300, 150, true},
	}
	for _, tt := range tests {
		if got := crossed(tt.before, tt.after, tt.every); got != tt.want {
			t.Errorf("crossed(%d, %d, %d) = %v, expected %v", tt.before, tt.after, tt.every, got, tt.want)
		}
	}
}
