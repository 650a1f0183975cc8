package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roadlens/drive-review/internal/geocode"
	"roadlens/drive-review/internal/models"
	"roadlens/drive-review/internal/playback"
	"roadlens/drive-review/internal/stream"
	"roadlens/drive-review/internal/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHandle struct {
	role   stream.Role
	source string
}

func (h *stubHandle) Role() stream.Role { return h.role }
func (h *stubHandle) Source() string    { return h.source }
func (h *stubHandle) Play() error       { return nil }
func (h *stubHandle) Pause()            {}
func (h *stubHandle) Seek(float64)      {}

type stubFactory struct{}

func (f *stubFactory) NewHandle(role stream.Role, source string) stream.Handle {
	return &stubHandle{role: role, source: source}
}

type stubProber struct{}

func (p *stubProber) Probe(ctx context.Context, source string) (float64, error) {
	return 0, errors.New("no media in tests")
}

type stubBackend struct {
	mu      sync.Mutex
	drives  map[string]*models.DriveRecord
	gates   map[string]chan struct{}
	listErr error
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		drives: make(map[string]*models.DriveRecord),
		gates:  make(map[string]chan struct{}),
	}
}

func (b *stubBackend) ListDrives(ctx context.Context) ([]models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	sessions := make([]models.Session, 0, len(b.drives))
	for _, record := range b.drives {
		sessions = append(sessions, record.Session)
	}
	return sessions, nil
}

func (b *stubBackend) GetDrive(ctx context.Context, id string) (*models.DriveRecord, error) {
	b.mu.Lock()
	gate := b.gates[id]
	record := b.drives[id]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if record == nil {
		return nil, errors.New("unknown drive")
	}

	// Return a copy so tests can reuse the stored record
	out := *record
	out.Timeline = append([]models.TimelineEvent(nil), record.Timeline...)
	return &out, nil
}

type stubResolver struct {
	mu    sync.Mutex
	calls int
}

func (r *stubResolver) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return "Knez Mihailova, Beograd", nil
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newTestService(backend BackendAPI) (*ReviewService, *playback.Controller) {
	log := zap.NewNop()
	controller := playback.NewController(&stubFactory{}, &stubProber{}, "http://media.local", 0, log)
	cache := geocode.NewCache(&stubResolver{}, log)
	return NewReviewService(backend, controller, cache, log), controller
}

func cleanDriveRecord() *models.DriveRecord {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.DriveRecord{
		Session: models.Session{
			ID:        "drive-clean",
			StartTime: start,
			EndTime:   start.Add(10 * time.Minute),
		},
		Score:    92,
		Duration: floatPtr(600),
		Timeline: []models.TimelineEvent{
			{Timestamp: start.Add(time.Minute), Latitude: 44.79, Longitude: 20.42, Speed: 42},
			{Timestamp: start.Add(5 * time.Minute), Latitude: 44.80, Longitude: 20.43, Speed: 47},
		},
	}
}

func violationDriveRecord() *models.DriveRecord {
	start := time.Date(2024, 3, 2, 14, 0, 0, 0, time.UTC)
	return &models.DriveRecord{
		Session: models.Session{
			ID:        "drive-violations",
			StartTime: start,
			EndTime:   start.Add(10 * time.Minute),
		},
		Score:    61,
		Duration: floatPtr(600),
		Timeline: []models.TimelineEvent{
			// Deliberately out of order: the service must re-sort
			{
				Timestamp:         start.Add(7 * time.Minute),
				Latitude:          44.81,
				Longitude:         20.45,
				Speed:             55,
				DetectedViolation: strPtr("stop_sign"),
				TimeSinceStart:    floatPtr(420),
			},
			{
				Timestamp:         start.Add(150 * time.Second),
				Latitude:          44.79403,
				Longitude:         20.42661,
				Speed:             63,
				DetectedViolation: strPtr("speeding"),
				TimeSinceStart:    floatPtr(150),
			},
		},
	}
}

func TestSelect_CleanDriveView(t *testing.T) {
	backend := newStubBackend()
	backend.drives["drive-clean"] = cleanDriveRecord()
	svc, _ := newTestService(backend)

	svc.Select("drive-clean")

	require.Eventually(t, func() bool {
		return svc.CurrentView() != nil
	}, time.Second, 5*time.Millisecond)

	view := svc.CurrentView()
	assert.Equal(t, models.TierExcellent, view.Badge.Tier)
	assert.Equal(t, "Clean Drive", view.Badge.Label)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, timeline.KindStart, view.Entries[0].Kind)
	assert.Equal(t, timeline.KindEnd, view.Entries[1].Kind)
	assert.Empty(t, view.Markers)
}

func TestSelect_ViolationsSortedAndMarked(t *testing.T) {
	backend := newStubBackend()
	backend.drives["drive-violations"] = violationDriveRecord()
	svc, _ := newTestService(backend)

	svc.Select("drive-violations")

	require.Eventually(t, func() bool {
		return svc.CurrentView() != nil
	}, time.Second, 5*time.Millisecond)

	view := svc.CurrentView()
	require.Len(t, view.Entries, 4)
	assert.Equal(t, "speeding", view.Entries[1].ViolationID)
	assert.Equal(t, "stop_sign", view.Entries[2].ViolationID)

	require.Len(t, view.Markers, 2)
	assert.Equal(t, 25.0, view.Markers[0].Position)
	assert.Equal(t, 70.0, view.Markers[1].Position)
}

func TestSelect_StaleDetailDiscarded(t *testing.T) {
	backend := newStubBackend()
	slow := cleanDriveRecord()
	slow.ID = "drive-slow"
	backend.drives["drive-slow"] = slow
	backend.drives["drive-fast"] = violationDriveRecord()
	gate := make(chan struct{})
	backend.gates["drive-slow"] = gate

	svc, _ := newTestService(backend)

	svc.Select("drive-slow")
	svc.Select("drive-fast")

	require.Eventually(t, func() bool {
		return svc.CurrentView() != nil
	}, time.Second, 5*time.Millisecond)

	// Release the first fetch after the second selection landed
	close(gate)
	time.Sleep(20 * time.Millisecond)

	view := svc.CurrentView()
	require.NotNil(t, view)
	assert.Equal(t, "drive-violations", view.Record.ID)
}

func TestSelect_ResetsPlaybackBeforeDetailArrives(t *testing.T) {
	backend := newStubBackend()
	backend.drives["drive-clean"] = cleanDriveRecord()
	gate := make(chan struct{})
	backend.gates["drive-clean"] = gate

	svc, controller := newTestService(backend)

	svc.Select("drive-clean")
	controller.Play()
	controller.Seek(100)

	svc.Select("drive-clean")

	// Reset happens synchronously, before the (still gated) fetch returns
	state := controller.Snapshot()
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 0.0, state.CurrentTime)
	assert.Equal(t, 0, state.LoadedCount)
	assert.Nil(t, svc.CurrentView())

	close(gate)
}

func TestMarkers_UseObservedDurationWhenDriveOmitsIt(t *testing.T) {
	backend := newStubBackend()
	record := violationDriveRecord()
	record.Duration = nil
	backend.drives["drive-violations"] = record

	svc, controller := newTestService(backend)
	svc.Select("drive-violations")

	require.Eventually(t, func() bool {
		return svc.CurrentView() != nil
	}, time.Second, 5*time.Millisecond)

	// Duration unknown: no markers rather than NaN positions
	assert.Empty(t, svc.CurrentView().Markers)

	controller.OnStreamReady(stream.RoleFrontCenter, 600)
	markers := svc.CurrentView().Markers
	require.Len(t, markers, 2)
	assert.Equal(t, 25.0, markers[0].Position)
}

func TestSeekToMarker(t *testing.T) {
	backend := newStubBackend()
	backend.drives["drive-violations"] = violationDriveRecord()

	svc, controller := newTestService(backend)
	svc.Select("drive-violations")

	require.Eventually(t, func() bool {
		return svc.CurrentView() != nil
	}, time.Second, 5*time.Millisecond)

	svc.SeekToMarker(25)
	assert.Equal(t, 150.0, controller.Snapshot().CurrentTime)
}

func TestAddresses_ResolvedLazily(t *testing.T) {
	backend := newStubBackend()
	backend.drives["drive-violations"] = violationDriveRecord()

	svc, _ := newTestService(backend)
	svc.Select("drive-violations")

	require.Eventually(t, func() bool {
		view := svc.CurrentView()
		if view == nil {
			return false
		}
		for _, entry := range view.Entries {
			if entry.Kind == timeline.KindViolation && entry.Address == "" {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	view := svc.CurrentView()
	assert.Equal(t, "Knez Mihailova, Beograd", view.Entries[1].Address)
}
