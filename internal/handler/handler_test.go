package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roadlens/drive-review/internal/geocode"
	"roadlens/drive-review/internal/handler"
	"roadlens/drive-review/internal/models"
	"roadlens/drive-review/internal/playback"
	"roadlens/drive-review/internal/router"
	"roadlens/drive-review/internal/service"
	"roadlens/drive-review/internal/stream"

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

type stubBackend struct{}

func (b *stubBackend) ListDrives(ctx context.Context) ([]models.Session, error) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []models.Session{
		{ID: "drive-1", StartTime: start, EndTime: start.Add(10 * time.Minute)},
	}, nil
}

func (b *stubBackend) GetDrive(ctx context.Context, id string) (*models.DriveRecord, error) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	duration := 600.0
	return &models.DriveRecord{
		Session: models.Session{
			ID:        id,
			StartTime: start,
			EndTime:   start.Add(10 * time.Minute),
		},
		Score:    92,
		Duration: &duration,
	}, nil
}

type stubResolver struct{}

func (r *stubResolver) Resolve(ctx context.Context, lat, lon float64) (string, error) {
	return "somewhere", nil
}

func newTestServer(t *testing.T) (*httptest.Server, *playback.Controller, *service.ReviewService) {
	t.Helper()
	log := zap.NewNop()

	controller := playback.NewController(&stubFactory{}, &stubProber{}, "http://media.local", 0, log)
	cache := geocode.NewCache(&stubResolver{}, log)
	svc := service.NewReviewService(&stubBackend{}, controller, cache, log)

	driveHandler := handler.NewDriveHandler(svc, log)
	playbackHandler := handler.NewPlaybackHandler(controller, svc, log)

	h := router.New(driveHandler, playbackHandler, nil, []string{"*"}, log)
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return server, controller, svc
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	server, _, _ := newTestServer(t)
	resp := get(t, server.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDrives(t *testing.T) {
	server, _, _ := newTestServer(t)
	resp := get(t, server.URL+"/api/v1/drives")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestCurrentDrive_NoneSelected(t *testing.T) {
	server, _, _ := newTestServer(t)
	resp := get(t, server.URL+"/api/v1/drives/current")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSelectAndPlaybackFlow(t *testing.T) {
	server, controller, svc := newTestServer(t)

	resp := post(t, server.URL+"/api/v1/drives/drive-1/select", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool {
		return svc.CurrentView() != nil
	}, time.Second, 5*time.Millisecond)

	resp = post(t, server.URL+"/api/v1/playback/play", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, controller.Snapshot().IsPlaying)

	resp = post(t, server.URL+"/api/v1/playback/pause", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, controller.Snapshot().IsPlaying)

	resp = post(t, server.URL+"/api/v1/playback/seek", `{"position_seconds": 120}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 120.0, controller.Snapshot().CurrentTime)

	// Marker-relative seek uses the drive-provided 600s duration
	resp = post(t, server.URL+"/api/v1/playback/seek", `{"marker_percent": 25}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 150.0, controller.Snapshot().CurrentTime)
}

func TestSeek_MissingTarget(t *testing.T) {
	server, _, _ := newTestServer(t)
	post(t, server.URL+"/api/v1/drives/drive-1/select", "")

	resp := post(t, server.URL+"/api/v1/playback/seek", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamReady(t *testing.T) {
	server, controller, _ := newTestServer(t)
	post(t, server.URL+"/api/v1/drives/drive-1/select", "")

	resp := post(t, server.URL+"/api/v1/streams/front_center/ready", `{"duration_seconds": 600}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, controller.Snapshot().LoadedCount)
	assert.Equal(t, 600.0, controller.Snapshot().Duration)

	resp = post(t, server.URL+"/api/v1/streams/dashboard_cam/ready", `{"duration_seconds": 600}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReportTime_NonReferenceRoleIgnored(t *testing.T) {
	server, controller, _ := newTestServer(t)
	post(t, server.URL+"/api/v1/drives/drive-1/select", "")

	resp := post(t, server.URL+"/api/v1/playback/time", `{"role": "rear", "seconds": 42}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0.0, controller.Snapshot().CurrentTime)

	resp = post(t, server.URL+"/api/v1/playback/time", `{"role": "front_center", "seconds": 42}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 42.0, controller.Snapshot().CurrentTime)
}
