package handler

import (
	"encoding/json"
	"net/http"

	"roadlens/drive-review/internal/playback"
	"roadlens/drive-review/internal/service"
	"roadlens/drive-review/internal/stream"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SeekRequest seeks either to an absolute position or to a scrub-bar
// marker position; exactly one of the fields should be set
type SeekRequest struct {
	PositionSeconds *float64 `json:"position_seconds,omitempty"`
	MarkerPercent   *float64 `json:"marker_percent,omitempty"`
}

// TimeUpdateRequest is the reference stream's natural time report
type TimeUpdateRequest struct {
	Role    string  `json:"role"`
	Seconds float64 `json:"seconds"`
}

// StreamReadyRequest reports one stream's loaded metadata
type StreamReadyRequest struct {
	DurationSeconds float64 `json:"duration_seconds"`
}

// PlaybackHandler serves the transport control endpoints
type PlaybackHandler struct {
	controller *playback.Controller
	service    *service.ReviewService
	logger     *zap.Logger
}

// NewPlaybackHandler creates a playback handler
func NewPlaybackHandler(controller *playback.Controller, service *service.ReviewService, logger *zap.Logger) *PlaybackHandler {
	return &PlaybackHandler{
		controller: controller,
		service:    service,
		logger:     logger,
	}
}

// State returns the current playback snapshot
func (h *PlaybackHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// Play starts synchronized playback on all streams
func (h *PlaybackHandler) Play(w http.ResponseWriter, r *http.Request) {
	h.controller.Play()
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// Pause pauses all streams
func (h *PlaybackHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.controller.Pause()
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// Toggle pauses if playing, else plays
func (h *PlaybackHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.controller.TogglePlayback()
	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// Seek moves all streams to an absolute position or a marker position
func (h *PlaybackHandler) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode seek request", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch {
	case req.PositionSeconds != nil:
		h.controller.Seek(*req.PositionSeconds)
	case req.MarkerPercent != nil:
		h.service.SeekToMarker(*req.MarkerPercent)
	default:
		http.Error(w, "Missing seek target", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.controller.Snapshot())
}

// ReportTime feeds the authoritative clock. Reports from any role other
// than the reference stream are accepted but ignored.
func (h *PlaybackHandler) ReportTime(w http.ResponseWriter, r *http.Request) {
	var req TimeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	role := stream.Role(req.Role)
	if !role.Valid() {
		http.Error(w, "Unknown stream role", http.StatusBadRequest)
		return
	}

	h.controller.ReportTimeUpdate(role, req.Seconds)
	w.WriteHeader(http.StatusNoContent)
}

// StreamReady marks the stream in the path as loaded. This is the
// client-side readiness path; server-side probing feeds the same state.
func (h *PlaybackHandler) StreamReady(w http.ResponseWriter, r *http.Request) {
	role := stream.Role(mux.Vars(r)["role"])
	if !role.Valid() {
		http.Error(w, "Unknown stream role", http.StatusBadRequest)
		return
	}

	var req StreamReadyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.controller.OnStreamReady(role, req.DurationSeconds)
	w.WriteHeader(http.StatusNoContent)
}
