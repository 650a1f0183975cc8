package handler

import (
	"encoding/json"
	"net/http"

	"roadlens/drive-review/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DriveHandler serves the session list and selection endpoints
type DriveHandler struct {
	service *service.ReviewService
	logger  *zap.Logger
}

// NewDriveHandler creates a drive handler
func NewDriveHandler(service *service.ReviewService, logger *zap.Logger) *DriveHandler {
	return &DriveHandler{
		service: service,
		logger:  logger,
	}
}

// ListDrives returns the session list from the backend
func (h *DriveHandler) ListDrives(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListDrives(r.Context())
	if err != nil {
		h.logger.Error("Failed to list drives", zap.Error(err))
		http.Error(w, "Failed to list drives", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// SelectDrive switches the review to the session in the path
func (h *DriveHandler) SelectDrive(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "Missing drive id", http.StatusBadRequest)
		return
	}

	h.service.Select(id)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "selected", "id": id})
}

// CurrentDrive returns the assembled view for the selected session
func (h *DriveHandler) CurrentDrive(w http.ResponseWriter, r *http.Request) {
	view := h.service.CurrentView()
	if view == nil {
		http.Error(w, "No drive selected", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
