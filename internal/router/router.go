package router

import (
	"net/http"

	"roadlens/drive-review/internal/handler"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// New builds the dashboard API router
func New(
	driveHandler *handler.DriveHandler,
	playbackHandler *handler.PlaybackHandler,
	wsHandler *handler.WSHandler,
	allowedOrigins []string,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/drives", driveHandler.ListDrives).Methods(http.MethodGet)
	api.HandleFunc("/drives/current", driveHandler.CurrentDrive).Methods(http.MethodGet)
	api.HandleFunc("/drives/{id}/select", driveHandler.SelectDrive).Methods(http.MethodPost)

	api.HandleFunc("/playback/state", playbackHandler.State).Methods(http.MethodGet)
	api.HandleFunc("/playback/play", playbackHandler.Play).Methods(http.MethodPost)
	api.HandleFunc("/playback/pause", playbackHandler.Pause).Methods(http.MethodPost)
	api.HandleFunc("/playback/toggle", playbackHandler.Toggle).Methods(http.MethodPost)
	api.HandleFunc("/playback/seek", playbackHandler.Seek).Methods(http.MethodPost)
	api.HandleFunc("/playback/time", playbackHandler.ReportTime).Methods(http.MethodPost)
	api.HandleFunc("/streams/{role}/ready", playbackHandler.StreamReady).Methods(http.MethodPost)

	r.HandleFunc("/ws", wsHandler.Serve)

	logged := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logger.Info("HTTP request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("remote_addr", req.RemoteAddr),
		)
		r.ServeHTTP(w, req)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	})

	return c.Handler(logged)
}
