package handler

import (
	"net/http"

	"roadlens/drive-review/internal/hub"
	"roadlens/drive-review/internal/playback"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering happens in the CORS layer; the dashboard is
		// served locally.
		return true
	},
}

// WSHandler upgrades dashboard connections and hands them to the hub
type WSHandler struct {
	hub        *hub.Hub
	controller *playback.Controller
	logger     *zap.Logger
}

// NewWSHandler creates a WebSocket handler
func NewWSHandler(h *hub.Hub, controller *playback.Controller, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:        h,
		controller: controller,
		logger:     logger,
	}
}

// Serve upgrades the connection and starts the client pumps
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := h.hub.NewClient(conn)
	go client.WritePump()
	go client.ReadPump()

	// Catch the new client up with the current playback state
	h.hub.Broadcast(hub.TypePlaybackState, h.controller.Snapshot())
}
