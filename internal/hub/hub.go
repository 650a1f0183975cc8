// Package hub pushes playback and selection updates to connected
// dashboard clients over WebSocket, and carries transport commands for
// the four camera players.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types pushed to dashboard clients
const (
	TypePlaybackState   = "playback_state"
	TypeSessionSelected = "session_selected"
	TypeTransport       = "transport"
)

// Transport actions fanned out to the camera players
const (
	ActionLoad  = "load"
	ActionPlay  = "play"
	ActionPause = "pause"
	ActionSeek  = "seek"
)

// Message is the envelope for everything sent over the WebSocket
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// TransportCommand instructs one camera player element
type TransportCommand struct {
	Role     string  `json:"role"`
	Action   string  `json:"action"`
	Source   string  `json:"source,omitempty"`
	Position float64 `json:"position,omitempty"` // seconds, seek only
}

// Client is one connected dashboard
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages connected dashboard clients and message distribution
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	stopChan   chan struct{}
	logger     *zap.Logger
	mu         sync.Mutex
}

// NewHub creates a hub; call Run in a goroutine to start it
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopChan:   make(chan struct{}),
		logger:     logger,
	}
}

// Run distributes messages until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Dashboard client connected",
				zap.String("client_id", client.ID),
				zap.Int("total", count),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Dashboard client disconnected",
				zap.String("client_id", client.ID),
				zap.Int("total", count),
			)

		case msg := <-h.broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("Failed to marshal broadcast", zap.Error(err))
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.stopChan:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast queues a message for all connected clients. Messages are
// dropped when the hub's buffer is full; playback state is re-sent on
// every change so a dropped frame is caught up by the next one.
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	select {
	case h.broadcast <- Message{Type: msgType, Payload: payload}:
	default:
		h.logger.Warn("Broadcast buffer full, dropping message",
			zap.String("type", msgType),
		)
	}
}

// Stop shuts the hub down and disconnects all clients
func (h *Hub) Stop() {
	close(h.stopChan)
}

// NewClient wraps an upgraded connection and registers it
func (h *Hub) NewClient(conn *websocket.Conn) *Client {
	client := &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.register <- client
	return client
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// ReadPump drains incoming messages and tears the client down on error
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("WebSocket read error",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// WritePump forwards hub messages to the connection and keeps it alive
// with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
