package hub

import (
	"roadlens/drive-review/internal/stream"
)

// StreamFactory creates stream handles whose transport commands are
// broadcast to the connected dashboard clients, where the actual video
// elements live.
type StreamFactory struct {
	hub *Hub
}

// NewStreamFactory creates a factory bound to the hub
func NewStreamFactory(h *Hub) *StreamFactory {
	return &StreamFactory{hub: h}
}

// NewHandle creates a handle for one camera role and tells the players
// to load its source
func (f *StreamFactory) NewHandle(role stream.Role, source string) stream.Handle {
	f.hub.Broadcast(TypeTransport, TransportCommand{
		Role:   string(role),
		Action: ActionLoad,
		Source: source,
	})
	return &cameraStream{hub: f.hub, role: role, source: source}
}

// cameraStream fans transport commands out over the hub. Commands are
// fire-and-forget; delivery failures surface only on the client side.
type cameraStream struct {
	hub    *Hub
	role   stream.Role
	source string
}

func (s *cameraStream) Role() stream.Role {
	return s.role
}

func (s *cameraStream) Source() string {
	return s.source
}

func (s *cameraStream) Play() error {
	s.hub.Broadcast(TypeTransport, TransportCommand{
		Role:   string(s.role),
		Action: ActionPlay,
	})
	return nil
}

func (s *cameraStream) Pause() {
	s.hub.Broadcast(TypeTransport, TransportCommand{
		Role:   string(s.role),
		Action: ActionPause,
	})
}

func (s *cameraStream) Seek(seconds float64) {
	s.hub.Broadcast(TypeTransport, TransportCommand{
		Role:     string(s.role),
		Action:   ActionSeek,
		Position: seconds,
	})
}
