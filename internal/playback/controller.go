// Package playback keeps the four camera streams of the selected
// session in lockstep behind a single play/pause/seek surface.
package playback

import (
	"context"
	"sync"
	"time"

	"roadlens/drive-review/internal/stream"

	"go.uber.org/zap"
)

// State is a snapshot of the controller's playback state
type State struct {
	SessionID   string  `json:"session_id"`
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"` // seconds
	Duration    float64 `json:"duration"`     // seconds
	LoadedCount int     `json:"loaded_count"` // 0..4
	Loading     bool    `json:"loading"`
	LoadFailed  bool    `json:"load_failed"`
}

// Controller owns the stream handles for the currently selected session
// and fans transport commands out to all of them. The authoritative
// playback clock has exactly one writer: the reference stream's natural
// time progression (plus explicit seeks).
type Controller struct {
	factory      stream.Factory
	prober       stream.Prober
	mediaBaseURL string
	readyTimeout time.Duration
	logger       *zap.Logger

	onStateChange func(State) // invoked outside the lock, may be nil

	mu          sync.RWMutex
	sessionID   string
	generation  uint64
	cancelProbe context.CancelFunc
	handles     map[stream.Role]stream.Handle
	ready       map[stream.Role]bool
	isPlaying   bool
	currentTime float64
	duration    float64
	loadFailed  bool
}

// NewController creates a playback controller. No session is selected
// initially: all transport operations are no-ops until SelectSession.
func NewController(
	factory stream.Factory,
	prober stream.Prober,
	mediaBaseURL string,
	readyTimeout time.Duration,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		factory:      factory,
		prober:       prober,
		mediaBaseURL: mediaBaseURL,
		readyTimeout: readyTimeout,
		logger:       logger,
	}
}

// SetStateListener registers a callback invoked with a snapshot after
// every state change
func (c *Controller) SetStateListener(fn func(State)) {
	c.mu.Lock()
	c.onStateChange = fn
	c.mu.Unlock()
}

// SelectSession discards all current stream handles and playback state,
// then creates four fresh handles for the new session. In-flight probes
// for the previous session are cancelled; their late results are
// discarded by a generation check. Returns the selection generation.
func (c *Controller) SelectSession(id string) uint64 {
	c.mu.Lock()

	if c.cancelProbe != nil {
		c.cancelProbe()
	}

	c.generation++
	gen := c.generation
	c.sessionID = id
	c.isPlaying = false
	c.currentTime = 0
	c.duration = 0
	c.loadFailed = false
	c.handles = make(map[stream.Role]stream.Handle, len(stream.Roles))
	c.ready = make(map[stream.Role]bool, len(stream.Roles))

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelProbe = cancel

	for _, role := range stream.Roles {
		source := stream.SourceLocator(c.mediaBaseURL, id, role)
		c.handles[role] = c.factory.NewHandle(role, source)
	}
	handles := c.snapshotHandlesLocked()
	c.mu.Unlock()

	c.logger.Info("Session selected",
		zap.String("session_id", id),
		zap.Uint64("generation", gen),
	)

	for _, h := range handles {
		go c.probeStream(ctx, gen, h)
	}
	go c.watchReadyTimeout(ctx, gen)

	c.notify()
	return gen
}

// Generation returns the current selection generation. Asynchronous
// work tied to a selection must drop its result when the generation has
// moved on.
func (c *Controller) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// OnStreamReady marks one stream as loaded. The first reported positive
// duration becomes the observed duration candidate. Loading clears when
// all four streams have reported.
func (c *Controller) OnStreamReady(role stream.Role, reportedDuration float64) {
	c.onStreamReady(0, role, reportedDuration)
}

// onStreamReady applies a readiness report. A non-zero gen pins the
// report to the selection it was probed for; reports from a superseded
// selection are discarded under the same lock that guards the state.
func (c *Controller) onStreamReady(gen uint64, role stream.Role, reportedDuration float64) {
	c.mu.Lock()
	if c.sessionID == "" || !role.Valid() {
		c.mu.Unlock()
		return
	}
	if gen != 0 && gen != c.generation {
		c.mu.Unlock()
		return
	}
	if c.ready[role] {
		c.mu.Unlock()
		return
	}
	c.ready[role] = true
	if c.duration == 0 && reportedDuration > 0 {
		c.duration = reportedDuration
	}
	loaded := len(c.ready)
	c.mu.Unlock()

	c.logger.Debug("Stream ready",
		zap.String("role", string(role)),
		zap.Float64("reported_duration", reportedDuration),
		zap.Int("loaded_count", loaded),
	)

	c.notify()
}

// Play issues a play command to every stream concurrently. Per-stream
// failures are logged and partial success is accepted silently.
func (c *Controller) Play() {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return
	}
	c.isPlaying = true
	handles := c.snapshotHandlesLocked()
	c.mu.Unlock()

	for _, h := range handles {
		go func(h stream.Handle) {
			if err := h.Play(); err != nil {
				c.logger.Warn("Stream play failed",
					zap.String("role", string(h.Role())),
					zap.Error(err),
				)
			}
		}(h)
	}

	c.notify()
}

// Pause issues pause to every stream; pausing always succeeds
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return
	}
	c.isPlaying = false
	handles := c.snapshotHandlesLocked()
	c.mu.Unlock()

	for _, h := range handles {
		go h.Pause()
	}

	c.notify()
}

// TogglePlayback pauses if playing, else plays
func (c *Controller) TogglePlayback() {
	c.mu.RLock()
	playing := c.isPlaying
	c.mu.RUnlock()

	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// Seek sets every stream's position and updates the authoritative
// clock immediately, without waiting for streams to confirm. Values are
// passed through unclamped; the underlying stream clamps itself.
func (c *Controller) Seek(targetSeconds float64) {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return
	}
	c.currentTime = targetSeconds
	handles := c.snapshotHandlesLocked()
	c.mu.Unlock()

	for _, h := range handles {
		go h.Seek(targetSeconds)
	}

	c.notify()
}

// ReportTimeUpdate feeds the authoritative clock from a stream's
// natural playback progression. Only the reference stream is accepted
// as a writer; reports from any other role are ignored.
func (c *Controller) ReportTimeUpdate(role stream.Role, observedSeconds float64) {
	if role != stream.ReferenceRole {
		return
	}

	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return
	}
	c.currentTime = observedSeconds
	c.mu.Unlock()

	c.notify()
}

// Snapshot returns the current playback state
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	loaded := len(c.ready)
	return State{
		SessionID:   c.sessionID,
		IsPlaying:   c.isPlaying,
		CurrentTime: c.currentTime,
		Duration:    c.duration,
		LoadedCount: loaded,
		Loading:     c.sessionID != "" && loaded < len(stream.Roles) && !c.loadFailed,
		LoadFailed:  c.loadFailed,
	}
}

func (c *Controller) snapshotHandlesLocked() []stream.Handle {
	handles := make([]stream.Handle, 0, len(c.handles))
	for _, role := range stream.Roles {
		if h, ok := c.handles[role]; ok {
			handles = append(handles, h)
		}
	}
	return handles
}

func (c *Controller) probeStream(ctx context.Context, gen uint64, h stream.Handle) {
	duration, err := c.prober.Probe(ctx, h.Source())
	if err != nil {
		// A stream that fails to probe never reports ready; the
		// ready-timeout watcher surfaces the stuck load.
		if ctx.Err() == nil {
			c.logger.Warn("Stream probe failed",
				zap.String("role", string(h.Role())),
				zap.String("source", h.Source()),
				zap.Error(err),
			)
		}
		return
	}

	c.onStreamReady(gen, h.Role(), duration)
}

// watchReadyTimeout marks the load as failed when not all streams
// report ready within the configured timeout, so the session never
// stays in a loading state indefinitely.
func (c *Controller) watchReadyTimeout(ctx context.Context, gen uint64) {
	if c.readyTimeout <= 0 {
		return
	}

	timer := time.NewTimer(c.readyTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	c.mu.Lock()
	if gen != c.generation || len(c.ready) == len(stream.Roles) {
		c.mu.Unlock()
		return
	}
	c.loadFailed = true
	loaded := len(c.ready)
	sessionID := c.sessionID
	c.mu.Unlock()

	c.logger.Warn("Stream load timed out",
		zap.String("session_id", sessionID),
		zap.Int("loaded_count", loaded),
		zap.Duration("timeout", c.readyTimeout),
	)

	c.notify()
}

func (c *Controller) notify() {
	c.mu.RLock()
	fn := c.onStateChange
	snapshot := c.snapshotLocked()
	c.mu.RUnlock()

	if fn != nil {
		fn(snapshot)
	}
}
