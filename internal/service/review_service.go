package service

import (
	"context"
	"sort"
	"sync"

	"roadlens/drive-review/internal/geocode"
	"roadlens/drive-review/internal/models"
	"roadlens/drive-review/internal/playback"
	"roadlens/drive-review/internal/timeline"

	"go.uber.org/zap"
)

// BackendAPI is the subset of the backend client the service depends on
type BackendAPI interface {
	ListDrives(ctx context.Context) ([]models.Session, error)
	GetDrive(ctx context.Context, id string) (*models.DriveRecord, error)
}

// SelectionListener is notified when the selected drive's view changes
// (detail fetched, addresses resolved)
type SelectionListener func(view *DriveView)

// DriveView is the assembled review of the currently selected drive
type DriveView struct {
	Record  *models.DriveRecord `json:"record"`
	Badge   models.ScoreBadge   `json:"badge"`
	Entries []timeline.Entry    `json:"entries"`
	Markers []timeline.Marker   `json:"markers"`
}

// ReviewService owns the currently selected drive: it fetches the
// detail record, assembles the timeline view, and resolves violation
// addresses. Results from a superseded selection are discarded.
type ReviewService struct {
	backend    BackendAPI
	controller *playback.Controller
	addresses  *geocode.Cache
	onChange   SelectionListener // may be nil
	logger     *zap.Logger

	mu          sync.RWMutex
	record      *models.DriveRecord
	entries     []timeline.Entry
	cancelFetch context.CancelFunc
}

// NewReviewService creates a review service
func NewReviewService(
	backend BackendAPI,
	controller *playback.Controller,
	addresses *geocode.Cache,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		backend:    backend,
		controller: controller,
		addresses:  addresses,
		logger:     logger,
	}
}

// SetSelectionListener registers a callback for view changes
func (s *ReviewService) SetSelectionListener(fn SelectionListener) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// ListDrives fetches the session list
func (s *ReviewService) ListDrives(ctx context.Context) ([]models.Session, error) {
	return s.backend.ListDrives(ctx)
}

// Select switches the review to a new session. Playback state is reset
// immediately, before any data for the new session arrives; the detail
// fetch runs in the background and any in-flight work for the previous
// selection is cancelled.
func (s *ReviewService) Select(id string) {
	gen := s.controller.SelectSession(id)

	s.mu.Lock()
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFetch = cancel
	s.record = nil
	s.entries = nil
	s.mu.Unlock()

	go s.fetchDetail(ctx, gen, id)
}

// CurrentView assembles the view for the selected drive. Markers are
// computed on every read because the observed stream duration may
// become known after the detail fetch completed.
func (s *ReviewService) CurrentView() *DriveView {
	s.mu.RLock()
	record := s.record
	entries := entriesSnapshot(s.entries)
	s.mu.RUnlock()

	if record == nil {
		return nil
	}

	violationCount := 0
	for _, e := range entries {
		if e.Kind == timeline.KindViolation {
			violationCount++
		}
	}

	snap := s.controller.Snapshot()
	return &DriveView{
		Record:  record,
		Badge:   models.NewScoreBadge(record.Score, violationCount),
		Entries: entries,
		Markers: timeline.BuildMarkers(record, snap.Duration),
	}
}

// SeekToMarker converts a marker position back to seconds and seeks all
// streams there. This is the only path by which the timeline influences
// playback.
func (s *ReviewService) SeekToMarker(positionPercent float64) {
	s.mu.RLock()
	record := s.record
	s.mu.RUnlock()

	snap := s.controller.Snapshot()
	total := timeline.TotalDuration(record, snap.Duration)
	if total <= 0 {
		return
	}

	s.controller.Seek(timeline.SeekTarget(positionPercent, total))
}

func (s *ReviewService) fetchDetail(ctx context.Context, gen uint64, id string) {
	record, err := s.backend.GetDrive(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Failed to fetch drive detail",
				zap.String("session_id", id),
				zap.Error(err),
			)
		}
		return
	}

	// The source does not guarantee chronological ordering
	sort.SliceStable(record.Timeline, func(i, j int) bool {
		return record.Timeline[i].Timestamp.Before(record.Timeline[j].Timestamp)
	})

	entries := timeline.BuildEntries(record)

	s.mu.Lock()
	if gen != s.controller.Generation() {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale drive detail",
			zap.String("session_id", id),
			zap.Uint64("generation", gen),
		)
		return
	}
	s.record = record
	s.entries = entries
	s.mu.Unlock()

	s.logger.Info("Drive detail loaded",
		zap.String("session_id", id),
		zap.Int("score", record.Score),
		zap.Int("timeline_events", len(record.Timeline)),
	)

	s.notifyChanged()
	s.resolveAddresses(ctx, gen)
}

// resolveAddresses annotates violation entries with reverse-geocoded
// locations. Lookups queue behind the cache's process-wide rate limit;
// results for a superseded selection are dropped.
func (s *ReviewService) resolveAddresses(ctx context.Context, gen uint64) {
	s.mu.RLock()
	entries := entriesSnapshot(s.entries)
	s.mu.RUnlock()

	updated := false
	for i, entry := range entries {
		if entry.Kind != timeline.KindViolation || entry.Address != "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		addr := s.addresses.Resolve(ctx, entry.Latitude, entry.Longitude)

		s.mu.Lock()
		if gen != s.controller.Generation() {
			s.mu.Unlock()
			return
		}
		if i < len(s.entries) {
			s.entries[i].Address = addr
			updated = true
		}
		s.mu.Unlock()
	}

	if updated {
		s.notifyChanged()
	}
}

func (s *ReviewService) notifyChanged() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()

	if fn != nil {
		fn(s.CurrentView())
	}
}

func entriesSnapshot(entries []timeline.Entry) []timeline.Entry {
	out := make([]timeline.Entry, len(entries))
	copy(out, entries)
	return out
}
