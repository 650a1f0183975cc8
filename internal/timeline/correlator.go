// Package timeline maps a drive's recorded events onto the playback
// timeline: the chronological entry list for the side panel and the
// normalized markers for the scrub bar.
package timeline

import (
	"sort"
	"time"

	"roadlens/drive-review/internal/models"

	"github.com/samber/lo"
)

// Entry kinds
const (
	KindStart     = "start"
	KindViolation = "violation"
	KindEnd       = "end"
)

// Entry is one row of the review timeline. Start and end entries are
// synthetic; violation entries carry the resolved violation type and
// the trajectory sample they were detected on.
type Entry struct {
	Kind        string    `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
	ViolationID string    `json:"violation_id,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	Speed       float64   `json:"speed,omitempty"`       // km/h
	Limit       float64   `json:"limit,omitempty"`       // km/h, 0 = unknown
	Address     string    `json:"address,omitempty"`     // filled in lazily
}

// Marker is a scrub-bar element denoting a violation's normalized time
// position
type Marker struct {
	Position    float64 `json:"position"` // percent, 0-100
	ViolationID string  `json:"violation_id"`
	Severity    string  `json:"severity"`
	Label       string  `json:"label"`
}

// BuildEntries produces the ordered timeline for the side panel: a
// synthetic start entry, every detected violation, and a synthetic end
// entry, stable-sorted by timestamp.
func BuildEntries(record *models.DriveRecord) []Entry {
	if record == nil {
		return nil
	}

	entries := make([]Entry, 0, len(record.Timeline)+2)
	entries = append(entries, Entry{Kind: KindStart, Timestamp: record.StartTime})

	violations := lo.Filter(record.Timeline, func(ev models.TimelineEvent, _ int) bool {
		return ev.DetectedViolation != nil
	})
	for _, ev := range violations {
		vt := models.LookupViolation(*ev.DetectedViolation)
		entry := Entry{
			Kind:        KindViolation,
			Timestamp:   ev.Timestamp,
			ViolationID: vt.ID,
			Severity:    vt.Severity,
			DisplayName: vt.DisplayName,
			Latitude:    ev.Latitude,
			Longitude:   ev.Longitude,
			Speed:       ev.Speed,
		}
		if ev.Limit != nil {
			entry.Limit = ev.Limit.KMH()
		}
		entries = append(entries, entry)
	}

	entries = append(entries, Entry{Kind: KindEnd, Timestamp: record.EndTime})

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return entries
}

// BuildMarkers produces the scrub-bar markers for a drive. The total
// duration is the drive-provided duration when present, else the
// observed stream duration; with neither known the marker list is empty
// rather than containing NaN or Inf positions.
func BuildMarkers(record *models.DriveRecord, observedDuration float64) []Marker {
	if record == nil {
		return nil
	}

	total := TotalDuration(record, observedDuration)
	if total <= 0 {
		return nil
	}

	violations := lo.Filter(record.Timeline, func(ev models.TimelineEvent, _ int) bool {
		return ev.DetectedViolation != nil
	})

	return lo.Map(violations, func(ev models.TimelineEvent, _ int) Marker {
		vt := models.LookupViolation(*ev.DetectedViolation)
		return Marker{
			Position:    offsetFromStart(record, ev) / total * 100,
			ViolationID: vt.ID,
			Severity:    vt.Severity,
			Label:       vt.DisplayName,
		}
	})
}

// TotalDuration resolves the authoritative timeline duration. The
// drive-provided duration wins when present and positive; otherwise the
// controller's observed stream duration is used.
func TotalDuration(record *models.DriveRecord, observedDuration float64) float64 {
	if record != nil && record.Duration != nil && *record.Duration > 0 {
		return *record.Duration
	}
	return observedDuration
}

// SeekTarget converts a marker position back to seconds for click-to-seek
func SeekTarget(positionPercent, totalDuration float64) float64 {
	return positionPercent / 100 * totalDuration
}

// offsetFromStart returns the event's offset in seconds, preferring the
// precomputed time_since_start and falling back to the timestamp delta
// against the drive's start
func offsetFromStart(record *models.DriveRecord, ev models.TimelineEvent) float64 {
	if ev.TimeSinceStart != nil {
		return *ev.TimeSinceStart
	}
	return ev.Timestamp.Sub(record.StartTime).Seconds()
}
