package models

import (
	"encoding/json"
	"fmt"
	"time"

	"roadlens/drive-review/internal/speedlimit"
)

// Session represents one recorded driving session as returned by the
// backend session list. Immutable once fetched.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// DriveRecord is the full detail for one session: the safety score and
// the recorded timeline. Replaced wholesale on session change.
type DriveRecord struct {
	Session
	Score    int             `json:"score"` // 0-100
	Duration *float64        `json:"duration,omitempty"` // seconds, schema-version dependent
	Timeline []TimelineEvent `json:"timeline"`
}

// TimelineEvent is a single trajectory sample. DetectedViolation is nil
// for normal driving samples. Limit and TimeSinceStart are optional
// because older backend schema versions omit them.
type TimelineEvent struct {
	Timestamp         time.Time   `json:"timestamp"`
	Latitude          float64     `json:"latitude"`
	Longitude         float64     `json:"longitude"`
	Speed             float64     `json:"speed"` // km/h
	Limit             *SpeedLimit `json:"limit,omitempty"`
	DetectedViolation *string     `json:"detected_violation,omitempty"`
	TimeSinceStart    *float64    `json:"time_since_start,omitempty"` // seconds
}

// SpeedLimit is a speed limit in km/h. The backend sends it either as a
// number (current schema) or as a raw OSM maxspeed string such as
// "50 km/h" or "RS:urban" (older schema); both decode to km/h.
type SpeedLimit float64

func (s *SpeedLimit) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*s = SpeedLimit(num)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("speed limit is neither number nor string: %w", err)
	}

	parsed, err := speedlimit.Parse(raw)
	if err != nil {
		// Tolerate unparseable legacy values rather than failing the
		// whole timeline decode; zero means "limit unknown".
		*s = 0
		return nil
	}
	*s = SpeedLimit(parsed)
	return nil
}

func (s SpeedLimit) KMH() float64 {
	return float64(s)
}
