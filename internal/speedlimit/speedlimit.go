// Package speedlimit parses OSM maxspeed values into km/h.
package speedlimit

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const mphToKMH = 1.60934

// ErrNoLimit indicates the value explicitly declares no speed limit
var ErrNoLimit = errors.New("no speed limit")

// ErrUnparseable indicates the value could not be interpreted
var ErrUnparseable = errors.New("unparseable speed limit")

// textLimits maps text-based maxspeed values to km/h defaults. The
// RS-prefixed entries are the Serbian national defaults.
var textLimits = map[string]float64{
	"RS:urban":    50,
	"RS:rural":    80,
	"RS:trunk":    100,
	"RS:motorway": 120,
	"urban":       50,
	"rural":       80,
	"trunk":       100,
	"motorway":    120,
	"walk":        5,
}

var numericPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// Parse converts a raw maxspeed string ("50", "50 km/h", "30 mph",
// "RS:urban", ...) to km/h.
func Parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrUnparseable
	}

	if raw == "none" {
		return 0, ErrNoLimit
	}

	if limit, ok := textLimits[raw]; ok {
		return limit, nil
	}

	match := numericPattern.FindString(raw)
	if match == "" {
		return 0, ErrUnparseable
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, ErrUnparseable
	}

	if strings.Contains(strings.ToLower(raw), "mph") {
		value *= mphToKMH
	}

	return value, nil
}
