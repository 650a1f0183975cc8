package models

// Severity tiers for detected violations
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ViolationType describes how a detected violation identifier is
// presented in the dashboard
type ViolationType struct {
	ID          string `json:"id"`
	Severity    string `json:"severity"`
	DisplayName string `json:"display_name"`
}

// violationCatalog maps the identifiers emitted by the detection
// pipeline to their presentation. Identifiers not listed here fall back
// to low severity with the raw identifier as display name.
var violationCatalog = map[string]ViolationType{
	"speeding":         {ID: "speeding", Severity: SeverityHigh, DisplayName: "Speeding"},
	"stop_sign":        {ID: "stop_sign", Severity: SeverityHigh, DisplayName: "Stop Sign Violation"},
	"lane_cross_left":  {ID: "lane_cross_left", Severity: SeverityMedium, DisplayName: "Left Lane Crossing"},
	"lane_cross_right": {ID: "lane_cross_right", Severity: SeverityMedium, DisplayName: "Right Lane Crossing"},
	"hard_braking":     {ID: "hard_braking", Severity: SeverityMedium, DisplayName: "Hard Braking"},
	"phone_usage":      {ID: "phone_usage", Severity: SeverityLow, DisplayName: "Phone Usage"},
}

// LookupViolation resolves a detected violation identifier. Unknown
// identifiers degrade gracefully instead of erroring.
func LookupViolation(id string) ViolationType {
	if vt, ok := violationCatalog[id]; ok {
		return vt
	}
	return ViolationType{ID: id, Severity: SeverityLow, DisplayName: id}
}
