package models

// Score tiers for the drive safety badge
const (
	TierExcellent = "excellent"
	TierGood      = "good"
	TierFair      = "fair"
	TierPoor      = "poor"
)

// ScoreBadge is the badge rendered next to a drive's safety score
type ScoreBadge struct {
	Score int    `json:"score"`
	Tier  string `json:"tier"`
	Label string `json:"label"`
}

// NewScoreBadge builds the badge for a score and the number of detected
// violations. A violation-free drive in the excellent tier is labeled
// "Clean Drive".
func NewScoreBadge(score, violationCount int) ScoreBadge {
	badge := ScoreBadge{Score: score}

	switch {
	case score >= 90:
		badge.Tier = TierExcellent
		badge.Label = "Excellent"
	case score >= 75:
		badge.Tier = TierGood
		badge.Label = "Good"
	case score >= 50:
		badge.Tier = TierFair
		badge.Label = "Fair"
	default:
		badge.Tier = TierPoor
		badge.Label = "Poor"
	}

	if badge.Tier == TierExcellent && violationCount == 0 {
		badge.Label = "Clean Drive"
	}

	return badge
}
