package hotspot

import "math"

// Severity modes
const (
	SeverityModeBucket = "bucket"
	SeverityModeScore  = "score"
)

// Severity labels
const (
	SeverityLow      = "low"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

const (
	moderateThreshold = 8
	severeThreshold   = 15
)

// ClassifySeverity returns a label and numeric score for a cluster.
// Bucket mode scores by count alone; score mode weights count by mean member severity and
// positive trend. Both modes label with the same thresholds.
func ClassifySeverity(mode string, count int, meanSeverity, trendScore float64) (string, float64) {
	score := float64(count)
	if mode == SeverityModeScore {
		score = float64(count) * meanSeverity * (1 + math.Max(trendScore, 0))
		score = math.Round(score*100) / 100
	}
	return severityLabel(score), score
}

func severityLabel(score float64) string {
	switch {
	case score >= severeThreshold:
		return SeveritySevere
	case score >= moderateThreshold:
		return SeverityModerate
	default:
		return SeverityLow
	}
}
