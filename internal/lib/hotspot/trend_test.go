package hotspot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrendScore(t *testing.T) {
	tests := []struct {
		name      string
		countNow  int
		countPrev int
		expected  float64
	}{
		{"no activity", 0, 0, 0},
		{"new activity", 5, 0, 1.0},
		{"halved", 5, 10, -0.5},
		{"doubled", 10, 5, 1.0},
		{"flat", 3, 3, 0},
		{"vanished", 0, 4, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TrendScore(tt.countNow, tt.countPrev))
		})
	}
}

func TestCountWindows(t *testing.T) {
	now := time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)
	window := 36 * time.Hour

	times := []time.Time{
		now,
		now.Add(-window),                 // boundary belongs to the current window
		now.Add(-window - time.Second),   // previous window
		now.Add(-2 * window),             // boundary belongs to the previous window
		now.Add(-2*window - time.Second), // outside both
	}

	countNow, countPrev := CountWindows(times, now, window)
	assert.Equal(t, 2, countNow)
	assert.Equal(t, 2, countPrev)
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name          string
		mode          string
		count         int
		mean          float64
		trend         float64
		expectedLabel string
		expectedScore float64
	}{
		{"bucket low", SeverityModeBucket, 7, 3, 1, SeverityLow, 7},
		{"bucket moderate", SeverityModeBucket, 8, 1, 0, SeverityModerate, 8},
		{"bucket severe", SeverityModeBucket, 15, 1, 0, SeveritySevere, 15},
		{"score weighted by severity", SeverityModeScore, 4, 2, 0, SeverityModerate, 8},
		{"score boosted by trend", SeverityModeScore, 5, 1.5, 1, SeveritySevere, 15},
		{"score ignores negative trend", SeverityModeScore, 3, 1, -0.5, SeverityLow, 3},
		{"unknown mode buckets", "", 9, 5, 5, SeverityModerate, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, score := ClassifySeverity(tt.mode, tt.count, tt.mean, tt.trend)
			assert.Equal(t, tt.expectedLabel, label)
			assert.InDelta(t, tt.expectedScore, score, 1e-9)
		})
	}
}
