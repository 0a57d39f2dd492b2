package hotspot

import "time"

// TrendScore is the relative growth of countNow over countPrev.
// With no previous activity any current activity scores 1,
// and drops are not floored at -1.
func TrendScore(countNow, countPrev int) float64 {
	if countPrev == 0 {
		if countNow > 0 {
			return 1
		}
		return 0
	}
	return float64(countNow-countPrev) / float64(countPrev)
}

// CountWindows splits timestamps into the current window [now-window, ...) and the
// preceding window [now-2*window, now-window).
func CountWindows(times []time.Time, now time.Time, window time.Duration) (countNow, countPrev int) {
	currentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)
	for _, t := range times {
		switch {
		case !t.Before(currentStart):
			countNow++
		case !t.Before(previousStart):
			countPrev++
		}
	}
	return countNow, countPrev
}
