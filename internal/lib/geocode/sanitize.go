package geocode

import (
	"regexp"
)

// DefaultLocality replaces "Unnamed" placeholders when the address has nothing better
const DefaultLocality = "Rocky Point"

var (
	unnamedRoadPattern = regexp.MustCompile(`(?i)unnamed road`)
	unnamedPattern     = regexp.MustCompile(`(?i)unnamed`)
)

// localityFallbackFields is the preference order for a name to substitute into a display name
var localityFallbackFields = []string{"village", "town", "hamlet", "suburb", "neighbourhood", "county"}

// Sanitize replaces generic "Unnamed" placeholders in a display name and road with a
// locality taken from the address fields, or defaultLocality when none is present.
func Sanitize(displayName, road string, address map[string]string, defaultLocality string) (string, string) {
	if defaultLocality == "" {
		defaultLocality = DefaultLocality
	}

	if unnamedPattern.MatchString(displayName) {
		fallback := firstNonEmpty(address, localityFallbackFields...)
		if fallback == "" {
			fallback = defaultLocality
		}
		displayName = unnamedRoadPattern.ReplaceAllLiteralString(displayName, fallback)
		displayName = unnamedPattern.ReplaceAllLiteralString(displayName, fallback)
	}

	if unnamedPattern.MatchString(road) {
		road = firstNonEmpty(address, "village", "town")
		if road == "" {
			road = defaultLocality
		}
	}

	return displayName, road
}

// firstNonEmpty returns the first non-empty value among keys
func firstNonEmpty(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}
