package hotspot

import (
	"fmt"
	"strings"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

// maxAreaNameLength is the longest area name used verbatim in a recommendation
const maxAreaNameLength = 60

// Recommend fills the heuristic recommendation fields of h from its resolved names and
// road variants. A hotspot without a usable variant is marked for enrichment.
func Recommend(h *Hotspot) {
	primary := deref(h.PrimaryRoad)
	alternate := pickAlternate(h.NearbyRoadVariants, primary)

	if alternate != "" {
		avoid := primary
		if avoid == "" {
			avoid = shortArea(h)
		}
		if avoid == "" {
			avoid = "this area"
		}
		h.Recommendation = fmt.Sprintf("Avoid %s; take %s instead.", avoid, alternate)
		h.AlternativeRoute = stringPtr(alternate)
		h.NeedsEnrichment = false
	} else {
		avoid := shortArea(h)
		if avoid == "" {
			avoid = "coords " + formatCoords(h.Centroid, ",")
		}
		h.Recommendation = fmt.Sprintf("Avoid %s; choose a nearby main road.", avoid)
		h.AlternativeRoute = nil
		h.NeedsEnrichment = true
	}

	h.Label = fmt.Sprintf("%s reported %d recent incident(s)", labelArea(h), h.Count)
}

func pickAlternate(variants []string, primary string) string {
	for _, v := range variants {
		if v == "" {
			continue
		}
		if primary != "" && strings.EqualFold(v, primary) {
			continue
		}
		return v
	}
	return ""
}

// shortArea is the area name when short enough, else neighbourhood, sample location or coordinates
func shortArea(h *Hotspot) string {
	area := deref(h.AreaName)
	if area == "" {
		return ""
	}
	if len(area) <= maxAreaNameLength {
		return area
	}
	if n := deref(h.Neighbourhood); n != "" {
		return n
	}
	if s := deref(h.SampleLocationName); s != "" {
		return s
	}
	return "coords " + formatCoords(h.Centroid, ",")
}

func labelArea(h *Hotspot) string {
	if area := deref(h.AreaName); area != "" {
		return area
	}
	return formatCoords(h.Centroid, ", ")
}

func formatCoords(p geo.Point, sep string) string {
	return fmt.Sprintf("%.4f%s%.4f", p.Latitude, sep, p.Longitude)
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
