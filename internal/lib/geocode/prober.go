package geocode

import (
	"context"
	"strings"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

// MaxRoadVariants caps the number of nearby road candidates a probe returns
const MaxRoadVariants = 3

// probeOffsets are lat/lng degree deltas around a centroid, roughly 60-120 m
var probeOffsets = [][2]float64{
	{0.0006, 0}, {-0.0006, 0}, {0, 0.0006}, {0, -0.0006}, {0.0006, 0.0003}, {-0.0006, -0.0003},
}

type prober struct {
	resolver Resolver
}

// NewProber creates a prober that reverse geocodes a fixed ring of offsets
func NewProber(resolver Resolver) Prober {
	return &prober{resolver: resolver}
}

// Probe returns up to three distinct names near centroid that differ from primaryRoad.
// Offsets that fail to resolve are skipped.
func (p *prober) Probe(ctx context.Context, centroid geo.Point, primaryRoad string) []string {
	var found []string
	seen := make(map[string]bool)

	for _, d := range probeOffsets {
		if len(found) >= MaxRoadVariants {
			break
		}

		place := p.resolver.Resolve(ctx, geo.Offset(centroid, d[0], d[1]))
		if place == nil {
			continue
		}

		candidate := place.Road
		if candidate == "" {
			candidate = ExtractStreet(place.DisplayName)
		}
		if candidate == "" {
			candidate = place.Neighbourhood
		}
		if candidate == "" || seen[candidate] {
			continue
		}
		if primaryRoad != "" && strings.EqualFold(candidate, primaryRoad) {
			continue
		}

		seen[candidate] = true
		found = append(found, candidate)
	}

	return found
}
