package hotspot

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dpup/prefab/logging"
	"golang.org/x/sync/errgroup"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/geocode"
	"github.com/campuspulse/pulse/server/internal/telemetry"
)

// DefaultConcurrency bounds how many clusters are resolved at once
const DefaultConcurrency = 4

// DefaultTrendWindow is half of the default 72 hour query window
const DefaultTrendWindow = 36 * time.Hour

// AggregatorConfig controls how clusters become hotspots
type AggregatorConfig struct {
	// TrendWindow is the length of the current and previous trend windows
	TrendWindow  time.Duration
	SeverityMode string
	Concurrency  int
}

// Aggregator turns clusters of alert points into hotspots
type Aggregator struct {
	resolver geocode.Resolver
	prober   geocode.Prober
	config   AggregatorConfig
}

// NewAggregator creates an aggregator. resolver and prober may be nil, in which case
// hotspots are left unresolved.
func NewAggregator(resolver geocode.Resolver, prober geocode.Prober, config AggregatorConfig) *Aggregator {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.TrendWindow <= 0 {
		config.TrendWindow = DefaultTrendWindow
	}
	if config.SeverityMode == "" {
		config.SeverityMode = SeverityModeBucket
	}
	return &Aggregator{resolver: resolver, prober: prober, config: config}
}

// Build computes one hotspot per cluster. Clusters are resolved concurrently but the
// result keeps cluster order; within a cluster resolve, probe and recommend run in sequence.
// The only error is ctx cancellation.
func (a *Aggregator) Build(ctx context.Context, points []AlertPoint, clusters [][]int, now time.Time) ([]Hotspot, error) {
	hotspots := make([]Hotspot, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Concurrency)

	for idx, members := range clusters {
		idx, members := idx, members
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cctx, span := telemetry.StartClusterSpan(gctx, idx, len(members))
			defer span.End()

			h := a.summarize(idx, points, members, now)
			a.resolve(cctx, &h)
			Recommend(&h)
			hotspots[idx] = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build hotspots: %w", err)
	}
	return hotspots, nil
}

// summarize computes the geometry, counts, trend and severity of a cluster
func (a *Aggregator) summarize(idx int, points []AlertPoint, members []int, now time.Time) Hotspot {
	coords := make([]geo.Point, 0, len(members))
	times := make([]time.Time, 0, len(members))
	ids := make([]string, 0, len(members))
	typeCounts := make(map[string]int)
	var typeOrder []string
	var severitySum float64
	var sampleLocation string
	var firstSeen, lastSeen time.Time

	for i, m := range members {
		p := points[m]
		coords = append(coords, p.Point)
		times = append(times, p.CreatedAt)
		ids = append(ids, p.ID)
		severitySum += p.Severity

		if typeCounts[p.Type] == 0 {
			typeOrder = append(typeOrder, p.Type)
		}
		typeCounts[p.Type]++

		if sampleLocation == "" && p.LocationName != "" {
			sampleLocation = p.LocationName
		}
		if i == 0 || p.CreatedAt.Before(firstSeen) {
			firstSeen = p.CreatedAt
		}
		if i == 0 || p.CreatedAt.After(lastSeen) {
			lastSeen = p.CreatedAt
		}
	}

	count := len(members)
	countNow, countPrev := CountWindows(times, now, a.config.TrendWindow)
	trend := TrendScore(countNow, countPrev)
	meanSeverity := math.Round(severitySum/float64(count)*10) / 10
	label, score := ClassifySeverity(a.config.SeverityMode, count, meanSeverity, trend)

	return Hotspot{
		ID:                 fmt.Sprintf("hotspot-%d", idx),
		Centroid:           geo.Centroid(coords),
		Count:              count,
		CountNow:           countNow,
		CountPrev:          countPrev,
		TrendScore:         trend,
		Severity:           label,
		SeverityScore:      score,
		MeanSeverity:       meanSeverity,
		Type:               dominantType(typeOrder, typeCounts),
		NearbyRoadVariants: []string{},
		FirstSeen:          firstSeen,
		LastSeen:           lastSeen,
		SampleLocationName: stringPtr(sampleLocation),
		AlertIDs:           ids,
		Bounds:             geo.Bounds(coords),
		Footprint:          geo.EncodePolyline(coords),
	}
}

// resolve fills area, road and variant fields from the geocoder
func (a *Aggregator) resolve(ctx context.Context, h *Hotspot) {
	var place *geocode.Place
	if a.resolver != nil {
		place = a.resolver.Resolve(ctx, h.Centroid)
	}

	area := deref(h.SampleLocationName)
	var road string
	if place != nil {
		if place.DisplayName != "" {
			area = place.DisplayName
		}
		road = place.Road
		h.Neighbourhood = stringPtr(place.Neighbourhood)
	}
	if road == "" {
		road = geocode.ExtractStreet(area)
	}
	h.AreaName = stringPtr(area)
	h.PrimaryRoad = stringPtr(road)

	if a.prober != nil {
		if variants := a.prober.Probe(ctx, h.Centroid, road); len(variants) > 0 {
			h.NearbyRoadVariants = variants
		}
	}

	logging.Debugw(ctx, "Hotspot resolved",
		"hotspot", h.ID, "area", area, "primaryRoad", road, "variants", len(h.NearbyRoadVariants))
}

// dominantType is the most frequent type; ties go to the first encountered
func dominantType(order []string, counts map[string]int) string {
	best := DefaultType
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}
