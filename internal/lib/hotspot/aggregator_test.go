package hotspot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/pulse/server/internal/lib/cluster"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/geocode"
)

// testContext carries a logger the way prefab request contexts do
func testContext() context.Context {
	return logging.With(context.Background(), logging.NewDevLogger())
}

var testNow = time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeResolver struct {
	place *geocode.Place
	mu    sync.Mutex
	calls []geo.Point
}

func (f *fakeResolver) Resolve(ctx context.Context, point geo.Point) *geocode.Place {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, point)
	if f.place == nil {
		return nil
	}
	cp := *f.place
	return &cp
}

type fakeProber struct {
	variants []string
	mu       sync.Mutex
	primary  []string
}

func (f *fakeProber) Probe(ctx context.Context, centroid geo.Point, primaryRoad string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primary = append(f.primary, primaryRoad)
	return f.variants
}

func severityPtr(v float64) *float64 { return &v }

func campusRecords() []AlertRecord {
	base := geo.Point{Latitude: 18.0060, Longitude: -76.7466}
	at := func(p geo.Point) *geo.Point { return &p }
	return []AlertRecord{
		{ID: "a1", Location: at(base), Type: "theft", CreatedAt: testNow.Add(-1 * time.Hour), LocationName: "Main Library"},
		{ID: "a2", Location: at(geo.Offset(base, 0.0001, 0)), Type: "assault", Severity: severityPtr(3), CreatedAt: testNow.Add(-2 * time.Hour)},
		{ID: "a3", Location: at(geo.Offset(base, 0, 0.0001)), Type: "theft", CreatedAt: testNow.Add(-40 * time.Hour)},
		{ID: "a4", Location: at(geo.Offset(base, 0.0001, 0.0001)), Type: "assault", CreatedAt: testNow.Add(-50 * time.Hour)},
		{ID: "a5", Location: at(geo.Offset(base, 0.00015, 0.00005)), CreatedAt: testNow.Add(-3 * time.Hour)},
		{ID: "far", Location: at(geo.Offset(base, 0.045, 0)), Type: "theft", CreatedAt: testNow},
		{ID: "nolocation", Type: "theft", CreatedAt: testNow},
		{ID: "invalid", Location: at(geo.Point{Latitude: 123, Longitude: 0}), CreatedAt: testNow},
	}
}

func TestToAlertPoints(t *testing.T) {
	points := ToAlertPoints(campusRecords())

	require.Len(t, points, 6)
	assert.Equal(t, "a1", points[0].ID)
	assert.Equal(t, 1.0, points[0].Severity)
	assert.Equal(t, 3.0, points[1].Severity)
	assert.Equal(t, DefaultType, points[4].Type)
	assert.Equal(t, "far", points[5].ID)
}

func TestBuild_EndToEnd(t *testing.T) {
	points := ToAlertPoints(campusRecords())
	clusters := cluster.DBSCAN(Coordinates(points), 50, 3)
	require.Len(t, clusters, 1)

	resolver := &fakeResolver{place: &geocode.Place{
		Provider:      "stub",
		DisplayName:   "Mona Road, Kingston, Jamaica",
		Road:          "Mona Road",
		Neighbourhood: "Mona",
	}}
	prober := &fakeProber{variants: []string{"Ring Road"}}
	agg := NewAggregator(resolver, prober, AggregatorConfig{TrendWindow: 36 * time.Hour})

	hotspots, err := agg.Build(testContext(), points, clusters, testNow)
	require.NoError(t, err)
	require.Len(t, hotspots, 1)

	h := hotspots[0]
	assert.Equal(t, "hotspot-0", h.ID)
	assert.Equal(t, 5, h.Count)
	assert.Len(t, h.AlertIDs, h.Count)
	assert.NotContains(t, h.AlertIDs, "far")

	// Centroid is the arithmetic mean of members
	var sumLat, sumLng float64
	for _, idx := range clusters[0] {
		sumLat += points[idx].Point.Latitude
		sumLng += points[idx].Point.Longitude
	}
	assert.InDelta(t, sumLat/5, h.Centroid.Latitude, 1e-12)
	assert.InDelta(t, sumLng/5, h.Centroid.Longitude, 1e-12)

	// a1, a2, a5 are within 36h; a3, a4 fall in the previous window
	assert.Equal(t, 3, h.CountNow)
	assert.Equal(t, 2, h.CountPrev)
	assert.InDelta(t, 0.5, h.TrendScore, 1e-9)

	assert.Equal(t, "theft", h.Type, "Tie between theft and assault goes to the first seen")
	assert.Equal(t, SeverityLow, h.Severity)
	assert.Equal(t, 5.0, h.SeverityScore)
	assert.InDelta(t, 1.4, h.MeanSeverity, 1e-9)
	assert.Equal(t, testNow.Add(-50*time.Hour), h.FirstSeen)
	assert.Equal(t, testNow.Add(-1*time.Hour), h.LastSeen)

	require.NotNil(t, h.SampleLocationName)
	assert.Equal(t, "Main Library", *h.SampleLocationName)
	require.NotNil(t, h.AreaName)
	assert.Equal(t, "Mona Road, Kingston, Jamaica", *h.AreaName)
	require.NotNil(t, h.PrimaryRoad)
	assert.Equal(t, "Mona Road", *h.PrimaryRoad)
	require.NotNil(t, h.Neighbourhood)
	assert.Equal(t, "Mona", *h.Neighbourhood)

	// Alternate route populated from the probe
	assert.Equal(t, []string{"Ring Road"}, h.NearbyRoadVariants)
	require.NotNil(t, h.AlternativeRoute)
	assert.Equal(t, "Ring Road", *h.AlternativeRoute)
	assert.Equal(t, "Avoid Mona Road; take Ring Road instead.", h.Recommendation)
	assert.False(t, h.NeedsEnrichment)
	assert.Nil(t, h.Summary)

	assert.LessOrEqual(t, h.Bounds.MinLatitude, h.Centroid.Latitude)
	assert.GreaterOrEqual(t, h.Bounds.MaxLatitude, h.Centroid.Latitude)
	footprint, err := geo.DecodePolyline(h.Footprint)
	require.NoError(t, err)
	assert.Len(t, footprint, 5)

	assert.Equal(t, []geo.Point{h.Centroid}, resolver.calls)
	assert.Equal(t, []string{"Mona Road"}, prober.primary)
}

func TestBuild_UnresolvedFallsBackToSampleLocation(t *testing.T) {
	points := ToAlertPoints(campusRecords())
	clusters := cluster.DBSCAN(Coordinates(points), 50, 3)

	agg := NewAggregator(&fakeResolver{}, &fakeProber{}, AggregatorConfig{})

	hotspots, err := agg.Build(testContext(), points, clusters, testNow)
	require.NoError(t, err)
	require.Len(t, hotspots, 1)

	h := hotspots[0]
	require.NotNil(t, h.AreaName)
	assert.Equal(t, "Main Library", *h.AreaName)
	assert.Nil(t, h.PrimaryRoad)
	assert.Nil(t, h.Neighbourhood)
	assert.Empty(t, h.NearbyRoadVariants)
	assert.Nil(t, h.AlternativeRoute)
	assert.True(t, h.NeedsEnrichment)
	assert.Equal(t, "Avoid Main Library; choose a nearby main road.", h.Recommendation)
}

func TestBuild_KeepsClusterOrder(t *testing.T) {
	var points []AlertPoint
	var clusters [][]int
	for c := 0; c < 10; c++ {
		var members []int
		for m := 0; m < 3; m++ {
			members = append(members, len(points))
			points = append(points, AlertPoint{
				ID:        "p",
				Point:     geo.Point{Latitude: float64(c), Longitude: float64(m) * 0.0001},
				Type:      "theft",
				Severity:  1,
				CreatedAt: testNow,
			})
		}
		clusters = append(clusters, members)
	}

	agg := NewAggregator(nil, nil, AggregatorConfig{Concurrency: 3, SeverityMode: SeverityModeScore})
	hotspots, err := agg.Build(testContext(), points, clusters, testNow)
	require.NoError(t, err)
	require.Len(t, hotspots, 10)

	for i, h := range hotspots {
		assert.InDelta(t, float64(i), h.Centroid.Latitude, 1e-9)
		assert.Equal(t, 3, h.Count)
		assert.Equal(t, 6.0, h.SeverityScore, "3 members, mean 1, trend 1")
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	points := ToAlertPoints(campusRecords())
	clusters := cluster.DBSCAN(Coordinates(points), 50, 3)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := NewAggregator(nil, nil, AggregatorConfig{}).Build(ctx, points, clusters, testNow)
	assert.Error(t, err)
}
