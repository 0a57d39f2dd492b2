package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/pulse/server/internal/config"
	"github.com/campuspulse/pulse/server/internal/lib/enrichment"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/geocode"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/store"
)

// testContext carries a logger the way prefab request contexts do
func testContext() context.Context {
	return logging.With(context.Background(), logging.NewDevLogger())
}

var testNow = time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)

type staticResolver struct {
	place *geocode.Place
}

func (s staticResolver) Resolve(ctx context.Context, point geo.Point) *geocode.Place {
	if s.place == nil {
		return nil
	}
	cp := *s.place
	return &cp
}

type staticProber struct {
	variants []string
}

func (s staticProber) Probe(ctx context.Context, centroid geo.Point, primaryRoad string) []string {
	return s.variants
}

type failingSource struct{}

func (failingSource) ListAlertsSince(ctx context.Context, since time.Time) ([]hotspot.AlertRecord, error) {
	return nil, errors.New("connection refused")
}

type countingGenerator struct {
	mu       sync.Mutex
	calls    int
	response string
}

func (g *countingGenerator) Name() string { return "stub" }

func (g *countingGenerator) Generate(ctx context.Context, prompt enrichment.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.response, nil
}

func (g *countingGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.Open(testContext(), filepath.Join(t.TempDir(), "pulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCampus inserts five alerts within 40 m of each other and one 5 km away
func seedCampus(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	base := geo.Point{Latitude: 18.0060, Longitude: -76.7466}
	offsets := []struct{ dLat, dLng float64 }{
		{0, 0}, {0.0001, 0}, {0, 0.0001}, {0.0001, 0.0001}, {0.00015, 0.00005},
	}
	for i, o := range offsets {
		p := geo.Offset(base, o.dLat, o.dLng)
		require.NoError(t, s.InsertAlert(testContext(), hotspot.AlertRecord{
			ID: "a" + string(rune('1'+i)), Location: &p, Type: "theft",
			CreatedAt: testNow.Add(-time.Duration(i+1) * time.Hour),
		}))
	}
	far := geo.Offset(base, 0.045, 0)
	require.NoError(t, s.InsertAlert(testContext(), hotspot.AlertRecord{
		ID: "far", Location: &far, Type: "theft", CreatedAt: testNow.Add(-time.Hour),
	}))
	require.NoError(t, s.InsertAlert(testContext(), hotspot.AlertRecord{
		ID: "no-location", Type: "theft", CreatedAt: testNow.Add(-time.Hour),
	}))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Hotspots.EpsMeters = 50
	cfg.Hotspots.MinPoints = 3
	return cfg
}

func TestNewHotspotService_RequiresSource(t *testing.T) {
	_, err := NewHotspotService(HotspotServiceOptions{})
	assert.ErrorIs(t, err, ErrNoAlertSource)
}

func TestCompute_EndToEnd(t *testing.T) {
	s := newTestStore(t)
	seedCampus(t, s)

	svc, err := NewHotspotService(HotspotServiceOptions{
		Source:   s,
		Writer:   s,
		Resolver: staticResolver{place: &geocode.Place{Provider: "stub", DisplayName: "Mona Road, Kingston", Road: "Mona Road"}},
		Prober:   staticProber{variants: []string{"Mona Road", "Ring Road"}},
		Config:   testConfig(),
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)

	result, err := svc.Compute(testContext(), svc.DefaultParams(), TriggerRequest)
	require.NoError(t, err)

	require.Len(t, result.Hotspots, 1)
	h := result.Hotspots[0]
	assert.Equal(t, "hotspot-0", h.ID)
	assert.Equal(t, 5, h.Count)
	assert.Len(t, h.AlertIDs, 5)
	assert.Equal(t, "Ring Road", *h.AlternativeRoute)
	assert.Equal(t, "Avoid Mona Road; take Ring Road instead.", h.Recommendation)
	assert.False(t, h.NeedsEnrichment)

	assert.Equal(t, 6, result.Meta.TotalAlerts)
	assert.Equal(t, 1, result.Meta.TotalHotspots)
	assert.Equal(t, 50.0, result.Meta.EpsMeters)
	assert.NotEmpty(t, result.Meta.RunID)
	assert.Equal(t, "snapshot-1760875200000", result.Meta.SnapshotID)

	latest, err := s.GetLatest(testContext())
	require.NoError(t, err)
	assert.Equal(t, result.Meta.RunID, latest.RunID)
	assert.Equal(t, result.Meta.SnapshotID, latest.SnapshotID)
	require.Len(t, latest.Hotspots, 1)

	snapshot, err := s.GetSnapshot(testContext(), result.Meta.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.Hotspots[0].Count)
	assert.Equal(t, 3, snapshot.Params.MinPoints)
}

func TestCompute_NoAlerts(t *testing.T) {
	s := newTestStore(t)
	svc, err := NewHotspotService(HotspotServiceOptions{Source: s, Writer: s, Now: func() time.Time { return testNow }})
	require.NoError(t, err)

	result, err := svc.Compute(testContext(), svc.DefaultParams(), TriggerRequest)
	require.NoError(t, err)
	assert.NotNil(t, result.Hotspots)
	assert.Empty(t, result.Hotspots)
	assert.Equal(t, 0, result.Meta.TotalAlerts)

	_, err = s.GetLatest(testContext())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompute_SourceFailure(t *testing.T) {
	svc, err := NewHotspotService(HotspotServiceOptions{Source: failingSource{}})
	require.NoError(t, err)

	_, err = svc.Compute(testContext(), svc.DefaultParams(), TriggerRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCompute_EnrichesInBackground(t *testing.T) {
	s := newTestStore(t)
	seedCampus(t, s)

	generator := &countingGenerator{response: `[{"id":"hotspot-0","summary":"Phone thefts near the library",` +
		`"recommendation":"Avoid Mona Road; take Ring Road instead.","alternativeRoute":"Ring Road"}]`}
	clock := fixedClock{now: testNow}
	enricher := enrichment.NewEnricher(
		enrichment.NewGuard(clock, s, 20*time.Minute),
		generator,
		NewEnrichmentWriter(s, nil),
		clock,
		enrichment.Config{},
	)

	svc, err := NewHotspotService(HotspotServiceOptions{
		Source:   s,
		Writer:   s,
		Resolver: staticResolver{place: &geocode.Place{Provider: "stub", DisplayName: "Mona Road, Kingston", Road: "Mona Road"}},
		Prober:   staticProber{},
		Enricher: enricher,
		Config:   testConfig(),
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)

	result, err := svc.Compute(testContext(), svc.DefaultParams(), TriggerRequest)
	require.NoError(t, err)
	require.Len(t, result.Hotspots, 1)
	assert.Nil(t, result.Hotspots[0].AlternativeRoute, "The synchronous response carries the heuristic result")
	assert.True(t, result.Hotspots[0].NeedsEnrichment)

	enricher.Wait()

	latest, err := s.GetLatest(testContext())
	require.NoError(t, err)
	require.Len(t, latest.Hotspots, 1)
	require.NotNil(t, latest.Hotspots[0].AlternativeRoute)
	assert.Equal(t, "Ring Road", *latest.Hotspots[0].AlternativeRoute)
	assert.True(t, latest.Hotspots[0].SummaryVisible)
	assert.False(t, latest.Hotspots[0].NeedsEnrichment)

	snapshot, err := s.GetSnapshot(testContext(), result.Meta.SnapshotID)
	require.NoError(t, err)
	require.Len(t, snapshot.Enrichments, 1)
	assert.Nil(t, snapshot.Hotspots[0].AlternativeRoute, "Snapshot hotspots are immutable")

	// A second run inside the interval does not call the generator again
	_, err = svc.Compute(testContext(), svc.DefaultParams(), TriggerRequest)
	require.NoError(t, err)
	enricher.Wait()
	assert.Equal(t, 1, generator.Calls())
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
