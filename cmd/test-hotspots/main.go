package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"

	"github.com/campuspulse/pulse/server/internal/config"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/services"
	"github.com/campuspulse/pulse/server/internal/store"
)

var alertTypes = []string{"theft", "assault", "harassment", "suspicious"}

func main() {
	var (
		dbPath    = flag.String("db", "", "SQLite database path (default: a temporary file)")
		seed      = flag.Int64("seed", 1, "Random seed for generated alerts")
		clusters  = flag.Int("clusters", 3, "Number of synthetic incident clusters")
		perGroup  = flag.Int("per-cluster", 6, "Alerts per cluster")
		noise     = flag.Int("noise", 10, "Scattered alerts that should not cluster")
		eps       = flag.Float64("eps", 400, "Neighborhood radius in meters")
		minPoints = flag.Int("min-points", 3, "Minimum neighborhood size")
		window    = flag.Float64("window", 72, "Time window in hours")
		asJSON    = flag.Bool("json", false, "Print the full result as JSON")
	)
	flag.Parse()

	if *window <= 0 {
		log.Fatal("Time window must be positive")
	}

	ctx := logging.EnsureLogger(context.Background())

	path := *dbPath
	if path == "" {
		dir, err := os.MkdirTemp("", "pulse-hotspots")
		if err != nil {
			log.Fatalf("Failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "pulse.db")
	}

	db, err := store.Open(ctx, path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	inserted := seedAlerts(ctx, db, rand.New(rand.NewSource(*seed)), now, *clusters, *perGroup, *noise, *window)

	cfg := config.DefaultConfig()
	svc, err := services.NewHotspotService(services.HotspotServiceOptions{
		Source: db,
		Writer: db,
		Config: cfg,
	})
	if err != nil {
		log.Fatalf("Failed to create hotspot service: %v", err)
	}

	params := svc.DefaultParams()
	params.EpsMeters = *eps
	params.MinPoints = *minPoints
	params.TimeWindowHours = *window

	fmt.Printf("Hotspot Pipeline Test\n")
	fmt.Printf("=====================\n")
	fmt.Printf("Database: %s\n", path)
	fmt.Printf("Seeded alerts: %d (%d clusters x %d, %d noise)\n", inserted, *clusters, *perGroup, *noise)
	fmt.Printf("Params: window=%vh eps=%vm minPoints=%d\n\n", params.TimeWindowHours, params.EpsMeters, params.MinPoints)

	start := time.Now()
	result, err := svc.Compute(ctx, params, services.TriggerRequest)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	if *asJSON {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("✅ %d hotspot(s) from %d alert(s) in %v (run %s)\n\n",
		result.Meta.TotalHotspots, result.Meta.TotalAlerts, time.Since(start), result.Meta.RunID)
	for _, h := range result.Hotspots {
		fmt.Printf("%s  %-10s count=%d now=%d prev=%d trend=%+.2f type=%s\n",
			h.ID, h.Severity, h.Count, h.CountNow, h.CountPrev, h.TrendScore, h.Type)
		fmt.Printf("  centroid (%.5f, %.5f)  footprint %s\n", h.Centroid.Latitude, h.Centroid.Longitude, h.Footprint)
		fmt.Printf("  %s\n", h.Label)
		fmt.Printf("  %s\n\n", h.Recommendation)
	}

	summaries, err := db.ListSnapshots(ctx, 5)
	if err != nil {
		log.Fatalf("Failed to list snapshots: %v", err)
	}
	fmt.Printf("Snapshots stored: %d\n", len(summaries))
}

// seedAlerts writes clustered alerts around campus landmarks plus scattered noise
func seedAlerts(ctx context.Context, db *store.SQLiteStore, rng *rand.Rand, now time.Time, clusters, perCluster, noise int, windowHours float64) int {
	campus := geo.Point{Latitude: 18.0060, Longitude: -76.7466}
	window := time.Duration(windowHours * float64(time.Hour))
	inserted := 0

	insert := func(p geo.Point, alertType string) {
		severity := float64(1 + rng.Intn(3))
		err := db.InsertAlert(ctx, hotspot.AlertRecord{
			ID:        uuid.NewString(),
			Location:  &p,
			Type:      alertType,
			Severity:  &severity,
			CreatedAt: now.Add(-time.Duration(rng.Int63n(int64(window)))),
		})
		if err != nil {
			log.Fatalf("Failed to insert alert: %v", err)
		}
		inserted++
	}

	for c := 0; c < clusters; c++ {
		// Cluster centers are roughly 2 km apart
		center := geo.Offset(campus, float64(c)*0.018, float64(c)*0.009)
		alertType := alertTypes[c%len(alertTypes)]
		for i := 0; i < perCluster; i++ {
			insert(geo.Offset(center, (rng.Float64()-0.5)*0.002, (rng.Float64()-0.5)*0.002), alertType)
		}
	}
	for i := 0; i < noise; i++ {
		insert(geo.Offset(campus, (rng.Float64()-0.5)*0.5, (rng.Float64()-0.5)*0.5), alertTypes[rng.Intn(len(alertTypes))])
	}
	return inserted
}
