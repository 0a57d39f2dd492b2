package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/dpup/prefab"
	"github.com/dpup/prefab/logging"

	"github.com/campuspulse/pulse/server/internal/cache"
	"github.com/campuspulse/pulse/server/internal/clients/google"
	"github.com/campuspulse/pulse/server/internal/clients/nominatim"
	"github.com/campuspulse/pulse/server/internal/config"
	"github.com/campuspulse/pulse/server/internal/lib/enrichment"
	"github.com/campuspulse/pulse/server/internal/lib/geocode"
	"github.com/campuspulse/pulse/server/internal/publish"
	"github.com/campuspulse/pulse/server/internal/services"
	"github.com/campuspulse/pulse/server/internal/store"
	"github.com/campuspulse/pulse/server/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background work logs through ctx, outside any request
	ctx = logging.With(ctx, logging.NewProdLogger())

	// Load configuration using Prefab's config system
	appConfig := loadConfig()

	shutdownTracing, err := telemetry.InitTraceProvider(ctx, appConfig.Server.TracingEndpoint, appConfig.Server.ServiceName)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	db, err := store.Open(ctx, appConfig.Server.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	// Geocoding: Google first, Nominatim as fallback, shared TTL cache in front
	cacheInstance := cache.NewCache()
	cacheInstance.StartPeriodicCleanup(ctx, 10*time.Minute)

	resolver := geocode.NewResolver(newGeocodeProviders(&appConfig.Geocoding),
		cache.NewGeocodeCacheAdapter(cacheInstance, appConfig.Geocoding.CacheTTL))
	prober := geocode.NewProber(resolver)

	publisher, err := publish.NewPublisher(publish.Config{
		Brokers: appConfig.Kafka.Brokers,
		Topic:   appConfig.Kafka.Topic,
	})
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer publisher.Close()

	enricher := newEnricher(&appConfig.Enrichment, db, publisher)

	hotspotService, err := services.NewHotspotService(services.HotspotServiceOptions{
		Source:    db,
		Writer:    db,
		Resolver:  resolver,
		Prober:    prober,
		Enricher:  enricher,
		Publisher: publisher,
		Config:    appConfig,
	})
	if err != nil {
		log.Fatalf("Failed to create hotspot service: %v", err)
	}

	log.Printf("Campus Pulse hotspot server starting")
	log.Printf("Clustering defaults: window=%vh eps=%vm minPoints=%d",
		appConfig.Hotspots.TimeWindowHours, appConfig.Hotspots.EpsMeters, appConfig.Hotspots.MinPoints)

	if appConfig.Hotspots.Schedule != "" {
		periodicRefresh, err := services.NewPeriodicRefreshService(hotspotService, appConfig.Hotspots.Schedule)
		if err != nil {
			log.Fatalf("Failed to create periodic refresh: %v", err)
		}
		if err := periodicRefresh.StartPeriodicRefresh(ctx); err != nil {
			log.Printf("Failed to start periodic refresh: %v", err)
		}
		defer periodicRefresh.Stop()
	}

	handlers := services.NewHandlers(hotspotService, db, resolver)

	// Server configuration (port, etc.) will be loaded from prefab.yaml/env vars
	server := prefab.New(
		prefab.WithHTTPHandlerFunc("/", homepageHandler),
		prefab.WithJSONHandler("/api/v1/hotspots", handlers.Hotspots),
		prefab.WithJSONHandler("/api/v1/hotspots/latest", handlers.Latest),
		prefab.WithJSONHandler("/api/v1/hotspots/snapshots", handlers.Snapshots),
		prefab.WithHTTPHandlerFunc("/api/v1/hotspots.kml", handlers.LatestKML),
		prefab.WithHTTPHandlerFunc("/api/v1/hotspots.geojson", handlers.LatestGeoJSON),
		prefab.WithJSONHandler("/api/v1/reverse-geocode", handlers.ReverseGeocode),
		prefab.WithJSONHandler("/healthz", handlers.Health),
		prefab.WithHTTPHandlerFunc("/metrics", handlers.Metrics),
	)

	// Start the server (blocks until shutdown)
	if err := server.Start(); err != nil {
		log.Printf("Server failed: %v", err)
	}

	cancel()
	if enricher != nil {
		enricher.Wait()
	}
}

// loadConfig loads configuration using Prefab's config system
// Configuration is loaded from prefab.yaml and environment variables with PF__ prefix
func loadConfig() *config.Config {
	appConfig := config.DefaultConfig()

	sections := []struct {
		key    string
		target interface{}
	}{
		{"server", &appConfig.Server},
		{"hotspots", &appConfig.Hotspots},
		{"geocoding", &appConfig.Geocoding},
		{"enrichment", &appConfig.Enrichment},
		{"kafka", &appConfig.Kafka},
	}
	for _, s := range sections {
		if err := prefab.Config.Unmarshal(s.key, s.target); err != nil {
			log.Fatalf("Failed to unmarshal %s section: %v", s.key, err)
		}
	}

	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return appConfig
}

func newGeocodeProviders(cfg *config.GeocodingConfig) []geocode.Provider {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var providers []geocode.Provider
	if cfg.GoogleAPIKey != "" {
		providers = append(providers, geocode.NewGoogleProvider(
			google.NewClientWithHTTPDoer(cfg.GoogleAPIKey, cfg.GoogleBaseURL, httpClient), cfg.DefaultLocality))
	} else {
		log.Printf("Google geocoding disabled (no API key); using Nominatim only")
	}
	providers = append(providers, geocode.NewNominatimProvider(
		nominatim.NewClientWithHTTPDoer(cfg.NominatimBaseURL, cfg.UserAgent, cfg.NominatimRPS, httpClient), cfg.DefaultLocality))
	return providers
}

// newEnricher returns nil when no text generator has an API key
func newEnricher(cfg *config.EnrichmentConfig, db *store.SQLiteStore, publisher *publish.Publisher) *enrichment.Enricher {
	var generators []enrichment.Generator
	for _, g := range cfg.Generators() {
		if g.APIKey == "" && g.BaseURL == "" {
			log.Printf("Text generator %q has no API key, skipping", g.Name)
			continue
		}
		generators = append(generators, enrichment.NewOpenAIGenerator(g.Name, g.APIKey, g.BaseURL, g.Model))
	}
	if len(generators) == 0 {
		log.Printf("AI enrichment disabled (no text generators configured)")
		return nil
	}

	log.Printf("AI enrichment enabled with %d generator(s), interval %v", len(generators), cfg.Interval)
	return enrichment.NewEnricher(
		enrichment.NewGuard(enrichment.SystemClock{}, db, cfg.Interval),
		enrichment.NewChain(generators...),
		services.NewEnrichmentWriter(db, publisher),
		enrichment.SystemClock{},
		enrichment.Config{
			ChunkSize:    cfg.ChunkSize,
			RoutingTypes: cfg.RoutingTypes,
			Timeout:      cfg.Timeout,
		},
	)
}

// homepageHandler serves a simple HTML homepage at the server root
func homepageHandler(w http.ResponseWriter, r *http.Request) {
	// Only handle the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	html := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Campus Pulse</title>
    <style>
        body {
            font-family: 'Courier New', Consolas, monospace;
            background: #000;
            color: #0f0;
            padding: 20px;
            line-height: 1.4;
        }
        a { color: #0ff; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { margin: 0; }
        .header { color: #ff0; }
    </style>
</head>
<body>
<pre>
<span class="header">Campus Pulse</span>

Campus safety hotspot service: clusters recent geotagged alerts into hotspots
and suggests safer routes around them.

<span class="header">API Endpoints:</span>

Hotspots:
  <a href="/api/v1/hotspots">GET /api/v1/hotspots</a>                   - Compute hotspots (timeWindowHours, epsMeters, minPoints, chunkSize)
  <a href="/api/v1/hotspots/latest">GET /api/v1/hotspots/latest</a>            - Latest hotspots including AI enrichment
  <a href="/api/v1/hotspots/snapshots">GET /api/v1/hotspots/snapshots</a>         - Recent snapshots (limit, id)
  <a href="/api/v1/hotspots.kml">GET /api/v1/hotspots.kml</a>               - Latest hotspots as KML
  <a href="/api/v1/hotspots.geojson">GET /api/v1/hotspots.geojson</a>           - Latest hotspots as GeoJSON

Geocoding:
  GET /api/v1/reverse-geocode?lat=&amp;lng=   - Sanitized place name for a coordinate

Operations:
  <a href="/healthz">GET /healthz</a>
  <a href="/metrics">GET /metrics</a>

<span class="header">Data Sources:</span>
  • Google Geocoding API - Reverse geocoding
  • OpenStreetMap Nominatim - Reverse geocoding fallback
  • OpenAI               - Hotspot summaries and alternative routes
</pre>
</body>
</html>`

	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("Failed to write homepage HTML", "error", err)
	}
}
