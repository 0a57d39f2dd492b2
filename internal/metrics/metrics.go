// Package metrics defines Prometheus metrics for the hotspot pipeline.
//
// Metrics are registered with a package-level registry served by Handler:
//   - pulse_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every pipeline metric
var Registry = prometheus.NewRegistry()

var (
	// PipelineRunsTotal counts hotspot pipeline runs by trigger and status.
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_pipeline_runs_total",
			Help: "Total number of hotspot pipeline runs by trigger and status.",
		},
		[]string{"trigger", "status"},
	)

	// PipelineDurationSeconds is a histogram of synchronous pipeline duration.
	PipelineDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_pipeline_duration_seconds",
			Help:    "Duration of clustering plus aggregation in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"trigger"},
	)

	// Hotspots is the number of hotspots produced by the most recent run.
	Hotspots = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulse_hotspots",
			Help: "Number of hotspots in the most recent pipeline run.",
		},
	)

	// GeocodeLookupsTotal counts reverse geocoding outcomes by provider.
	GeocodeLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_geocode_lookups_total",
			Help: "Total reverse geocoding lookups by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// EnrichmentRunsTotal counts enrichment runs by outcome.
	EnrichmentRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_enrichment_runs_total",
			Help: "Total AI enrichment runs by outcome.",
		},
		[]string{"outcome"},
	)

	// EnrichmentChunksTotal counts enrichment chunks by outcome.
	EnrichmentChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_enrichment_chunks_total",
			Help: "Total AI enrichment chunks by outcome.",
		},
		[]string{"outcome"},
	)

	// StoreErrorsTotal counts persistence failures by operation.
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_store_errors_total",
			Help: "Total snapshot store write failures by operation.",
		},
		[]string{"op"},
	)

	// PublishedTotal counts hotspot feed messages by outcome.
	GeocodeCacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulse_geocode_cache_entries",
			Help: "Geocode cache entries by freshness after the last cleanup sweep.",
		},
		[]string{"state"},
	)

	PublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_published_total",
			Help: "Total hotspot feed messages published by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		PipelineRunsTotal,
		PipelineDurationSeconds,
		Hotspots,
		GeocodeLookupsTotal,
		EnrichmentRunsTotal,
		EnrichmentChunksTotal,
		StoreErrorsTotal,
		PublishedTotal,
		GeocodeCacheEntries,
	)
}

// RecordPipelineRun records metrics for a completed synchronous pipeline run.
func RecordPipelineRun(trigger, status string, duration time.Duration, hotspots int) {
	PipelineRunsTotal.WithLabelValues(trigger, status).Inc()
	PipelineDurationSeconds.WithLabelValues(trigger).Observe(duration.Seconds())
	if status == "ok" {
		Hotspots.Set(float64(hotspots))
	}
}

// RecordGeocodeLookup records a single provider lookup outcome.
func RecordGeocodeLookup(provider, outcome string) {
	GeocodeLookupsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordEnrichmentRun records an enrichment run outcome.
func RecordEnrichmentRun(outcome string) {
	EnrichmentRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordEnrichmentChunk records an enrichment chunk outcome.
func RecordEnrichmentChunk(outcome string) {
	EnrichmentChunksTotal.WithLabelValues(outcome).Inc()
}

// RecordStoreError records a failed store operation.
func RecordStoreError(op string) {
	StoreErrorsTotal.WithLabelValues(op).Inc()
}

// RecordPublish records a feed publish outcome.
func RecordPublish(outcome string) {
	PublishedTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCacheStats sets the geocode cache entry gauges.
func RecordCacheStats(fresh, stale int) {
	GeocodeCacheEntries.WithLabelValues("fresh").Set(float64(fresh))
	GeocodeCacheEntries.WithLabelValues("stale").Set(float64(stale))
}
