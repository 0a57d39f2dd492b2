package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"
	"github.com/google/uuid"

	"github.com/campuspulse/pulse/server/internal/config"
	"github.com/campuspulse/pulse/server/internal/lib/cluster"
	"github.com/campuspulse/pulse/server/internal/lib/enrichment"
	"github.com/campuspulse/pulse/server/internal/lib/geocode"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/metrics"
	"github.com/campuspulse/pulse/server/internal/publish"
	"github.com/campuspulse/pulse/server/internal/telemetry"
)

// ErrNoAlertSource is returned when the service is constructed without an alert store
var ErrNoAlertSource = errors.New("alert source is required")

// Pipeline triggers
const (
	TriggerRequest  = "request"
	TriggerSchedule = "schedule"
)

// SnapshotWriter persists pipeline output
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snapshot hotspot.Snapshot) error
	WriteLatest(ctx context.Context, latest hotspot.Latest) error
}

// HotspotResult is the synchronous response of a pipeline run
type HotspotResult struct {
	Hotspots []hotspot.Hotspot `json:"hotspots"`
	Meta     hotspot.Meta      `json:"meta"`
}

// HotspotServiceOptions wires the collaborators of a HotspotService.
// Everything except Source may be nil.
type HotspotServiceOptions struct {
	Source    hotspot.AlertSource
	Writer    SnapshotWriter
	Resolver  geocode.Resolver
	Prober    geocode.Prober
	Enricher  *enrichment.Enricher
	Publisher *publish.Publisher
	Config    *config.Config
	// Now overrides the wall clock
	Now func() time.Time
}

// HotspotService runs the hotspot pipeline: read alerts, cluster, aggregate, persist,
// then hand the result to background enrichment
type HotspotService struct {
	source    hotspot.AlertSource
	writer    SnapshotWriter
	resolver  geocode.Resolver
	prober    geocode.Prober
	enricher  *enrichment.Enricher
	publisher *publish.Publisher
	config    *config.Config
	now       func() time.Time
}

// NewHotspotService creates a HotspotService
func NewHotspotService(opts HotspotServiceOptions) (*HotspotService, error) {
	if opts.Source == nil {
		return nil, ErrNoAlertSource
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &HotspotService{
		source:    opts.Source,
		writer:    opts.Writer,
		resolver:  opts.Resolver,
		prober:    opts.Prober,
		enricher:  opts.Enricher,
		publisher: opts.Publisher,
		config:    cfg,
		now:       now,
	}, nil
}

// DefaultParams returns the configured clustering parameters
func (s *HotspotService) DefaultParams() hotspot.Params {
	return hotspot.Params{
		TimeWindowHours: s.config.Hotspots.TimeWindowHours,
		EpsMeters:       s.config.Hotspots.EpsMeters,
		MinPoints:       s.config.Hotspots.MinPoints,
		ChunkSize:       s.config.Enrichment.ChunkSize,
	}
}

// Compute runs the pipeline synchronously and returns the heuristic hotspots.
// AI enrichment, when configured, continues in the background after Compute returns.
// Only alert store failures and ctx cancellation are returned as errors.
func (s *HotspotService) Compute(ctx context.Context, params hotspot.Params, trigger string) (*HotspotResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := telemetry.StartPipelineSpan(ctx, runID, trigger)
	defer span.End()

	now := s.now().UTC()
	window := time.Duration(params.TimeWindowHours * float64(time.Hour))

	records, err := s.source.ListAlertsSince(ctx, now.Add(-window))
	if err != nil {
		metrics.RecordPipelineRun(trigger, "error", time.Since(start), 0)
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}

	points := hotspot.ToAlertPoints(records)
	meta := hotspot.Meta{
		RunID:           runID,
		TimeWindowHours: params.TimeWindowHours,
		EpsMeters:       params.EpsMeters,
		MinPoints:       params.MinPoints,
		TotalAlerts:     len(points),
		GeneratedAt:     now,
	}

	if len(points) == 0 {
		logging.Infow(ctx, "Hotspots: no geolocated alerts in window", "runId", runID, "records", len(records))
		metrics.RecordPipelineRun(trigger, "ok", time.Since(start), 0)
		return &HotspotResult{Hotspots: []hotspot.Hotspot{}, Meta: meta}, nil
	}

	clusters := cluster.DBSCAN(hotspot.Coordinates(points), params.EpsMeters, params.MinPoints,
		cluster.WithIndex(cluster.NewCellIndex))

	aggregator := hotspot.NewAggregator(s.resolver, s.prober, hotspot.AggregatorConfig{
		TrendWindow:  s.trendWindow(window),
		SeverityMode: s.config.Hotspots.SeverityMode,
		Concurrency:  s.config.Hotspots.Concurrency,
	})
	hotspots, err := aggregator.Build(ctx, points, clusters, now)
	if err != nil {
		metrics.RecordPipelineRun(trigger, "error", time.Since(start), 0)
		return nil, err
	}
	if hotspots == nil {
		hotspots = []hotspot.Hotspot{}
	}
	meta.TotalHotspots = len(hotspots)

	snapshotID := s.persist(ctx, runID, now, params, &meta, hotspots)

	if s.enricher != nil && len(hotspots) > 0 {
		s.enricher.Start(ctx, enrichment.Run{
			RunID:      runID,
			SnapshotID: snapshotID,
			Hotspots:   hotspots,
			ChunkSize:  params.ChunkSize,
		})
	}

	logging.Infow(ctx, "Hotspots: run complete",
		"runId", runID, "trigger", trigger, "alerts", len(points),
		"clusters", len(clusters), "duration", time.Since(start))
	metrics.RecordPipelineRun(trigger, "ok", time.Since(start), len(hotspots))

	return &HotspotResult{Hotspots: hotspots, Meta: meta}, nil
}

// persist writes the snapshot and latest view and publishes the update. Failures are
// logged and counted; it returns the snapshot id, or "" if the snapshot was not written.
func (s *HotspotService) persist(ctx context.Context, runID string, now time.Time, params hotspot.Params, meta *hotspot.Meta, hotspots []hotspot.Hotspot) string {
	if s.writer == nil {
		return ""
	}

	snapshotID := fmt.Sprintf("snapshot-%d", now.UnixMilli())
	meta.SnapshotID = snapshotID

	err := s.writer.WriteSnapshot(ctx, hotspot.Snapshot{
		ID:        snapshotID,
		RunID:     runID,
		CreatedAt: now,
		Params:    params,
		Meta:      *meta,
		Hotspots:  hotspots,
	})
	if err != nil {
		logging.Errorw(ctx, "Hotspots: failed to write snapshot", "runId", runID, "error", err)
		metrics.RecordStoreError("write_snapshot")
		snapshotID = ""
		meta.SnapshotID = ""
	}

	latest := hotspot.Latest{
		CreatedAt:  now,
		RunID:      runID,
		SnapshotID: snapshotID,
		Hotspots:   hotspots,
	}
	if err := s.writer.WriteLatest(ctx, latest); err != nil {
		logging.Errorw(ctx, "Hotspots: failed to write latest", "runId", runID, "error", err)
		metrics.RecordStoreError("write_latest")
		return snapshotID
	}

	if err := s.publisher.PublishLatest(ctx, latest); err != nil {
		logging.Warnw(ctx, "Hotspots: failed to publish latest", "runId", runID, "error", err)
	}
	return snapshotID
}

// trendWindow is the configured window, or half the query window
func (s *HotspotService) trendWindow(window time.Duration) time.Duration {
	if s.config.Hotspots.TrendWindow > 0 {
		return s.config.Hotspots.TrendWindow
	}
	return window / 2
}
