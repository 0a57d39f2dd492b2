package hotspot

import (
	"context"
	"time"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

// AlertRecord is an alert as read from the Alert Store. Location may be nil.
type AlertRecord struct {
	ID           string     `json:"id"`
	Location     *geo.Point `json:"location"`
	Type         string     `json:"type"`
	Severity     *float64   `json:"severity,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LocationName string     `json:"locationName,omitempty"`
}

// AlertSource reads alerts created at or after since
type AlertSource interface {
	ListAlertsSince(ctx context.Context, since time.Time) ([]AlertRecord, error)
}

// AlertPoint is the geolocated projection of an alert used for clustering
type AlertPoint struct {
	ID           string
	Point        geo.Point
	Type         string
	Severity     float64
	CreatedAt    time.Time
	LocationName string
}

// Hotspot is a dense cluster of recent alerts with geocoding-derived guidance.
// Pointer fields are null until resolved.
type Hotspot struct {
	ID                 string    `json:"id"`
	Centroid           geo.Point `json:"centroid"`
	Count              int       `json:"count"`
	CountNow           int       `json:"countNow"`
	CountPrev          int       `json:"countPrev"`
	TrendScore         float64   `json:"trendScore"`
	Severity           string    `json:"severity"`
	SeverityScore      float64   `json:"severityScore"`
	MeanSeverity       float64   `json:"meanSeverity"`
	Type               string    `json:"type"`
	AreaName           *string   `json:"areaName"`
	PrimaryRoad        *string   `json:"primaryRoad"`
	Neighbourhood      *string   `json:"neighbourhood"`
	NearbyRoadVariants []string  `json:"nearbyRoadVariants"`
	Recommendation     string    `json:"recommendation"`
	AlternativeRoute   *string   `json:"alternativeRoute"`
	NeedsEnrichment    bool      `json:"needsEnrichment"`
	Label              string    `json:"label"`
	Summary            *string   `json:"summary"`
	SummaryVisible     bool      `json:"summaryVisible"`
	FirstSeen          time.Time `json:"firstSeen"`
	LastSeen           time.Time `json:"lastSeen"`
	SampleLocationName *string   `json:"sampleLocationName"`
	AlertIDs           []string  `json:"alertIds"`
	Bounds             geo.Bound `json:"bounds"`
	Footprint          string    `json:"footprint"`
}

// Patch carries enrichment output for one hotspot. Nil or empty fields are left untouched by Merge.
type Patch struct {
	ID               string  `json:"id"`
	Summary          *string `json:"summary"`
	Recommendation   *string `json:"recommendation"`
	AlternativeRoute *string `json:"alternativeRoute"`
}

// Params are the clustering parameters for one pipeline run
type Params struct {
	TimeWindowHours float64 `json:"timeWindowHours"`
	EpsMeters       float64 `json:"epsMeters"`
	MinPoints       int     `json:"minPoints"`
	ChunkSize       int     `json:"chunkSize"`
}

// Meta describes a pipeline run
type Meta struct {
	RunID           string    `json:"runId"`
	SnapshotID      string    `json:"snapshotId,omitempty"`
	TimeWindowHours float64   `json:"timeWindowHours"`
	EpsMeters       float64   `json:"epsMeters"`
	MinPoints       int       `json:"minPoints"`
	TotalAlerts     int       `json:"totalAlerts"`
	TotalHotspots   int       `json:"totalHotspots"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// EnrichmentEntry is an AI enrichment result appended to a run's snapshot
type EnrichmentEntry struct {
	HotspotID        string    `json:"hotspotId"`
	Summary          *string   `json:"summary"`
	Recommendation   *string   `json:"recommendation"`
	AlternativeRoute *string   `json:"alternativeRoute"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Snapshot is the immutable record of one pipeline run plus appended enrichment entries
type Snapshot struct {
	ID          string            `json:"id"`
	RunID       string            `json:"runId"`
	CreatedAt   time.Time         `json:"createdAt"`
	Params      Params            `json:"params"`
	Meta        Meta              `json:"meta"`
	Hotspots    []Hotspot         `json:"hotspots"`
	Enrichments []EnrichmentEntry `json:"enrichments"`
}

// Latest is the single mutable current view of hotspots
type Latest struct {
	CreatedAt  time.Time `json:"createdAt"`
	RunID      string    `json:"runId"`
	SnapshotID string    `json:"snapshotId"`
	Hotspots   []Hotspot `json:"hotspots"`
}
