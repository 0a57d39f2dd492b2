package services

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dpup/prefab/errors"
	"github.com/dpup/prefab/logging"
	"google.golang.org/grpc/codes"

	"github.com/campuspulse/pulse/server/internal/export"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/geocode"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
	"github.com/campuspulse/pulse/server/internal/metrics"
	"github.com/campuspulse/pulse/server/internal/store"
)

const defaultSnapshotLimit = 20

// maxTimeWindowHours caps the query window at one year
const maxTimeWindowHours = 24 * 365

// HotspotReader reads persisted hotspot views
type HotspotReader interface {
	GetLatest(ctx context.Context) (*hotspot.Latest, error)
	GetSnapshot(ctx context.Context, id string) (*hotspot.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]store.SnapshotSummary, error)
	Ping(ctx context.Context) error
}

// Handlers serves the HTTP API. JSON endpoints are prefab JSON handlers; the KML and
// GeoJSON feeds are plain HTTP handlers.
type Handlers struct {
	hotspots *HotspotService
	reader   HotspotReader
	resolver geocode.Resolver
}

// NewHandlers creates the HTTP handlers. resolver may be nil to disable reverse geocoding.
func NewHandlers(hotspots *HotspotService, reader HotspotReader, resolver geocode.Resolver) *Handlers {
	return &Handlers{hotspots: hotspots, reader: reader, resolver: resolver}
}

// SnapshotList is the response of the snapshot listing
type SnapshotList struct {
	Snapshots []store.SnapshotSummary `json:"snapshots"`
}

// Place is the reverse geocoding response; fields are null when nothing resolved
type Place struct {
	DisplayName   *string `json:"displayName"`
	Road          *string `json:"road"`
	Neighbourhood *string `json:"neighbourhood,omitempty"`
	Locality      *string `json:"locality,omitempty"`
	Provider      *string `json:"provider"`
}

// HealthStatus is the health check response
type HealthStatus struct {
	Status string `json:"status"`
}

// Hotspots runs the pipeline: GET /api/v1/hotspots?timeWindowHours=&epsMeters=&minPoints=&chunkSize=
func (h *Handlers) Hotspots(r *http.Request) (any, error) {
	if err := allowGet(r); err != nil {
		return nil, err
	}
	params, err := ParseParams(r.URL.Query(), h.hotspots.DefaultParams())
	if err != nil {
		return nil, errors.NewC(err, codes.InvalidArgument)
	}

	result, err := h.hotspots.Compute(r.Context(), params, TriggerRequest)
	if err != nil {
		logging.Errorw(r.Context(), "Hotspots request failed", "error", err)
		return nil, errors.NewC("failed to compute hotspots", codes.Internal)
	}
	return result, nil
}

// Latest serves the latest (possibly enriched) hotspot view: GET /api/v1/hotspots/latest
func (h *Handlers) Latest(r *http.Request) (any, error) {
	if err := allowGet(r); err != nil {
		return nil, err
	}
	return h.latest(r)
}

// Snapshots lists snapshots, or returns one with ?id=: GET /api/v1/hotspots/snapshots
func (h *Handlers) Snapshots(r *http.Request) (any, error) {
	if err := allowGet(r); err != nil {
		return nil, err
	}
	query := r.URL.Query()

	if id := query.Get("id"); id != "" {
		snapshot, err := h.reader.GetSnapshot(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NewC("snapshot not found", codes.NotFound)
		}
		if err != nil {
			logging.Errorw(r.Context(), "Failed to read snapshot", "id", id, "error", err)
			metrics.RecordStoreError("get_snapshot")
			return nil, errors.NewC("failed to read snapshot", codes.Internal)
		}
		return snapshot, nil
	}

	limit := defaultSnapshotLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.NewC("limit must be a positive integer", codes.InvalidArgument)
		}
		limit = n
	}

	summaries, err := h.reader.ListSnapshots(r.Context(), limit)
	if err != nil {
		logging.Errorw(r.Context(), "Failed to list snapshots", "error", err)
		metrics.RecordStoreError("list_snapshots")
		return nil, errors.NewC("failed to list snapshots", codes.Internal)
	}
	return &SnapshotList{Snapshots: summaries}, nil
}

// LatestKML serves the latest hotspots as KML: GET /api/v1/hotspots.kml
func (h *Handlers) LatestKML(w http.ResponseWriter, r *http.Request) {
	latest, ok := h.latestFeed(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.KML(&buf, "Campus Pulse hotspots", latest.Hotspots); err != nil {
		logging.Errorw(r.Context(), "Failed to render KML", "error", err)
		http.Error(w, "failed to render KML", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	_, _ = w.Write(buf.Bytes())
}

// LatestGeoJSON serves the latest hotspots as GeoJSON: GET /api/v1/hotspots.geojson
func (h *Handlers) LatestGeoJSON(w http.ResponseWriter, r *http.Request) {
	latest, ok := h.latestFeed(w, r)
	if !ok {
		return
	}

	data, err := export.GeoJSON(latest.Hotspots)
	if err != nil {
		logging.Errorw(r.Context(), "Failed to render GeoJSON", "error", err)
		http.Error(w, "failed to render GeoJSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// ReverseGeocode resolves a coordinate: GET /api/v1/reverse-geocode?lat=&lng=
func (h *Handlers) ReverseGeocode(r *http.Request) (any, error) {
	if err := allowGet(r); err != nil {
		return nil, err
	}
	if h.resolver == nil {
		return nil, errors.NewC("reverse geocoding is not configured", codes.Unavailable)
	}

	query := r.URL.Query()
	lat, errLat := strconv.ParseFloat(query.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(query.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		return nil, errors.NewC("lat and lng are required numbers", codes.InvalidArgument)
	}
	point, err := geo.NewPoint(lat, lng)
	if err != nil {
		return nil, errors.NewC(err, codes.InvalidArgument)
	}

	place := h.resolver.Resolve(r.Context(), point)
	if place == nil {
		return &Place{}, nil
	}
	return &Place{
		DisplayName:   &place.DisplayName,
		Road:          &place.Road,
		Neighbourhood: &place.Neighbourhood,
		Locality:      &place.Locality,
		Provider:      &place.Provider,
	}, nil
}

// Health reports store connectivity: GET /healthz
func (h *Handlers) Health(r *http.Request) (any, error) {
	if err := h.reader.Ping(r.Context()); err != nil {
		logging.Warnw(r.Context(), "Health check failed", "error", err)
		return nil, errors.NewC("store unavailable", codes.Unavailable)
	}
	return &HealthStatus{Status: "ok"}, nil
}

// Metrics serves Prometheus metrics: GET /metrics
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics.Handler().ServeHTTP(w, r)
}

func (h *Handlers) latest(r *http.Request) (*hotspot.Latest, error) {
	latest, err := h.reader.GetLatest(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.NewC("no hotspots computed yet", codes.NotFound)
	}
	if err != nil {
		logging.Errorw(r.Context(), "Failed to read latest hotspots", "error", err)
		metrics.RecordStoreError("get_latest")
		return nil, errors.NewC("failed to read latest hotspots", codes.Internal)
	}
	return latest, nil
}

// latestFeed loads the latest view for the export feeds, writing a plain-text error
// response on failure
func (h *Handlers) latestFeed(w http.ResponseWriter, r *http.Request) (*hotspot.Latest, bool) {
	if err := allowGet(r); err != nil {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, err.Error(), http.StatusMethodNotAllowed)
		return nil, false
	}
	latest, err := h.latest(r)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatusCode(err))
		return nil, false
	}
	return latest, true
}

// ParseParams overlays query parameters on defaults and validates the result
func ParseParams(query url.Values, defaults hotspot.Params) (hotspot.Params, error) {
	params := defaults

	if v := query.Get("timeWindowHours"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !positiveFinite(f) || f > maxTimeWindowHours {
			return params, fmt.Errorf("timeWindowHours must be a positive number no greater than %d", maxTimeWindowHours)
		}
		params.TimeWindowHours = f
	}
	if v := query.Get("epsMeters"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !positiveFinite(f) {
			return params, fmt.Errorf("epsMeters must be a positive number")
		}
		params.EpsMeters = f
	}
	if v := query.Get("minPoints"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return params, fmt.Errorf("minPoints must be a positive integer")
		}
		params.MinPoints = n
	}
	if v := query.Get("chunkSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return params, fmt.Errorf("chunkSize must be a positive integer")
		}
		params.ChunkSize = n
	}
	return params, nil
}

func positiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func allowGet(r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return errors.NewC("method not allowed", codes.Unimplemented).
			WithHTTPStatusCode(http.StatusMethodNotAllowed)
	}
	return nil
}
