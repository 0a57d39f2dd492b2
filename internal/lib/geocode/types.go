package geocode

import (
	"context"
	"encoding/json"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

// Place is a reverse geocoding result. A nil *Place means the coordinate is unresolved.
type Place struct {
	Provider      string          `json:"provider"`
	DisplayName   string          `json:"displayName,omitempty"`
	Road          string          `json:"road,omitempty"`
	Neighbourhood string          `json:"neighbourhood,omitempty"`
	Locality      string          `json:"locality,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// Provider is one reverse geocoding backend.
// Reverse returns (nil, nil) when the backend has no address for the coordinate.
type Provider interface {
	Name() string
	Reverse(ctx context.Context, point geo.Point) (*Place, error)
}

// Resolver turns coordinates into places by trying providers in order.
// Provider failures are logged and never returned; nil means unresolved.
type Resolver interface {
	Resolve(ctx context.Context, point geo.Point) *Place
}

// Prober samples coordinates around a centroid for nearby road names
type Prober interface {
	Probe(ctx context.Context, centroid geo.Point, primaryRoad string) []string
}

// PlaceCache stores resolved places by coordinate key
type PlaceCache interface {
	GetPlace(key string, result interface{}) (bool, error)
	SetPlace(key string, place interface{}) error
}
