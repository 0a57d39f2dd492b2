package geocode

import (
	"context"
	"fmt"

	"github.com/dpup/prefab/logging"
	"golang.org/x/sync/singleflight"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/metrics"
)

type resolver struct {
	providers []Provider
	cache     PlaceCache
	group     singleflight.Group
}

// NewResolver creates a resolver that tries providers in order. cache may be nil.
func NewResolver(providers []Provider, cache PlaceCache) Resolver {
	return &resolver{
		providers: providers,
		cache:     cache,
	}
}

// CacheKey rounds a coordinate to 5 decimals (about 1 m) for cache and de-duplication
func CacheKey(point geo.Point) string {
	return fmt.Sprintf("%.5f,%.5f", point.Latitude, point.Longitude)
}

func (r *resolver) Resolve(ctx context.Context, point geo.Point) *Place {
	key := CacheKey(point)

	if r.cache != nil {
		var cached Place
		found, err := r.cache.GetPlace(key, &cached)
		if err != nil {
			logging.Warnw(ctx, "Geocode cache read failed", "key", key, "error", err)
		} else if found {
			metrics.RecordGeocodeLookup(cached.Provider, "cache")
			return &cached
		}
	}

	// The shared lookup outlives any single caller; each caller still stops waiting on its own ctx
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.lookup(context.WithoutCancel(ctx), point), nil
	})
	var place *Place
	select {
	case res := <-ch:
		place, _ = res.Val.(*Place)
	case <-ctx.Done():
		return nil
	}
	if place == nil {
		return nil
	}

	// Callers sharing a singleflight result each get their own copy
	cp := *place
	return &cp
}

func (r *resolver) lookup(ctx context.Context, point geo.Point) *Place {
	for _, p := range r.providers {
		place, err := p.Reverse(ctx, point)
		if err != nil {
			metrics.RecordGeocodeLookup(p.Name(), "error")
			logging.Warnw(ctx, "Reverse geocode provider failed",
				"provider", p.Name(), "lat", point.Latitude, "lng", point.Longitude, "error", err)
			continue
		}
		if place == nil {
			metrics.RecordGeocodeLookup(p.Name(), "miss")
			continue
		}

		metrics.RecordGeocodeLookup(p.Name(), "hit")
		if r.cache != nil {
			if err := r.cache.SetPlace(CacheKey(point), place); err != nil {
				logging.Warnw(ctx, "Geocode cache write failed", "error", err)
			}
		}
		return place
	}

	logging.Debugw(ctx, "Reverse geocode unresolved", "lat", point.Latitude, "lng", point.Longitude)
	return nil
}
