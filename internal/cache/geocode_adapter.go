package cache

import (
	"fmt"
	"time"
)

// GeocodeCacheAdapter exposes the Cache as a coordinate-keyed place cache
// so the geocode package does not depend on cache internals
type GeocodeCacheAdapter struct {
	cache *Cache
	ttl   time.Duration
}

// NewGeocodeCacheAdapter creates an adapter whose entries live for ttl
func NewGeocodeCacheAdapter(cache *Cache, ttl time.Duration) *GeocodeCacheAdapter {
	return &GeocodeCacheAdapter{cache: cache, ttl: ttl}
}

// GetPlace loads a cached place for key into result
func (a *GeocodeCacheAdapter) GetPlace(key string, result interface{}) (bool, error) {
	return a.cache.Get(placeKey(key), result)
}

// SetPlace stores a resolved place under key
func (a *GeocodeCacheAdapter) SetPlace(key string, place interface{}) error {
	return a.cache.Set(placeKey(key), place, a.ttl, "geocode")
}

func placeKey(key string) string {
	return fmt.Sprintf("geocode:%s", key)
}
