package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// GeoJSON encodes hotspots as a FeatureCollection of centroid points
func GeoJSON(hotspots []hotspot.Hotspot) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, h := range hotspots {
		f := geojson.NewFeature(orb.Point{h.Centroid.Longitude, h.Centroid.Latitude})
		f.ID = h.ID
		f.BBox = geojson.NewBBox(orb.Bound{
			Min: orb.Point{h.Bounds.MinLongitude, h.Bounds.MinLatitude},
			Max: orb.Point{h.Bounds.MaxLongitude, h.Bounds.MaxLatitude},
		})
		f.Properties["count"] = h.Count
		f.Properties["severity"] = h.Severity
		f.Properties["severityScore"] = h.SeverityScore
		f.Properties["trendScore"] = h.TrendScore
		f.Properties["type"] = h.Type
		f.Properties["label"] = h.Label
		f.Properties["recommendation"] = h.Recommendation
		f.Properties["needsEnrichment"] = h.NeedsEnrichment
		f.Properties["areaName"] = h.AreaName
		f.Properties["alternativeRoute"] = h.AlternativeRoute
		if h.SummaryVisible {
			f.Properties["summary"] = h.Summary
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return data, nil
}
