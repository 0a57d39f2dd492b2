package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/twpayne/go-kml/v3"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// KML writes hotspots as a KML document with one placemark per hotspot centroid
func KML(w io.Writer, title string, hotspots []hotspot.Hotspot) error {
	placemarks := make([]kml.Element, 0, len(hotspots)+1)
	placemarks = append(placemarks, kml.Name(title))

	for _, h := range hotspots {
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(placemarkName(h)),
			kml.Description(description(h)),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: h.Centroid.Longitude, Lat: h.Centroid.Latitude}),
			),
		))
	}

	doc := kml.KML(kml.Document(placemarks...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

func placemarkName(h hotspot.Hotspot) string {
	if h.Label != "" {
		return h.Label
	}
	return h.ID
}

func description(h hotspot.Hotspot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d alerts (%s, trend %+.2f)", h.Count, h.Severity, h.TrendScore)
	if h.AreaName != nil && *h.AreaName != "" {
		fmt.Fprintf(&b, "\nArea: %s", *h.AreaName)
	}
	if h.Summary != nil && *h.Summary != "" {
		fmt.Fprintf(&b, "\n%s", *h.Summary)
	}
	if h.Recommendation != "" {
		fmt.Fprintf(&b, "\n%s", h.Recommendation)
	}
	return b.String()
}
