package export

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

func testHotspots() []hotspot.Hotspot {
	area := "Mona Road, Kingston"
	summary := "Repeated phone thefts after dark"
	return []hotspot.Hotspot{
		{
			ID:             "hotspot-0",
			Centroid:       geo.Point{Latitude: 18.006, Longitude: -76.7466},
			Count:          5,
			Severity:       "moderate",
			TrendScore:     0.5,
			Type:           "theft",
			Label:          "Theft near Mona Road",
			AreaName:       &area,
			Recommendation: "Avoid Mona Road; take Ring Road instead.",
			Summary:        &summary,
			SummaryVisible: true,
			Bounds:         geo.Bound{MinLatitude: 18.0058, MinLongitude: -76.7468, MaxLatitude: 18.0062, MaxLongitude: -76.7464},
		},
		{
			ID:       "hotspot-1",
			Centroid: geo.Point{Latitude: 17.807, Longitude: -77.142},
			Count:    3,
			Severity: "low",
		},
	}
}

func TestKML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KML(&buf, "Campus hotspots", testHotspots()))

	out := buf.String()
	assert.Contains(t, out, "<kml")
	assert.Contains(t, out, "<name>Campus hotspots</name>")
	assert.Contains(t, out, "<name>Theft near Mona Road</name>")
	assert.Contains(t, out, "<name>hotspot-1</name>")
	assert.Contains(t, out, "<coordinates>-76.7466")
	assert.Contains(t, out, "Avoid Mona Road; take Ring Road instead.")
}

func TestGeoJSON(t *testing.T) {
	data, err := GeoJSON(testHotspots())
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "hotspot-0", first.ID)
	assert.Equal(t, orb.Point{-76.7466, 18.006}, first.Geometry)
	assert.Equal(t, 5.0, first.Properties["count"])
	assert.Equal(t, "Repeated phone thefts after dark", first.Properties["summary"])
	assert.Equal(t, "Mona Road, Kingston", first.Properties["areaName"])

	_, hasSummary := fc.Features[1].Properties["summary"]
	assert.False(t, hasSummary)
	assert.Nil(t, fc.Features[1].Properties["alternativeRoute"])
}

func TestGeoJSON_Empty(t *testing.T) {
	data, err := GeoJSON(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}
