package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-polyline"
)

// EarthRadiusMeters is the mean Earth radius used by Distance
const EarthRadiusMeters = 6371000

// Distance calculates great-circle distance in meters between two points using the Haversine formula.
// Inputs are not validated; NaN coordinates yield NaN.
func Distance(p1, p2 Point) float64 {
	lat1 := p1.Latitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	dlat := (p2.Latitude - p1.Latitude) * math.Pi / 180
	dlon := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !IsValid(point) {
		return Point{}, fmt.Errorf("invalid coordinates (%v, %v): latitude must be [-90, 90], longitude must be [-180, 180]", latitude, longitude)
	}
	return point, nil
}

// IsValid reports whether a point has finite coordinates inside the lat/lng ranges
func IsValid(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}

// Offset shifts a point by raw degree deltas
func Offset(point Point, dLat, dLng float64) Point {
	return Point{Latitude: point.Latitude + dLat, Longitude: point.Longitude + dLng}
}

// Centroid returns the arithmetic mean of the given points
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sumLat, sumLng float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLng += p.Longitude
	}
	n := float64(len(points))
	return Point{Latitude: sumLat / n, Longitude: sumLng / n}
}

// Bounds calculates the bounding box of the given points
func Bounds(points []Point) Bound {
	if len(points) == 0 {
		return Bound{}
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.Longitude, p.Latitude}
	}
	b := mp.Bound()
	return Bound{
		MinLatitude:  b.Min.Lat(),
		MinLongitude: b.Min.Lon(),
		MaxLatitude:  b.Max.Lat(),
		MaxLongitude: b.Max.Lon(),
	}
}

// FilterPointsByDistance filters points to those within specified distance of center point
func FilterPointsByDistance(points []Point, center Point, maxDistanceMeters float64) []Point {
	var filtered []Point
	for _, point := range points {
		if Distance(center, point) <= maxDistanceMeters {
			filtered = append(filtered, point)
		}
	}
	return filtered
}

// EncodePolyline encodes points using the Google polyline algorithm
func EncodePolyline(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline decodes Google polyline string to point sequence
func DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}

		if !IsValid(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return points, nil
}
