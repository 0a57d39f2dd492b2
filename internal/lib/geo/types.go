package geo

// Point represents a geographic coordinate in decimal degrees
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Bound is the lat/lng bounding box of a set of points
type Bound struct {
	MinLatitude  float64 `json:"minLat"`
	MinLongitude float64 `json:"minLng"`
	MaxLatitude  float64 `json:"maxLat"`
	MaxLongitude float64 `json:"maxLng"`
}
