package hotspot

import (
	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

// DefaultType is assigned to alerts without a type
const DefaultType = "unknown"

// ToAlertPoints keeps geolocated records with valid coordinates, in input order.
// Missing types become "unknown" and missing severities become 1.
func ToAlertPoints(records []AlertRecord) []AlertPoint {
	points := make([]AlertPoint, 0, len(records))
	for _, r := range records {
		if r.Location == nil || !geo.IsValid(*r.Location) {
			continue
		}
		alertType := r.Type
		if alertType == "" {
			alertType = DefaultType
		}
		severity := 1.0
		if r.Severity != nil && *r.Severity != 0 {
			severity = *r.Severity
		}
		points = append(points, AlertPoint{
			ID:           r.ID,
			Point:        *r.Location,
			Type:         alertType,
			Severity:     severity,
			CreatedAt:    r.CreatedAt,
			LocationName: r.LocationName,
		})
	}
	return points
}

// Coordinates returns the points' locations in the same order
func Coordinates(points []AlertPoint) []geo.Point {
	out := make([]geo.Point, len(points))
	for i, p := range points {
		out[i] = p.Point
	}
	return out
}
