package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// InsertAlert stores or replaces an alert
func (s *SQLiteStore) InsertAlert(ctx context.Context, alert hotspot.AlertRecord) error {
	var lat, lng sql.NullFloat64
	if alert.Location != nil {
		lat = sql.NullFloat64{Float64: alert.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: alert.Location.Longitude, Valid: true}
	}
	var severity sql.NullFloat64
	if alert.Severity != nil {
		severity = sql.NullFloat64{Float64: *alert.Severity, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO alerts (id, lat, lng, type, severity, created_at, location_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, lat, lng, alert.Type, severity, alert.CreatedAt.UnixMilli(), alert.LocationName)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", alert.ID, err)
	}
	return nil
}

// ListAlertsSince returns alerts created at or after since, oldest first
func (s *SQLiteStore) ListAlertsSince(ctx context.Context, since time.Time) ([]hotspot.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, lat, lng, type, severity, created_at, location_name
		FROM alerts
		WHERE created_at >= ?
		ORDER BY created_at, id`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []hotspot.AlertRecord
	for rows.Next() {
		var (
			a         hotspot.AlertRecord
			lat, lng  sql.NullFloat64
			severity  sql.NullFloat64
			createdAt int64
		)
		if err := rows.Scan(&a.ID, &lat, &lng, &a.Type, &severity, &createdAt, &a.LocationName); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if lat.Valid && lng.Valid {
			a.Location = &geo.Point{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		if severity.Valid {
			v := severity.Float64
			a.Severity = &v
		}
		a.CreatedAt = time.UnixMilli(createdAt).UTC()
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read alerts: %w", err)
	}
	return alerts, nil
}
