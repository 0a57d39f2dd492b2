package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// SnapshotSummary lists a snapshot without its hotspots
type SnapshotSummary struct {
	ID        string       `json:"id"`
	RunID     string       `json:"runId"`
	CreatedAt time.Time    `json:"createdAt"`
	Meta      hotspot.Meta `json:"meta"`
}

// WriteLatest replaces the latest hotspot view
func (s *SQLiteStore) WriteLatest(ctx context.Context, latest hotspot.Latest) error {
	data, err := marshalHotspots(latest.Hotspots)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO latest (id, created_at, run_id, snapshot_id, hotspots)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			run_id = excluded.run_id,
			snapshot_id = excluded.snapshot_id,
			hotspots = excluded.hotspots`,
		latest.CreatedAt.UnixMilli(), latest.RunID, latest.SnapshotID, data)
	if err != nil {
		return fmt.Errorf("failed to write latest: %w", err)
	}
	return nil
}

// GetLatest returns the latest hotspot view or ErrNotFound before the first run
func (s *SQLiteStore) GetLatest(ctx context.Context) (*hotspot.Latest, error) {
	var (
		latest    hotspot.Latest
		createdAt int64
		data      string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at, run_id, snapshot_id, hotspots FROM latest WHERE id = 1").
		Scan(&createdAt, &latest.RunID, &latest.SnapshotID, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest: %w", err)
	}

	latest.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(data), &latest.Hotspots); err != nil {
		return nil, fmt.Errorf("failed to decode latest hotspots: %w", err)
	}
	return &latest, nil
}

// MergeLatest applies enrichment patches to the latest view by hotspot id.
// Hotspots without a patch are left as stored. Patches only apply while runID still owns
// the latest view; it reports false when nothing was merged.
func (s *SQLiteStore) MergeLatest(ctx context.Context, runID string, patches []hotspot.Patch) (bool, error) {
	if len(patches) == 0 {
		return false, nil
	}
	merged := false
	err := s.transaction(ctx, func(tx *sql.Tx) error {
		var latestRunID, data string
		err := tx.QueryRowContext(ctx, "SELECT run_id, hotspots FROM latest WHERE id = 1").Scan(&latestRunID, &data)
		if errors.Is(err, sql.ErrNoRows) {
			logging.Warnw(ctx, "Store: no latest hotspots to merge into", "runId", runID, "patches", len(patches))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read latest: %w", err)
		}
		if latestRunID != runID {
			logging.Infow(ctx, "Store: latest superseded, dropping enrichment patches",
				"runId", runID, "latestRunId", latestRunID, "patches", len(patches))
			return nil
		}

		var hotspots []hotspot.Hotspot
		if err := json.Unmarshal([]byte(data), &hotspots); err != nil {
			return fmt.Errorf("failed to decode latest hotspots: %w", err)
		}

		encoded, err := marshalHotspots(hotspot.MergeAll(hotspots, patches))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE latest SET hotspots = ? WHERE id = 1", encoded); err != nil {
			return fmt.Errorf("failed to update latest: %w", err)
		}
		merged = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return merged, nil
}

// WriteSnapshot records an immutable snapshot. Enrichments on the snapshot are ignored;
// use AppendSnapshotEnrichments.
func (s *SQLiteStore) WriteSnapshot(ctx context.Context, snapshot hotspot.Snapshot) error {
	hotspots, err := marshalHotspots(snapshot.Hotspots)
	if err != nil {
		return err
	}
	params, err := json.Marshal(snapshot.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	meta, err := json.Marshal(snapshot.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode meta: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, run_id, created_at, params, meta, hotspots)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.RunID, snapshot.CreatedAt.UnixMilli(), string(params), string(meta), hotspots)
	if err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// GetSnapshot returns a snapshot with its enrichment entries in insertion order
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*hotspot.Snapshot, error) {
	var (
		snapshot               hotspot.Snapshot
		createdAt              int64
		params, meta, hotspots string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, run_id, created_at, params, meta, hotspots FROM snapshots WHERE id = ?", id).
		Scan(&snapshot.ID, &snapshot.RunID, &createdAt, &params, &meta, &hotspots)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}

	snapshot.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(params), &snapshot.Params); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot params: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &snapshot.Meta); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot meta: %w", err)
	}
	if err := json.Unmarshal([]byte(hotspots), &snapshot.Hotspots); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot hotspots: %w", err)
	}

	snapshot.Enrichments, err = s.listEnrichments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListSnapshots returns up to limit snapshots, newest first
func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]SnapshotSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, created_at, meta FROM snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	summaries := []SnapshotSummary{}
	for rows.Next() {
		var (
			summary   SnapshotSummary
			createdAt int64
			meta      string
		)
		if err := rows.Scan(&summary.ID, &summary.RunID, &createdAt, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		summary.CreatedAt = time.UnixMilli(createdAt).UTC()
		if err := json.Unmarshal([]byte(meta), &summary.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot meta: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	return summaries, nil
}

// AppendSnapshotEnrichments appends enrichment entries to an existing snapshot
func (s *SQLiteStore) AppendSnapshotEnrichments(ctx context.Context, snapshotID string, entries []hotspot.EnrichmentEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO snapshot_enrichments
				(snapshot_id, hotspot_id, summary, recommendation, alternative_route, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare enrichment insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			_, err := stmt.ExecContext(ctx, snapshotID, e.HotspotID,
				nullString(e.Summary), nullString(e.Recommendation), nullString(e.AlternativeRoute),
				e.CreatedAt.UnixMilli())
			if err != nil {
				return fmt.Errorf("failed to append enrichment to snapshot %s: %w", snapshotID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) listEnrichments(ctx context.Context, snapshotID string) ([]hotspot.EnrichmentEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hotspot_id, summary, recommendation, alternative_route, created_at
		FROM snapshot_enrichments
		WHERE snapshot_id = ?
		ORDER BY id`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot enrichments: %w", err)
	}
	defer rows.Close()

	entries := []hotspot.EnrichmentEntry{}
	for rows.Next() {
		var (
			e                                    hotspot.EnrichmentEntry
			summary, recommendation, alternative sql.NullString
			createdAt                            int64
		)
		if err := rows.Scan(&e.HotspotID, &summary, &recommendation, &alternative, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot enrichment: %w", err)
		}
		e.Summary = stringPtr(summary)
		e.Recommendation = stringPtr(recommendation)
		e.AlternativeRoute = stringPtr(alternative)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot enrichments: %w", err)
	}
	return entries, nil
}

func marshalHotspots(hotspots []hotspot.Hotspot) (string, error) {
	if hotspots == nil {
		hotspots = []hotspot.Hotspot{}
	}
	data, err := json.Marshal(hotspots)
	if err != nil {
		return "", fmt.Errorf("failed to encode hotspots: %w", err)
	}
	return string(data), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
