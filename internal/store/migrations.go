package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dpup/prefab/logging"
)

type migration struct {
	version int
	name    string
	sql     string
}

// migrations are applied in order; never edit an applied migration, append a new one
var migrations = []migration{
	{
		version: 1,
		name:    "alerts",
		sql: `
			CREATE TABLE alerts (
				id TEXT PRIMARY KEY,
				lat REAL,
				lng REAL,
				type TEXT NOT NULL DEFAULT '',
				severity REAL,
				created_at INTEGER NOT NULL,
				location_name TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX idx_alerts_created_at ON alerts(created_at);
		`,
	},
	{
		version: 2,
		name:    "hotspot_snapshots",
		sql: `
			CREATE TABLE snapshots (
				id TEXT PRIMARY KEY,
				run_id TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				params TEXT NOT NULL,
				meta TEXT NOT NULL,
				hotspots TEXT NOT NULL
			);
			CREATE INDEX idx_snapshots_created_at ON snapshots(created_at);

			CREATE TABLE snapshot_enrichments (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
				hotspot_id TEXT NOT NULL,
				summary TEXT,
				recommendation TEXT,
				alternative_route TEXT,
				created_at INTEGER NOT NULL
			);
			CREATE INDEX idx_snapshot_enrichments_snapshot ON snapshot_enrichments(snapshot_id);

			CREATE TABLE latest (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				created_at INTEGER NOT NULL,
				run_id TEXT NOT NULL,
				snapshot_id TEXT NOT NULL,
				hotspots TEXT NOT NULL
			);
		`,
	},
	{
		version: 3,
		name:    "meta",
		sql: `
			CREATE TABLE meta (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);
		`,
	},
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM migrations")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		m := m
		err := s.transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logging.Infow(ctx, "Store: applied migration", "version", m.version, "name", m.name)
	}
	return nil
}
