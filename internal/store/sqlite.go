// Package store persists the coverlay snapshot (drift offsets,
// classifications, reason vocabulary) in a local SQLite database so triage
// decisions survive sessions without the user managing snapshot files. The
// database holds exactly the data the snapshot package models; saving
// replaces the previous contents wholesale, which matches the debounced
// write model — the store is a durable mirror, not an event log.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/redlinehq/coverlay/internal/snapshot"
)

// schema contains the DDL executed on first open. Using IF NOT EXISTS makes
// it safe to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS offsets (
    file_path     TEXT    NOT NULL,
    baseline_line INTEGER NOT NULL,
    delta         INTEGER NOT NULL,
    PRIMARY KEY (file_path, baseline_line)
);

CREATE TABLE IF NOT EXISTS classifications (
    group_key   TEXT    NOT NULL,
    local_path  TEXT    NOT NULL,
    report_path TEXT    NOT NULL DEFAULT '',
    line        INTEGER NOT NULL,
    category    TEXT    NOT NULL,
    reason      TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (local_path, report_path, line)
);

CREATE TABLE IF NOT EXISTS reasons (
    id    TEXT PRIMARY KEY,
    label TEXT NOT NULL
);
`

// Store is a SQLite-backed snapshot mirror.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath, enables WAL mode and busy
// timeout, and creates the schema tables if they do not exist.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// Limit to one connection. SQLite only supports a single writer; a
	// single connection avoids SQLITE_BUSY contention between pooled
	// connections that each need their own PRAGMA setup.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save replaces the stored snapshot with snap in one transaction.
func (s *Store) Save(ctx context.Context, snap snapshot.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, table := range []string{"offsets", "classifications", "reasons"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("store: clear %s: %w", table, err)
		}
	}

	for path, m := range snap.Offsets {
		for lineStr, delta := range m {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO offsets (file_path, baseline_line, delta) VALUES (?, ?, ?)",
				path, lineStr, delta); err != nil {
				return fmt.Errorf("store: insert offset %s:%s: %w", path, lineStr, err)
			}
		}
	}

	for _, g := range snap.Classifications {
		for _, rec := range g.Lines {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO classifications (group_key, local_path, report_path, line, category, reason)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				g.Key, rec.LocalPath, rec.ReportPath, rec.Line, rec.Category, rec.Reason); err != nil {
				return fmt.Errorf("store: insert classification %s:%d: %w", rec.LocalPath, rec.Line, err)
			}
		}
	}

	for _, r := range snap.Reasons {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO reasons (id, label) VALUES (?, ?)", r.ID, r.Label); err != nil {
			return fmt.Errorf("store: insert reason %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. An empty database yields an empty
// snapshot, not an error.
func (s *Store) Load(ctx context.Context) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot

	rows, err := s.db.QueryContext(ctx,
		"SELECT file_path, baseline_line, delta FROM offsets ORDER BY file_path, baseline_line")
	if err != nil {
		return snap, fmt.Errorf("store: query offsets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path, lineStr string
		var delta int
		if err := rows.Scan(&path, &lineStr, &delta); err != nil {
			return snap, fmt.Errorf("store: scan offset: %w", err)
		}
		if snap.Offsets == nil {
			snap.Offsets = make(map[string]map[string]int)
		}
		if snap.Offsets[path] == nil {
			snap.Offsets[path] = make(map[string]int)
		}
		snap.Offsets[path][lineStr] = delta
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("store: iterate offsets: %w", err)
	}

	clsRows, err := s.db.QueryContext(ctx,
		`SELECT group_key, local_path, report_path, line, category, reason
		 FROM classifications ORDER BY group_key, local_path, line`)
	if err != nil {
		return snap, fmt.Errorf("store: query classifications: %w", err)
	}
	defer clsRows.Close()
	var current *snapshot.Group
	for clsRows.Next() {
		var key string
		var rec snapshot.LineRecord
		if err := clsRows.Scan(&key, &rec.LocalPath, &rec.ReportPath, &rec.Line, &rec.Category, &rec.Reason); err != nil {
			return snap, fmt.Errorf("store: scan classification: %w", err)
		}
		if current == nil || current.Key != key {
			snap.Classifications = append(snap.Classifications, snapshot.Group{Key: key})
			current = &snap.Classifications[len(snap.Classifications)-1]
		}
		current.Lines = append(current.Lines, rec)
	}
	if err := clsRows.Err(); err != nil {
		return snap, fmt.Errorf("store: iterate classifications: %w", err)
	}

	reasonRows, err := s.db.QueryContext(ctx, "SELECT id, label FROM reasons ORDER BY id")
	if err != nil {
		return snap, fmt.Errorf("store: query reasons: %w", err)
	}
	defer reasonRows.Close()
	for reasonRows.Next() {
		var r snapshot.ReasonRecord
		if err := reasonRows.Scan(&r.ID, &r.Label); err != nil {
			return snap, fmt.Errorf("store: scan reason: %w", err)
		}
		snap.Reasons = append(snap.Reasons, r)
	}
	if err := reasonRows.Err(); err != nil {
		return snap, fmt.Errorf("store: iterate reasons: %w", err)
	}

	return snap, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
