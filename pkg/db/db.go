// Package db opens the sqlite journal database and keeps its schema current.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations. ":memory:" opens a private
// in-memory database.
func Init(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// One connection: the journal writer and the API share it, and an
	// in-memory database only exists per connection.
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneEvents removes journal events older than the given age and sessions
// left without events. It returns the number of deleted events.
func (d *DB) PruneEvents(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC()
	res, err := d.Exec("DELETE FROM tracker_events WHERE created_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	_, err = d.Exec(`DELETE FROM sessions WHERE started_at < ?
		AND id NOT IN (SELECT DISTINCT session_id FROM tracker_events)`, deadline)
	return n, err
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			variant TEXT,
			source TEXT,
			started_at DATETIME,
			ended_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS tracker_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			type TEXT NOT NULL,
			surface_id TEXT,
			alignment TEXT,
			hit_x REAL,
			hit_y REAL,
			hit_z REAL,
			camera TEXT,
			created_at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tracker_events_session ON tracker_events (session_id, id);`,
		`CREATE TABLE IF NOT EXISTS visited_surfaces (
			session_id TEXT NOT NULL,
			surface_id TEXT NOT NULL,
			first_seen DATETIME,
			PRIMARY KEY (session_id, surface_id)
		);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Journals written before sources were recorded lack the column.
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('sessions') WHERE name='source'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE sessions ADD COLUMN source TEXT"); err != nil {
			return fmt.Errorf("failed to add source column: %w", err)
		}
	}

	return nil
}
