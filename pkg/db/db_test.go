package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"focustrack/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}
	d.Close()

	// Migrations are idempotent.
	d, err = db.Init(path)
	if err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	d.Close()
}

func TestPruneEvents(t *testing.T) {
	d, err := db.Init(":memory:")
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	old := time.Now().Add(-48 * time.Hour).UTC()
	now := time.Now().UTC()
	if _, err := d.Exec("INSERT INTO sessions (id, started_at) VALUES ('old', ?), ('new', ?)", old, now); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Exec(`INSERT INTO tracker_events (session_id, type, created_at)
		VALUES ('old', 'initialized', ?), ('new', 'initialized', ?)`, old, now); err != nil {
		t.Fatal(err)
	}

	n, err := d.PruneEvents(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneEvents() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned event, got %d", n)
	}

	var sessions int
	if err := d.QueryRow("SELECT count(*) FROM sessions").Scan(&sessions); err != nil {
		t.Fatal(err)
	}
	if sessions != 1 {
		t.Errorf("expected the empty old session to be pruned, %d left", sessions)
	}
}
