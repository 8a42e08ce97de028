package database

import (
	"path/filepath"
	"testing"
)

func TestNewCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "activities.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	var name string
	err = db.DB().QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='events'`,
	).Scan(&name)
	if err != nil {
		t.Fatalf("events table missing: %v", err)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activities.db")

	db, err := New(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}

	if _, err := db.DB().Exec(
		`INSERT INTO events (id, category, start_date, end_date, title, created_at)
		 VALUES ('e1', 'work', '2025-01-01T09:00:00', '2025-01-01T10:00:00', 'standup', '2025-01-01T00:00:00')`,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	db.Close()

	// Reopening must re-run bootstrap without clobbering data.
	db, err = New(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.DB().QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("events after reopen = %d, want 1", count)
	}

	var migrations int
	if err := db.DB().QueryRow(`SELECT COUNT(*) FROM _migrations`).Scan(&migrations); err != nil {
		t.Fatalf("migrations count: %v", err)
	}
	if migrations != 1 {
		t.Errorf("recorded migrations = %d, want 1", migrations)
	}
}
