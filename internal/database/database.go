package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Database owns the single sqlite file holding the events table.
type Database struct {
	db *sql.DB
}

// DB returns the underlying *sql.DB instance
func (d *Database) DB() *sql.DB {
	return d.db
}

// DefaultPath returns the per-user location of the events database:
// <user config dir>/DailyReminder/Daily Activity Reminder/activities.db
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %v", err)
	}
	return filepath.Join(base, "DailyReminder", "Daily Activity Reminder", "activities.db"), nil
}

// New opens (creating if necessary) the database at path and bootstraps the
// schema. The parent directory is created if absent.
func New(path string) (*Database, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %v", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	dbInstance := &Database{db: db}

	if err := dbInstance.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return dbInstance, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Begin starts a new transaction
func (d *Database) Begin() (*sql.Tx, error) {
	return d.db.Begin()
}

// migrate runs the database migrations
func (d *Database) migrate() error {
	var tableExists int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='_migrations'`,
	).Scan(&tableExists)

	if err != nil {
		return fmt.Errorf("failed to check migrations table: %v", err)
	}

	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if tableExists == 0 {
		if _, err := tx.Exec(`
			CREATE TABLE _migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				run_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`); err != nil {
			return fmt.Errorf("failed to create migrations table: %v", err)
		}
	}

	for _, migration := range getMigrations() {
		var count int
		err := tx.QueryRow(
			`SELECT COUNT(*) FROM _migrations WHERE name = ?`,
			migration.name,
		).Scan(&count)

		if err != nil {
			return fmt.Errorf("failed to check migration status: %v", err)
		}

		if count == 0 {
			if _, err := tx.Exec(migration.statement); err != nil {
				return fmt.Errorf("failed to run migration %s: %v", migration.name, err)
			}

			if _, err := tx.Exec(
				`INSERT INTO _migrations (name) VALUES (?)`,
				migration.name,
			); err != nil {
				return fmt.Errorf("failed to record migration %s: %v", migration.name, err)
			}
		}
	}

	return tx.Commit()
}

type migration struct {
	name      string
	statement string
}

func getMigrations() []migration {
	return []migration{
		{
			name: "events_schema",
			statement: `
				CREATE TABLE IF NOT EXISTS events (
					id TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					start_date TEXT NOT NULL,
					end_date TEXT NOT NULL,
					title TEXT NOT NULL,
					color TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					reminder_time TEXT,
					reminder_enabled BOOLEAN NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					updated_at TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_events_reminder
					ON events(reminder_enabled, reminder_time);

				CREATE INDEX IF NOT EXISTS idx_events_start_date
					ON events(start_date);
			`,
		},
		// Add more migrations here as needed
	}
}
