package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS profiles (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS settings (
		profile_id             TEXT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
		chores_enabled         INTEGER NOT NULL DEFAULT 1,
		reward_text            TEXT NOT NULL DEFAULT '',
		tonie_enabled          INTEGER NOT NULL DEFAULT 1,
		tonie_chooser_duration INTEGER NOT NULL DEFAULT 30,
		last_tonie_id          TEXT,
		sound_enabled          INTEGER NOT NULL DEFAULT 1,
		sound_volume           INTEGER NOT NULL DEFAULT 50,
		show_clock             INTEGER NOT NULL DEFAULT 1,
		pin_hash               TEXT NOT NULL DEFAULT '',
		updated_at             TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS schedule_blocks (
		profile_id  TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		mode        TEXT NOT NULL,
		start_time  TEXT NOT NULL,
		end_time    TEXT NOT NULL,
		PRIMARY KEY (profile_id, position)
	);

	CREATE TABLE IF NOT EXISTS chores (
		profile_id  TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		id          TEXT NOT NULL,
		text        TEXT NOT NULL,
		emoji       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (profile_id, position)
	);

	CREATE TABLE IF NOT EXISTS tonies (
		profile_id  TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		id          TEXT NOT NULL,
		name        TEXT NOT NULL,
		emoji       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (profile_id, position)
	);

	CREATE TABLE IF NOT EXISTS daily_states (
		profile_id          TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		date                TEXT NOT NULL,
		chores_done         TEXT NOT NULL DEFAULT '[]',
		books_count         INTEGER NOT NULL DEFAULT 0,
		last_completed_step TEXT NOT NULL DEFAULT 'none',
		updated_at          TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		PRIMARY KEY (profile_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_daily_date ON daily_states(date);

	CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/sleepclock/sleepclock.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "sleepclock", "sleepclock.db"), nil
}
