// Package store implements the relational side of Sophia's persistence:
// normalized trackable-item rows, append-only log entries, the serialized
// plan document, per-user session state, and the audit ledger table.
// Normalized rows are the source of truth; the plan document is a
// read-optimized projection maintained by the plan adapter.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
)

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewStore initializes the SQLite database at the given path.
func NewStore(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewStore")
	defer timer.Stop()

	logging.Store("Initializing store at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// synchronous=NORMAL is safe with WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Store("Store initialization complete")
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	itemsTable := `
	CREATE TABLE IF NOT EXISTS trackable_items (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL COLLATE NOCASE,
		description TEXT,
		tracking_mode TEXT NOT NULL DEFAULT 'boolean',
		target_reps INTEGER NOT NULL DEFAULT 0,
		schedule TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'pending',
		phase INTEGER NOT NULL DEFAULT 0,
		last_performed_at DATETIME,
		completed_count INTEGER NOT NULL DEFAULT 0,
		missed_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_items_user ON trackable_items(user_id);
	CREATE INDEX IF NOT EXISTS idx_items_title ON trackable_items(user_id, title);
	CREATE INDEX IF NOT EXISTS idx_items_status ON trackable_items(user_id, status);
	`

	logsTable := `
	CREATE TABLE IF NOT EXISTS log_entries (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		status TEXT NOT NULL,
		value INTEGER,
		note TEXT,
		reason TEXT,
		performed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_logs_item ON log_entries(item_id, performed_at);
	`

	planTable := `
	CREATE TABLE IF NOT EXISTS plan_documents (
		user_id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	sessionTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	ledgerTable := `
	CREATE TABLE IF NOT EXISTS ledger_events (
		id TEXT PRIMARY KEY,
		dedup_key TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		tool TEXT,
		outcome TEXT,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ledger_user ON ledger_events(user_id, created_at);
	`

	for _, stmt := range []string{itemsTable, logsTable, planTable, sessionTable, ledgerTable} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// GetDB exposes the underlying database handle for maintenance tasks and
// fault injection in tests.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
