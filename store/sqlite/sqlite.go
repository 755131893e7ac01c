/*
Package sqlite provides a SQLite-backed series cache.

PURPOSE:
  Implements cashflow.SeriesCache on a single SQLite file so materialized
  series survive restarts. The same schema is used by store/postgres with
  only dialect differences.

CONTENT ADDRESSING:
  Rows are keyed by (branch, fingerprint). Put is INSERT OR IGNORE: the
  first writer wins and concurrent writers with the same fingerprint are
  no-ops. Rows are never updated.

KEY TABLES:
  series_cache: One row per materialized series
    - series_json:  the daily points
    - sources_json: the file identities behind the fingerprint
    - drivers_json: category/counterparty summary of the same rows

INDEXES:
  - idx_series_cache_key: uniqueness of (branch, fingerprint)
  - idx_series_cache_branch_created: newest-per-branch lookups in Prune

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

USAGE:
  cache, err := sqlite.New("./data/cache.db")
  if err != nil {
      log.Fatal(err)
  }
  defer cache.Close()

SEE ALSO:
  - cashflow/store.go: Interface definition
  - cashflow/store/memory.go: In-memory implementation for testing
  - store/postgres/postgres.go: Shared PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/cashflow-engine/cashflow"
)

// timeLayout is fixed-width so created_at compares correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements cashflow.SeriesCache using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ cashflow.SeriesCache = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS series_cache (
		id TEXT PRIMARY KEY,
		branch TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		storage_pointer TEXT NOT NULL,
		sources_json TEXT NOT NULL,
		series_json TEXT NOT NULL,
		drivers_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_series_cache_key
		ON series_cache(branch, fingerprint);

	CREATE INDEX IF NOT EXISTS idx_series_cache_branch_created
		ON series_cache(branch, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SERIES CACHE (cashflow.SeriesCache interface)
// =============================================================================

// Get returns the entry for branch+fingerprint, or nil on a miss.
func (s *Store) Get(ctx context.Context, branch, fingerprint string) (*cashflow.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		entry       cashflow.CacheEntry
		sourcesJSON string
		seriesJSON  string
		driversJSON string
		createdAt   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, branch, fingerprint, storage_pointer, sources_json, series_json, drivers_json, created_at
		 FROM series_cache WHERE branch = ? AND fingerprint = ?`,
		branch, fingerprint,
	).Scan(&entry.ID, &entry.Branch, &entry.Fingerprint, &entry.StoragePointer,
		&sourcesJSON, &seriesJSON, &driversJSON, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query series cache: %w", err)
	}

	if err := json.Unmarshal([]byte(seriesJSON), &entry.Series); err != nil {
		return nil, fmt.Errorf("corrupt series for %s/%s: %w", branch, fingerprint, err)
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &entry.Sources); err != nil {
		return nil, fmt.Errorf("corrupt sources for %s/%s: %w", branch, fingerprint, err)
	}
	if err := json.Unmarshal([]byte(driversJSON), &entry.Drivers); err != nil {
		return nil, fmt.Errorf("corrupt drivers for %s/%s: %w", branch, fingerprint, err)
	}
	entry.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &entry, nil
}

// Put stores the entry unless branch+fingerprint already exists. Missing
// ID, CreatedAt and StoragePointer are filled in.
func (s *Store) Put(ctx context.Context, entry cashflow.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.StoragePointer == "" {
		entry.StoragePointer = "sqlite:series_cache/" + entry.ID
	}

	seriesJSON, err := json.Marshal(entry.Series)
	if err != nil {
		return fmt.Errorf("failed to encode series: %w", err)
	}
	sourcesJSON, err := json.Marshal(entry.Sources)
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}
	driversJSON, err := json.Marshal(entry.Drivers)
	if err != nil {
		return fmt.Errorf("failed to encode drivers: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO series_cache
			(id, branch, fingerprint, storage_pointer, sources_json, series_json, drivers_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.Branch, entry.Fingerprint, entry.StoragePointer,
		string(sourcesJSON), string(seriesJSON), string(driversJSON),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert series: %w", err)
	}
	return nil
}

// Prune deletes entries older than the cutoff, keeping each branch's newest.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		DELETE FROM series_cache
		WHERE created_at < ?
		  AND id NOT IN (
			SELECT c.id FROM series_cache c
			WHERE c.created_at = (
				SELECT MAX(n.created_at) FROM series_cache n WHERE n.branch = c.branch
			)
		  )
	`
	res, err := s.db.ExecContext(ctx, query, olderThan.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune series cache: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Count returns the number of cached entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM series_cache").Scan(&count)
	return count, err
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM series_cache")
	return err
}
