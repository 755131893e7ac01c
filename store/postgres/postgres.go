/*
Package postgres provides a PostgreSQL-backed series cache.

PURPOSE:
  Same contract and schema as store/sqlite, for deployments where several
  service instances share one cache. Put is INSERT ... ON CONFLICT DO
  NOTHING on (branch, fingerprint), so concurrent writers never clobber
  each other.

SEE ALSO:
  - cashflow/store.go: Interface definition
  - store/sqlite/sqlite.go: Single-node implementation
*/
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/warp/cashflow-engine/cashflow"
)

type Store struct {
	db *sql.DB
}

var _ cashflow.SeriesCache = (*Store)(nil)

// Open connects with a lib/pq DSN and migrates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	store, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing connection pool and migrates the schema.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS series_cache (
		id UUID PRIMARY KEY,
		branch TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		storage_pointer TEXT NOT NULL,
		sources_json JSONB NOT NULL,
		series_json JSONB NOT NULL,
		drivers_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (branch, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_series_cache_branch_created
		ON series_cache (branch, created_at DESC);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Get(ctx context.Context, branch, fingerprint string) (*cashflow.CacheEntry, error) {
	const query = `SELECT id, branch, fingerprint, storage_pointer, sources_json, series_json, drivers_json, created_at
	FROM series_cache WHERE branch = $1 AND fingerprint = $2`

	var (
		entry       cashflow.CacheEntry
		sourcesJSON []byte
		seriesJSON  []byte
		driversJSON []byte
	)
	err := s.db.QueryRowContext(ctx, query, branch, fingerprint).Scan(
		&entry.ID,
		&entry.Branch,
		&entry.Fingerprint,
		&entry.StoragePointer,
		&sourcesJSON,
		&seriesJSON,
		&driversJSON,
		&entry.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query series cache: %w", err)
	}

	if err := json.Unmarshal(seriesJSON, &entry.Series); err != nil {
		return nil, fmt.Errorf("corrupt series for %s/%s: %w", branch, fingerprint, err)
	}
	if err := json.Unmarshal(sourcesJSON, &entry.Sources); err != nil {
		return nil, fmt.Errorf("corrupt sources for %s/%s: %w", branch, fingerprint, err)
	}
	if err := json.Unmarshal(driversJSON, &entry.Drivers); err != nil {
		return nil, fmt.Errorf("corrupt drivers for %s/%s: %w", branch, fingerprint, err)
	}
	return &entry, nil
}

func (s *Store) Put(ctx context.Context, entry cashflow.CacheEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.StoragePointer == "" {
		entry.StoragePointer = "postgres:series_cache/" + entry.ID
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

	const query = `INSERT INTO series_cache
		(id, branch, fingerprint, storage_pointer, sources_json, series_json, drivers_json, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (branch, fingerprint) DO NOTHING`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.Branch, entry.Fingerprint, entry.StoragePointer,
		sourcesJSON, seriesJSON, driversJSON, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert series: %w", err)
	}
	return nil
}

func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	const query = `DELETE FROM series_cache
	WHERE created_at < $1
	  AND id NOT IN (
		SELECT DISTINCT ON (branch) id FROM series_cache
		ORDER BY branch, created_at DESC
	  )`

	res, err := s.db.ExecContext(ctx, query, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune series cache: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
