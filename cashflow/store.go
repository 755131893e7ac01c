/*
store.go - Content-addressed series cache interface

PURPOSE:
  Defines the boundary between the engine and whatever durable storage keeps
  materialized series. The engine never touches a fixed directory; it asks a
  SeriesCache for (branch, fingerprint) and hands it new entries.

CONTENT ADDRESSING:
  The fingerprint is a hash over the sorted (path, mtime, size) triples of a
  branch's source files. Any change to any source file changes the
  fingerprint, so a stale entry can never be returned - it simply stops
  being addressed.

IMMUTABILITY:
  Entries are never updated in place. Put is insert-if-absent: two writers
  that computed the same fingerprint wrote the same series, so whichever
  lands first wins and the other is a no-op. Worst case is redundant work,
  never corruption.

IMPLEMENTATIONS:
  - cashflow/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite file on local disk
  - store/postgres/postgres.go: Shared PostgreSQL

SEE ALSO:
  - analytics/service.go: check-then-build-then-put flow
  - api/scheduler.go: pruning of old entries
*/
package cashflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// =============================================================================
// SERIES CACHE - Interface for materialized series (insert-if-absent)
// =============================================================================

// SeriesCache stores materialized series keyed by branch and fingerprint.
type SeriesCache interface {
	// Get returns the entry or (nil, nil) on a miss.
	Get(ctx context.Context, branch, fingerprint string) (*CacheEntry, error)

	// Put stores an entry unless one already exists for its key.
	Put(ctx context.Context, entry CacheEntry) error

	// Prune removes entries created before olderThan, except the newest
	// entry of each branch. Returns the number removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// CacheEntry is an immutable materialized series.
type CacheEntry struct {
	ID             string
	Branch         string
	Fingerprint    string
	StoragePointer string
	Sources        []SourceFile
	Series         Series
	Drivers        Drivers
	CreatedAt      time.Time
}

// =============================================================================
// FINGERPRINT
// =============================================================================

// SourceFile is the identity of one input file.
type SourceFile struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
}

// Fingerprint hashes the sorted set of file identities. Input order does
// not matter; duplicate paths are counted once.
func Fingerprint(files []SourceFile) string {
	triples := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		t := fmt.Sprintf("%s\x00%d\x00%d", f.Path, f.ModTime.UTC().UnixNano(), f.Size)
		if seen[t] {
			continue
		}
		seen[t] = true
		triples = append(triples, t)
	}
	sort.Strings(triples)

	h := sha256.New()
	for _, t := range triples {
		h.Write([]byte(t))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
