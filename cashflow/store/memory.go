// Package store provides SeriesCache implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/cashflow-engine/cashflow"
)

// =============================================================================
// MEMORY CACHE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[key]cashflow.CacheEntry
	puts    int
}

type key struct {
	Branch      string
	Fingerprint string
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[key]cashflow.CacheEntry)}
}

// Get returns a copy so callers cannot mutate the stored series.
func (m *Memory) Get(_ context.Context, branch, fingerprint string) (*cashflow.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key{branch, fingerprint}]
	if !ok {
		return nil, nil
	}
	return cloneEntry(e), nil
}

// Put is insert-if-absent. Missing ID, CreatedAt and StoragePointer are
// filled in.
func (m *Memory) Put(_ context.Context, entry cashflow.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{entry.Branch, entry.Fingerprint}
	if _, exists := m.entries[k]; exists {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.StoragePointer == "" {
		entry.StoragePointer = "memory:" + entry.ID
	}
	m.entries[k] = *cloneEntry(entry)
	m.puts++
	return nil
}

func (m *Memory) Prune(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newest := make(map[string]key)
	for k, e := range m.entries {
		cur, ok := newest[k.Branch]
		if !ok || e.CreatedAt.After(m.entries[cur].CreatedAt) {
			newest[k.Branch] = k
		}
	}

	removed := 0
	for k, e := range m.entries {
		if newest[k.Branch] == k || !e.CreatedAt.Before(olderThan) {
			continue
		}
		delete(m.entries, k)
		removed++
	}
	return removed, nil
}

// Len reports how many entries are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Writes reports how many Puts actually stored a new entry.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func cloneEntry(e cashflow.CacheEntry) *cashflow.CacheEntry {
	c := e
	c.Series = append(cashflow.Series(nil), e.Series...)
	c.Sources = append([]cashflow.SourceFile(nil), e.Sources...)
	c.Drivers = cashflow.Drivers{
		TopInflowsByCategory:  append([]cashflow.DriverEntry(nil), e.Drivers.TopInflowsByCategory...),
		TopOutflowsByCategory: append([]cashflow.DriverEntry(nil), e.Drivers.TopOutflowsByCategory...),
		TopCounterparties:     append([]cashflow.DriverEntry(nil), e.Drivers.TopCounterparties...),
	}
	return &c
}

var _ cashflow.SeriesCache = (*Memory)(nil)
