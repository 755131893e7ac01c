/*
scheduler.go - Automated series cache pruning

PURPOSE:
  Periodically removes cache entries older than the retention period so the
  content-addressed cache does not grow without bound. Each branch's newest
  entry is always kept.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start
  - Failures are logged; the next tick tries again

CONFIGURATION:
  - CheckInterval: How often to prune (default: 1 hour)
  - Retention: Entries older than this are removed
  - Enabled: Whether the janitor is active (false when interval is 0)

USAGE:
  janitor := NewCacheJanitor(service, 30*24*time.Hour, time.Hour, log)
  janitor.Start()
  // ... later
  janitor.Stop()

SEE ALSO:
  - handlers.go: PruneCache endpoint (manual pruning)
  - cashflow/store.go: SeriesCache.Prune
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CachePruner is satisfied by *analytics.Service.
type CachePruner interface {
	PruneCache(ctx context.Context, retention time.Duration) (int, error)
}

// CacheJanitor prunes the series cache on a ticker.
type CacheJanitor struct {
	Pruner        CachePruner
	Retention     time.Duration
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCacheJanitor creates a janitor. A zero interval disables it.
func NewCacheJanitor(pruner CachePruner, retention, interval time.Duration, log zerolog.Logger) *CacheJanitor {
	return &CacheJanitor{
		Pruner:        pruner,
		Retention:     retention,
		CheckInterval: interval,
		Enabled:       interval > 0,
		log:           log.With().Str("component", "cache_janitor").Logger(),
	}
}

// Start begins the janitor.
func (j *CacheJanitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.Enabled {
		j.log.Info().Msg("disabled, not starting")
		return
	}
	if j.ticker != nil {
		return
	}

	j.stop = make(chan bool)
	j.ticker = time.NewTicker(j.CheckInterval)
	j.wg.Add(1)

	go j.run()

	j.log.Info().Dur("interval", j.CheckInterval).Dur("retention", j.Retention).Msg("started")
}

// Stop stops the janitor and waits for an in-flight prune to finish.
func (j *CacheJanitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.ticker != nil {
		j.ticker.Stop()
		close(j.stop)
		j.wg.Wait()
		j.ticker = nil
		j.log.Info().Msg("stopped")
	}
}

func (j *CacheJanitor) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.prune()

	for {
		select {
		case <-j.ticker.C:
			j.prune()
		case <-j.stop:
			return
		}
	}
}

func (j *CacheJanitor) prune() {
	removed, err := j.Pruner.PruneCache(context.Background(), j.Retention)
	if err != nil {
		j.log.Error().Err(err).Msg("prune failed")
		return
	}
	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("pruned")
	}
}

// RunNow triggers an immediate prune (for testing/admin).
func (j *CacheJanitor) RunNow() {
	j.prune()
}

// NextRunTime returns when the next scheduled prune will occur.
func (j *CacheJanitor) NextRunTime() time.Time {
	return time.Now().Add(j.CheckInterval)
}
