/*
Package analytics orchestrates the engine for one request.

PURPOSE:
  Glues ingestion, the series cache, the forecast engine, the scenario
  engine and the recurrence detector together. Each exported method is one
  request; nothing is shared between requests except the cache.

CACHE FLOW (unfiltered, file-backed requests only):
  1. Resolve source files to (path, mtime, size)
  2. Fingerprint them
  3. Get(branch, fingerprint): hit -> done, no files are decoded
  4. Miss -> load, build series, summarise drivers, Put (insert-if-absent)

  Filtered requests and uploads skip the cache entirely: a filtered series
  is a different artifact and uploads have no stable identity. A cache
  failure is logged and the request proceeds as a miss.

DRIVERS:
  Always computed over every loaded row, ignoring the filter bounds.

SEE ALSO:
  - cashflow/store.go: SeriesCache contract
  - api/handlers.go: HTTP surface over this service
*/
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/warp/cashflow-engine/cashflow"
	"github.com/warp/cashflow-engine/cashflow/store"
	"github.com/warp/cashflow-engine/events"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/ingest"
	"github.com/warp/cashflow-engine/recurrence"
	"github.com/warp/cashflow-engine/scenario"
)

// DriverCount is how many entries each drivers view returns.
const DriverCount = 5

// Deps are the service's collaborators. Nil fields get working defaults
// except Loader, which is required.
type Deps struct {
	Loader    ingest.Loader
	Cache     cashflow.SeriesCache
	Engine    *forecast.Engine
	Detector  *recurrence.Detector
	Publisher events.Publisher
	Clock     cashflow.Clock
	Log       zerolog.Logger
}

type Service struct {
	loader    ingest.Loader
	cache     cashflow.SeriesCache
	engine    *forecast.Engine
	detector  *recurrence.Detector
	publisher events.Publisher
	clock     cashflow.Clock
	log       zerolog.Logger
}

func New(d Deps) *Service {
	s := &Service{
		loader:    d.Loader,
		cache:     d.Cache,
		engine:    d.Engine,
		detector:  d.Detector,
		publisher: d.Publisher,
		clock:     d.Clock,
		log:       d.Log,
	}
	if s.cache == nil {
		s.cache = store.NewMemory()
	}
	if s.engine == nil {
		s.engine = forecast.NewEngine(d.Log)
	}
	if s.clock == nil {
		s.clock = cashflow.SystemClock{}
	}
	if s.detector == nil {
		// Defaults always validate.
		s.detector, _ = recurrence.NewDetector(recurrence.DefaultConfig(), s.clock)
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	return s
}

// =============================================================================
// REQUEST / RESULT TYPES
// =============================================================================

type ForecastRequest struct {
	Source   ingest.Source
	Bounds   cashflow.DateRange
	Horizon  int // 0 selects forecast.DefaultHorizon
	Model    forecast.Model
	Holidays bool
}

// CacheInfo reports how the history was obtained. Fingerprint is empty when
// the request was not cacheable.
type CacheInfo struct {
	Fingerprint string
	Hit         bool
}

type ForecastResult struct {
	Branch    string
	History   cashflow.Series
	Forecast  []cashflow.ForecastPoint
	Model     forecast.Model
	Fallbacks []forecast.Fallback
	Drivers   cashflow.Drivers
	Cache     CacheInfo
}

type SimulateRequest struct {
	ForecastRequest
	Adjustments []cashflow.Adjustment
}

type SimulateResult struct {
	Branch    string
	History   cashflow.Series
	Base      []cashflow.ForecastPoint
	Adjusted  []cashflow.ForecastPoint
	Applied   []cashflow.Adjustment
	Model     forecast.Model
	Fallbacks []forecast.Fallback
	Drivers   cashflow.Drivers
	Cache     CacheInfo
}

type DebitOrderRequest struct {
	Source ingest.Source
	// LookbackMonths <= 0 keeps the configured lookback.
	LookbackMonths int
	// DueWindowDays < 0 keeps the configured due window.
	DueWindowDays int
}

type DebitOrderResult struct {
	Branch         string
	Today          cashflow.Date
	LookbackMonths int
	DueWindowDays  int
	Items          []recurrence.Group
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Forecast builds the branch's history and projects it forward.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) (*ForecastResult, error) {
	hist, err := s.history(ctx, req.Source, req.Bounds)
	if err != nil {
		return nil, err
	}

	fc := s.engine.Forecast(forecast.Request{
		History:  hist.series,
		Horizon:  horizonOrDefault(req.Horizon),
		Model:    req.Model,
		Holidays: req.Holidays,
	})

	return &ForecastResult{
		Branch:    req.Source.Branch,
		History:   hist.series,
		Forecast:  fc.Points,
		Model:     fc.Model,
		Fallbacks: fc.Fallbacks,
		Drivers:   hist.drivers,
		Cache:     hist.cache,
	}, nil
}

// Simulate forecasts, then overlays the adjustments on the base path.
// Returns *cashflow.NoOverlapError when no adjustment lands in the horizon.
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (*SimulateResult, error) {
	fc, err := s.Forecast(ctx, req.ForecastRequest)
	if err != nil {
		return nil, err
	}

	adjusted, err := scenario.Apply(fc.Forecast, req.Adjustments)
	if err != nil {
		return nil, err
	}

	return &SimulateResult{
		Branch:    fc.Branch,
		History:   fc.History,
		Base:      fc.Forecast,
		Adjusted:  adjusted,
		Applied:   req.Adjustments,
		Model:     fc.Model,
		Fallbacks: fc.Fallbacks,
		Drivers:   fc.Drivers,
		Cache:     fc.Cache,
	}, nil
}

// DebitOrders predicts upcoming recurring debits and publishes one event
// per prediction. Publishing failures are logged, never returned.
func (s *Service) DebitOrders(ctx context.Context, req DebitOrderRequest) (*DebitOrderResult, error) {
	tables, err := s.loader.Load(ctx, req.Source)
	if err != nil {
		return nil, err
	}

	detector := s.detector.WithWindow(req.LookbackMonths, req.DueWindowDays)
	items := detector.Detect(tables)
	cfg := detector.Config()

	s.log.Debug().
		Str("branch", req.Source.Branch).
		Int("items", len(items)).
		Int("lookback_months", cfg.LookbackMonths).
		Int("due_window_days", cfg.DueWindowDays).
		Msg("debit orders detected")

	s.publishDue(ctx, req.Source.Branch, items)

	return &DebitOrderResult{
		Branch:         req.Source.Branch,
		Today:          s.clock.Today(),
		LookbackMonths: cfg.LookbackMonths,
		DueWindowDays:  cfg.DueWindowDays,
		Items:          items,
	}, nil
}

// PruneCache removes cache entries older than retention, keeping the newest
// entry of each branch.
func (s *Service) PruneCache(ctx context.Context, retention time.Duration) (int, error) {
	removed, err := s.cache.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("removed", removed).Dur("retention", retention).Msg("series cache pruned")
	return removed, nil
}

// =============================================================================
// HISTORY (cache-aware)
// =============================================================================

type history struct {
	series  cashflow.Series
	drivers cashflow.Drivers
	cache   CacheInfo
}

func (s *Service) history(ctx context.Context, src ingest.Source, bounds cashflow.DateRange) (*history, error) {
	if !bounds.IsUnbounded() || !src.FileBacked() {
		return s.build(ctx, src, bounds)
	}

	files, err := s.loader.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}
	fp := cashflow.Fingerprint(files)
	log := s.log.With().Str("branch", src.Branch).Str("fingerprint", fp).Logger()

	entry, err := s.cache.Get(ctx, src.Branch, fp)
	if err != nil {
		log.Warn().Err(err).Msg("series cache read failed, rebuilding")
	}
	if entry != nil {
		log.Debug().Str("storage_pointer", entry.StoragePointer).Msg("series cache hit")
		return &history{
			series:  entry.Series,
			drivers: entry.Drivers,
			cache:   CacheInfo{Fingerprint: fp, Hit: true},
		}, nil
	}

	h, err := s.build(ctx, src, bounds)
	if err != nil {
		return nil, err
	}
	h.cache = CacheInfo{Fingerprint: fp}

	err = s.cache.Put(ctx, cashflow.CacheEntry{
		Branch:      src.Branch,
		Fingerprint: fp,
		Sources:     files,
		Series:      h.series,
		Drivers:     h.drivers,
	})
	if err != nil {
		log.Warn().Err(err).Msg("series cache write failed")
	} else {
		log.Debug().Int("days", len(h.series)).Msg("series cache miss, stored")
	}
	return h, nil
}

func (s *Service) build(ctx context.Context, src ingest.Source, bounds cashflow.DateRange) (*history, error) {
	tables, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	series, err := cashflow.BuildSeries(tables, bounds)
	if err != nil {
		return nil, err
	}
	return &history{series: series, drivers: cashflow.TopDrivers(tables, DriverCount)}, nil
}

// =============================================================================
// EVENTS
// =============================================================================

func (s *Service) publishDue(ctx context.Context, branch string, items []recurrence.Group) {
	now := time.Now().UTC()
	for _, g := range items {
		ev := events.DebitOrderDue{
			EventID:       uuid.New().String(),
			Branch:        branch,
			Key:           g.Key,
			Name:          g.Name,
			Cadence:       string(g.Cadence),
			TypicalAmount: g.TypicalAmount,
			NextDue:       g.NextDue,
			KeywordHit:    g.KeywordHit,
			DetectedAt:    now,
		}
		if err := s.publisher.Publish(ctx, events.TopicDebitOrderDue, ev); err != nil {
			s.log.Warn().Err(err).
				Str("branch", branch).
				Str("key", g.Key).
				Msg("failed to publish debit order event")
		}
	}
}

func horizonOrDefault(h int) int {
	if h == 0 {
		return forecast.DefaultHorizon
	}
	return h
}
