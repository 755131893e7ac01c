/*
errors.go - Centralized error types for the cash-flow engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is against the sentinels, or errors.As to
  read the structured detail (missing column, filter bounds, horizon).

ERROR CATEGORIES:
  1. Structural errors - abort the single request (schema, empty, overlap)
  2. Source errors - ingestion could not find its inputs
  3. Value-level anomalies - never errors; absorbed as nulls

SEE ALSO:
  - series.go: SchemaError, EmptySeriesError
  - scenario/scenario.go: NoOverlapError
  - api/handlers.go: maps these to HTTP status codes
*/
package cashflow

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSchema is returned when required columns are absent after merging.
	ErrSchema = errors.New("schema error")

	// ErrEmptySeries is returned when no rows survive filtering.
	ErrEmptySeries = errors.New("empty series")

	// ErrNoOverlap is returned when no adjustment falls inside the forecast horizon.
	ErrNoOverlap = errors.New("adjustments do not overlap forecast horizon")

	// ErrFileNotFound is returned when an explicitly named source file is missing.
	ErrFileNotFound = errors.New("file not found")

	// ErrNoSources is returned when a branch has no source files at all.
	ErrNoSources = errors.New("no source files")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SchemaError names the requirement the merged tables failed.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing %s", strings.Join(e.Missing, " and "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// EmptySeriesError carries the bounds that filtered everything away.
type EmptySeriesError struct {
	Bounds DateRange
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("no rows after filtering %s; cannot build series", e.Bounds)
}

func (e *EmptySeriesError) Unwrap() error { return ErrEmptySeries }

// NoOverlapError carries the horizon the adjustments should have targeted.
type NoOverlapError struct {
	First Date
	Last  Date
}

func (e *NoOverlapError) Error() string {
	return fmt.Sprintf("no adjustment dated within forecast horizon [%s, %s]", e.First, e.Last)
}

func (e *NoOverlapError) Unwrap() error { return ErrNoOverlap }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the request's inputs.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSchema) ||
		errors.Is(err, ErrEmptySeries) ||
		errors.Is(err, ErrNoOverlap) ||
		errors.Is(err, ErrFileNotFound)
}

// IsNotFound returns true if the branch has no sources.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSources)
}
