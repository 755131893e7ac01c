package recurrence

import (
	"errors"
	"fmt"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

const (
	// DefaultLookbackMonths bounds how far back transactions are considered.
	DefaultLookbackMonths = 18

	// DefaultDueWindowDays is how far ahead of today a projection may land
	// and still be reported.
	DefaultDueWindowDays = 7

	// MonthlyMinGap and MonthlyMaxGap bracket the median gap of a monthly
	// debit. Month lengths alone span 28..31; weekends and bank holidays
	// shift collection by a few more days either way.
	MonthlyMinGap = 27
	MonthlyMaxGap = 34

	// WeeklyMinGap and WeeklyMaxGap allow a one-day slip around 7.
	WeeklyMinGap = 6
	WeeklyMaxGap = 8

	// MinGaps is the number of gaps needed before a cadence is inferred.
	MinGaps = 2

	// DefaultTopN caps the ranked output.
	DefaultTopN = 10
)

// DefaultKeywords is the debit-order vocabulary. Terms match case-insensitively
// anywhere in the text; terms of four runes or fewer must start a word.
var DefaultKeywords = []string{
	"debit order",
	"stop order",
	"subscription",
	"naedo",
	"aedo",
	"d/o",
	"insurance premium",
}

// Band is an inclusive range of day gaps.
type Band struct {
	Min float64
	Max float64
}

func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

func (b Band) String() string { return fmt.Sprintf("[%g, %g]", b.Min, b.Max) }

// Config tunes the detector. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	LookbackMonths int
	DueWindowDays  int
	Monthly        Band
	Weekly         Band
	MinGaps        int
	TopN           int
	Keywords       []string
}

func DefaultConfig() Config {
	return Config{
		LookbackMonths: DefaultLookbackMonths,
		DueWindowDays:  DefaultDueWindowDays,
		Monthly:        Band{Min: MonthlyMinGap, Max: MonthlyMaxGap},
		Weekly:         Band{Min: WeeklyMinGap, Max: WeeklyMaxGap},
		MinGaps:        MinGaps,
		TopN:           DefaultTopN,
		Keywords:       DefaultKeywords,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.LookbackMonths < 1 {
		errs = append(errs, fmt.Errorf("lookback months must be positive, got %d", c.LookbackMonths))
	}
	if c.DueWindowDays < 0 {
		errs = append(errs, fmt.Errorf("due window must not be negative, got %d", c.DueWindowDays))
	}
	if c.Monthly.Min > c.Monthly.Max {
		errs = append(errs, fmt.Errorf("monthly band %s is empty", c.Monthly))
	}
	if c.Weekly.Min > c.Weekly.Max {
		errs = append(errs, fmt.Errorf("weekly band %s is empty", c.Weekly))
	}
	if c.Weekly.Max >= c.Monthly.Min {
		errs = append(errs, fmt.Errorf("weekly band %s overlaps monthly band %s", c.Weekly, c.Monthly))
	}
	if c.MinGaps < 1 {
		errs = append(errs, fmt.Errorf("min gaps must be positive, got %d", c.MinGaps))
	}
	if c.TopN < 1 {
		errs = append(errs, fmt.Errorf("top n must be positive, got %d", c.TopN))
	}
	return errors.Join(errs...)
}
