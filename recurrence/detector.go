/*
Package recurrence detects recurring outflows (debit orders) and predicts
when each is next due.

PURPOSE:
  Given raw ledger rows, surface the obligations a branch should expect to
  be collected in the next few days, ranked by size.

PIPELINE (Detect):
  1. Keep outflows (net < 0) dated inside [today - lookback, today]
  2. Group by normalized counterparty, falling back to description
  3. Flag rows whose description or category carries debit-order vocabulary
  4. Classify cadence from the median gap between distinct dates
  5. Keep groups with a cadence or a keyword hit
  6. Typical amount = median |net|
  7. Project next due date (weekly step or day-of-month)
  8. Keep projections inside [today, today + due window]; rank; truncate

  The pipeline has no training step and no hidden state: the same rows and
  the same Clock always give the same output.

SEE ALSO:
  - config.go: thresholds and vocabulary
  - cashflow/date.go: ClampDay, AddMonths
*/
package recurrence

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/cashflow"
)

type Cadence string

const (
	CadenceNone    Cadence = "none"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// Group is one predicted upcoming debit.
type Group struct {
	Key           string
	Name          string
	Category      string
	Cadence       Cadence
	TypicalAmount decimal.Decimal
	LastSeen      cashflow.Date
	NextDue       cashflow.Date
	Occurrences   int
	KeywordHit    bool
}

// Detector is safe for concurrent use.
type Detector struct {
	cfg      Config
	clock    cashflow.Clock
	keywords *keywordMatcher
}

func NewDetector(cfg Config, clock cashflow.Clock) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = cashflow.SystemClock{}
	}
	return &Detector{cfg: cfg, clock: clock, keywords: newKeywordMatcher(cfg.Keywords)}, nil
}

func (d *Detector) Config() Config { return d.cfg }

// WithWindow returns a detector with per-request lookback and due window.
// Non-positive lookback or negative due window keep the configured value.
func (d *Detector) WithWindow(lookbackMonths, dueWindowDays int) *Detector {
	cp := *d
	if lookbackMonths > 0 {
		cp.cfg.LookbackMonths = lookbackMonths
	}
	if dueWindowDays >= 0 {
		cp.cfg.DueWindowDays = dueWindowDays
	}
	return &cp
}

type row struct {
	cashflow.Transaction
	amount decimal.Decimal // |net|
	hit    bool
}

// Detect runs the pipeline over every row of every table.
func (d *Detector) Detect(tables []cashflow.Table) []Group {
	today := d.clock.Today()
	window := cashflow.Between(today.AddMonths(-d.cfg.LookbackMonths), today)
	due := cashflow.Between(today, today.AddDays(d.cfg.DueWindowDays))

	groups := make(map[string][]row)
	for _, t := range tables {
		for _, tx := range t.Rows {
			if tx.Date.IsZero() || !window.Contains(tx.Date) {
				continue
			}
			net := tx.Net()
			if !net.IsNegative() {
				continue
			}
			key := normalizeKey(tx.Counterparty)
			if key == "" {
				key = normalizeKey(tx.Description)
			}
			if key == "" {
				continue
			}
			groups[key] = append(groups[key], row{
				Transaction: tx,
				amount:      net.Abs(),
				hit:         d.keywords.Match(tx.Description, tx.Category),
			})
		}
	}

	var out []Group
	for key, rows := range groups {
		g, ok := d.evaluate(key, rows, today)
		if !ok || !due.Contains(g.NextDue) {
			continue
		}
		out = append(out, g)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TypicalAmount.Cmp(out[j].TypicalAmount); c != 0 {
			return c > 0
		}
		if !out[i].NextDue.Equal(out[j].NextDue) {
			return out[i].NextDue.Before(out[j].NextDue)
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > d.cfg.TopN {
		out = out[:d.cfg.TopN]
	}
	return out
}

func (d *Detector) evaluate(key string, rows []row, today cashflow.Date) (Group, bool) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	hit := false
	for _, r := range rows {
		hit = hit || r.hit
	}
	dates := distinctDates(rows)
	if len(dates) < 2 && !hit {
		return Group{}, false
	}

	cadence := d.classify(dates)
	if cadence == CadenceNone && !hit {
		return Group{}, false
	}

	amounts := make([]decimal.Decimal, len(rows))
	for i, r := range rows {
		amounts[i] = r.amount
	}
	typical := medianDecimal(amounts)
	if !typical.IsPositive() {
		return Group{}, false
	}

	last := rows[len(rows)-1]
	g := Group{
		Key:           key,
		Name:          last.Counterparty,
		Category:      latestCategory(rows),
		Cadence:       cadence,
		TypicalAmount: typical,
		LastSeen:      last.Date,
		Occurrences:   len(rows),
		KeywordHit:    hit,
	}
	if g.Name == "" {
		g.Name = last.Description
	}

	// Keyword-flagged groups take the day-of-month projection even when
	// their gaps look weekly.
	if cadence == CadenceMonthly || hit {
		g.NextDue = nextMonthly(dayOfMonthMode(dates), today)
	} else {
		g.NextDue = nextWeekly(last.Date, today)
	}
	return g, true
}

func (d *Detector) classify(dates []cashflow.Date) Cadence {
	if len(dates)-1 < d.cfg.MinGaps {
		return CadenceNone
	}
	gaps := make([]float64, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps[i-1] = float64(cashflow.DaysBetween(dates[i-1], dates[i]))
	}
	m := median(gaps)
	switch {
	case d.cfg.Monthly.Contains(m):
		return CadenceMonthly
	case d.cfg.Weekly.Contains(m):
		return CadenceWeekly
	default:
		return CadenceNone
	}
}

// =============================================================================
// PROJECTION
// =============================================================================

func nextWeekly(last, today cashflow.Date) cashflow.Date {
	next := last.AddDays(7)
	for next.Before(today) {
		next = next.AddDays(7)
	}
	return next
}

// nextMonthly places dom in the current month, clamped to month end, and
// rolls to next month when that day has already passed.
func nextMonthly(dom int, today cashflow.Date) cashflow.Date {
	candidate := cashflow.ClampDay(today.Year(), today.Month(), dom)
	if candidate.Before(today) {
		next := cashflow.StartOfMonth(today.Year(), today.Month()).AddMonths(1)
		candidate = cashflow.ClampDay(next.Year(), next.Month(), dom)
	}
	return candidate
}

// dayOfMonthMode returns the most frequent day-of-month. Among tied days the
// one seen most recently wins. dates must be ascending.
func dayOfMonthMode(dates []cashflow.Date) int {
	counts := make(map[int]int)
	best := 0
	for _, d := range dates {
		counts[d.Day()]++
		if counts[d.Day()] > best {
			best = counts[d.Day()]
		}
	}
	for i := len(dates) - 1; i >= 0; i-- {
		if counts[dates[i].Day()] == best {
			return dates[i].Day()
		}
	}
	return 1
}

// =============================================================================
// HELPERS
// =============================================================================

func distinctDates(rows []row) []cashflow.Date {
	var out []cashflow.Date
	for _, r := range rows {
		if len(out) == 0 || !out[len(out)-1].Equal(r.Date) {
			out = append(out, r.Date)
		}
	}
	return out
}

func latestCategory(rows []row) string {
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Category != "" {
			return rows[i].Category
		}
	}
	return ""
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func medianDecimal(v []decimal.Decimal) decimal.Decimal {
	s := append([]decimal.Decimal(nil), v...)
	sort.Slice(s, func(i, j int) bool { return s[i].LessThan(s[j]) })
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return s[n/2-1].Add(s[n/2]).Div(decimal.NewFromInt(2))
}
