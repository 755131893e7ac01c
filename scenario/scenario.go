/*
Package scenario overlays what-if adjustments onto a base forecast.

PURPOSE:
  Answers "what if we pay R50 000 on the 12th?" by shifting every forecast
  day on or after an adjustment's date by its delta.

ALGORITHM:
  1. Check that at least one adjustment is dated inside the horizon
  2. Sum deltas per date (input order is irrelevant from here on)
  3. Sweep the forecast dates ascending, carrying a cumulative delta:
     every adjustment dated <= d has been added by the time d is reached
  4. adjusted[d] = base[d] + cumulative(d)

  An adjustment dated before the horizon still shifts every forecast day,
  provided the set as a whole overlaps the horizon.

SEE ALSO:
  - cashflow/errors.go: NoOverlapError
  - forecast/forecast.go: produces the base path
*/
package scenario

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/cashflow"
)

// Apply returns the adjusted path. Output has the same length and dates as
// base. An empty adjustment set returns base unchanged.
func Apply(base []cashflow.ForecastPoint, adjustments []cashflow.Adjustment) ([]cashflow.ForecastPoint, error) {
	out := make([]cashflow.ForecastPoint, len(base))
	copy(out, base)
	if len(adjustments) == 0 || len(base) == 0 {
		return out, nil
	}

	first, last := base[0].Date, base[len(base)-1].Date
	horizon := cashflow.Between(first, last)
	overlaps := false
	for _, a := range adjustments {
		if horizon.Contains(a.Date) {
			overlaps = true
			break
		}
	}
	if !overlaps {
		return nil, &cashflow.NoOverlapError{First: first, Last: last}
	}

	byDate := make(map[cashflow.Date]decimal.Decimal)
	for _, a := range adjustments {
		byDate[a.Date] = byDate[a.Date].Add(a.Delta)
	}
	dates := make([]cashflow.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	cumulative := decimal.Zero
	next := 0
	for i, p := range out {
		for next < len(dates) && dates[next].BeforeOrEqual(p.Date) {
			cumulative = cumulative.Add(byDate[dates[next]])
			next++
		}
		out[i].Cash = p.Cash + cumulative.InexactFloat64()
	}
	return out, nil
}
