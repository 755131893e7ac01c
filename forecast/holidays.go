package forecast

import (
	"sort"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/za"
	"github.com/warp/cashflow-engine/cashflow"
)

// =============================================================================
// HOLIDAY CALENDAR - Fixed regional public holidays
// =============================================================================

// Holiday is a public holiday on a specific date.
type Holiday struct {
	Date cashflow.Date
	Name string
}

// HolidayCalendar provides holiday lookup for the changepoint model.
type HolidayCalendar interface {
	// IsHoliday reports whether date is a public holiday (observed).
	IsHoliday(date cashflow.Date) bool

	// Holidays returns the holidays of a year, in date order.
	Holidays(year int) []Holiday
}

// NoHolidays is the calendar used when holiday effects are disabled.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(cashflow.Date) bool { return false }
func (NoHolidays) Holidays(int) []Holiday       { return nil }

// SouthAfrica is the public holiday calendar of the Public Holidays Act,
// backed by rickar/cal. A holiday falling on a Sunday is also observed on
// the Monday.
type SouthAfrica struct{}

func (SouthAfrica) Holidays(year int) []Holiday {
	return holidaysOf(za.Holidays, year)
}

func (c SouthAfrica) IsHoliday(date cashflow.Date) bool {
	for _, h := range c.Holidays(date.Year()) {
		if h.Date == date {
			return true
		}
	}
	return false
}

// holidaysOf expands a cal holiday list for one year into actual and
// observed dates, deduplicated and sorted.
func holidaysOf(list []*cal.Holiday, year int) []Holiday {
	seen := make(map[cashflow.Date]bool)
	var out []Holiday
	add := func(d cashflow.Date, name string) {
		if d.IsZero() || d.Year() != year || seen[d] {
			return
		}
		seen[d] = true
		out = append(out, Holiday{Date: d, Name: name})
	}

	for _, h := range list {
		actual, observed := h.Calc(year)
		a := cashflow.DateOf(actual)
		if a.IsZero() {
			continue
		}
		add(a, h.Name)

		obs := cashflow.DateOf(observed)
		if a.Weekday() == time.Sunday && (obs.IsZero() || obs == a) {
			obs = a.AddDays(1)
		}
		if obs != a {
			add(obs, h.Name+" (observed)")
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
