package cashflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day with no time component
// =============================================================================

// Date is a calendar day. The zero Date means "no date" (an unparseable or
// absent value) and sorts before every real date.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate returns the calendar day for year/month/day. Out-of-range values
// are normalized the same way time.Date normalizes them (Jan 32 -> Feb 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Year() int                 { return d.year }
func (d Date) Month() time.Month         { return d.month }
func (d Date) Day() int                  { return d.day }
func (d Date) Weekday() time.Weekday     { return d.Time().Weekday() }
func (d Date) IsZero() bool              { return d.year == 0 && d.month == 0 && d.day == 0 }
func (d Date) ordinal() int              { return d.year*10000 + int(d.month)*100 + d.day }
func (d Date) Before(o Date) bool        { return d.ordinal() < o.ordinal() }
func (d Date) After(o Date) bool         { return d.ordinal() > o.ordinal() }
func (d Date) Equal(o Date) bool         { return d == o }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Before(o):
		return -1
	case d.After(o):
		return 1
	default:
		return 0
	}
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

// AddMonths moves the date by n months, clamping the day to the target
// month's last day (Jan 31 + 1 month = Feb 28/29, never Mar 3).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.year, d.month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return ClampDay(first.Year(), first.Month(), d.day)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(ISOLayout)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := time.Parse(ISOLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	*d = DateOf(parsed)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

// ISOLayout is the wire format for every date the engine emits.
const ISOLayout = "2006-01-02"

// statementLayouts are the date formats seen in bank statement exports.
var statementLayouts = []string{
	ISOLayout,
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"20060102",
}

// ParseDate accepts ISO dates and the common statement layouts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range statementLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// DaysInMonth handles leap years via time normalization.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month, DaysInMonth(year, month))
}

// ClampDay builds year/month/day, pulling day back to the month's last day
// when the month is shorter (31 in April -> Apr 30, 30 in Feb -> Feb 28/29).
func ClampDay(year int, month time.Month, day int) Date {
	if day < 1 {
		day = 1
	}
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// =============================================================================
// CLOCK - Injected "today"
// =============================================================================

// Clock supplies the current day. Core logic never calls time.Now directly.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in the given location (UTC when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Today() Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// FixedClock always returns the same day. Used by tests.
type FixedClock struct {
	Day Date
}

func (c FixedClock) Today() Date { return c.Day }
