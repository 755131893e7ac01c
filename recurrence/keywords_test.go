package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/cashflow-engine/cashflow"
)

func TestKeywordMatcher(t *testing.T) {
	m := newKeywordMatcher(DefaultKeywords)

	assert.True(t, m.Match("AEDO Insurance Premium"))
	assert.True(t, m.Match("NAEDO collection"))
	assert.True(t, m.Match("Monthly DEBIT ORDER"))
	assert.True(t, m.Match("", "Subscriptions"))
	assert.True(t, m.Match("D/O Vodacom"))

	assert.True(t, m.Match("NETFLIXSUBSCRIPTION 0923"), "long terms match inside words")
	assert.True(t, m.Match("ACMEDEBIT ORDER"))

	assert.False(t, m.Match("Maedor Trading"), "aedo must start a word")
	assert.False(t, m.Match("cash and/or card"))
	assert.False(t, m.Match("Groceries", ""))
	assert.False(t, newKeywordMatcher(nil).Match("debit order"))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "netflixcom", normalizeKey("  NETFLIX.COM "))
	assert.Equal(t, "café2", normalizeKey("CAFÉ #2"))
	assert.Equal(t, "", normalizeKey("*** --- ***"))
}

func TestDayOfMonthMode(t *testing.T) {
	d := func(m time.Month, day int) cashflow.Date { return cashflow.NewDate(2025, m, day) }

	assert.Equal(t, 5, dayOfMonthMode([]cashflow.Date{d(1, 5), d(2, 5), d(3, 10)}))

	// 5 and 10 tie; 10 was seen most recently.
	assert.Equal(t, 10, dayOfMonthMode([]cashflow.Date{d(1, 5), d(2, 10), d(3, 5), d(4, 10)}))
	assert.Equal(t, 5, dayOfMonthMode([]cashflow.Date{d(1, 10), d(2, 5), d(3, 10), d(4, 5)}))
}

func TestNextMonthly(t *testing.T) {
	today := cashflow.NewDate(2024, time.January, 31)
	assert.Equal(t, "2024-01-31", nextMonthly(31, today).String())
	assert.Equal(t, "2024-02-29", nextMonthly(30, today).String())

	today = cashflow.NewDate(2025, time.December, 15)
	assert.Equal(t, "2026-01-10", nextMonthly(10, today).String())
}
