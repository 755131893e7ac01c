package scenario_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/cashflow"
	"github.com/warp/cashflow-engine/scenario"
)

var lastHistory = cashflow.NewDate(2025, time.June, 30)

func base(n int, value float64) []cashflow.ForecastPoint {
	out := make([]cashflow.ForecastPoint, n)
	for i, d := range cashflow.FutureDates(lastHistory, n) {
		out[i] = cashflow.ForecastPoint{Date: d, Cash: value}
	}
	return out
}

func adj(offset int, delta int64) cashflow.Adjustment {
	return cashflow.Adjustment{Date: lastHistory.AddDays(offset), Delta: decimal.NewFromInt(delta)}
}

func TestApply_ForwardFilledStep(t *testing.T) {
	// GIVEN: A flat base of 1000 over 10 days and +100 on day 4
	// THEN: Days 1-3 unchanged, days 4-10 shifted by 100

	out, err := scenario.Apply(base(10, 1000), []cashflow.Adjustment{adj(4, 100)})
	require.NoError(t, err)
	require.Len(t, out, 10)

	for i, p := range out {
		want := 1000.0
		if i >= 3 {
			want = 1100
		}
		assert.Equal(t, want, p.Cash, "day %d", i+1)
		assert.Equal(t, lastHistory.AddDays(i+1), p.Date)
	}
}

func TestApply_OrderDoesNotMatter(t *testing.T) {
	// GIVEN: [(d1, +100), (d2, -50)] in both orders
	// THEN: Identical adjusted paths

	b := base(30, 500)
	a1, a2 := adj(5, 100), adj(12, -50)

	forward, err := scenario.Apply(b, []cashflow.Adjustment{a1, a2})
	require.NoError(t, err)
	reverse, err := scenario.Apply(b, []cashflow.Adjustment{a2, a1})
	require.NoError(t, err)

	assert.Equal(t, forward, reverse)
	assert.Equal(t, 500.0, forward[3].Cash)
	assert.Equal(t, 600.0, forward[4].Cash)
	assert.Equal(t, 550.0, forward[11].Cash)
	assert.Equal(t, 550.0, forward[29].Cash)
}

func TestApply_SameDateAdjustmentsAreSummed(t *testing.T) {
	out, err := scenario.Apply(base(5, 0), []cashflow.Adjustment{adj(2, 30), adj(2, 12), adj(2, -2)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, out[0].Cash)
	assert.Equal(t, 40.0, out[1].Cash)
	assert.Equal(t, 40.0, out[4].Cash)
}

func TestApply_EarlierAdjustmentShiftsWholeHorizon(t *testing.T) {
	// An adjustment dated before the horizon counts once another overlaps.
	out, err := scenario.Apply(base(5, 0), []cashflow.Adjustment{adj(-3, 7), adj(3, 1)})
	require.NoError(t, err)
	assert.Equal(t, 7.0, out[0].Cash)
	assert.Equal(t, 8.0, out[2].Cash)
}

func TestApply_DoesNotMutateBase(t *testing.T) {
	b := base(3, 10)
	_, err := scenario.Apply(b, []cashflow.Adjustment{adj(1, 5)})
	require.NoError(t, err)
	assert.Equal(t, 10.0, b[0].Cash)
}

func TestApply_NoOverlap(t *testing.T) {
	// GIVEN: Base over [day+1, day+30], single adjustment at day+45
	// THEN: NoOverlapError naming the valid range

	_, err := scenario.Apply(base(30, 0), []cashflow.Adjustment{adj(45, 100)})

	var noOverlap *cashflow.NoOverlapError
	require.ErrorAs(t, err, &noOverlap)
	assert.Equal(t, lastHistory.AddDays(1), noOverlap.First)
	assert.Equal(t, lastHistory.AddDays(30), noOverlap.Last)
	assert.ErrorIs(t, err, cashflow.ErrNoOverlap)
}

func TestApply_EmptyAdjustmentsReturnBase(t *testing.T) {
	b := base(4, 3)
	out, err := scenario.Apply(b, nil)
	require.NoError(t, err)
	assert.Equal(t, b, out)
}
