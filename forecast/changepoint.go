package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/warp/cashflow-engine/cashflow"
)

// =============================================================================
// CHANGEPOINT - Piecewise-linear trend + weekly seasonality + holidays
// =============================================================================

const (
	// changepointRange is the share of history eligible for changepoints.
	changepointRange = 0.8
	maxChangepoints  = 25
	weeklyOrder      = 3

	// minChangepointHistory is two full weekly cycles.
	minChangepointHistory = 14

	// Ridge penalties on the scaled problem.
	changepointPenalty = 0.5
	seasonalPenalty    = 0.01
	holidayPenalty     = 0.01
	basePenalty        = 1e-9
)

var errNoVariance = errors.New("changepoint: insufficient variance in history")

// Changepoint is an additive decomposition y(t) = trend(t) + weekly(t) +
// holiday(t). The trend is linear with slope changes at evenly spaced
// changepoints over the first 80% of history; slope changes are shrunk
// toward zero so the trend stays linear unless the data insists.
// Yearly and daily seasonality are not modeled.
type Changepoint struct {
	Calendar HolidayCalendar
}

func NewChangepoint(cal HolidayCalendar) *Changepoint {
	if cal == nil {
		cal = NoHolidays{}
	}
	return &Changepoint{Calendar: cal}
}

func (c *Changepoint) Name() Model { return ModelChangepoint }

func (c *Changepoint) Forecast(in Input) Result {
	fit, err := c.Fit(in.History, in.Dates)
	if err != nil {
		return fail(err)
	}
	return succeed(fit.Predict(in.Future))
}

// ChangepointFit is a fitted model.
type ChangepointFit struct {
	n           int
	scale       float64
	changepoint []float64 // positions on the scaled time axis
	holidays    bool
	weights     []float64
	calendar    HolidayCalendar
}

// Fit estimates the model. dates must align with y.
func (c *Changepoint) Fit(y []float64, dates []cashflow.Date) (*ChangepointFit, error) {
	n := len(y)
	if n < minChangepointHistory {
		return nil, fmt.Errorf("changepoint: need at least %d points, got %d", minChangepointHistory, n)
	}
	if len(dates) != n {
		return nil, fmt.Errorf("changepoint: %d dates for %d values", len(dates), n)
	}

	scale, mean := 0.0, 0.0
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("changepoint: non-finite value at index %d", i)
		}
		scale = math.Max(scale, math.Abs(v))
		mean += v
	}
	mean /= float64(n)
	variance := 0.0
	for _, v := range y {
		variance += (v - mean) * (v - mean)
	}
	if scale == 0 || variance/float64(n) < 1e-12*scale*scale {
		return nil, errNoVariance
	}

	fit := &ChangepointFit{n: n, scale: scale, calendar: c.Calendar}
	fit.changepoint = changepointPositions(n)

	holidayDays := 0
	for _, d := range dates {
		if c.Calendar.IsHoliday(d) {
			holidayDays++
		}
	}
	fit.holidays = holidayDays > 0 && holidayDays < n

	rows := make([][]float64, n)
	target := make([]float64, n)
	for i := range y {
		rows[i] = fit.features(float64(i)/float64(n-1), dates[i])
		target[i] = y[i] / scale
	}

	w, err := ridge(rows, target, fit.penalties())
	if err != nil {
		return nil, fmt.Errorf("changepoint: %w", err)
	}
	fit.weights = w
	return fit, nil
}

// Predict returns values for dates following the history.
func (f *ChangepointFit) Predict(future []cashflow.Date) []float64 {
	out := make([]float64, len(future))
	for h, d := range future {
		t := float64(f.n-1+h+1) / float64(f.n-1)
		out[h] = dot(f.features(t, d), f.weights) * f.scale
	}
	return out
}

// features lays out [1, t, hinges..., weekly sin/cos..., holiday?].
func (f *ChangepointFit) features(t float64, d cashflow.Date) []float64 {
	row := make([]float64, 0, 2+len(f.changepoint)+2*weeklyOrder+1)
	row = append(row, 1, t)
	for _, s := range f.changepoint {
		row = append(row, math.Max(0, t-s))
	}
	dayNum := float64(d.Time().Unix() / 86400)
	for k := 1; k <= weeklyOrder; k++ {
		phase := 2 * math.Pi * float64(k) * dayNum / 7
		row = append(row, math.Sin(phase), math.Cos(phase))
	}
	if f.holidays {
		v := 0.0
		if f.calendar.IsHoliday(d) {
			v = 1
		}
		row = append(row, v)
	}
	return row
}

func (f *ChangepointFit) penalties() []float64 {
	p := []float64{basePenalty, basePenalty}
	for range f.changepoint {
		p = append(p, changepointPenalty)
	}
	for k := 0; k < 2*weeklyOrder; k++ {
		p = append(p, seasonalPenalty)
	}
	if f.holidays {
		p = append(p, holidayPenalty)
	}
	return p
}

// changepointPositions spreads up to maxChangepoints evenly over the first
// changepointRange of the history, excluding the origin.
func changepointPositions(n int) []float64 {
	hist := int(math.Floor(changepointRange * float64(n)))
	k := maxChangepoints
	if hist-1 < k {
		k = hist - 1
	}
	if k <= 0 {
		return nil
	}
	out := make([]float64, 0, k)
	for j := 1; j <= k; j++ {
		idx := math.Round(float64(j) * float64(hist-1) / float64(k))
		out = append(out, idx/float64(n-1))
	}
	return out
}
