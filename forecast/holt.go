package forecast

import (
	"errors"
	"fmt"
	"math"
)

// =============================================================================
// HOLT - Additive-trend exponential smoothing, no seasonality
// =============================================================================

// Holt fits level and trend smoothing parameters by minimising the
// one-step-ahead squared error: a coarse grid over (alpha, beta) followed
// by a shrinking pattern search around the best grid point.
type Holt struct {
	// GridStep is the spacing of the brute-force grid.
	GridStep float64
	// Refinements is the number of pattern-search halvings.
	Refinements int
}

func NewHolt() *Holt { return &Holt{GridStep: 0.05, Refinements: 12} }

func (h *Holt) Name() Model { return ModelHolt }

// HoltFit is a fitted model.
type HoltFit struct {
	Alpha, Beta  float64
	Level, Trend float64
	SSE          float64
}

// Project returns the next n values.
func (f HoltFit) Project(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f.Level + float64(i+1)*f.Trend
	}
	return out
}

func (h *Holt) Forecast(in Input) Result {
	fit, err := h.Fit(in.History)
	if err != nil {
		return fail(err)
	}
	return succeed(fit.Project(in.Horizon()))
}

// Fit estimates the model on y.
func (h *Holt) Fit(y []float64) (HoltFit, error) {
	if len(y) < 3 {
		return HoltFit{}, fmt.Errorf("holt: need at least 3 points, got %d", len(y))
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return HoltFit{}, fmt.Errorf("holt: non-finite value at index %d", i)
		}
	}

	l0, b0 := initialState(y)

	step := h.GridStep
	if step <= 0 || step >= 1 {
		step = 0.05
	}
	best := HoltFit{SSE: math.Inf(1)}
	for a := step; a < 1; a += step {
		for b := 0.0; b <= a; b += step {
			if fit := runHolt(y, a, b, l0, b0); fit.SSE < best.SSE {
				best = fit
			}
		}
	}

	// Pattern search around the grid optimum, constrained to the unit box.
	delta := step / 2
	for i := 0; i < h.Refinements; i++ {
		improved := false
		for _, d := range [][2]float64{{delta, 0}, {-delta, 0}, {0, delta}, {0, -delta}} {
			a, b := best.Alpha+d[0], best.Beta+d[1]
			if a <= 0 || a >= 1 || b < 0 || b > 1 {
				continue
			}
			if fit := runHolt(y, a, b, l0, b0); fit.SSE < best.SSE {
				best = fit
				improved = true
			}
		}
		if !improved {
			delta /= 2
		}
	}

	if math.IsNaN(best.SSE) || math.IsInf(best.SSE, 0) {
		return HoltFit{}, errors.New("holt: optimisation diverged")
	}
	return best, nil
}

// initialState estimates the starting level and trend from a least-squares
// line through the first few points.
func initialState(y []float64) (level, trend float64) {
	n := len(y)
	if n > 10 {
		n = 10
	}
	var sx, sy, sxy, sxx float64
	for i := 0; i < n; i++ {
		x := float64(i)
		sx += x
		sy += y[i]
		sxy += x * y[i]
		sxx += x * x
	}
	fn := float64(n)
	denom := fn*sxx - sx*sx
	if denom == 0 {
		return y[0], 0
	}
	trend = (fn*sxy - sx*sy) / denom
	level = (sy - trend*sx) / fn
	// The state before the first observation.
	return level - trend, trend
}

func runHolt(y []float64, alpha, beta, level, trend float64) HoltFit {
	sse := 0.0
	for _, v := range y {
		pred := level + trend
		e := v - pred
		sse += e * e
		prev := level
		level = alpha*v + (1-alpha)*(level+trend)
		trend = beta*(level-prev) + (1-beta)*trend
	}
	return HoltFit{Alpha: alpha, Beta: beta, Level: level, Trend: trend, SSE: sse}
}
