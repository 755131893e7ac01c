/*
Package forecast projects a daily cash series forward.

PURPOSE:
  Produces exactly H future (date, cash) points after the last historical
  day. Forecasting is a total function: whatever happens inside a model,
  the caller always gets H points back.

MODEL SELECTION:
  The engine builds a prioritized list of strategies and a small driver
  tries each in order, returning the first success:

    history < 7 points      -> [flat]
    model = changepoint     -> [changepoint, holt, flat]
    otherwise               -> [holt, flat]

  Each strategy returns a Result (values, or failure with a reason).
  Panics inside a strategy are recovered and treated as failure. The flat
  strategy (repeat the last observed value, 0 for empty history) cannot fail.

OBSERVABILITY:
  Forecast.Model names the strategy that produced the values and
  Forecast.Fallbacks lists every strategy that was skipped and why.
  Each fallback is also logged at warn level.

SEE ALSO:
  - holt.go: additive-trend exponential smoothing (primary)
  - changepoint.go: piecewise trend + weekly seasonality + holidays
  - holidays.go: regional holiday calendar
*/
package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/warp/cashflow-engine/cashflow"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	MinHorizon     = 1
	MaxHorizon     = 120
	DefaultHorizon = 30

	// MinHistory is the shortest series worth modeling. Below a week of
	// data the models are unreliable and the flat projection is used.
	MinHistory = 7
)

// Model names a forecasting strategy.
type Model string

const (
	ModelFlat        Model = "flat"
	ModelHolt        Model = "holt"
	ModelChangepoint Model = "changepoint"
)

// ParseModel maps a request value to a Model. Empty selects the primary.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case "", ModelHolt:
		return ModelHolt, nil
	case ModelChangepoint:
		return ModelChangepoint, nil
	case ModelFlat:
		return ModelFlat, nil
	default:
		return "", fmt.Errorf("unknown forecast model %q", s)
	}
}

// =============================================================================
// STRATEGY / RESULT
// =============================================================================

// Input is what every strategy sees.
type Input struct {
	History []float64
	Dates   []cashflow.Date
	Future  []cashflow.Date
}

// Horizon is the number of values a strategy must return.
func (in Input) Horizon() int { return len(in.Future) }

// Result is success-with-values or failure-with-reason.
type Result struct {
	Values []float64
	Err    error
}

func succeed(values []float64) Result { return Result{Values: values} }
func fail(err error) Result           { return Result{Err: err} }

// OK reports whether the strategy produced usable values.
func (r Result) OK() bool { return r.Err == nil }

// Strategy is one forecasting model.
type Strategy interface {
	Name() Model
	Forecast(in Input) Result
}

// Fallback records a strategy that failed and was skipped.
type Fallback struct {
	Model  Model  `json:"model"`
	Reason string `json:"reason"`
}

var errWrongLength = errors.New("strategy returned wrong number of values")

// Run tries strategies in order and returns the first success. When every
// strategy fails the flat projection is returned, so Run never fails.
func Run(strategies []Strategy, in Input) (Model, []float64, []Fallback) {
	var fallbacks []Fallback
	for _, s := range strategies {
		res := safeForecast(s, in)
		if res.OK() {
			if err := validate(res.Values, in.Horizon()); err != nil {
				res = fail(err)
			}
		}
		if res.OK() {
			return s.Name(), res.Values, fallbacks
		}
		fallbacks = append(fallbacks, Fallback{Model: s.Name(), Reason: res.Err.Error()})
	}
	flat := Flat{}.Forecast(in)
	return ModelFlat, flat.Values, fallbacks
}

func safeForecast(s Strategy, in Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("panic in %s: %v", s.Name(), r))
		}
	}()
	return s.Forecast(in)
}

func validate(values []float64, horizon int) error {
	if len(values) != horizon {
		return fmt.Errorf("%w: got %d, want %d", errWrongLength, len(values), horizon)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite forecast value at step %d", i+1)
		}
	}
	return nil
}

// =============================================================================
// FLAT - Terminal fallback
// =============================================================================

// Flat repeats the last observed value. It always succeeds.
type Flat struct{}

func (Flat) Name() Model { return ModelFlat }

func (Flat) Forecast(in Input) Result {
	last := 0.0
	if n := len(in.History); n > 0 {
		last = in.History[n-1]
	}
	out := make([]float64, in.Horizon())
	for i := range out {
		out[i] = last
	}
	return succeed(out)
}

// =============================================================================
// ENGINE
// =============================================================================

// Request describes one forecast.
type Request struct {
	History  cashflow.Series
	Horizon  int
	Model    Model
	Holidays bool
}

// Forecast is the engine's output.
type Forecast struct {
	Points    []cashflow.ForecastPoint
	Model     Model
	Fallbacks []Fallback
}

// Engine selects and runs strategies.
type Engine struct {
	Calendar HolidayCalendar
	Log      zerolog.Logger
}

// NewEngine returns an engine using the South African holiday calendar.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{Calendar: SouthAfrica{}, Log: log}
}

// ClampHorizon forces h into [MinHorizon, MaxHorizon].
func ClampHorizon(h int) int {
	if h < MinHorizon {
		return MinHorizon
	}
	if h > MaxHorizon {
		return MaxHorizon
	}
	return h
}

// Forecast never fails. Future dates are the Horizon days after the last
// historical date regardless of which strategy produced the values.
func (e *Engine) Forecast(req Request) Forecast {
	horizon := ClampHorizon(req.Horizon)
	in := Input{
		History: req.History.Values(),
		Dates:   req.History.Dates(),
		Future:  cashflow.FutureDates(req.History.LastDate(), horizon),
	}

	model, values, fallbacks := Run(e.strategies(req, len(in.History)), in)
	for _, fb := range fallbacks {
		e.Log.Warn().
			Str("model", string(fb.Model)).
			Str("reason", fb.Reason).
			Msg("forecast model failed, falling back")
	}

	points := make([]cashflow.ForecastPoint, horizon)
	for i := range points {
		points[i] = cashflow.ForecastPoint{Date: in.Future[i], Cash: values[i]}
	}
	return Forecast{Points: points, Model: model, Fallbacks: fallbacks}
}

func (e *Engine) strategies(req Request, n int) []Strategy {
	if n < MinHistory || req.Model == ModelFlat {
		return []Strategy{Flat{}}
	}
	if req.Model == ModelChangepoint {
		var cal HolidayCalendar = NoHolidays{}
		if req.Holidays && e.Calendar != nil {
			cal = e.Calendar
		}
		return []Strategy{NewChangepoint(cal), NewHolt(), Flat{}}
	}
	return []Strategy{NewHolt(), Flat{}}
}
