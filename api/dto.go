/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON contract. Domain types keep exact decimals; the wire
  carries dates as ISO strings and amounts as JSON numbers.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Top-level response bodies
  - *DTO: Nested response values

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - analytics/service.go: Result types these are mapped from
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/analytics"
	"github.com/warp/cashflow-engine/cashflow"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/recurrence"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ForecastRequest is the body of POST /api/forecast.
type ForecastRequest struct {
	Branch      string        `json:"branch"`
	FromDate    cashflow.Date `json:"from_date"`
	ToDate      cashflow.Date `json:"to_date"`
	HorizonDays *int          `json:"horizon_days,omitempty"`
	Files       []string      `json:"files,omitempty"`
	Model       string        `json:"model,omitempty"`
	Holidays    bool          `json:"holidays,omitempty"`
}

// SimulateRequest is the body of POST /api/simulate.
type SimulateRequest struct {
	Branch       string          `json:"branch"`
	BaseFromDate cashflow.Date   `json:"base_from_date"`
	BaseToDate   cashflow.Date   `json:"base_to_date"`
	HorizonDays  *int            `json:"horizon_days,omitempty"`
	Files        []string        `json:"files,omitempty"`
	Model        string          `json:"model,omitempty"`
	Holidays     bool            `json:"holidays,omitempty"`
	Adjustments  []AdjustmentDTO `json:"adjustments"`
}

// AdjustmentDTO accepts delta as a JSON number or string.
type AdjustmentDTO struct {
	Date  cashflow.Date   `json:"date"`
	Delta decimal.Decimal `json:"delta"`
	Label string          `json:"label,omitempty"`
}

// DebitOrderRequest is the body of POST /api/debit-orders. Omitted windows
// use the configured defaults.
type DebitOrderRequest struct {
	Branch         string   `json:"branch"`
	Files          []string `json:"files,omitempty"`
	LookbackMonths *int     `json:"lookback_months,omitempty"`
	DueWindowDays  *int     `json:"due_window_days,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type HistoryPointDTO struct {
	Date        cashflow.Date `json:"date"`
	DailyChange float64       `json:"daily_change"`
	Cash        float64       `json:"cash"`
}

type ForecastPointDTO struct {
	Date cashflow.Date `json:"date"`
	Cash float64       `json:"cash"`
}

type DriverDTO struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type DriversDTO struct {
	TopInflowsByCategory  []DriverDTO `json:"top_inflows_by_category"`
	TopOutflowsByCategory []DriverDTO `json:"top_outflows_by_category"`
	TopCounterparties     []DriverDTO `json:"top_counterparties"`
}

type CacheDTO struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	Hit         bool   `json:"hit"`
}

type ForecastResponse struct {
	Branch    string              `json:"branch"`
	History   []HistoryPointDTO   `json:"history"`
	Forecast  []ForecastPointDTO  `json:"forecast"`
	Model     forecast.Model      `json:"model"`
	Fallbacks []forecast.Fallback `json:"fallbacks"`
	Drivers   DriversDTO          `json:"drivers"`
	Cache     CacheDTO            `json:"cache"`
}

type AppliedAdjustmentDTO struct {
	Date  cashflow.Date `json:"date"`
	Delta float64       `json:"delta"`
	Label string        `json:"label,omitempty"`
}

type SimulateResponse struct {
	Branch             string                 `json:"branch"`
	History            []HistoryPointDTO      `json:"history"`
	ForecastBase       []ForecastPointDTO     `json:"forecast_base"`
	ForecastAdjusted   []ForecastPointDTO     `json:"forecast_adjusted"`
	AppliedAdjustments []AppliedAdjustmentDTO `json:"applied_adjustments"`
	Model              forecast.Model         `json:"model"`
	Fallbacks          []forecast.Fallback    `json:"fallbacks"`
	Drivers            DriversDTO             `json:"drivers"`
}

type DebitOrderDTO struct {
	Name          string        `json:"name"`
	Key           string        `json:"key"`
	Category      string        `json:"category,omitempty"`
	Cadence       string        `json:"cadence"`
	TypicalAmount float64       `json:"typical_amount"`
	LastSeen      cashflow.Date `json:"last_seen"`
	NextDue       cashflow.Date `json:"next_due"`
	Occurrences   int           `json:"occurrences"`
	KeywordHit    bool          `json:"keyword_hit"`
}

type DebitOrderResponse struct {
	Branch         string          `json:"branch"`
	Today          cashflow.Date   `json:"today"`
	LookbackMonths int             `json:"lookback_months"`
	DueWindowDays  int             `json:"due_window_days"`
	Items          []DebitOrderDTO `json:"items"`
}

type PruneResponse struct {
	Removed   int    `json:"removed"`
	Retention string `json:"retention"`
}

// ErrorResponse is the body of every non-2xx response. HorizonStart and
// HorizonEnd are set when adjustments missed the forecast horizon.
type ErrorResponse struct {
	Error        string         `json:"error"`
	Details      string         `json:"details,omitempty"`
	HorizonStart *cashflow.Date `json:"horizon_start,omitempty"`
	HorizonEnd   *cashflow.Date `json:"horizon_end,omitempty"`
}

// =============================================================================
// MAPPING
// =============================================================================

func toHistoryDTOs(s cashflow.Series) []HistoryPointDTO {
	out := make([]HistoryPointDTO, len(s))
	for i, p := range s {
		out[i] = HistoryPointDTO{
			Date:        p.Date,
			DailyChange: p.NetChange.InexactFloat64(),
			Cash:        p.Cash.InexactFloat64(),
		}
	}
	return out
}

func toForecastDTOs(points []cashflow.ForecastPoint) []ForecastPointDTO {
	out := make([]ForecastPointDTO, len(points))
	for i, p := range points {
		out[i] = ForecastPointDTO{Date: p.Date, Cash: p.Cash}
	}
	return out
}

func toDriverDTOs(entries []cashflow.DriverEntry) []DriverDTO {
	out := make([]DriverDTO, len(entries))
	for i, e := range entries {
		out[i] = DriverDTO{Label: e.Label, Amount: e.Amount.InexactFloat64()}
	}
	return out
}

func toDriversDTO(d cashflow.Drivers) DriversDTO {
	return DriversDTO{
		TopInflowsByCategory:  toDriverDTOs(d.TopInflowsByCategory),
		TopOutflowsByCategory: toDriverDTOs(d.TopOutflowsByCategory),
		TopCounterparties:     toDriverDTOs(d.TopCounterparties),
	}
}

func fallbacksOrEmpty(fbs []forecast.Fallback) []forecast.Fallback {
	if fbs == nil {
		return []forecast.Fallback{}
	}
	return fbs
}

func toForecastResponse(res *analytics.ForecastResult) ForecastResponse {
	return ForecastResponse{
		Branch:    res.Branch,
		History:   toHistoryDTOs(res.History),
		Forecast:  toForecastDTOs(res.Forecast),
		Model:     res.Model,
		Fallbacks: fallbacksOrEmpty(res.Fallbacks),
		Drivers:   toDriversDTO(res.Drivers),
		Cache:     CacheDTO{Fingerprint: res.Cache.Fingerprint, Hit: res.Cache.Hit},
	}
}

func toSimulateResponse(res *analytics.SimulateResult) SimulateResponse {
	applied := make([]AppliedAdjustmentDTO, len(res.Applied))
	for i, a := range res.Applied {
		applied[i] = AppliedAdjustmentDTO{Date: a.Date, Delta: a.Delta.InexactFloat64(), Label: a.Label}
	}
	return SimulateResponse{
		Branch:             res.Branch,
		History:            toHistoryDTOs(res.History),
		ForecastBase:       toForecastDTOs(res.Base),
		ForecastAdjusted:   toForecastDTOs(res.Adjusted),
		AppliedAdjustments: applied,
		Model:              res.Model,
		Fallbacks:          fallbacksOrEmpty(res.Fallbacks),
		Drivers:            toDriversDTO(res.Drivers),
	}
}

func toDebitOrderDTO(g recurrence.Group) DebitOrderDTO {
	return DebitOrderDTO{
		Name:          g.Name,
		Key:           g.Key,
		Category:      g.Category,
		Cadence:       string(g.Cadence),
		TypicalAmount: g.TypicalAmount.InexactFloat64(),
		LastSeen:      g.LastSeen,
		NextDue:       g.NextDue,
		Occurrences:   g.Occurrences,
		KeywordHit:    g.KeywordHit,
	}
}

func toDebitOrderResponse(res *analytics.DebitOrderResult) DebitOrderResponse {
	items := make([]DebitOrderDTO, len(res.Items))
	for i, g := range res.Items {
		items[i] = toDebitOrderDTO(g)
	}
	return DebitOrderResponse{
		Branch:         res.Branch,
		Today:          res.Today,
		LookbackMonths: res.LookbackMonths,
		DueWindowDays:  res.DueWindowDays,
		Items:          items,
	}
}
