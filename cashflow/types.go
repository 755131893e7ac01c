/*
Package cashflow provides the core cash-series engine.

PURPOSE:
  Domain-agnostic types and algorithms for turning normalized transaction
  ledgers into a gap-free daily cash series. Forecasting, scenario overlays
  and recurrence detection all consume the types defined here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: a nullable decimal amount (null = missing or unparseable)
  - Transaction: one ledger line in the canonical schema
  - Table: the rows of one source plus the columns that source carried
  - DailyCashPoint / Series: the reconstructed daily balance
  - ForecastPoint, Adjustment: future values and what-if deltas

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal; forecasts are float64 model output
  2. Totality: row-level anomalies become nulls, never errors
  3. Determinism: no implicit "now" anywhere in this package except Clock

SEE ALSO:
  - series.go: Series Builder
  - date.go: calendar arithmetic
  - store.go: content-addressed series cache
*/
package cashflow

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Nullable decimal amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
	Valid bool
}

// NullMoney is an absent amount.
var NullMoney = Money{}

func NewMoney(value float64) Money      { return Money{Value: decimal.NewFromFloat(value), Valid: true} }
func MoneyFrom(d decimal.Decimal) Money { return Money{Value: d, Valid: true} }
func MustMoney(s string) Money          { return MoneyFrom(decimal.RequireFromString(s)) }

// OrZero treats null as zero, the rule every aggregation uses.
func (m Money) OrZero() decimal.Decimal {
	if !m.Valid {
		return decimal.Zero
	}
	return m.Value
}

func (m Money) String() string {
	if !m.Valid {
		return "null"
	}
	return m.Value.String()
}

// =============================================================================
// TRANSACTION - One ledger line
// =============================================================================

// Transaction is a ledger line already coerced to the canonical schema.
// Empty Category/Counterparty mean null.
type Transaction struct {
	Date         Date
	Debit        Money
	Credit       Money
	Balance      Money
	Description  string
	Category     string
	Counterparty string
}

// Net is credit minus debit with nulls as zero.
func (t Transaction) Net() decimal.Decimal {
	return t.Credit.OrZero().Sub(t.Debit.OrZero())
}

// =============================================================================
// TABLE - Rows from one source
// =============================================================================

// Column names a canonical column.
type Column uint8

const (
	ColDate Column = 1 << iota
	ColDebit
	ColCredit
	ColBalance
	ColDescription
	ColCategory
	ColCounterparty
)

var columnNames = map[Column]string{
	ColDate:         "date",
	ColDebit:        "debit",
	ColCredit:       "credit",
	ColBalance:      "balance",
	ColDescription:  "description",
	ColCategory:     "category",
	ColCounterparty: "counterparty",
}

func (c Column) String() string { return columnNames[c] }

// ColumnSet records which canonical columns a source actually carried.
type ColumnSet uint8

// AllColumns is the column set of a fully populated source.
const AllColumns = ColumnSet(ColDate | ColDebit | ColCredit | ColBalance | ColDescription | ColCategory | ColCounterparty)

func (s ColumnSet) Has(c Column) bool           { return s&ColumnSet(c) != 0 }
func (s ColumnSet) With(c Column) ColumnSet     { return s | ColumnSet(c) }
func (s ColumnSet) Union(o ColumnSet) ColumnSet { return s | o }

type Table struct {
	Source  string
	Columns ColumnSet
	Rows    []Transaction
}

// NewTable builds a table that carries every canonical column.
func NewTable(source string, rows []Transaction) Table {
	return Table{Source: source, Columns: AllColumns, Rows: rows}
}

// =============================================================================
// SERIES - Reconstructed daily balance
// =============================================================================

type DailyCashPoint struct {
	Date      Date            `json:"date"`
	NetChange decimal.Decimal `json:"daily_change"`
	Cash      decimal.Decimal `json:"cash"`
}

// Series is ordered by date, contiguous and gap-free.
type Series []DailyCashPoint

// Values returns the cash column as float64 for model fitting.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Cash.InexactFloat64()
	}
	return out
}

// Dates returns the date column.
func (s Series) Dates() []Date {
	out := make([]Date, len(s))
	for i, p := range s {
		out[i] = p.Date
	}
	return out
}

// LastDate is the zero Date for an empty series.
func (s Series) LastDate() Date {
	if len(s) == 0 {
		return Date{}
	}
	return s[len(s)-1].Date
}

// Slice returns the points inside r.
func (s Series) Slice(r DateRange) Series {
	var out Series
	for _, p := range s {
		if r.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// FORECAST / SCENARIO VALUES
// =============================================================================

type ForecastPoint struct {
	Date Date
	Cash float64
}

// Adjustment is a one-time delta applied to its date and every later date.
type Adjustment struct {
	Date  Date
	Delta decimal.Decimal
	Label string
}

// FutureDates returns the n days following last.
func FutureDates(last Date, n int) []Date {
	out := make([]Date, n)
	for i := range out {
		out[i] = last.AddDays(i + 1)
	}
	return out
}
