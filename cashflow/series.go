/*
series.go - Series Builder

PURPOSE:
  Turns one or more normalized transaction tables into a single canonical
  daily cash series: one point per calendar day, no gaps, cash balance
  reconstructed as a prefix sum seeded by the anchor balance.

ALGORITHM:
  1. Merge the column sets of every table and check the schema
     (date required; at least one of credit/debit required)
  2. Concatenate rows, dropping rows without a date and rows outside
     the inclusive filter bounds
  3. Sum net change (credit - debit, nulls as 0) per calendar date
  4. Anchor = balance snapshot of the earliest row that has one
  5. Materialize every day from first to last date (missing days = 0)
  6. Cash[i] = anchor + sum(net[0..i])

DETERMINISM:
  Output depends only on inputs and bounds. Rows on the same date keep
  input order, so the anchor on a tied date is the first one supplied.

SEE ALSO:
  - types.go: Table, DailyCashPoint
  - errors.go: SchemaError, EmptySeriesError
*/
package cashflow

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BuildSeries produces the canonical daily cash series for tables filtered
// to bounds.
func BuildSeries(tables []Table, bounds DateRange) (Series, error) {
	var cols ColumnSet
	for _, t := range tables {
		cols = cols.Union(t.Columns)
	}
	if err := checkSchema(cols); err != nil {
		return nil, err
	}

	rows := filterRows(tables, bounds)
	if len(rows) == 0 {
		return nil, &EmptySeriesError{Bounds: bounds}
	}

	// Stable sort keeps input order within a day for the anchor rule.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	daily := make(map[Date]decimal.Decimal)
	for _, tx := range rows {
		daily[tx.Date] = daily[tx.Date].Add(tx.Net())
	}

	anchor := decimal.Zero
	if cols.Has(ColBalance) {
		for _, tx := range rows {
			if tx.Balance.Valid {
				anchor = tx.Balance.Value
				break
			}
		}
	}

	first, last := rows[0].Date, rows[len(rows)-1].Date
	series := make(Series, 0, DaysBetween(first, last)+1)
	cash := anchor
	for d := first; d.BeforeOrEqual(last); d = d.AddDays(1) {
		change := daily[d]
		cash = cash.Add(change)
		series = append(series, DailyCashPoint{Date: d, NetChange: change, Cash: cash})
	}
	return series, nil
}

func checkSchema(cols ColumnSet) error {
	var missing []string
	if !cols.Has(ColDate) {
		missing = append(missing, "date column")
	}
	if !cols.Has(ColCredit) && !cols.Has(ColDebit) {
		missing = append(missing, "credit or debit column")
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

func filterRows(tables []Table, bounds DateRange) []Transaction {
	var rows []Transaction
	for _, t := range tables {
		for _, tx := range t.Rows {
			if tx.Date.IsZero() || !bounds.Contains(tx.Date) {
				continue
			}
			rows = append(rows, tx)
		}
	}
	return rows
}
