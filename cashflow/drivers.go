package cashflow

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Labels used when a row carries no category / counterparty.
const (
	UncategorisedLabel = "Uncategorised"
	UnknownLabel       = "Unknown"
)

// DriverEntry is one labelled net total.
type DriverEntry struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Drivers summarises what moved the balance: which categories brought cash
// in, which took it out, and the biggest net counterparties.
type Drivers struct {
	TopInflowsByCategory  []DriverEntry `json:"top_inflows_by_category"`
	TopOutflowsByCategory []DriverEntry `json:"top_outflows_by_category"`
	TopCounterparties     []DriverEntry `json:"top_counterparties"`
}

// TopDrivers sums net amounts across every row of tables (unfiltered) and
// returns the top n entries per view, rounded to cents.
func TopDrivers(tables []Table, n int) Drivers {
	byCategory := make(map[string]decimal.Decimal)
	byCounterparty := make(map[string]decimal.Decimal)
	for _, t := range tables {
		for _, tx := range t.Rows {
			cat := tx.Category
			if cat == "" {
				cat = UncategorisedLabel
			}
			cp := tx.Counterparty
			if cp == "" {
				cp = UnknownLabel
			}
			byCategory[cat] = byCategory[cat].Add(tx.Net())
			byCounterparty[cp] = byCounterparty[cp].Add(tx.Net())
		}
	}

	cats := sortedDesc(byCategory)
	var inflows, outflows []DriverEntry
	for _, e := range cats {
		if e.Amount.IsPositive() && len(inflows) < n {
			inflows = append(inflows, e)
		}
	}
	// Most negative first.
	for i := len(cats) - 1; i >= 0 && len(outflows) < n; i-- {
		if cats[i].Amount.IsNegative() {
			outflows = append(outflows, cats[i])
		}
	}

	cps := sortedDesc(byCounterparty)
	if len(cps) > n {
		cps = cps[:n]
	}

	return Drivers{
		TopInflowsByCategory:  inflows,
		TopOutflowsByCategory: outflows,
		TopCounterparties:     cps,
	}
}

func sortedDesc(totals map[string]decimal.Decimal) []DriverEntry {
	out := make([]DriverEntry, 0, len(totals))
	for label, amt := range totals {
		out = append(out, DriverEntry{Label: label, Amount: amt.Round(2)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Label < out[j].Label
	})
	return out
}
