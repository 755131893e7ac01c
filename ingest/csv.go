/*
Package ingest turns statement exports into canonical cashflow tables.

PURPOSE:
  Everything format-specific lives here so the core never sees a raw
  header or a currency symbol: column aliasing, number and date coercion,
  and locating the files for a branch (explicit list, directory glob,
  upload, or gs:// object).

COERCION RULES:
  - Headers match case-insensitively after trimming (and a UTF-8 BOM)
  - ZAR columns win over foreign-currency and plain aliases
  - Numbers: spaces, thousands separators and "R"/"ZAR" are stripped;
    "(12.50)" is -12.50; anything else unparseable becomes null
  - Debit and credit are stored as magnitudes
  - Unparseable dates leave the row with a zero date, which the Series
    Builder drops

SEE ALSO:
  - loader.go: source resolution and fingerprint metadata
  - cashflow/types.go: Transaction, Table
*/
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/cashflow"
)

// =============================================================================
// HEADER ALIASES
// =============================================================================

// columnAliases lists accepted headers per canonical column, best first.
var columnAliases = []struct {
	column  cashflow.Column
	aliases []string
}{
	{cashflow.ColDate, []string{"date", "txndate", "transaction date"}},
	{cashflow.ColDebit, []string{"debit_zar", "debit", "debit_fc", "withdrawal"}},
	{cashflow.ColCredit, []string{"credit_zar", "credit", "credit_fc", "deposit"}},
	{cashflow.ColBalance, []string{"balance_zar", "balance", "balance_fc"}},
	{cashflow.ColDescription, []string{"description", "narrative", "details"}},
	{cashflow.ColCategory, []string{"category"}},
	{cashflow.ColCounterparty, []string{"counterparty", "payee", "merchant"}},
}

// layout maps canonical columns to record indexes.
type layout struct {
	columns cashflow.ColumnSet
	index   map[cashflow.Column]int
}

func resolveHeader(header []string) layout {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := positions[h]; !dup {
			positions[h] = i
		}
	}

	l := layout{index: make(map[cashflow.Column]int)}
	for _, c := range columnAliases {
		for _, alias := range c.aliases {
			if i, ok := positions[alias]; ok {
				l.index[c.column] = i
				l.columns = l.columns.With(c.column)
				break
			}
		}
	}
	return l
}

func (l layout) field(record []string, c cashflow.Column) string {
	i, ok := l.index[c]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// =============================================================================
// DECODE
// =============================================================================

// Decode reads one CSV statement. Malformed CSV is an error; malformed
// values are not. An empty input yields a table with no columns.
func Decode(source string, r io.Reader) (cashflow.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	table := cashflow.Table{Source: source}
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return table, fmt.Errorf("read header: %w", err)
	}

	l := resolveHeader(header)
	table.Columns = l.columns

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table, fmt.Errorf("read row: %w", err)
		}
		table.Rows = append(table.Rows, l.transaction(record))
	}
	return table, nil
}

func (l layout) transaction(record []string) cashflow.Transaction {
	tx := cashflow.Transaction{
		Debit:        magnitude(ParseAmount(l.field(record, cashflow.ColDebit))),
		Credit:       magnitude(ParseAmount(l.field(record, cashflow.ColCredit))),
		Balance:      ParseAmount(l.field(record, cashflow.ColBalance)),
		Description:  l.field(record, cashflow.ColDescription),
		Category:     l.field(record, cashflow.ColCategory),
		Counterparty: l.field(record, cashflow.ColCounterparty),
	}
	if d, err := cashflow.ParseDate(l.field(record, cashflow.ColDate)); err == nil {
		tx.Date = d
	}
	return tx
}

func magnitude(m cashflow.Money) cashflow.Money {
	if !m.Valid {
		return m
	}
	return cashflow.MoneyFrom(m.Value.Abs())
}

// =============================================================================
// NUMBER COERCION
// =============================================================================

var amountCleaner = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	",", "",
	"ZAR", "",
	"zar", "",
	"R", "",
)

// ParseAmount coerces a statement amount. Failures return null.
func ParseAmount(s string) cashflow.Money {
	s = strings.TrimSpace(s)
	if s == "" {
		return cashflow.NullMoney
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountCleaner.Replace(s)
	if s == "" {
		return cashflow.NullMoney
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return cashflow.NullMoney
	}
	if negative {
		d = d.Neg()
	}
	return cashflow.MoneyFrom(d)
}
