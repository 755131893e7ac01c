package ingest_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/cashflow"
	"github.com/warp/cashflow-engine/ingest"
)

func TestDecode_CanonicalHeaders(t *testing.T) {
	csv := "Date,Description,Debit_ZAR,Credit_ZAR,Balance_ZAR,Category,Counterparty\n" +
		"2025-03-01,Opening,,,\"10,000.00\",,\n" +
		"2025-03-02,Rent,\"R 1 500.00\",,,Property,Acme\n" +
		"2025-03-03,Sales,,2500,,Income,Walk-in\n"

	table, err := ingest.Decode("stmt.csv", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "stmt.csv", table.Source)
	assert.Equal(t, cashflow.AllColumns, table.Columns)
	require.Len(t, table.Rows, 3)

	assert.Equal(t, cashflow.NewDate(2025, time.March, 1), table.Rows[0].Date)
	assert.Equal(t, "10000", table.Rows[0].Balance.String())
	assert.False(t, table.Rows[0].Debit.Valid)

	rent := table.Rows[1]
	assert.Equal(t, "1500", rent.Debit.String())
	assert.Equal(t, "Property", rent.Category)
	assert.Equal(t, "Acme", rent.Counterparty)
	assert.Equal(t, "-1500", rent.Net().String())

	assert.Equal(t, "2500", table.Rows[2].Credit.String())
}

func TestDecode_HeaderAliases(t *testing.T) {
	// GIVEN: A bank export with TxnDate/Withdrawal/Deposit/Narrative/Payee
	csv := "TxnDate, Narrative ,Withdrawal,Deposit,Payee\n" +
		"02/03/2025,Coffee,45.50,,Bean There\n"

	table, err := ingest.Decode("export.csv", strings.NewReader(csv))
	require.NoError(t, err)

	cols := table.Columns
	assert.True(t, cols.Has(cashflow.ColDate))
	assert.True(t, cols.Has(cashflow.ColDebit))
	assert.True(t, cols.Has(cashflow.ColCredit))
	assert.True(t, cols.Has(cashflow.ColDescription))
	assert.True(t, cols.Has(cashflow.ColCounterparty))
	assert.False(t, cols.Has(cashflow.ColBalance))
	assert.False(t, cols.Has(cashflow.ColCategory))

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, cashflow.NewDate(2025, time.March, 2), row.Date)
	assert.Equal(t, "Coffee", row.Description)
	assert.Equal(t, "45.5", row.Debit.String())
	assert.Equal(t, "Bean There", row.Counterparty)
}

func TestDecode_ZARColumnsWin(t *testing.T) {
	csv := "Date,Debit_FC,Debit_ZAR,Credit_FC,Credit_ZAR,Balance_FC,Balance_ZAR\n" +
		"2025-03-01,10,185,0,0,100,1850\n"

	table, err := ingest.Decode("fx.csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "185", table.Rows[0].Debit.String())
	assert.Equal(t, "1850", table.Rows[0].Balance.String())
}

func TestDecode_BadValuesBecomeNull(t *testing.T) {
	csv := "\ufeffDate,Debit,Credit\n" +
		"not-a-date,12,\n" +
		"2025-03-04,n/a,(30.00)\n"

	table, err := ingest.Decode("messy.csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	assert.True(t, table.Rows[0].Date.IsZero())
	assert.False(t, table.Rows[1].Debit.Valid)
	assert.Equal(t, "30", table.Rows[1].Credit.String(), "credits are stored as magnitudes")
}

func TestDecode_EmptyInput(t *testing.T) {
	table, err := ingest.Decode("empty.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Equal(t, cashflow.ColumnSet(0), table.Columns)
}

func TestDecode_ShortRecords(t *testing.T) {
	table, err := ingest.Decode("short.csv", strings.NewReader("Date,Debit,Credit,Description\n2025-03-01,5\n"))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "5", table.Rows[0].Debit.String())
	assert.False(t, table.Rows[0].Credit.Valid)
	assert.Empty(t, table.Rows[0].Description)
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1234.56":             "1234.56",
		"1,234.56":            "1234.56",
		"R1 234.56":           "1234.56",
		"ZAR 99":              "99",
		"(12.50)":             "-12.5",
		"(R 1,000.00)":        "-1000",
		"-7":                  "-7",
		"1\u00a0000\u00a0000": "1000000",
	}
	for in, want := range cases {
		m := ingest.ParseAmount(in)
		require.True(t, m.Valid, in)
		assert.Equal(t, want, m.Value.String(), in)
	}

	for _, in := range []string{"", "  ", "abc", "R", "()", "12.3.4"} {
		assert.False(t, ingest.ParseAmount(in).Valid, in)
	}
}
