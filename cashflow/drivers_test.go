package cashflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/cashflow"
)

func TestTopDrivers_SplitsInflowsAndOutflows(t *testing.T) {
	rows := []cashflow.Transaction{
		{Date: day(1), Credit: cashflow.NewMoney(5000), Category: "Sales", Counterparty: "Acme"},
		{Date: day(2), Credit: cashflow.NewMoney(300), Category: "Interest"},
		{Date: day(3), Debit: cashflow.NewMoney(1200), Category: "Rent", Counterparty: "Landlord"},
		{Date: day(4), Debit: cashflow.NewMoney(80.555), Counterparty: "Cafe"},
		{Date: day(5), Debit: cashflow.NewMoney(400), Category: "Rent", Counterparty: "Landlord"},
	}

	drivers := cashflow.TopDrivers([]cashflow.Table{cashflow.NewTable("x", rows)}, 5)

	require.Len(t, drivers.TopInflowsByCategory, 2)
	assert.Equal(t, "Sales", drivers.TopInflowsByCategory[0].Label)
	assert.Equal(t, "Interest", drivers.TopInflowsByCategory[1].Label)

	require.Len(t, drivers.TopOutflowsByCategory, 2)
	assert.Equal(t, "Rent", drivers.TopOutflowsByCategory[0].Label)
	assert.Equal(t, "-1600", drivers.TopOutflowsByCategory[0].Amount.String())
	assert.Equal(t, cashflow.UncategorisedLabel, drivers.TopOutflowsByCategory[1].Label)
	assert.Equal(t, "-80.56", drivers.TopOutflowsByCategory[1].Amount.String())

	require.Len(t, drivers.TopCounterparties, 4)
	assert.Equal(t, "Acme", drivers.TopCounterparties[0].Label)
	assert.Equal(t, cashflow.UnknownLabel, drivers.TopCounterparties[1].Label)
	assert.Equal(t, "Landlord", drivers.TopCounterparties[3].Label)
}

func TestTopDrivers_TruncatesToN(t *testing.T) {
	var rows []cashflow.Transaction
	for i, cat := range []string{"a", "b", "c", "d"} {
		rows = append(rows, cashflow.Transaction{Date: day(1), Credit: cashflow.NewMoney(float64(i + 1)), Category: cat})
	}

	drivers := cashflow.TopDrivers([]cashflow.Table{cashflow.NewTable("x", rows)}, 2)
	require.Len(t, drivers.TopInflowsByCategory, 2)
	assert.Equal(t, "d", drivers.TopInflowsByCategory[0].Label)
	assert.Empty(t, drivers.TopOutflowsByCategory)
}
