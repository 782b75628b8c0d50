package integration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
)

func totals(lines []journals.LineInput) (debit, credit float64) {
	for _, l := range lines {
		debit += l.Debit
		credit += l.Credit
	}
	return debit, credit
}

func TestSalesLinesBalanceAndTagCustomer(t *testing.T) {
	lines := salesLines(salesAccounts{receivable: 1, revenue: 2, tax: 3}, 8, 99.995, 10.001)
	require.Len(t, lines, 3)
	debit, credit := totals(lines)
	require.InDelta(t, debit, credit, 0.001)
	require.NotNil(t, lines[0].PartnerType)
	require.Equal(t, journals.PartnerCustomer, *lines[0].PartnerType)
	require.Equal(t, int64(8), *lines[0].PartnerID)
}

func TestPurchaseLinesSkipZeroTax(t *testing.T) {
	lines := purchaseLines(purchaseAccounts{payable: 1, expense: 2, tax: 3}, 0, 50, 0)
	require.Len(t, lines, 2)
	require.Nil(t, lines[1].PartnerType)
	debit, credit := totals(lines)
	require.InDelta(t, 50, debit, 0.001)
	require.InDelta(t, 50, credit, 0.001)
}

func TestSourceRefIsStable(t *testing.T) {
	require.Equal(t, sourceRef(SourceSalesInvoice, 1, 5), sourceRef(SourceSalesInvoice, 1, 5))
	require.NotEqual(t, sourceRef(SourceSalesInvoice, 1, 5), sourceRef(SourcePurchaseBill, 1, 5))
	require.NotEqual(t, sourceRef(SourceSalesInvoice, 1, 5), sourceRef(SourceSalesInvoice, 2, 5))
}
