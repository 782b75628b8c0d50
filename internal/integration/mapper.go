package integration

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Source modules stamped on auto-generated entries.
const (
	SourceSalesInvoice = "SALES.INVOICE"
	SourcePurchaseBill = "PURCHASE.BILL"
)

var sourceNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("odyssey-ledger.integration"))

// sourceRef derives a stable reference so that redelivered events map to the same entry.
func sourceRef(module string, companyID, id int64) string {
	return uuid.NewSHA1(sourceNamespace, []byte(fmt.Sprintf("%s:%d:%d", module, companyID, id))).String()
}

type salesAccounts struct {
	receivable int64
	revenue    int64
	tax        int64
}

func salesLines(acc salesAccounts, customerID int64, subtotal, tax float64) []journals.LineInput {
	subtotal, tax = shared.Round2(subtotal), shared.Round2(tax)
	total := shared.Sum(subtotal, tax)
	lines := []journals.LineInput{
		withPartner(journals.LineInput{AccountID: acc.receivable, Debit: total}, journals.PartnerCustomer, customerID),
		{AccountID: acc.revenue, Credit: subtotal},
	}
	if tax > 0 {
		lines = append(lines, journals.LineInput{AccountID: acc.tax, Credit: tax})
	}
	return lines
}

type purchaseAccounts struct {
	payable int64
	expense int64
	tax     int64
}

func purchaseLines(acc purchaseAccounts, supplierID int64, subtotal, tax float64) []journals.LineInput {
	subtotal, tax = shared.Round2(subtotal), shared.Round2(tax)
	total := shared.Sum(subtotal, tax)
	lines := []journals.LineInput{
		{AccountID: acc.expense, Debit: subtotal},
	}
	if tax > 0 {
		lines = append(lines, journals.LineInput{AccountID: acc.tax, Debit: tax})
	}
	return append(lines, withPartner(journals.LineInput{AccountID: acc.payable, Credit: total}, journals.PartnerSupplier, supplierID))
}

func withPartner(line journals.LineInput, kind journals.PartnerType, id int64) journals.LineInput {
	if id <= 0 {
		return line
	}
	line.PartnerType = &kind
	line.PartnerID = &id
	return line
}
