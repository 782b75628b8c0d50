package mappings

import (
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Integration modules and the keys they resolve.
const (
	ModuleSales    = "SALES"
	ModulePurchase = "PURCHASE"

	KeySalesReceivable = "sales.invoice.ar"
	KeySalesRevenue    = "sales.invoice.revenue"
	KeySalesTax        = "sales.invoice.tax"

	KeyPurchasePayable = "purchase.bill.ap"
	KeyPurchaseExpense = "purchase.bill.expense"
	KeyPurchaseTax     = "purchase.bill.tax"
)

// AccountMapping links an integration key to a ledger account of one company.
type AccountMapping struct {
	CompanyID int64     `json:"company_id"`
	Module    string    `json:"module"`
	Key       string    `json:"key"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetInput assigns an account to a module key.
type SetInput struct {
	Module    string `json:"module" validate:"required,max=64"`
	Key       string `json:"key" validate:"required,max=128"`
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
}

// Normalize trims the input, upper-cases the module and validates it.
func (in *SetInput) Normalize() error {
	in.Module = normalizeModule(in.Module)
	in.Key = strings.TrimSpace(in.Key)
	return shared.ValidateStruct(in)
}

func normalizeModule(module string) string {
	return strings.ToUpper(strings.TrimSpace(module))
}
