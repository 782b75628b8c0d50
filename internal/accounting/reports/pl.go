package reports

import (
	"math"
	"sort"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ProfitAndLossSection groups accounts by type.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    float64                `json:"total"`
}

// DocumentTotals sums sales and purchase documents over a date range.
type DocumentTotals struct {
	Sales     float64 `json:"sales"`
	Purchases float64 `json:"purchases"`
}

// IncomeStatement contains the ledger-derived figures and the document cross-check.
type IncomeStatement struct {
	From              time.Time            `json:"from"`
	To                time.Time            `json:"to"`
	Revenue           ProfitAndLossSection `json:"revenue"`
	Expense           ProfitAndLossSection `json:"expense"`
	NetIncome         float64              `json:"net_income"`
	Documents         DocumentTotals       `json:"documents"`
	DocumentNetIncome float64              `json:"document_net_income"`
	Difference        float64              `json:"difference"`
	Consistent        bool                 `json:"consistent"`
}

// BuildIncomeStatement aggregates revenue and expense balances at absolute value and compares
// the resulting net income with the one implied by sales and purchase documents.
func BuildIncomeStatement(balances []AccountBalance, docs DocumentTotals) IncomeStatement {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range balances {
		row := ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: shared.Round2(math.Abs(acc.Balance))}
		switch acc.Type {
		case accounts.AccountTypeRevenue:
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = shared.Sum(revenue.Total, row.Amount)
		case accounts.AccountTypeExpense:
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = shared.Sum(expense.Total, row.Amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	out := IncomeStatement{
		Revenue:           revenue,
		Expense:           expense,
		NetIncome:         shared.Round2(revenue.Total - expense.Total),
		Documents:         docs,
		DocumentNetIncome: shared.Round2(docs.Sales - docs.Purchases),
	}
	out.Difference = shared.Round2(out.NetIncome - out.DocumentNetIncome)
	out.Consistent = shared.NearlyEqual(out.NetIncome, out.DocumentNetIncome)
	return out
}
