package reports

import (
	"sort"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// BalanceSheetAccount summarises an account inside a section.
type BalanceSheetAccount struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    float64               `json:"total"`
}

func (s *BalanceSheetSection) add(acc AccountBalance, normal accounts.Nature) {
	amount := shared.Round2(acc.SignedFor(normal))
	s.Accounts = append(s.Accounts, BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: amount})
	s.Total = shared.Sum(s.Total, amount)
}

func (s *BalanceSheetSection) sortAccounts() {
	sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].Code < s.Accounts[j].Code })
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	AsOf                      *time.Time          `json:"as_of,omitempty"`
	CurrentAssets             BalanceSheetSection `json:"current_assets"`
	FixedAssets               BalanceSheetSection `json:"fixed_assets"`
	CurrentLiabilities        BalanceSheetSection `json:"current_liabilities"`
	LongTermLiabilities       BalanceSheetSection `json:"long_term_liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	CurrentEarnings           float64             `json:"current_earnings"`
	TotalAssets               float64             `json:"total_assets"`
	TotalLiabilities          float64             `json:"total_liabilities"`
	TotalEquity               float64             `json:"total_equity"`
	TotalLiabilitiesAndEquity float64             `json:"total_liabilities_and_equity"`
	WorkingCapital            float64             `json:"working_capital"`
	CurrentRatio              float64             `json:"current_ratio"`
}

// Balanced reports whether assets equal liabilities plus equity within tolerance.
func (bs BalanceSheet) Balanced() bool {
	return shared.NearlyEqual(bs.TotalAssets, bs.TotalLiabilitiesAndEquity)
}

// BuildBalanceSheet buckets balances by classification. Revenue and expense balances are
// folded into equity as current earnings.
func BuildBalanceSheet(balances []AccountBalance) BalanceSheet {
	bs := BalanceSheet{
		CurrentAssets:       BalanceSheetSection{Label: "Current Assets"},
		FixedAssets:         BalanceSheetSection{Label: "Fixed Assets"},
		CurrentLiabilities:  BalanceSheetSection{Label: "Current Liabilities"},
		LongTermLiabilities: BalanceSheetSection{Label: "Long-term Liabilities"},
		Equity:              BalanceSheetSection{Label: "Equity"},
	}

	var earnings []float64
	for _, acc := range balances {
		class := acc.Classification
		if !class.CompatibleWith(acc.Type) {
			class = accounts.DefaultClassification(acc.Code, acc.Type)
		}
		switch class {
		case accounts.ClassCurrentAsset:
			bs.CurrentAssets.add(acc, accounts.NatureDebit)
		case accounts.ClassFixedAsset:
			bs.FixedAssets.add(acc, accounts.NatureDebit)
		case accounts.ClassCurrentLiability:
			bs.CurrentLiabilities.add(acc, accounts.NatureCredit)
		case accounts.ClassLongTermLiability:
			bs.LongTermLiabilities.add(acc, accounts.NatureCredit)
		case accounts.ClassEquity:
			bs.Equity.add(acc, accounts.NatureCredit)
		case accounts.ClassRevenue, accounts.ClassExpense:
			earnings = append(earnings, acc.SignedFor(accounts.NatureCredit))
		}
	}
	for _, s := range []*BalanceSheetSection{&bs.CurrentAssets, &bs.FixedAssets, &bs.CurrentLiabilities, &bs.LongTermLiabilities, &bs.Equity} {
		s.sortAccounts()
	}

	bs.CurrentEarnings = shared.Sum(earnings...)
	bs.TotalAssets = shared.Sum(bs.CurrentAssets.Total, bs.FixedAssets.Total)
	bs.TotalLiabilities = shared.Sum(bs.CurrentLiabilities.Total, bs.LongTermLiabilities.Total)
	bs.TotalEquity = shared.Sum(bs.Equity.Total, bs.CurrentEarnings)
	bs.TotalLiabilitiesAndEquity = shared.Sum(bs.TotalLiabilities, bs.TotalEquity)
	bs.WorkingCapital = shared.Round2(bs.CurrentAssets.Total - bs.CurrentLiabilities.Total)
	if bs.CurrentLiabilities.Total != 0 {
		bs.CurrentRatio = shared.Round2(bs.CurrentAssets.Total / bs.CurrentLiabilities.Total)
	}
	return bs
}
