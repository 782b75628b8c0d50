package reports

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// AccountBalance is a postable account with its nature-signed balance at a point in time.
type AccountBalance struct {
	ID             int64                   `json:"id"`
	Code           string                  `json:"code"`
	Name           string                  `json:"name"`
	Type           accounts.AccountType    `json:"account_type"`
	Nature         accounts.Nature         `json:"account_nature"`
	Classification accounts.Classification `json:"classification"`
	Balance        float64                 `json:"balance"`
}

// DebitSigned returns the balance expressed as debit minus credit.
func (a AccountBalance) DebitSigned() float64 {
	if a.Nature == accounts.NatureCredit {
		return -a.Balance
	}
	return a.Balance
}

// SignedFor returns the balance as seen by a section whose normal side is normal.
// Contra accounts come out negative.
func (a AccountBalance) SignedFor(normal accounts.Nature) float64 {
	if a.Nature == normal {
		return a.Balance
	}
	return -a.Balance
}

// GroupKey returns a key used for grouping trial balance rows.
func (a AccountBalance) GroupKey() string {
	if idx := strings.Index(a.Code, "."); idx > 0 {
		return a.Code[:idx]
	}
	if len(a.Code) >= 2 {
		return a.Code[:2]
	}
	return a.Code
}

// TrialBalanceRow places an account balance in the debit or credit column.
type TrialBalanceRow struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"account_type"`
	Nature    accounts.Nature      `json:"account_nature"`
	Debit     float64              `json:"debit"`
	Credit    float64              `json:"credit"`
}

// TrialBalanceGroup aggregates rows sharing a code prefix.
type TrialBalanceGroup struct {
	Key    string            `json:"key"`
	Rows   []TrialBalanceRow `json:"rows"`
	Debit  float64           `json:"debit"`
	Credit float64           `json:"credit"`
}

// TrialBalance lists every postable account split into debit and credit columns.
type TrialBalance struct {
	AsOf        *time.Time          `json:"as_of,omitempty"`
	Groups      []TrialBalanceGroup `json:"groups"`
	TotalDebit  float64             `json:"total_debit"`
	TotalCredit float64             `json:"total_credit"`
	Difference  float64             `json:"difference"`
}

// Balanced reports whether the debit and credit columns agree within tolerance.
func (tb TrialBalance) Balanced() bool {
	return shared.NearlyEqual(tb.TotalDebit, tb.TotalCredit)
}

// Rows flattens the groups in code order.
func (tb TrialBalance) Rows() []TrialBalanceRow {
	var out []TrialBalanceRow
	for _, g := range tb.Groups {
		out = append(out, g.Rows...)
	}
	return out
}

// SplitBalance places a nature-signed balance in the debit or credit column.
func SplitBalance(nature accounts.Nature, balance float64) (debit, credit float64) {
	positive := balance >= 0
	amount := shared.Round2(math.Abs(balance))
	if nature == accounts.NatureCredit {
		positive = !positive
	}
	if positive {
		return amount, 0
	}
	return 0, amount
}

// BuildTrialBalance converts account balances into grouped trial balance data. Zero balances
// are skipped unless includeZero is set.
func BuildTrialBalance(balances []AccountBalance, includeZero bool) TrialBalance {
	groups := make(map[string]*TrialBalanceGroup)
	keys := make([]string, 0)
	var debits, credits []float64
	for _, acc := range balances {
		if !includeZero && shared.Round2(acc.Balance) == 0 {
			continue
		}
		debit, credit := SplitBalance(acc.Nature, acc.Balance)
		key := acc.GroupKey()
		grp, ok := groups[key]
		if !ok {
			grp = &TrialBalanceGroup{Key: key}
			groups[key] = grp
			keys = append(keys, key)
		}
		grp.Rows = append(grp.Rows, TrialBalanceRow{
			AccountID: acc.ID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      acc.Type,
			Nature:    acc.Nature,
			Debit:     debit,
			Credit:    credit,
		})
		grp.Debit = shared.Sum(grp.Debit, debit)
		grp.Credit = shared.Sum(grp.Credit, credit)
		debits = append(debits, debit)
		credits = append(credits, credit)
	}

	sort.Strings(keys)
	result := TrialBalance{Groups: make([]TrialBalanceGroup, 0, len(keys))}
	for _, key := range keys {
		grp := groups[key]
		sort.Slice(grp.Rows, func(i, j int) bool {
			return grp.Rows[i].Code < grp.Rows[j].Code
		})
		result.Groups = append(result.Groups, *grp)
	}
	result.TotalDebit = shared.Sum(debits...)
	result.TotalCredit = shared.Sum(credits...)
	result.Difference = shared.Round2(result.TotalDebit - result.TotalCredit)
	return result
}
