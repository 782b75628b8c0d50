package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Nature is the side on which an account's balance normally increases.
type Nature string

const (
	NatureDebit  Nature = "DEBIT"
	NatureCredit Nature = "CREDIT"
)

// Valid reports whether n is a known nature.
func (n Nature) Valid() bool {
	return n == NatureDebit || n == NatureCredit
}

// DefaultNature returns the conventional nature for an account type.
func DefaultNature(t AccountType) Nature {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return NatureDebit
	}
	return NatureCredit
}

// Account models a chart of accounts node. Balance is nature-signed: a debit-natured
// account holding 100 more debits than credits and a credit-natured account holding
// 100 more credits than debits both store +100.
type Account struct {
	ID             int64          `json:"id"`
	CompanyID      int64          `json:"company_id"`
	Code           string         `json:"code"`
	Name           string         `json:"name"`
	LocalizedName  string         `json:"localized_name,omitempty"`
	Type           AccountType    `json:"account_type"`
	Nature         Nature         `json:"account_nature"`
	Classification Classification `json:"classification"`
	IsHeader       bool           `json:"is_header"`
	ParentID       *int64         `json:"parent_id,omitempty"`
	Balance        float64        `json:"balance"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Postable reports whether journal lines may target the account.
func (a Account) Postable() bool {
	return !a.IsHeader && a.IsActive
}

// ListFilter narrows List results.
type ListFilter struct {
	Type           AccountType
	ParentID       *int64
	IncludeHeaders bool
}
