package accounts

import "strconv"

// Classification buckets accounts for the balance sheet and income statement.
type Classification string

const (
	ClassCurrentAsset      Classification = "CURRENT_ASSET"
	ClassFixedAsset        Classification = "FIXED_ASSET"
	ClassCurrentLiability  Classification = "CURRENT_LIABILITY"
	ClassLongTermLiability Classification = "LONG_TERM_LIABILITY"
	ClassEquity            Classification = "EQUITY"
	ClassRevenue           Classification = "REVENUE"
	ClassExpense           Classification = "EXPENSE"
)

// CompatibleWith reports whether c may be assigned to an account of type t.
func (c Classification) CompatibleWith(t AccountType) bool {
	switch t {
	case AccountTypeAsset:
		return c == ClassCurrentAsset || c == ClassFixedAsset
	case AccountTypeLiability:
		return c == ClassCurrentLiability || c == ClassLongTermLiability
	case AccountTypeEquity:
		return c == ClassEquity
	case AccountTypeRevenue:
		return c == ClassRevenue
	case AccountTypeExpense:
		return c == ClassExpense
	}
	return false
}

// DefaultClassification derives a bucket from the legacy numeric code ranges:
// assets 1100-1499 current and 1500+ fixed, liabilities 2100-2399 current and 2400+
// long-term. Non-numeric codes fall back to the current bucket.
func DefaultClassification(code string, t AccountType) Classification {
	n, err := strconv.Atoi(code)
	switch t {
	case AccountTypeAsset:
		if err == nil && n >= 1500 {
			return ClassFixedAsset
		}
		return ClassCurrentAsset
	case AccountTypeLiability:
		if err == nil && n >= 2400 {
			return ClassLongTermLiability
		}
		return ClassCurrentLiability
	case AccountTypeEquity:
		return ClassEquity
	case AccountTypeRevenue:
		return ClassRevenue
	default:
		return ClassExpense
	}
}
