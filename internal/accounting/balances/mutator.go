// Package balances applies posted net changes to stored account balances.
package balances

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Querier is the subset of pgx.Tx the mutator needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Change is a net movement (debit - credit) against one account.
type Change struct {
	AccountID int64
	NetChange float64
}

// Mutator increments balances with single-statement updates so concurrent postings
// against one account never lose an update.
type Mutator struct{}

// NewMutator constructs a Mutator.
func NewMutator() *Mutator {
	return &Mutator{}
}

const applySQL = `UPDATE accounts
SET balance = balance + CASE WHEN account_nature = 'CREDIT' THEN -$3::numeric ELSE $3::numeric END,
    updated_at = NOW()
WHERE company_id = $1 AND id = $2 AND is_header = FALSE
RETURNING balance::float8`

// Apply adds netChange to the account's nature-signed balance and returns the new balance.
func (m *Mutator) Apply(ctx context.Context, q Querier, companyID, accountID int64, netChange float64) (float64, error) {
	var balance float64
	err := q.QueryRow(ctx, applySQL, companyID, accountID, shared.ToNumeric(netChange)).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("apply balance to account %d: %w", accountID, err)
	}
	var isHeader bool
	err = q.QueryRow(ctx, `SELECT is_header FROM accounts WHERE company_id = $1 AND id = $2`, companyID, accountID).Scan(&isHeader)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("%w: %d", shared.ErrAccountNotFound, accountID)
	case err != nil:
		return 0, fmt.Errorf("lookup account %d: %w", accountID, err)
	case isHeader:
		return 0, fmt.Errorf("%w: %d", shared.ErrHeaderAccount, accountID)
	}
	return 0, fmt.Errorf("%w: %d", shared.ErrAccountNotFound, accountID)
}

// ApplyAll aggregates changes per account, drops zero nets, and applies them in ascending
// account id order. It returns the resulting balances keyed by account id.
func (m *Mutator) ApplyAll(ctx context.Context, q Querier, companyID int64, changes []Change) (map[int64]float64, error) {
	nets := Aggregate(changes)
	ids := make([]int64, 0, len(nets))
	for id := range nets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make(map[int64]float64, len(ids))
	for _, id := range ids {
		balance, err := m.Apply(ctx, q, companyID, id, nets[id])
		if err != nil {
			return nil, err
		}
		out[id] = balance
	}
	return out, nil
}

// Aggregate sums net changes per account with decimal arithmetic and drops accounts whose
// total rounds to zero.
func Aggregate(changes []Change) map[int64]float64 {
	sums := make(map[int64]decimal.Decimal, len(changes))
	for _, c := range changes {
		sums[c.AccountID] = sums[c.AccountID].Add(decimal.NewFromFloat(c.NetChange))
	}
	out := make(map[int64]float64, len(sums))
	for id, sum := range sums {
		sum = sum.Round(2)
		if sum.IsZero() {
			continue
		}
		out[id] = sum.InexactFloat64()
	}
	return out
}
