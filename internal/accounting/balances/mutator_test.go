package balances

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type fakeAccount struct {
	company int64
	credit  bool
	header  bool
	balance decimal.Decimal
}

type fakeStore struct {
	mu       sync.Mutex
	accounts map[int64]*fakeAccount
	order    []int64
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *float64:
			*p = r.values[i].(float64)
		case *bool:
			*p = r.values[i].(bool)
		}
	}
	return nil
}

func (s *fakeStore) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	company := args[0].(int64)
	id := args[1].(int64)
	acc, ok := s.accounts[id]
	if !ok || acc.company != company {
		return fakeRow{err: pgx.ErrNoRows}
	}
	if strings.HasPrefix(sql, "UPDATE") {
		if acc.header {
			return fakeRow{err: pgx.ErrNoRows}
		}
		delta := decimal.RequireFromString(args[2].(string))
		if acc.credit {
			delta = delta.Neg()
		}
		acc.balance = acc.balance.Add(delta)
		s.order = append(s.order, id)
		return fakeRow{values: []any{acc.balance.InexactFloat64()}}
	}
	return fakeRow{values: []any{acc.header}}
}

func newStore() *fakeStore {
	return &fakeStore{accounts: map[int64]*fakeAccount{
		1: {company: 1},
		2: {company: 1, credit: true},
		3: {company: 1, header: true},
		4: {company: 2},
	}}
}

func TestApplyIsNatureSigned(t *testing.T) {
	store := newStore()
	m := NewMutator()
	ctx := context.Background()

	bal, err := m.Apply(ctx, store, 1, 1, 1000)
	require.NoError(t, err)
	require.Equal(t, 1000.0, bal)

	bal, err = m.Apply(ctx, store, 1, 2, -1000)
	require.NoError(t, err)
	require.Equal(t, 1000.0, bal)
}

func TestApplyRejectsUnknownAndHeader(t *testing.T) {
	store := newStore()
	m := NewMutator()
	ctx := context.Background()

	_, err := m.Apply(ctx, store, 1, 99, 10)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)

	_, err = m.Apply(ctx, store, 1, 4, 10)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)

	_, err = m.Apply(ctx, store, 1, 3, 10)
	require.ErrorIs(t, err, shared.ErrHeaderAccount)
}

func TestApplyAllAggregatesInAccountOrder(t *testing.T) {
	store := newStore()
	m := NewMutator()

	out, err := m.ApplyAll(context.Background(), store, 1, []Change{
		{AccountID: 2, NetChange: -500},
		{AccountID: 1, NetChange: 300},
		{AccountID: 2, NetChange: -500},
		{AccountID: 1, NetChange: 700},
		{AccountID: 3, NetChange: 0.004},
		{AccountID: 3, NetChange: -0.004},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, store.order)
	require.Equal(t, 1000.0, out[1])
	require.Equal(t, 1000.0, out[2])
}

func TestConcurrentApplyLosesNoUpdates(t *testing.T) {
	store := newStore()
	m := NewMutator()
	var g errgroup.Group
	for i := 0; i < 200; i++ {
		g.Go(func() error {
			_, err := m.ApplyAll(context.Background(), store, 1, []Change{
				{AccountID: 1, NetChange: 1.25},
				{AccountID: 2, NetChange: -1.25},
			})
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.True(t, store.accounts[1].balance.Equal(decimal.NewFromInt(250)))
	require.True(t, store.accounts[2].balance.Equal(decimal.NewFromInt(250)))
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	forward := Aggregate([]Change{{1, 10.10}, {1, 20.20}, {1, -5.05}})
	backward := Aggregate([]Change{{1, -5.05}, {1, 20.20}, {1, 10.10}})
	require.Equal(t, forward, backward)
	require.Equal(t, 25.25, shared.Round2(forward[1]))
}
