package journals_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/testing/ledgerstore"
)

const (
	company = int64(1)
	actor   = int64(7)
)

type fixture struct {
	store   *ledgerstore.Store
	svc     *journals.Service
	periods *periods.Service
	cash    accounts.Account
	sales   accounts.Account
	expense accounts.Account
	header  accounts.Account
	metrics *recordingMetrics
	cache   *recordingCache
}

type recordingMetrics struct {
	mu        sync.Mutex
	posted    int
	reversals []string
}

func (m *recordingMetrics) JournalPosted(bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted++
}

func (m *recordingMetrics) JournalReversed(policy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reversals = append(m.reversals, policy)
}

type recordingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *recordingCache) Invalidate(context.Context, int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func newFixture(t *testing.T, opts journals.Options) *fixture {
	t.Helper()
	store := ledgerstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		store:   store,
		metrics: &recordingMetrics{},
		cache:   &recordingCache{},
	}
	f.svc = journals.NewService(store.Journals(), opts, nil, logger).WithMetrics(f.metrics).WithCache(f.cache)
	f.svc.WithNow(func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) })
	f.periods = periods.NewService(store.Periods(), nil, nil, logger)
	f.header = store.AddAccount(accounts.Account{CompanyID: company, Code: "1000", Name: "Assets", Type: accounts.AccountTypeAsset, IsHeader: true})
	f.cash = store.AddAccount(accounts.Account{CompanyID: company, Code: "1100", Name: "Cash", Type: accounts.AccountTypeAsset})
	f.sales = store.AddAccount(accounts.Account{CompanyID: company, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue})
	f.expense = store.AddAccount(accounts.Account{CompanyID: company, Code: "5000", Name: "Rent", Type: accounts.AccountTypeExpense})
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) sale(date time.Time, amount float64) journals.CreateInput {
	return journals.CreateInput{
		EntryDate:   date,
		Description: "cash sale",
		Lines: []journals.LineInput{
			{AccountID: f.cash.ID, Debit: amount},
			{AccountID: f.sales.ID, Credit: amount},
		},
	}
}

func TestCreateDraftNumbersSequentially(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	first, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 100))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 16), 100))
	require.NoError(t, err)

	require.Equal(t, journals.JournalStatusDraft, first.Status)
	require.Equal(t, int64(1), first.Number)
	require.Equal(t, int64(2), second.Number)
	require.Len(t, first.Lines, 2)
	require.Zero(t, f.store.Balance(f.cash.ID))

	other, err := f.svc.Create(ctx, 2, actor, journals.CreateInput{
		EntryDate: day(2025, 1, 15),
		Lines:     []journals.LineInput{{AccountID: f.cash.ID, Debit: 1}},
	})
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
	require.Zero(t, other.ID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	cases := []struct {
		name string
		in   journals.CreateInput
		want error
	}{
		{"no date", journals.CreateInput{Lines: []journals.LineInput{{AccountID: f.cash.ID, Debit: 1}}}, shared.ErrMissingField},
		{"no lines", journals.CreateInput{EntryDate: day(2025, 1, 1)}, shared.ErrMissingField},
		{"negative", journals.CreateInput{EntryDate: day(2025, 1, 1), Lines: []journals.LineInput{{AccountID: f.cash.ID, Debit: -1}}}, shared.ErrInvalidLine},
		{"two sided", journals.CreateInput{EntryDate: day(2025, 1, 1), Lines: []journals.LineInput{{AccountID: f.cash.ID, Debit: 1, Credit: 1}}}, shared.ErrInvalidLine},
		{"header", journals.CreateInput{EntryDate: day(2025, 1, 1), Lines: []journals.LineInput{{AccountID: f.header.ID, Debit: 1}}}, shared.ErrHeaderAccount},
		{"unknown", journals.CreateInput{EntryDate: day(2025, 1, 1), Lines: []journals.LineInput{{AccountID: 999, Debit: 1}}}, shared.ErrAccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, company, actor, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.Create(ctx, company, actor, journals.CreateInput{
		EntryDate: day(2025, 1, 1),
		Lines:     []journals.LineInput{{AccountID: f.cash.ID, Debit: 5}},
	})
	require.NoError(t, err, "drafts may be unbalanced")
}

func TestPostAppliesNatureSignedBalancesOnce(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 1000))
	require.NoError(t, err)

	posted, err := f.svc.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	require.Equal(t, actor, *posted.PostedBy)
	require.NotNil(t, posted.PostedAt)
	require.Equal(t, 1000.0, f.store.Balance(f.cash.ID))
	require.Equal(t, 1000.0, f.store.Balance(f.sales.ID))

	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.ErrorIs(t, err, shared.ErrStateConflict)
	require.Equal(t, 1000.0, f.store.Balance(f.cash.ID))
	require.Equal(t, 1, f.metrics.posted)
	require.Equal(t, 1, f.cache.calls)
}

func TestPostRequiresBalancedLinesWhenConfigured(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, company, actor, journals.CreateInput{
		EntryDate: day(2025, 1, 15),
		Lines: []journals.LineInput{
			{AccountID: f.cash.ID, Debit: 100},
			{AccountID: f.sales.ID, Credit: 90},
		},
	})
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	require.Zero(t, f.store.Balance(f.cash.ID))

	lenient := journals.NewService(f.store.Journals(), journals.Options{RequireBalanced: false}, nil, nil)
	_, err = lenient.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, f.store.Balance(f.cash.ID))
	require.Equal(t, 90.0, f.store.Balance(f.sales.ID))
}

func TestPostRollsBackWhenAnyLineFails(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 250))
	require.NoError(t, err)

	f.store.FailOn(f.sales.ID)
	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.ErrorIs(t, err, ledgerstore.ErrInjected)

	require.Zero(t, f.store.Balance(f.cash.ID))
	current, err := f.svc.Get(ctx, company, draft.ID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusDraft, current.Status)
}

func TestPostIntoClosedPeriodIsRejected(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	year, err := f.periods.CreateYear(ctx, company, actor, 2025)
	require.NoError(t, err)
	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 10), 10))
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)
	_, err = f.periods.Close(ctx, company, actor, year[0].ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 20), 10))
	require.ErrorIs(t, err, shared.ErrPeriodClosed)

	_, err = f.periods.Reopen(ctx, company, actor, year[0].ID)
	require.NoError(t, err)
	late, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 20), 10))
	require.NoError(t, err)

	_, err = f.periods.Close(ctx, company, actor, year[0].ID)
	require.ErrorIs(t, err, shared.ErrUnpostedEntries)

	_, err = f.svc.Post(ctx, company, actor, late.ID)
	require.NoError(t, err)
	require.Equal(t, 20.0, f.store.Balance(f.cash.ID))
}

func TestEditGuards(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 100))
	require.NoError(t, err)

	edited, err := f.svc.Edit(ctx, company, actor, draft.ID, journals.EditInput{
		EntryDate:   day(2025, 1, 16),
		Description: "rent",
		Lines: []journals.LineInput{
			{AccountID: f.expense.ID, Debit: 40},
			{AccountID: f.cash.ID, Credit: 40},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "rent", edited.Description)
	require.Len(t, edited.Lines, 2)
	require.Equal(t, 2, f.store.LineCount(draft.ID))

	reloaded, err := f.svc.Get(ctx, company, draft.ID)
	require.NoError(t, err)
	require.Equal(t, f.expense.ID, reloaded.Lines[0].AccountID)
	require.Equal(t, day(2025, 1, 16), reloaded.EntryDate)

	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)
	_, err = f.svc.Edit(ctx, company, actor, draft.ID, f.sale(day(2025, 1, 15), 1))
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	auto, err := f.svc.CreateAuto(ctx, company, actor, journals.AutoInput{
		CreateInput:  f.sale(day(2025, 1, 20), 10),
		SourceModule: "sales",
		SourceRef:    "INV-1",
	})
	require.NoError(t, err)
	require.True(t, auto.IsAutoGenerated)
	_, err = f.svc.Edit(ctx, company, actor, auto.ID, f.sale(day(2025, 1, 20), 11))
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = f.svc.Post(ctx, company, actor, auto.ID)
	require.NoError(t, err, "auto-generated entries may still be posted")
}

func TestDeleteGuards(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 100))
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, company, actor, draft.ID))
	require.Zero(t, f.store.LineCount(draft.ID))
	_, err = f.svc.Get(ctx, company, draft.ID)
	require.ErrorIs(t, err, shared.ErrJournalNotFound)

	posted, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 100))
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, company, actor, posted.ID)
	require.NoError(t, err)
	err = f.svc.Delete(ctx, company, actor, posted.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Equal(t, 2, f.store.LineCount(posted.ID))

	auto, err := f.svc.CreateAuto(ctx, company, actor, journals.AutoInput{
		CreateInput:  f.sale(day(2025, 1, 20), 10),
		SourceModule: "sales",
		SourceRef:    "INV-9",
	})
	require.NoError(t, err)
	err = f.svc.Delete(ctx, company, actor, auto.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	err = f.svc.Delete(ctx, company, actor, 999)
	require.ErrorIs(t, err, shared.ErrJournalNotFound)
}

func TestReverseMirrorRestoresBalances(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 300))
	require.NoError(t, err)
	_, _, err = f.svc.Reverse(ctx, company, actor, draft.ID, journals.ReverseInput{})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)

	original, reversal, err := f.svc.Reverse(ctx, company, actor, draft.ID, journals.ReverseInput{})
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusReversed, original.Status)
	require.NotNil(t, reversal)
	require.True(t, reversal.IsAutoGenerated)
	require.Equal(t, journals.JournalStatusPosted, reversal.Status)
	require.Equal(t, draft.ID, *reversal.ReversalOfID)
	require.Equal(t, reversal.ID, *original.ReversalEntryID)
	require.Equal(t, "Reversal of JE 1", reversal.Description)
	require.Equal(t, 300.0, reversal.Lines[0].Credit)
	require.Equal(t, 300.0, reversal.Lines[1].Debit)

	require.Zero(t, f.store.Balance(f.cash.ID))
	require.Zero(t, f.store.Balance(f.sales.ID))

	_, _, err = f.svc.Reverse(ctx, company, actor, draft.ID, journals.ReverseInput{})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	require.Equal(t, []string{"mirror"}, f.metrics.reversals)
}

func TestReverseMovesIntoNextOpenPeriod(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	year, err := f.periods.CreateYear(ctx, company, actor, 2025)
	require.NoError(t, err)
	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 50))
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)
	_, err = f.periods.Close(ctx, company, actor, year[0].ID)
	require.NoError(t, err)

	_, reversal, err := f.svc.Reverse(ctx, company, actor, draft.ID, journals.ReverseInput{Description: "undo"})
	require.NoError(t, err)
	require.Equal(t, day(2025, 2, 1), reversal.EntryDate)
	require.Equal(t, "undo", reversal.Description)
	require.Zero(t, f.store.Balance(f.cash.ID))
}

func TestReverseFailsWithoutAnyOpenPeriod(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	year, err := f.periods.CreateYear(ctx, company, actor, 2025)
	require.NoError(t, err)
	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 12, 15), 50))
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)
	for _, p := range year {
		_, err := f.periods.Close(ctx, company, actor, p.ID)
		require.NoError(t, err)
	}

	_, _, err = f.svc.Reverse(ctx, company, actor, draft.ID, journals.ReverseInput{})
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
	current, err := f.svc.Get(ctx, company, draft.ID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusPosted, current.Status)
	require.Equal(t, 50.0, f.store.Balance(f.cash.ID))
}

func TestReverseLabelOnlyFlipsStatus(t *testing.T) {
	f := newFixture(t, journals.Options{ReversalPolicy: journals.ReversalLabel, RequireBalanced: true})
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 300))
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, company, actor, draft.ID)
	require.NoError(t, err)

	original, reversal, err := f.svc.Reverse(ctx, company, actor, draft.ID, journals.ReverseInput{})
	require.NoError(t, err)
	require.Nil(t, reversal)
	require.Equal(t, journals.JournalStatusReversed, original.Status)
	require.Equal(t, 300.0, f.store.Balance(f.cash.ID))
}

func TestCreateAutoPostsAndDeduplicatesSource(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	in := journals.AutoInput{
		CreateInput:  f.sale(day(2025, 1, 15), 75),
		SourceModule: "sales",
		SourceRef:    "INV-42",
		Post:         true,
	}
	entry, err := f.svc.CreateAuto(ctx, company, actor, in)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusPosted, entry.Status)
	require.Equal(t, 75.0, f.store.Balance(f.cash.ID))

	_, err = f.svc.CreateAuto(ctx, company, actor, in)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
	require.Equal(t, 75.0, f.store.Balance(f.cash.ID))

	_, err = f.svc.CreateAuto(ctx, company, actor, journals.AutoInput{CreateInput: f.sale(day(2025, 1, 15), 1)})
	require.ErrorIs(t, err, shared.ErrMissingField)
}

func TestConcurrentPostingsLoseNoUpdates(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	const n = 40
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 12.5))
		require.NoError(t, err)
		ids = append(ids, draft.ID)
	}

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := f.svc.Post(ctx, company, actor, id)
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, 500.0, f.store.Balance(f.cash.ID))
	require.Equal(t, 500.0, f.store.Balance(f.sales.ID))
}

func TestListFiltersAndPages(t *testing.T) {
	f := newFixture(t, journals.DefaultOptions())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		draft, err := f.svc.Create(ctx, company, actor, f.sale(day(2025, 1, 15), 1))
		require.NoError(t, err)
		if i%2 == 0 {
			_, err = f.svc.Post(ctx, company, actor, draft.ID)
			require.NoError(t, err)
		}
	}

	posted, page, err := f.svc.List(ctx, company, journals.ListFilter{Status: journals.JournalStatusPosted})
	require.NoError(t, err)
	require.Len(t, posted, 3)
	require.Equal(t, 3, page.Total)

	firstPage, page, err := f.svc.List(ctx, company, journals.ListFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	require.Equal(t, int64(5), firstPage[0].Number)
	require.Equal(t, 3, page.TotalPages)

	_, _, err = f.svc.List(ctx, company, journals.ListFilter{Status: "VOID"})
	require.ErrorIs(t, err, shared.ErrInvalidField)
}
