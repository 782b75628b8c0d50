package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/testing/ledgerstore"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const company = int64(1)

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdempotency) CheckAndInsert(_ context.Context, companyID int64, key, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	k := fmt.Sprintf("%d:%s", companyID, key)
	if m.keys[k] {
		return internalShared.ErrIdempotencyConflict
	}
	m.keys[k] = true
	return nil
}

func (m *memIdempotency) Delete(_ context.Context, companyID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, fmt.Sprintf("%d:%s", companyID, key))
	return nil
}

func (m *memIdempotency) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

type fixture struct {
	store    *ledgerstore.Store
	journals *journals.Service
	hooks    *integration.Hooks
	idem     *memIdempotency
	ar       accounts.Account
	revenue  accounts.Account
	vatOut   accounts.Account
	ap       accounts.Account
	expense  accounts.Account
	vatIn    accounts.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledgerstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{store: store, idem: &memIdempotency{}}
	f.ar = store.AddAccount(accounts.Account{CompanyID: company, Code: "1200", Name: "Receivables", Type: accounts.AccountTypeAsset})
	f.vatIn = store.AddAccount(accounts.Account{CompanyID: company, Code: "1400", Name: "VAT In", Type: accounts.AccountTypeAsset})
	f.ap = store.AddAccount(accounts.Account{CompanyID: company, Code: "2100", Name: "Payables", Type: accounts.AccountTypeLiability})
	f.vatOut = store.AddAccount(accounts.Account{CompanyID: company, Code: "2300", Name: "VAT Out", Type: accounts.AccountTypeLiability})
	f.revenue = store.AddAccount(accounts.Account{CompanyID: company, Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue})
	f.expense = store.AddAccount(accounts.Account{CompanyID: company, Code: "5000", Name: "Purchases", Type: accounts.AccountTypeExpense})

	maps := mappings.NewService(store.Mappings(), store.Accounts(), nil, logger)
	for _, in := range []mappings.SetInput{
		{Module: mappings.ModuleSales, Key: mappings.KeySalesReceivable, AccountID: f.ar.ID},
		{Module: mappings.ModuleSales, Key: mappings.KeySalesRevenue, AccountID: f.revenue.ID},
		{Module: mappings.ModuleSales, Key: mappings.KeySalesTax, AccountID: f.vatOut.ID},
		{Module: mappings.ModulePurchase, Key: mappings.KeyPurchasePayable, AccountID: f.ap.ID},
		{Module: mappings.ModulePurchase, Key: mappings.KeyPurchaseExpense, AccountID: f.expense.ID},
		{Module: mappings.ModulePurchase, Key: mappings.KeyPurchaseTax, AccountID: f.vatIn.ID},
	} {
		_, err := maps.Set(context.Background(), company, 1, in)
		require.NoError(t, err)
	}
	f.journals = journals.NewService(store.Journals(), journals.DefaultOptions(), nil, logger)
	f.hooks = integration.NewHooks(f.journals, maps, f.idem, logger)
	return f
}

func salesEvent() integration.SalesInvoicePostedEvent {
	return integration.SalesInvoicePostedEvent{
		CompanyID:  company,
		ID:         41,
		Number:     "SI-0041",
		CustomerID: 8,
		PostedBy:   3,
		PostedAt:   time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		Subtotal:   1000,
		Tax:        110,
	}
}

func TestSalesInvoicePostsBalancedEntry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.hooks.HandleSalesInvoicePosted(context.Background(), salesEvent()))

	require.InDelta(t, 1110, f.store.Balance(f.ar.ID), 0.001)
	require.InDelta(t, 1000, f.store.Balance(f.revenue.ID), 0.001)
	require.InDelta(t, 110, f.store.Balance(f.vatOut.ID), 0.001)

	entries, page, err := f.journals.List(context.Background(), company, journals.ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	entry := entries[0]
	require.Equal(t, journals.JournalStatusPosted, entry.Status)
	require.True(t, entry.IsAutoGenerated)
	require.Equal(t, integration.SourceSalesInvoice, entry.SourceModule)
	require.NotEmpty(t, entry.SourceRef)
}

func TestRedeliveredEventsPostOnce(t *testing.T) {
	f := newFixture(t)
	evt := salesEvent()
	require.NoError(t, f.hooks.HandleSalesInvoicePosted(context.Background(), evt))
	require.NoError(t, f.hooks.HandleSalesInvoicePosted(context.Background(), evt))

	// Without the idempotency store the source link still deduplicates.
	bare := integration.NewHooks(f.journals, mappingsFor(t, f), nil, nil)
	require.NoError(t, bare.HandleSalesInvoicePosted(context.Background(), evt))

	require.InDelta(t, 1110, f.store.Balance(f.ar.ID), 0.001)
	require.Equal(t, 1, f.idem.len())
}

func TestPurchaseBillPostsExpenseAndPayable(t *testing.T) {
	f := newFixture(t)
	evt := integration.PurchaseBillPostedEvent{
		CompanyID:  company,
		ID:         7,
		Number:     "PB-7",
		SupplierID: 4,
		PostedAt:   time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC),
		Subtotal:   200.004,
		Tax:        0,
	}
	require.NoError(t, f.hooks.HandlePurchaseBillPosted(context.Background(), evt))
	require.InDelta(t, 200, f.store.Balance(f.expense.ID), 0.001)
	require.InDelta(t, 200, f.store.Balance(f.ap.ID), 0.001)
	require.InDelta(t, 0, f.store.Balance(f.vatIn.ID), 0.001)
}

func TestZeroAmountEventsAreIgnored(t *testing.T) {
	f := newFixture(t)
	evt := salesEvent()
	evt.Subtotal, evt.Tax = 0, 0
	require.NoError(t, f.hooks.HandleSalesInvoicePosted(context.Background(), evt))
	require.Equal(t, 0, f.idem.len())
}

func TestFailuresReleaseTheIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	evt := salesEvent()
	evt.PostedAt = time.Time{}
	require.ErrorIs(t, f.hooks.HandleSalesInvoicePosted(context.Background(), evt), shared.ErrMissingField)

	evt = salesEvent()
	evt.CompanyID = 2
	err := f.hooks.HandleSalesInvoicePosted(context.Background(), evt)
	require.ErrorIs(t, err, shared.ErrMappingNotFound)

	f.store.FailOn(f.revenue.ID)
	err = f.hooks.HandleSalesInvoicePosted(context.Background(), salesEvent())
	require.Error(t, err)
	require.Equal(t, 0, f.idem.len())
	require.InDelta(t, 0, f.store.Balance(f.ar.ID), 0.001)
}

func mappingsFor(t *testing.T, f *fixture) *mappings.Service {
	t.Helper()
	return mappings.NewService(f.store.Mappings(), f.store.Accounts(), nil, nil)
}
