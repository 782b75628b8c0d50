package accounting_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/testing/ledgerstore"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	company = int64(1)
	actor   = int64(2)
)

type auditLog struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditLog) Record(_ context.Context, log internalShared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, log.Action)
	return nil
}

func newModule(t *testing.T) (*accounting.Module, *ledgerstore.Store, *auditLog) {
	t.Helper()
	store := ledgerstore.New()
	audit := &auditLog{}
	m := accounting.NewModule(accounting.Repositories{
		Accounts: store.Accounts(),
		Journals: store.Journals(),
		Periods:  store.Periods(),
		Reports:  store.Reports(),
		Mappings: store.Mappings(),
	}, accounting.Deps{
		Audit:   audit,
		Options: journals.DefaultOptions(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return m, store, audit
}

func createAccount(t *testing.T, m *accounting.Module, code, name string, typ accounts.AccountType) accounts.Account {
	t.Helper()
	acc, err := m.Accounts.Create(context.Background(), company, actor, accounts.CreateInput{Code: code, Name: name, Type: typ})
	require.NoError(t, err)
	return acc
}

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEndToEndFiscalYearPostingAndClose(t *testing.T) {
	ctx := context.Background()
	m, store, audit := newModule(t)

	year, err := m.Periods.CreateYear(ctx, company, actor, 2025)
	require.NoError(t, err)
	require.Len(t, year, 12)
	feb := year[1]
	require.Equal(t, 2, feb.PeriodNumber)
	require.Equal(t, day("2025-02-01"), feb.StartDate)
	require.Equal(t, day("2025-02-28"), feb.EndDate)
	for _, p := range year {
		require.Equal(t, periods.PeriodStatusOpen, p.Status)
	}

	cash := createAccount(t, m, "1100", "Cash", accounts.AccountTypeAsset)
	sales := createAccount(t, m, "4000", "Sales", accounts.AccountTypeRevenue)

	entry, err := m.Journals.Create(ctx, company, actor, journals.CreateInput{
		EntryDate:   day("2025-01-15"),
		Description: "Cash sale",
		Lines: []journals.LineInput{
			{AccountID: cash.ID, Debit: 1000},
			{AccountID: sales.ID, Credit: 1000},
		},
	})
	require.NoError(t, err)
	posted, err := m.Journals.Post(ctx, company, actor, entry.ID)
	require.NoError(t, err)
	require.Equal(t, journals.JournalStatusPosted, posted.Status)
	require.InDelta(t, 1000, store.Balance(cash.ID), 0.001)
	require.InDelta(t, 1000, store.Balance(sales.ID), 0.001)

	late, err := m.Journals.Create(ctx, company, actor, journals.CreateInput{
		EntryDate:   day("2025-01-20"),
		Description: "Late invoice",
		Lines: []journals.LineInput{
			{AccountID: cash.ID, Debit: 50},
			{AccountID: sales.ID, Credit: 50},
		},
	})
	require.NoError(t, err)

	jan := year[0]
	_, err = m.Periods.Close(ctx, company, actor, jan.ID)
	require.ErrorIs(t, err, shared.ErrUnpostedEntries)

	_, err = m.Journals.Post(ctx, company, actor, late.ID)
	require.NoError(t, err)
	closed, err := m.Periods.Close(ctx, company, actor, jan.ID)
	require.NoError(t, err)
	require.Equal(t, periods.PeriodStatusClosed, closed.Status)

	tb, err := m.Reports.TrialBalance(ctx, company, reports.TrialBalanceFilter{})
	require.NoError(t, err)
	require.True(t, tb.Balanced())
	require.InDelta(t, 1050, tb.TotalDebit, 0.001)

	require.Contains(t, audit.actions, "journal.post")
	require.Contains(t, audit.actions, "period.close")
}

func TestEndToEndCloseOutOfOrder(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newModule(t)

	year, err := m.Periods.CreateYear(ctx, company, actor, 2025)
	require.NoError(t, err)
	_, err = m.Periods.Close(ctx, company, actor, year[1].ID)
	require.ErrorIs(t, err, shared.ErrOutOfOrder)
}

func TestHandlerMountsEveryComponent(t *testing.T) {
	m, _, _ := newModule(t)
	h := accounting.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), m)
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, err := internalShared.ResolveTenant(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(internalShared.ContextWithTenant(r.Context(), tenant)))
		})
	})
	h.MountRoutes(router)

	post := httptest.NewRequest(http.MethodPost, "/accounting/periods/", strings.NewReader(`{"fiscal_year":2025}`))
	post.Header.Set(internalShared.HeaderCompanyID, "1")
	post.Header.Set(internalShared.HeaderUserID, "2")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, post)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	for _, path := range []string{
		"/accounting/accounts/",
		"/accounting/journals/",
		"/accounting/periods/?year=2025",
		"/accounting/reports/trial-balance",
		"/accounting/mappings/",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(internalShared.HeaderCompanyID, "1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/accounting/accounts/", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
