package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-ledger/internal/audit/http"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/testing/ledgerstore"
)

func newTestRouter(t *testing.T, cfg *Config, ready func(*http.Request) error) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := ledgerstore.New()
	metrics := observability.NewMetrics()
	module := accounting.NewModule(accounting.Repositories{
		Accounts: store.Accounts(),
		Journals: store.Journals(),
		Periods:  store.Periods(),
		Reports:  store.Reports(),
		Mappings: store.Mappings(),
	}, accounting.Deps{Metrics: metrics, Options: journals.DefaultOptions(), Logger: logger})
	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountingHandler: accounting.NewHandler(logger, module),
		AuditHandler:      audithttp.NewHandler(logger, audit.NewService(emptyAudit{})),
		Metrics:           metrics,
		Ready:             ready,
	})
}

type emptyAudit struct{}

func (emptyAudit) Find(context.Context, audit.Query) ([]audit.TimelineRow, error) { return nil, nil }

func TestRouterMountsAuditBehindTenant(t *testing.T) {
	router := newTestRouter(t, &Config{RateLimitPerMinute: 100}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/audit?entity=journal_entry", nil)
	req.Header.Set(shared.HeaderCompanyID, "1")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"rows":[]`)
}

func TestRouterHealthAndTenantGate(t *testing.T) {
	router := newTestRouter(t, &Config{RateLimitPerMinute: 100}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounting/accounts/", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodGet, "/accounting/accounts/", nil)
	req.Header.Set(shared.HeaderCompanyID, "1")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "odyssey_http_requests_total")
}

func TestRouterReadiness(t *testing.T) {
	router := newTestRouter(t, &Config{}, func(*http.Request) error { return errors.New("db down") })
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRouterRateLimitsPerCompany(t *testing.T) {
	router := newTestRouter(t, &Config{RateLimitPerMinute: 2}, nil)
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/accounting/periods/", nil)
		req.Header.Set(shared.HeaderCompanyID, "9")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/accounting/periods/", nil)
	req.Header.Set(shared.HeaderCompanyID, "10")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
