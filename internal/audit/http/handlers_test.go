package audithttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

type stubService struct {
	last audit.TimelineFilters
	rows []audit.TimelineRow
}

func (s *stubService) Timeline(_ context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.last = filters
	return audit.Result{Rows: s.rows, Paging: audit.PagingInfo{Page: filters.Page, PageSize: 20}}, nil
}

func (s *stubService) Export(_ context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.last = filters
	return s.rows, nil
}

func newRouter(svc *stubService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	h.now = func() time.Time { return time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Use(httpx.TenantMiddleware)
	h.MountRoutes(r)
	return r
}

func get(router http.Handler, path string, company string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if company != "" {
		req.Header.Set("X-Company-ID", company)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTimelineDefaultsRange(t *testing.T) {
	svc := &stubService{rows: []audit.TimelineRow{{Action: "journal.post", Entity: "journal_entry", EntityID: "1"}}}
	rec := get(newRouter(svc), "/audit?entity=journal_entry", "3")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, int64(3), svc.last.CompanyID)
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), svc.last.To)
	require.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), svc.last.From)
	require.Equal(t, "journal_entry", svc.last.Entity)
	require.Equal(t, 1, svc.last.Page)

	var body audit.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
}

func TestTimelineRejectsBadInput(t *testing.T) {
	router := newRouter(&stubService{})
	require.Equal(t, http.StatusBadRequest, get(router, "/audit", "").Code)
	require.Equal(t, http.StatusBadRequest, get(router, "/audit?from=yesterday", "3").Code)
	require.Equal(t, http.StatusBadRequest, get(router, "/audit?page=x", "3").Code)
}

func TestExportCSVIsRateLimitedPerCompany(t *testing.T) {
	svc := &stubService{rows: []audit.TimelineRow{{
		At:       time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
		Action:   "period.close",
		Entity:   "fiscal_period",
		EntityID: "2",
	}}}
	router := newRouter(svc)

	rec := get(router, "/audit/export.csv?from=2024-03-01&to=2024-03-31", "3")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "at,actor_id,action"))
	require.Contains(t, rec.Body.String(), "period.close,fiscal_period,2")

	for i := 1; i < rateLimit; i++ {
		require.Equal(t, http.StatusOK, get(router, "/audit/export.csv", "3").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, get(router, "/audit/export.csv", "3").Code)
	require.Equal(t, http.StatusOK, get(router, "/audit/export.csv", "4").Code)
}
