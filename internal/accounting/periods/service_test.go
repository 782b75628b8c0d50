package periods

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	periods map[int64]*Period
	drafts  []time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{periods: map[int64]*Period{}}
}

func (m *memRepo) List(_ context.Context, companyID int64, year int) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Period
	for _, p := range m.periods {
		if p.CompanyID == companyID && (year == 0 || p.FiscalYear == year) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FiscalYear != out[j].FiscalYear {
			return out[i].FiscalYear < out[j].FiscalYear
		}
		return out[i].PeriodNumber < out[j].PeriodNumber
	})
	return out, nil
}

func (m *memRepo) Get(_ context.Context, companyID, id int64) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.periods[id]
	if !ok || p.CompanyID != companyID {
		return Period{}, shared.ErrPeriodNotFound
	}
	return *p, nil
}

func (m *memRepo) FindByDate(_ context.Context, companyID int64, date time.Time) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.periods {
		if p.CompanyID == companyID && p.Contains(date) {
			return *p, nil
		}
	}
	return Period{}, shared.ErrPeriodNotFound
}

// WithTx serialises transactions; the fake applies writes directly.
func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, memTx{m})
}

type memTx struct{ m *memRepo }

func (t memTx) CountYear(_ context.Context, companyID int64, year int) (int, error) {
	n := 0
	for _, p := range t.m.periods {
		if p.CompanyID == companyID && p.FiscalYear == year {
			n++
		}
	}
	return n, nil
}

func (t memTx) InsertPeriods(_ context.Context, periods []Period) ([]Period, error) {
	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		t.m.nextID++
		p.ID = t.m.nextID
		cp := p
		t.m.periods[p.ID] = &cp
		out = append(out, p)
	}
	return out, nil
}

func (t memTx) LockYearOf(_ context.Context, companyID, periodID int64) ([]Period, error) {
	target, ok := t.m.periods[periodID]
	if !ok || target.CompanyID != companyID {
		return nil, nil
	}
	var out []Period
	for _, p := range t.m.periods {
		if p.CompanyID == companyID && p.FiscalYear == target.FiscalYear {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodNumber < out[j].PeriodNumber })
	return out, nil
}

func (t memTx) CountDrafts(_ context.Context, _ int64, start, end time.Time) (int, error) {
	n := 0
	for _, d := range t.m.drafts {
		if !d.Before(start) && !d.After(end) {
			n++
		}
	}
	return n, nil
}

func (t memTx) MarkClosed(_ context.Context, id, actorID int64, at time.Time) (Period, error) {
	p := t.m.periods[id]
	p.Status = PeriodStatusClosed
	p.ClosedBy = &actorID
	p.ClosedAt = &at
	return *p, nil
}

func (t memTx) MarkOpen(_ context.Context, id, actorID int64, at time.Time) (Period, error) {
	p := t.m.periods[id]
	p.Status = PeriodStatusOpen
	p.ReopenedBy = &actorID
	p.ReopenedAt = &at
	return *p, nil
}

type countingMetrics struct {
	actions []string
}

func (c *countingMetrics) PeriodTransition(action string) {
	c.actions = append(c.actions, action)
}

func newTestService() (*Service, *memRepo, *countingMetrics) {
	repo := newMemRepo()
	metrics := &countingMetrics{}
	svc := NewService(repo, nil, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithNow(func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC) })
	return svc, repo, metrics
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateYearBuildsTwelveMonths(t *testing.T) {
	svc, _, metrics := newTestService()
	ctx := context.Background()

	created, err := svc.CreateYear(ctx, 1, 7, 2025)
	require.NoError(t, err)
	require.Len(t, created, 12)
	for i, p := range created {
		require.Equal(t, i+1, p.PeriodNumber)
		require.Equal(t, PeriodStatusOpen, p.Status)
		require.Equal(t, 1, p.StartDate.Day())
		if i > 0 {
			require.Equal(t, created[i-1].EndDate.AddDate(0, 0, 1), p.StartDate)
		}
	}
	require.Equal(t, date(2025, 2, 1), created[1].StartDate)
	require.Equal(t, date(2025, 2, 28), created[1].EndDate)
	require.Equal(t, date(2025, 12, 31), created[11].EndDate)

	leap, err := svc.CreateYear(ctx, 1, 7, 2024)
	require.NoError(t, err)
	require.Equal(t, date(2024, 2, 29), leap[1].EndDate)

	_, err = svc.CreateYear(ctx, 1, 7, 2025)
	require.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = svc.CreateYear(ctx, 2, 7, 2025)
	require.NoError(t, err)

	_, err = svc.CreateYear(ctx, 1, 7, 1800)
	require.ErrorIs(t, err, shared.ErrInvalidField)

	require.Equal(t, []string{"create_year", "create_year", "create_year"}, metrics.actions)
}

func TestCloseRequiresAscendingOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	year, err := svc.CreateYear(ctx, 1, 7, 2025)
	require.NoError(t, err)

	_, err = svc.Close(ctx, 1, 7, year[1].ID)
	require.ErrorIs(t, err, shared.ErrOutOfOrder)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	jan, err := svc.Close(ctx, 1, 7, year[0].ID)
	require.NoError(t, err)
	require.Equal(t, PeriodStatusClosed, jan.Status)
	require.NotNil(t, jan.ClosedBy)
	require.Equal(t, int64(7), *jan.ClosedBy)

	_, err = svc.Close(ctx, 1, 7, year[0].ID)
	require.ErrorIs(t, err, shared.ErrAlreadyClosed)

	_, err = svc.Close(ctx, 1, 7, year[1].ID)
	require.NoError(t, err)
}

func TestCloseRejectsDraftsInRange(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	year, err := svc.CreateYear(ctx, 1, 7, 2025)
	require.NoError(t, err)

	repo.drafts = []time.Time{date(2025, 1, 31)}
	_, err = svc.Close(ctx, 1, 7, year[0].ID)
	require.ErrorIs(t, err, shared.ErrUnpostedEntries)

	repo.drafts = []time.Time{date(2025, 2, 1)}
	_, err = svc.Close(ctx, 1, 7, year[0].ID)
	require.NoError(t, err)
}

func TestReopenRequiresDescendingOrder(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	year, err := svc.CreateYear(ctx, 1, 7, 2025)
	require.NoError(t, err)

	_, err = svc.Reopen(ctx, 1, 7, year[0].ID)
	require.ErrorIs(t, err, shared.ErrNotClosed)

	for _, p := range year[:3] {
		_, err := svc.Close(ctx, 1, 7, p.ID)
		require.NoError(t, err)
	}

	_, err = svc.Reopen(ctx, 1, 7, year[1].ID)
	require.ErrorIs(t, err, shared.ErrOutOfOrder)

	mar, err := svc.Reopen(ctx, 1, 7, year[2].ID)
	require.NoError(t, err)
	require.Equal(t, PeriodStatusOpen, mar.Status)
	require.NotNil(t, mar.ReopenedAt)

	_, err = svc.Reopen(ctx, 1, 7, year[1].ID)
	require.NoError(t, err)
}

func TestCloseUnknownPeriodAndTenantGuards(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	year, err := svc.CreateYear(ctx, 1, 7, 2025)
	require.NoError(t, err)

	_, err = svc.Close(ctx, 1, 7, 999)
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)

	_, err = svc.Close(ctx, 2, 7, year[0].ID)
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)

	_, err = svc.Close(ctx, 1, 0, year[0].ID)
	require.ErrorIs(t, err, internalShared.ErrActorMissing)
}

func TestFindByDate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, err := svc.CreateYear(ctx, 1, 7, 2025)
	require.NoError(t, err)

	p, err := svc.FindByDate(ctx, 1, time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 3, p.PeriodNumber)

	_, err = svc.FindByDate(ctx, 1, date(2026, 1, 1))
	require.ErrorIs(t, err, shared.ErrPeriodNotFound)
}

func TestHandlerCloseOutOfOrderIsConflict(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, err := internalShared.ResolveTenant(r)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(internalShared.ContextWithTenant(r.Context(), tenant)))
		})
	})
	router.Route("/accounting/periods", h.MountRoutes)

	do := func(method, path string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set(internalShared.HeaderCompanyID, "1")
		req.Header.Set(internalShared.HeaderUserID, "7")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodPost, "/accounting/periods", []byte(`{"fiscal_year":2025}`))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(http.MethodPost, "/accounting/periods/2/close", nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "OUT_OF_ORDER")

	rr = do(http.MethodPost, "/accounting/periods/1/close", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(http.MethodGet, "/accounting/periods?year=2025", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"CLOSED"`)

	rr = do(http.MethodPost, "/accounting/periods", []byte(`{"fiscal_year":2025}`))
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "ALREADY_EXISTS")
}
