package audithttp

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/audit"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const defaultDateRange = 30 * 24 * time.Hour

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	now     func() time.Time
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.fail(w, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.fail(w, "export audit timeline", err)
		return
	}
	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, rows); err != nil {
		h.fail(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-timeline.csv\"")
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters defaults to the last thirty days ending today.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	tenant, ok := shared.TenantFromContext(r.Context())
	if !ok {
		return audit.TimelineFilters{}, shared.ErrTenantMissing
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	if to == nil {
		today := h.now().UTC().Truncate(24 * time.Hour)
		to = &today
	}
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	if from == nil {
		start := to.Add(-defaultDateRange)
		from = &start
	}
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	pageSize, err := httpx.QueryInt(r, "page_size", 0)
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	actor, err := httpx.QueryInt(r, "actor_id", 0)
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	q := r.URL.Query()
	return audit.TimelineFilters{
		CompanyID: tenant.CompanyID,
		From:      *from,
		To:        *to,
		ActorID:   int64(actor),
		Entity:    strings.TrimSpace(q.Get("entity")),
		Action:    strings.TrimSpace(q.Get("action")),
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
