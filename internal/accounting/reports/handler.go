package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Handler serves the read-only report endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/balance-sheet", h.BalanceSheet)
	r.Get("/income-statement", h.IncomeStatement)
	r.Get("/aging", h.Aging)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	asOf, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), tenant.CompanyID, TrialBalanceFilter{
		AsOf:        asOf,
		IncludeZero: httpx.QueryBool(r, "include_zero"),
	})
	if err != nil {
		h.fail(w, "trial balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct {
		TrialBalance
		Balanced bool `json:"balanced"`
	}{tb, tb.Balanced()})
}

func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	asOf, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), tenant.CompanyID, asOf)
	if err != nil {
		h.fail(w, "balance sheet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, struct {
		BalanceSheet
		Balanced bool `json:"balanced"`
	}{bs, bs.Balanced()})
}

func (h *Handler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var filter IncomeFilter
	if from != nil {
		filter.From = *from
	}
	if to != nil {
		filter.To = *to
	}
	is, err := h.service.IncomeStatement(r.Context(), tenant.CompanyID, filter)
	if err != nil {
		h.fail(w, "income statement", err)
		return
	}
	httpx.JSON(w, http.StatusOK, is)
}

func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	ledger, err := ParseLedger(r.URL.Query().Get("ledger"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asOf, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := AgingFilter{Ledger: ledger}
	if asOf != nil {
		filter.AsOf = *asOf
	}
	report, err := h.service.Aging(r.Context(), tenant.CompanyID, filter)
	if err != nil {
		h.fail(w, "aging", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
