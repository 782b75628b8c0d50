package mappings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/", h.Set)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	list, err := h.service.List(r.Context(), tenant.CompanyID)
	if err != nil {
		h.fail(w, "list mappings", err)
		return
	}
	if list == nil {
		list = []AccountMapping{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	if err := tenant.RequireActor(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in SetInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mapping, err := h.service.Set(r.Context(), tenant.CompanyID, tenant.UserID, in)
	if err != nil {
		h.fail(w, "set mapping", err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapping)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
