package journals

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
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

type entryRequest struct {
	EntryDate   string      `json:"entry_date"`
	Description string      `json:"description"`
	Lines       []LineInput `json:"lines"`
}

func (req entryRequest) toInput() (CreateInput, error) {
	in := CreateInput{Description: req.Description, Lines: req.Lines}
	raw := strings.TrimSpace(req.EntryDate)
	if raw == "" {
		return in, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return CreateInput{}, fmt.Errorf("%w: entry_date must be YYYY-MM-DD", shared.ErrInvalidField)
	}
	in.EntryDate = d
	return in, nil
}

type updateRequest struct {
	Action string `json:"action"`
	entryRequest
	ReversalDate string `json:"reversal_date"`
}

type listResponse struct {
	Entries    []JournalEntry            `json:"entries"`
	Pagination internalShared.Pagination `json:"pagination"`
}

type reverseResponse struct {
	Entry    JournalEntry  `json:"entry"`
	Reversal *JournalEntry `json:"reversal,omitempty"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	perPage, err := httpx.QueryInt(r, "per_page", 20)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := ListFilter{
		Status:  JournalStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
		Page:    page,
		PerPage: perPage,
	}
	entries, pagination, err := h.service.List(r.Context(), tenant.CompanyID, filter)
	if err != nil {
		h.fail(w, "list journals", err)
		return
	}
	if entries == nil {
		entries = []JournalEntry{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Entries: entries, Pagination: pagination})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return
	}
	id, err := httpx.URLParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Get(r.Context(), tenant.CompanyID, id)
	if err != nil {
		h.fail(w, "get journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.writer(w, r)
	if !ok {
		return
	}
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Create(r.Context(), tenant.CompanyID, tenant.UserID, in)
	if err != nil {
		h.fail(w, "create journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

// Update dispatches on the body's action: edit, post or reverse.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.writer(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "edit":
		in, err := req.toInput()
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		entry, err := h.service.Edit(r.Context(), tenant.CompanyID, tenant.UserID, id, in)
		if err != nil {
			h.fail(w, "edit journal", err)
			return
		}
		httpx.JSON(w, http.StatusOK, entry)
	case "post":
		entry, err := h.service.Post(r.Context(), tenant.CompanyID, tenant.UserID, id)
		if err != nil {
			h.fail(w, "post journal", err)
			return
		}
		httpx.JSON(w, http.StatusOK, entry)
	case "reverse":
		in := ReverseInput{Description: req.Description}
		if raw := strings.TrimSpace(req.ReversalDate); raw != "" {
			d, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				httpx.RespondError(w, fmt.Errorf("%w: reversal_date must be YYYY-MM-DD", shared.ErrInvalidField))
				return
			}
			in.Date = &d
		}
		entry, reversal, err := h.service.Reverse(r.Context(), tenant.CompanyID, tenant.UserID, id, in)
		if err != nil {
			h.fail(w, "reverse journal", err)
			return
		}
		httpx.JSON(w, http.StatusOK, reverseResponse{Entry: entry, Reversal: reversal})
	case "":
		httpx.RespondError(w, fmt.Errorf("%w: action", shared.ErrMissingField))
	default:
		httpx.RespondError(w, fmt.Errorf("%w: action %q", shared.ErrInvalidField, req.Action))
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.writer(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), tenant.CompanyID, tenant.UserID, id); err != nil {
		h.fail(w, "delete journal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writer(w http.ResponseWriter, r *http.Request) (internalShared.Tenant, bool) {
	tenant, ok := internalShared.TenantFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, internalShared.ErrTenantMissing)
		return internalShared.Tenant{}, false
	}
	if err := tenant.RequireActor(); err != nil {
		httpx.RespondError(w, err)
		return internalShared.Tenant{}, false
	}
	return tenant, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
