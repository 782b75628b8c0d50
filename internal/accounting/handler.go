package accounting

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

// Handler wires ledger endpoints.
type Handler struct {
	accounts *accounts.Handler
	journals *journals.Handler
	periods  *periods.Handler
	reports  *reports.Handler
	mappings *mappings.Handler
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, m *Module) *Handler {
	return &Handler{
		accounts: accounts.NewHandler(logger, m.Accounts),
		journals: journals.NewHandler(logger, m.Journals),
		periods:  periods.NewHandler(logger, m.Periods),
		reports:  reports.NewHandler(logger, m.Reports),
		mappings: mappings.NewHandler(logger, m.Mappings),
	}
}

// MountRoutes registers HTTP routes for the ledger module under /accounting.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/accounting", func(r chi.Router) {
		r.Route("/accounts", h.accounts.MountRoutes)
		r.Route("/journals", h.journals.MountRoutes)
		r.Route("/periods", h.periods.MountRoutes)
		r.Route("/reports", h.reports.MountRoutes)
		r.Route("/mappings", h.mappings.MountRoutes)
	})
}
