package accounting

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics collects every ledger counter the module emits.
type Metrics interface {
	journals.MetricsPort
	periods.MetricsPort
	reports.MetricsPort
}

// Deps groups the optional collaborators of the module.
type Deps struct {
	Audit       AuditPort
	Metrics     Metrics
	Cache       *reports.Cache
	Idempotency integration.Idempotency
	Options     journals.Options
	Logger      *slog.Logger
}

// Module composes the ledger components over one set of repositories.
type Module struct {
	Accounts *accounts.Service
	Journals *journals.Service
	Periods  *periods.Service
	Reports  *reports.Service
	Mappings *mappings.Service
	Hooks    *integration.Hooks
}

// NewModule wires the ledger services.
func NewModule(repos Repositories, deps Deps) *Module {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Module{
		Accounts: accounts.NewService(repos.Accounts, deps.Audit, logger),
		Periods:  periods.NewService(repos.Periods, deps.Audit, deps.Metrics, logger),
		Reports:  reports.NewService(repos.Reports, deps.Cache, deps.Metrics, logger),
	}
	m.Journals = journals.NewService(repos.Journals, deps.Options, deps.Audit, logger).WithMetrics(deps.Metrics)
	if deps.Cache != nil {
		m.Journals.WithCache(deps.Cache)
	}
	m.Mappings = mappings.NewService(repos.Mappings, m.Accounts, deps.Audit, logger)
	m.Hooks = integration.NewHooks(m.Journals, m.Mappings, deps.Idempotency, logger)
	return m
}
