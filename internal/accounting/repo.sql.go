package accounting

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

// Repositories bundles the storage of every ledger component.
type Repositories struct {
	Accounts accounts.Repository
	Journals journals.Repository
	Periods  periods.Repository
	Reports  reports.Repository
	Mappings mappings.Repository
}

// NewRepositories builds the pgx-backed repositories sharing one pool.
func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Accounts: accounts.NewRepository(pool),
		Journals: journals.NewRepository(pool, balances.NewMutator()),
		Periods:  periods.NewRepository(pool),
		Reports:  reports.NewRepository(pool),
		Mappings: mappings.NewRepository(pool),
	}
}
