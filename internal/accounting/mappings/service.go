package mappings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AccountLookup fetches accounts to validate mapping targets.
type AccountLookup interface {
	Get(ctx context.Context, companyID, id int64) (accounts.Account, error)
}

// AuditPort records mapping changes.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service maintains the integration account mappings.
type Service struct {
	repo     Repository
	accounts AccountLookup
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, lookup AccountLookup, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accounts: lookup, audit: audit, logger: logger, now: time.Now}
}

// Resolve returns the account mapped to module/key.
func (s *Service) Resolve(ctx context.Context, companyID int64, module, key string) (int64, error) {
	if companyID <= 0 {
		return 0, internalShared.ErrTenantMissing
	}
	m, err := s.repo.Get(ctx, companyID, normalizeModule(module), key)
	if err != nil {
		return 0, err
	}
	return m.AccountID, nil
}

func (s *Service) List(ctx context.Context, companyID int64) ([]AccountMapping, error) {
	if companyID <= 0 {
		return nil, internalShared.ErrTenantMissing
	}
	return s.repo.List(ctx, companyID)
}

// Set points module/key at a postable account, replacing any previous mapping.
func (s *Service) Set(ctx context.Context, companyID, actorID int64, in SetInput) (AccountMapping, error) {
	if companyID <= 0 {
		return AccountMapping{}, internalShared.ErrTenantMissing
	}
	if err := in.Normalize(); err != nil {
		return AccountMapping{}, err
	}
	account, err := s.accounts.Get(ctx, companyID, in.AccountID)
	if err != nil {
		return AccountMapping{}, err
	}
	if account.IsHeader {
		return AccountMapping{}, fmt.Errorf("%w: %s", shared.ErrHeaderAccount, account.Code)
	}
	if !account.IsActive {
		return AccountMapping{}, fmt.Errorf("%w: account %s is inactive", shared.ErrInvalidField, account.Code)
	}
	mapping, err := s.repo.Upsert(ctx, companyID, in)
	if err != nil {
		return AccountMapping{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, internalShared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "mapping.set",
			Entity:    "account_mapping",
			EntityID:  in.Module + "/" + in.Key,
			Meta:      map[string]any{"account_id": in.AccountID},
			At:        s.now(),
		}); err != nil {
			s.logger.Warn("audit mapping", slog.Any("error", err))
		}
	}
	return mapping, nil
}
