package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records chart-of-accounts changes.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service manages the chart of accounts.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the account directory service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Account, error) {
	if companyID <= 0 {
		return nil, internalShared.ErrTenantMissing
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: account_type %q", shared.ErrInvalidField, filter.Type)
	}
	return s.repo.List(ctx, companyID, filter)
}

// Get fetches one account of the company.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Account, error) {
	if companyID <= 0 {
		return Account{}, internalShared.ErrTenantMissing
	}
	return s.repo.Get(ctx, companyID, id)
}

// GetByCode fetches one account by its code.
func (s *Service) GetByCode(ctx context.Context, companyID int64, code string) (Account, error) {
	if companyID <= 0 {
		return Account{}, internalShared.ErrTenantMissing
	}
	return s.repo.GetByCode(ctx, companyID, code)
}

// Create validates and stores a new account.
func (s *Service) Create(ctx context.Context, companyID, actorID int64, in CreateInput) (Account, error) {
	if companyID <= 0 {
		return Account{}, internalShared.ErrTenantMissing
	}
	if err := in.Normalize(); err != nil {
		return Account{}, err
	}
	if in.ParentID != nil {
		if _, err := s.repo.Get(ctx, companyID, *in.ParentID); err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return Account{}, fmt.Errorf("%w: parent %d", shared.ErrAccountNotFound, *in.ParentID)
			}
			return Account{}, err
		}
	}
	account, err := s.repo.Create(ctx, companyID, in)
	if err != nil {
		return Account{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, internalShared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "account.create",
			Entity:    "account",
			EntityID:  fmt.Sprintf("%d", account.ID),
			Meta: map[string]any{
				"code":           account.Code,
				"account_type":   account.Type,
				"classification": account.Classification,
			},
			At: s.now(),
		}); err != nil {
			s.logger.Warn("audit account create", slog.Any("error", err))
		}
	}
	return account, nil
}
