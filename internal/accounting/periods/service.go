package periods

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// AuditPort records period lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// MetricsPort counts period transitions.
type MetricsPort interface {
	PeriodTransition(action string)
}

// Service creates fiscal years and closes or reopens periods in sequence.
type Service struct {
	repo    Repository
	audit   AuditPort
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the fiscal period manager.
func NewService(repo Repository, audit AuditPort, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateYear creates the twelve monthly periods of year, all OPEN.
func (s *Service) CreateYear(ctx context.Context, companyID, actorID int64, year int) ([]Period, error) {
	if companyID <= 0 {
		return nil, internalShared.ErrTenantMissing
	}
	if year < minFiscalYear || year > maxFiscalYear {
		return nil, fmt.Errorf("%w: fiscal_year %d", shared.ErrInvalidField, year)
	}
	var created []Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.CountYear(ctx, companyID, year)
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("%w: %d", shared.ErrAlreadyExists, year)
		}
		created, err = tx.InsertPeriods(ctx, BuildYear(companyID, year))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, companyID, actorID, "period.create_year", fmt.Sprintf("%d", year), map[string]any{"periods": len(created)})
	s.count("create_year")
	return created, nil
}

// List returns periods of the company, optionally filtered to one year.
func (s *Service) List(ctx context.Context, companyID int64, year int) ([]Period, error) {
	if companyID <= 0 {
		return nil, internalShared.ErrTenantMissing
	}
	return s.repo.List(ctx, companyID, year)
}

// Get fetches a single period.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Period, error) {
	if companyID <= 0 {
		return Period{}, internalShared.ErrTenantMissing
	}
	return s.repo.Get(ctx, companyID, id)
}

// FindByDate returns the period covering date.
func (s *Service) FindByDate(ctx context.Context, companyID int64, date time.Time) (Period, error) {
	if companyID <= 0 {
		return Period{}, internalShared.ErrTenantMissing
	}
	return s.repo.FindByDate(ctx, companyID, date)
}

// Close closes periodID. Earlier periods of the same year must already be closed and no
// draft entry may be dated inside the period.
func (s *Service) Close(ctx context.Context, companyID, actorID, periodID int64) (Period, error) {
	if companyID <= 0 {
		return Period{}, internalShared.ErrTenantMissing
	}
	if actorID <= 0 {
		return Period{}, internalShared.ErrActorMissing
	}
	var closed Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year, err := tx.LockYearOf(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		target, ok := findPeriod(year, periodID)
		if !ok {
			return fmt.Errorf("%w: %d", shared.ErrPeriodNotFound, periodID)
		}
		if target.Status == PeriodStatusClosed {
			return fmt.Errorf("%w: %d-%02d", shared.ErrAlreadyClosed, target.FiscalYear, target.PeriodNumber)
		}
		for _, p := range year {
			if p.PeriodNumber < target.PeriodNumber && p.Status == PeriodStatusOpen {
				return fmt.Errorf("%w: period %d of %d is still open", shared.ErrOutOfOrder, p.PeriodNumber, p.FiscalYear)
			}
		}
		drafts, err := tx.CountDrafts(ctx, companyID, target.StartDate, target.EndDate)
		if err != nil {
			return err
		}
		if drafts > 0 {
			return fmt.Errorf("%w: %d draft entries", shared.ErrUnpostedEntries, drafts)
		}
		closed, err = tx.MarkClosed(ctx, target.ID, actorID, s.now())
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, companyID, actorID, "period.close", fmt.Sprintf("%d", closed.ID), map[string]any{
		"fiscal_year":   closed.FiscalYear,
		"period_number": closed.PeriodNumber,
	})
	s.count("close")
	return closed, nil
}

// Reopen reopens periodID. Later periods of the same year must be open.
func (s *Service) Reopen(ctx context.Context, companyID, actorID, periodID int64) (Period, error) {
	if companyID <= 0 {
		return Period{}, internalShared.ErrTenantMissing
	}
	if actorID <= 0 {
		return Period{}, internalShared.ErrActorMissing
	}
	var reopened Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year, err := tx.LockYearOf(ctx, companyID, periodID)
		if err != nil {
			return err
		}
		target, ok := findPeriod(year, periodID)
		if !ok {
			return fmt.Errorf("%w: %d", shared.ErrPeriodNotFound, periodID)
		}
		if target.Status != PeriodStatusClosed {
			return fmt.Errorf("%w: %d-%02d", shared.ErrNotClosed, target.FiscalYear, target.PeriodNumber)
		}
		for _, p := range year {
			if p.PeriodNumber > target.PeriodNumber && p.Status == PeriodStatusClosed {
				return fmt.Errorf("%w: period %d of %d is still closed", shared.ErrOutOfOrder, p.PeriodNumber, p.FiscalYear)
			}
		}
		reopened, err = tx.MarkOpen(ctx, target.ID, actorID, s.now())
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, companyID, actorID, "period.reopen", fmt.Sprintf("%d", reopened.ID), map[string]any{
		"fiscal_year":   reopened.FiscalYear,
		"period_number": reopened.PeriodNumber,
	})
	s.count("reopen")
	return reopened, nil
}

func findPeriod(periods []Period, id int64) (Period, bool) {
	for _, p := range periods {
		if p.ID == id {
			return p, true
		}
	}
	return Period{}, false
}

func (s *Service) record(ctx context.Context, companyID, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		CompanyID: companyID,
		ActorID:   actorID,
		Action:    action,
		Entity:    "fiscal_period",
		EntityID:  entityID,
		Meta:      meta,
		At:        s.now(),
	}); err != nil {
		s.logger.Warn("audit period", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) count(action string) {
	if s.metrics != nil {
		s.metrics.PeriodTransition(action)
	}
}
