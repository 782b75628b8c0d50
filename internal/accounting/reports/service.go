package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Report names used for cache keys and metrics.
const (
	ReportTrialBalance    = "trial_balance"
	ReportBalanceSheet    = "balance_sheet"
	ReportIncomeStatement = "income_statement"
	ReportAging           = "aging"
)

// MetricsPort observes report caching and build latency.
type MetricsPort interface {
	ReportCacheHit(report string)
	ReportCacheMiss(report string)
	ObserveReportBuild(report string, d time.Duration)
}

// TrialBalanceFilter scopes the trial balance.
type TrialBalanceFilter struct {
	AsOf        *time.Time
	IncludeZero bool
}

// IncomeFilter scopes the income statement. Zero bounds default to the start of the year
// of To and to today.
type IncomeFilter struct {
	From time.Time
	To   time.Time
}

// AgingFilter scopes the aging report.
type AgingFilter struct {
	Ledger Ledger
	AsOf   time.Time
}

// Service builds read-only ledger reports.
type Service struct {
	repo    Repository
	cache   *Cache
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires a Repository with an optional Cache.
func NewService(repo Repository, cache *Cache, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Invalidate drops every cached report of the company.
func (s *Service) Invalidate(ctx context.Context, companyID int64) error {
	return s.cache.Invalidate(ctx, companyID)
}

// TrialBalance lists postable balances split into debit and credit columns.
func (s *Service) TrialBalance(ctx context.Context, companyID int64, filter TrialBalanceFilter) (TrialBalance, error) {
	if companyID <= 0 {
		return TrialBalance{}, internalShared.ErrTenantMissing
	}
	var tb TrialBalance
	err := s.cached(ctx, companyID, ReportTrialBalance, []string{dateToken(filter.AsOf), fmt.Sprintf("zero=%t", filter.IncludeZero)}, &tb,
		func(ctx context.Context) (any, error) {
			balances, err := s.repo.AccountBalances(ctx, companyID, filter.AsOf)
			if err != nil {
				return nil, err
			}
			out := BuildTrialBalance(balances, filter.IncludeZero)
			out.AsOf = filter.AsOf
			return out, nil
		})
	return tb, err
}

// BalanceSheet buckets balances by classification as of a date.
func (s *Service) BalanceSheet(ctx context.Context, companyID int64, asOf *time.Time) (BalanceSheet, error) {
	if companyID <= 0 {
		return BalanceSheet{}, internalShared.ErrTenantMissing
	}
	var bs BalanceSheet
	err := s.cached(ctx, companyID, ReportBalanceSheet, []string{dateToken(asOf)}, &bs,
		func(ctx context.Context) (any, error) {
			balances, err := s.repo.AccountBalances(ctx, companyID, asOf)
			if err != nil {
				return nil, err
			}
			out := BuildBalanceSheet(balances)
			out.AsOf = asOf
			return out, nil
		})
	return bs, err
}

// IncomeStatement nets revenue against expense as of To and cross-checks the figure against
// sales and purchase documents dated within the range.
func (s *Service) IncomeStatement(ctx context.Context, companyID int64, filter IncomeFilter) (IncomeStatement, error) {
	if companyID <= 0 {
		return IncomeStatement{}, internalShared.ErrTenantMissing
	}
	if filter.To.IsZero() {
		filter.To = truncateDay(s.now())
	}
	if filter.From.IsZero() {
		filter.From = time.Date(filter.To.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if filter.From.After(filter.To) {
		return IncomeStatement{}, fmt.Errorf("%w: from after to", shared.ErrInvalidField)
	}
	var is IncomeStatement
	key := []string{filter.From.Format(time.DateOnly), filter.To.Format(time.DateOnly)}
	err := s.cached(ctx, companyID, ReportIncomeStatement, key, &is, func(ctx context.Context) (any, error) {
		var (
			balances []AccountBalance
			docs     DocumentTotals
		)
		to := filter.To
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			balances, err = s.repo.AccountBalances(gctx, companyID, &to)
			return err
		})
		g.Go(func() error {
			var err error
			docs, err = s.repo.DocumentTotals(gctx, companyID, filter.From, filter.To)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		out := BuildIncomeStatement(balances, docs)
		out.From = filter.From
		out.To = filter.To
		return out, nil
	})
	return is, err
}

// Aging buckets outstanding receivables or payables by days past due.
func (s *Service) Aging(ctx context.Context, companyID int64, filter AgingFilter) (AgingReport, error) {
	if companyID <= 0 {
		return AgingReport{}, internalShared.ErrTenantMissing
	}
	if filter.Ledger == "" {
		filter.Ledger = LedgerReceivable
	}
	if filter.AsOf.IsZero() {
		filter.AsOf = s.now()
	}
	asOf := truncateDay(filter.AsOf)
	var report AgingReport
	key := []string{string(filter.Ledger), asOf.Format(time.DateOnly)}
	err := s.cached(ctx, companyID, ReportAging, key, &report, func(ctx context.Context) (any, error) {
		docs, err := s.repo.OpenDocuments(ctx, companyID, filter.Ledger, asOf)
		if err != nil {
			return nil, err
		}
		return BuildAging(filter.Ledger, asOf, docs), nil
	})
	return report, err
}

// Drift is a stored balance that disagrees with the posted lines.
type Drift struct {
	AccountID int64   `json:"account_id"`
	Code      string  `json:"code"`
	Stored    float64 `json:"stored"`
	Expected  float64 `json:"expected"`
}

// IntegrityReport summarises one company's ledger health.
type IntegrityReport struct {
	CompanyID              int64   `json:"company_id"`
	Accounts               int     `json:"accounts"`
	Drifts                 []Drift `json:"drifts"`
	TrialBalanceBalanced   bool    `json:"trial_balance_balanced"`
	BalanceSheetBalanced   bool    `json:"balance_sheet_balanced"`
	TrialBalanceDifference float64 `json:"trial_balance_difference"`
}

// Healthy reports whether every check passed.
func (r IntegrityReport) Healthy() bool {
	return len(r.Drifts) == 0 && r.TrialBalanceBalanced && r.BalanceSheetBalanced
}

// CheckIntegrity recomputes balances from posted lines and verifies the report invariants,
// bypassing the cache.
func (s *Service) CheckIntegrity(ctx context.Context, companyID int64) (IntegrityReport, error) {
	var (
		balances []AccountBalance
		ledger   map[int64]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balances, err = s.repo.AccountBalances(gctx, companyID, nil)
		return err
	})
	g.Go(func() error {
		var err error
		ledger, err = s.repo.LedgerBalances(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return IntegrityReport{}, err
	}

	report := IntegrityReport{CompanyID: companyID, Accounts: len(balances)}
	for _, b := range balances {
		expected := shared.Round2(ledger[b.ID])
		if !shared.NearlyEqual(b.Balance, expected) {
			report.Drifts = append(report.Drifts, Drift{AccountID: b.ID, Code: b.Code, Stored: b.Balance, Expected: expected})
		}
	}
	sort.Slice(report.Drifts, func(i, j int) bool { return report.Drifts[i].Code < report.Drifts[j].Code })

	tb := BuildTrialBalance(balances, false)
	report.TrialBalanceBalanced = tb.Balanced()
	report.TrialBalanceDifference = tb.Difference
	report.BalanceSheetBalanced = BuildBalanceSheet(balances).Balanced()
	return report, nil
}

// CompanyIDs lists companies that own at least one account.
func (s *Service) CompanyIDs(ctx context.Context) ([]int64, error) {
	return s.repo.CompanyIDs(ctx)
}

func (s *Service) cached(ctx context.Context, companyID int64, report string, parts []string, dest any, loader func(context.Context) (any, error)) error {
	key, err := s.cache.BuildKey(ctx, companyID, append([]string{report}, parts...)...)
	if err != nil {
		s.logger.Warn("report cache key", slog.String("report", report), slog.Any("error", err))
		value, lerr := s.timed(report, loader)(ctx)
		if lerr != nil {
			return lerr
		}
		return remarshal(value, dest)
	}
	hit, err := s.cache.FetchJSON(ctx, key, dest, s.timed(report, loader))
	if err != nil {
		return err
	}
	if s.metrics != nil {
		if hit {
			s.metrics.ReportCacheHit(report)
		} else {
			s.metrics.ReportCacheMiss(report)
		}
	}
	return nil
}

func (s *Service) timed(report string, loader func(context.Context) (any, error)) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		start := time.Now()
		value, err := loader(ctx)
		if s.metrics != nil && err == nil {
			s.metrics.ObserveReportBuild(report, time.Since(start))
		}
		return value, err
	}
}

func dateToken(d *time.Time) string {
	if d == nil {
		return "current"
	}
	return d.Format(time.DateOnly)
}
