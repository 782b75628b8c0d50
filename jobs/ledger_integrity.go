package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// IntegrityChecker recomputes ledger health per company.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context, companyID int64) (reports.IntegrityReport, error)
	CompanyIDs(ctx context.Context) ([]int64, error)
}

// LedgerIntegrityJob compares stored balances with posted lines for every company.
type LedgerIntegrityJob struct {
	Checker     IntegrityChecker
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
	clock       func() time.Time
}

// NewLedgerIntegrityJob initialises the integrity handler.
func NewLedgerIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		Checker:     checker,
		Logger:      logger,
		Metrics:     metrics,
		Concurrency: 4,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the integrity task.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Checker == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	var payload LedgerIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	_, err := j.Run(ctx, payload.CompanyID)
	return tracker.End(err)
}

// Run checks one company, or all of them when companyID is zero, and returns the reports.
func (j *LedgerIntegrityJob) Run(ctx context.Context, companyID int64) ([]reports.IntegrityReport, error) {
	start := j.now()
	logger := j.logger()
	companies := []int64{companyID}
	if companyID <= 0 {
		ids, err := j.Checker.CompanyIDs(ctx)
		if err != nil {
			logger.Error("list companies", slog.Any("error", err))
			return nil, err
		}
		companies = ids
	}
	logger.Info("starting ledger integrity check", slog.Int("companies", len(companies)))

	var (
		mu      sync.Mutex
		results = make([]reports.IntegrityReport, 0, len(companies))
	)
	g, gctx := errgroup.WithContext(ctx)
	if j.Concurrency > 0 {
		g.SetLimit(j.Concurrency)
	}
	for _, id := range companies {
		g.Go(func() error {
			report, err := j.Checker.CheckIntegrity(gctx, id)
			if err != nil {
				return err
			}
			j.observe(logger, report)
			mu.Lock()
			results = append(results, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("ledger integrity check failed", slog.Any("error", err))
		return nil, err
	}

	unhealthy := 0
	for _, r := range results {
		if !r.Healthy() {
			unhealthy++
		}
	}
	logger.Info("completed ledger integrity check",
		slog.Int("companies", len(results)),
		slog.Int("unhealthy", unhealthy),
		slog.Duration("duration", time.Since(start)),
	)
	return results, nil
}

func (j *LedgerIntegrityJob) observe(logger *slog.Logger, report reports.IntegrityReport) {
	for _, d := range report.Drifts {
		logger.Warn("ledger balance drift",
			slog.Int64("company_id", report.CompanyID),
			slog.Int64("account_id", d.AccountID),
			slog.String("code", d.Code),
			slog.Float64("stored", d.Stored),
			slog.Float64("expected", d.Expected),
		)
	}
	j.Metrics.AddDrifts(report.CompanyID, len(report.Drifts))
	if !report.TrialBalanceBalanced {
		logger.Warn("trial balance out of balance",
			slog.Int64("company_id", report.CompanyID),
			slog.Float64("difference", report.TrialBalanceDifference))
	}
	if !report.BalanceSheetBalanced {
		logger.Warn("balance sheet out of balance", slog.Int64("company_id", report.CompanyID))
	}
}

func (j *LedgerIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *LedgerIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}
