package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
)

// IntegrationJob feeds queued document events into the ledger hooks.
type IntegrationJob struct {
	Hooks   integration.Handler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrationJob wires the hooks into task handlers.
func NewIntegrationJob(hooks integration.Handler, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrationJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrationJob{Hooks: hooks, Logger: logger, Metrics: metrics}
}

// HandleSalesInvoicePosted processes TaskSalesInvoicePosted tasks.
func (j *IntegrationJob) HandleSalesInvoicePosted(ctx context.Context, t *asynq.Task) error {
	var evt integration.SalesInvoicePostedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskSalesInvoicePosted)
	return tracker.End(j.settle(TaskSalesInvoicePosted, evt.CompanyID, evt.ID,
		j.Hooks.HandleSalesInvoicePosted(ctx, evt)))
}

// HandlePurchaseBillPosted processes TaskPurchaseBillPosted tasks.
func (j *IntegrationJob) HandlePurchaseBillPosted(ctx context.Context, t *asynq.Task) error {
	var evt integration.PurchaseBillPostedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskPurchaseBillPosted)
	return tracker.End(j.settle(TaskPurchaseBillPosted, evt.CompanyID, evt.ID,
		j.Hooks.HandlePurchaseBillPosted(ctx, evt)))
}

// settle stops retries for events the ledger rejects as invalid. Missing mappings and
// closed periods stay retryable since an operator can fix them.
func (j *IntegrationJob) settle(task string, companyID, documentID int64, err error) error {
	if err == nil {
		return nil
	}
	logger := j.Logger.With(slog.String("task", task), slog.Int64("company_id", companyID), slog.Int64("document_id", documentID))
	if errors.Is(err, shared.ErrValidation) {
		logger.Error("integration event rejected", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	logger.Warn("integration event failed", slog.Any("error", err))
	return err
}
