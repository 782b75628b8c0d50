package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-ledger/internal/integration"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueIntegration carries document events from other subsystems.
	QueueIntegration = "integration"

	TaskLedgerIntegrity    = "ledger:integrity"
	TaskSalesInvoicePosted = "ledger:sales_invoice_posted"
	TaskPurchaseBillPosted = "ledger:purchase_bill_posted"
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// LedgerIntegrityPayload scopes an integrity run. A zero CompanyID checks every company.
type LedgerIntegrityPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewLedgerIntegrityTask constructs the integrity task.
func NewLedgerIntegrityTask(companyID int64) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerIntegrityPayload{CompanyID: companyID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewSalesInvoicePostedTask wraps a sales invoice event.
func NewSalesInvoicePostedTask(evt integration.SalesInvoicePostedEvent) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesInvoicePosted, data), nil
}

// NewPurchaseBillPostedTask wraps a purchase bill event.
func NewPurchaseBillPostedTask(evt integration.PurchaseBillPostedEvent) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurchaseBillPosted, data), nil
}

// IdempotencyCleanupPayload sets how long processed event keys are kept.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
