package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Ledger exposes the journal operation required by integrations.
type Ledger interface {
	CreateAuto(ctx context.Context, companyID, actorID int64, in journals.AutoInput) (journals.JournalEntry, error)
}

// AccountResolver provides mapping lookups.
type AccountResolver interface {
	Resolve(ctx context.Context, companyID int64, module, key string) (int64, error)
}

// Idempotency records processed events.
type Idempotency interface {
	CheckAndInsert(ctx context.Context, companyID int64, key, module string) error
	Delete(ctx context.Context, companyID int64, key string) error
}

// Hooks wires document events from operational modules into the general ledger.
type Hooks struct {
	ledger   Ledger
	mappings AccountResolver
	idem     Idempotency
	logger   *slog.Logger
}

// NewHooks constructs integration hooks. idem may be nil.
func NewHooks(ledger Ledger, resolver AccountResolver, idem Idempotency, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{ledger: ledger, mappings: resolver, idem: idem, logger: logger}
}

// HandleSalesInvoicePosted books receivable, revenue and output tax for a sales invoice.
func (h *Hooks) HandleSalesInvoicePosted(ctx context.Context, evt SalesInvoicePostedEvent) error {
	if h == nil || h.ledger == nil || h.mappings == nil {
		return nil
	}
	if evt.PostedAt.IsZero() {
		return fmt.Errorf("%w: sales invoice posted_at", shared.ErrMissingField)
	}
	if shared.Round2(evt.Subtotal+evt.Tax) <= 0 {
		return nil
	}
	var acc salesAccounts
	var err error
	if acc.receivable, err = h.mappings.Resolve(ctx, evt.CompanyID, mappings.ModuleSales, mappings.KeySalesReceivable); err != nil {
		return err
	}
	if acc.revenue, err = h.mappings.Resolve(ctx, evt.CompanyID, mappings.ModuleSales, mappings.KeySalesRevenue); err != nil {
		return err
	}
	if shared.Round2(evt.Tax) > 0 {
		if acc.tax, err = h.mappings.Resolve(ctx, evt.CompanyID, mappings.ModuleSales, mappings.KeySalesTax); err != nil {
			return err
		}
	}
	return h.post(ctx, evt.CompanyID, evt.PostedBy, journals.AutoInput{
		CreateInput: journals.CreateInput{
			EntryDate:   evt.PostedAt,
			Description: fmt.Sprintf("Sales Invoice %s", evt.Number),
			Lines:       salesLines(acc, evt.CustomerID, evt.Subtotal, evt.Tax),
		},
		SourceModule: SourceSalesInvoice,
		SourceRef:    sourceRef(SourceSalesInvoice, evt.CompanyID, evt.ID),
		Post:         true,
	})
}

// HandlePurchaseBillPosted books expense, input tax and payable for a supplier bill.
func (h *Hooks) HandlePurchaseBillPosted(ctx context.Context, evt PurchaseBillPostedEvent) error {
	if h == nil || h.ledger == nil || h.mappings == nil {
		return nil
	}
	if evt.PostedAt.IsZero() {
		return fmt.Errorf("%w: purchase bill posted_at", shared.ErrMissingField)
	}
	if shared.Round2(evt.Subtotal+evt.Tax) <= 0 {
		return nil
	}
	var acc purchaseAccounts
	var err error
	if acc.payable, err = h.mappings.Resolve(ctx, evt.CompanyID, mappings.ModulePurchase, mappings.KeyPurchasePayable); err != nil {
		return err
	}
	if acc.expense, err = h.mappings.Resolve(ctx, evt.CompanyID, mappings.ModulePurchase, mappings.KeyPurchaseExpense); err != nil {
		return err
	}
	if shared.Round2(evt.Tax) > 0 {
		if acc.tax, err = h.mappings.Resolve(ctx, evt.CompanyID, mappings.ModulePurchase, mappings.KeyPurchaseTax); err != nil {
			return err
		}
	}
	return h.post(ctx, evt.CompanyID, evt.PostedBy, journals.AutoInput{
		CreateInput: journals.CreateInput{
			EntryDate:   evt.PostedAt,
			Description: fmt.Sprintf("Purchase Bill %s", evt.Number),
			Lines:       purchaseLines(acc, evt.SupplierID, evt.Subtotal, evt.Tax),
		},
		SourceModule: SourcePurchaseBill,
		SourceRef:    sourceRef(SourcePurchaseBill, evt.CompanyID, evt.ID),
		Post:         true,
	})
}

func (h *Hooks) post(ctx context.Context, companyID, actorID int64, in journals.AutoInput) error {
	key := internalShared.IdempotencyKey(in.SourceModule, in.SourceRef)
	if h.idem != nil {
		if err := h.idem.CheckAndInsert(ctx, companyID, key, in.SourceModule); err != nil {
			if errors.Is(err, internalShared.ErrIdempotencyConflict) {
				h.logger.Debug("integration event already processed", slog.String("key", key))
				return nil
			}
			return err
		}
	}
	entry, err := h.ledger.CreateAuto(ctx, companyID, actorID, in)
	if err != nil {
		if errors.Is(err, shared.ErrSourceAlreadyLinked) {
			return nil
		}
		if h.idem != nil {
			if derr := h.idem.Delete(ctx, companyID, key); derr != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", derr))
			}
		}
		return err
	}
	h.logger.Info("integration entry posted",
		slog.Int64("company_id", companyID),
		slog.String("source_module", in.SourceModule),
		slog.Int64("journal_id", entry.ID),
		slog.Int64("number", entry.Number))
	return nil
}

var _ Handler = (*Hooks)(nil)
