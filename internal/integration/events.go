package integration

import (
	"context"
	"time"
)

// SalesInvoicePostedEvent carries the values needed to book a sales invoice.
type SalesInvoicePostedEvent struct {
	CompanyID  int64     `json:"company_id"`
	ID         int64     `json:"id"`
	Number     string    `json:"number"`
	CustomerID int64     `json:"customer_id"`
	PostedBy   int64     `json:"posted_by"`
	PostedAt   time.Time `json:"posted_at"`
	Subtotal   float64   `json:"subtotal"`
	Tax        float64   `json:"tax"`
}

// PurchaseBillPostedEvent carries the values needed to book a supplier bill.
type PurchaseBillPostedEvent struct {
	CompanyID  int64     `json:"company_id"`
	ID         int64     `json:"id"`
	Number     string    `json:"number"`
	SupplierID int64     `json:"supplier_id"`
	PostedBy   int64     `json:"posted_by"`
	PostedAt   time.Time `json:"posted_at"`
	Subtotal   float64   `json:"subtotal"`
	Tax        float64   `json:"tax"`
}

// Handler receives document events for ledger integration.
type Handler interface {
	HandleSalesInvoicePosted(ctx context.Context, evt SalesInvoicePostedEvent) error
	HandlePurchaseBillPosted(ctx context.Context, evt PurchaseBillPostedEvent) error
}
