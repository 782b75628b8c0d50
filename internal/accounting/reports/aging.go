package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Ledger selects which open documents an aging report covers.
type Ledger string

const (
	LedgerReceivable Ledger = "AR"
	LedgerPayable    Ledger = "AP"
)

// ParseLedger accepts ar/ap in any case; empty selects receivables.
func ParseLedger(raw string) (Ledger, error) {
	switch l := Ledger(strings.ToUpper(strings.TrimSpace(raw))); l {
	case "":
		return LedgerReceivable, nil
	case LedgerReceivable, LedgerPayable:
		return l, nil
	default:
		return "", fmt.Errorf("%w: ledger %q", shared.ErrInvalidField, raw)
	}
}

// Aging bucket labels in report order.
const (
	BucketCurrent = "current"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	BucketOver90  = "90+"
)

var bucketOrder = []string{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// OpenDocument is an invoice with an unpaid remainder.
type OpenDocument struct {
	ID          int64     `json:"id"`
	Number      string    `json:"number"`
	PartnerID   int64     `json:"partner_id"`
	DueDate     time.Time `json:"due_date"`
	Outstanding float64   `json:"outstanding"`
}

// AgingBucket summarises an amount inside a time bucket.
type AgingBucket struct {
	Bucket string  `json:"bucket"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// AgingReport groups outstanding documents by days past due.
type AgingReport struct {
	Ledger  Ledger        `json:"ledger"`
	AsOf    time.Time     `json:"as_of"`
	Buckets []AgingBucket `json:"buckets"`
	Total   float64       `json:"total"`
}

// BucketFor returns the bucket label for a document due on due, seen on asOf.
func BucketFor(due, asOf time.Time) string {
	days := int(truncateDay(asOf).Sub(truncateDay(due)).Hours() / 24)
	switch {
	case days <= 0:
		return BucketCurrent
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// BuildAging buckets open documents. Every bucket is present even when empty.
func BuildAging(ledger Ledger, asOf time.Time, docs []OpenDocument) AgingReport {
	index := make(map[string]int, len(bucketOrder))
	report := AgingReport{Ledger: ledger, AsOf: truncateDay(asOf), Buckets: make([]AgingBucket, len(bucketOrder))}
	for i, label := range bucketOrder {
		report.Buckets[i] = AgingBucket{Bucket: label}
		index[label] = i
	}
	for _, doc := range docs {
		if doc.Outstanding <= 0 {
			continue
		}
		b := &report.Buckets[index[BucketFor(doc.DueDate, asOf)]]
		b.Count++
		b.Amount = shared.Sum(b.Amount, doc.Outstanding)
		report.Total = shared.Sum(report.Total, doc.Outstanding)
	}
	return report
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
