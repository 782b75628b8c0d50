package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the data behind the reports. It never writes.
type Repository interface {
	// AccountBalances returns postable accounts ordered by code. A non-nil asOf rolls each
	// balance back by the posted lines dated after it.
	AccountBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]AccountBalance, error)
	// LedgerBalances recomputes nature-signed balances from posted and reversed lines.
	LedgerBalances(ctx context.Context, companyID int64) (map[int64]float64, error)
	DocumentTotals(ctx context.Context, companyID int64, from, to time.Time) (DocumentTotals, error)
	OpenDocuments(ctx context.Context, companyID int64, ledger Ledger, asOf time.Time) ([]OpenDocument, error)
	CompanyIDs(ctx context.Context) ([]int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed read model.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const signedLineNet = `CASE WHEN acc.account_nature = 'CREDIT' THEN l.credit - l.debit ELSE l.debit - l.credit END`

const accountBalancesSQL = `
SELECT a.id, a.code, a.name, a.account_type, a.account_nature, a.classification,
       (a.balance - COALESCE(late.net, 0))::float8
FROM accounts a
LEFT JOIN (
    SELECT l.account_id, SUM(` + signedLineNet + `) AS net
    FROM journal_lines l
    JOIN journal_entries e ON e.id = l.journal_id
    JOIN accounts acc ON acc.id = l.account_id
    WHERE e.company_id = $1
      AND e.status IN ('POSTED', 'REVERSED')
      AND $2::date IS NOT NULL
      AND e.entry_date > $2::date
    GROUP BY l.account_id
) late ON late.account_id = a.id
WHERE a.company_id = $1 AND a.is_header = FALSE
ORDER BY a.code`

func (r *repository) AccountBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, accountBalancesSQL, companyID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Type, &b.Nature, &b.Classification, &b.Balance); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) LedgerBalances(ctx context.Context, companyID int64) (map[int64]float64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT l.account_id, SUM(`+signedLineNet+`)::float8
FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
JOIN accounts acc ON acc.id = l.account_id
WHERE e.company_id = $1 AND e.status IN ('POSTED', 'REVERSED')
GROUP BY l.account_id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]float64)
	for rows.Next() {
		var (
			id  int64
			net float64
		)
		if err := rows.Scan(&id, &net); err != nil {
			return nil, err
		}
		out[id] = net
	}
	return out, rows.Err()
}

func (r *repository) DocumentTotals(ctx context.Context, companyID int64, from, to time.Time) (DocumentTotals, error) {
	var totals DocumentTotals
	err := r.pool.QueryRow(ctx, `
SELECT
    COALESCE((SELECT SUM(total) FROM sales_invoices
              WHERE company_id = $1 AND invoice_date BETWEEN $2 AND $3
                AND status NOT IN ('DRAFT', 'VOID')), 0)::float8,
    COALESCE((SELECT SUM(total) FROM purchase_invoices
              WHERE company_id = $1 AND invoice_date BETWEEN $2 AND $3
                AND status NOT IN ('DRAFT', 'VOID')), 0)::float8`,
		companyID, from, to).Scan(&totals.Sales, &totals.Purchases)
	return totals, err
}

func (r *repository) OpenDocuments(ctx context.Context, companyID int64, ledger Ledger, asOf time.Time) ([]OpenDocument, error) {
	query := `
SELECT id, number, customer_id, due_date, (total - paid_amount)::float8
FROM sales_invoices
WHERE company_id = $1 AND invoice_date <= $2 AND total > paid_amount
  AND status NOT IN ('DRAFT', 'VOID')
ORDER BY due_date, id`
	if ledger == LedgerPayable {
		query = `
SELECT id, number, supplier_id, due_date, (total - paid_amount)::float8
FROM purchase_invoices
WHERE company_id = $1 AND invoice_date <= $2 AND total > paid_amount
  AND status NOT IN ('DRAFT', 'VOID')
ORDER BY due_date, id`
	}
	rows, err := r.pool.Query(ctx, query, companyID, asOf)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OpenDocument, error) {
		var d OpenDocument
		err := row.Scan(&d.ID, &d.Number, &d.PartnerID, &d.DueDate, &d.Outstanding)
		return d, err
	})
}

func (r *repository) CompanyIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT company_id FROM accounts ORDER BY company_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
