package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository reads fiscal periods and opens transactions for period changes.
type Repository interface {
	List(ctx context.Context, companyID int64, year int) ([]Period, error)
	Get(ctx context.Context, companyID, id int64) (Period, error)
	FindByDate(ctx context.Context, companyID int64, date time.Time) (Period, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes period operations that must run inside one transaction.
type TxRepository interface {
	CountYear(ctx context.Context, companyID int64, year int) (int, error)
	InsertPeriods(ctx context.Context, periods []Period) ([]Period, error)
	// LockYearOf locks every period sharing the fiscal year of periodID, ordered by
	// period number.
	LockYearOf(ctx context.Context, companyID, periodID int64) ([]Period, error)
	CountDrafts(ctx context.Context, companyID int64, start, end time.Time) (int, error)
	MarkClosed(ctx context.Context, id, actorID int64, at time.Time) (Period, error)
	MarkOpen(ctx context.Context, id, actorID int64, at time.Time) (Period, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed period repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const periodColumns = `id, company_id, fiscal_year, period_number, start_date, end_date, status,
closed_by, closed_at, reopened_by, reopened_at, created_at, updated_at`

func (r *repository) List(ctx context.Context, companyID int64, year int) ([]Period, error) {
	query := `SELECT ` + periodColumns + ` FROM fiscal_periods WHERE company_id = $1`
	args := []any{companyID}
	if year > 0 {
		query += ` AND fiscal_year = $2`
		args = append(args, year)
	}
	query += ` ORDER BY fiscal_year, period_number`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectPeriods(rows)
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods WHERE company_id = $1 AND id = $2`, companyID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.ErrPeriodNotFound
	}
	return p, err
}

func (r *repository) FindByDate(ctx context.Context, companyID int64, date time.Time) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE company_id = $1 AND $2::date BETWEEN start_date AND end_date
ORDER BY start_date LIMIT 1`, companyID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, shared.ErrPeriodNotFound
	}
	return p, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.db, db.LedgerTxOptions, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) CountYear(ctx context.Context, companyID int64, year int) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM fiscal_periods WHERE company_id = $1 AND fiscal_year = $2`, companyID, year).Scan(&n)
	return n, err
}

func (r *txRepository) InsertPeriods(ctx context.Context, periods []Period) ([]Period, error) {
	out := make([]Period, 0, len(periods))
	for _, p := range periods {
		inserted, err := scanPeriod(r.tx.QueryRow(ctx, `INSERT INTO fiscal_periods (company_id, fiscal_year, period_number, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+periodColumns,
			p.CompanyID, p.FiscalYear, p.PeriodNumber, p.StartDate, p.EndDate, p.Status))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, fmt.Errorf("%w: %d", shared.ErrAlreadyExists, p.FiscalYear)
			}
			return nil, err
		}
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) LockYearOf(ctx context.Context, companyID, periodID int64) ([]Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+periodColumns+` FROM fiscal_periods
WHERE company_id = $1 AND fiscal_year = (SELECT fiscal_year FROM fiscal_periods WHERE company_id = $1 AND id = $2)
ORDER BY period_number
FOR UPDATE`, companyID, periodID)
	if err != nil {
		return nil, err
	}
	return collectPeriods(rows)
}

func (r *txRepository) CountDrafts(ctx context.Context, companyID int64, start, end time.Time) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries
WHERE company_id = $1 AND status = 'DRAFT' AND entry_date BETWEEN $2 AND $3`, companyID, start, end).Scan(&n)
	return n, err
}

func (r *txRepository) MarkClosed(ctx context.Context, id, actorID int64, at time.Time) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `UPDATE fiscal_periods SET status = 'CLOSED', closed_by = $2, closed_at = $3, updated_at = NOW()
WHERE id = $1 RETURNING `+periodColumns, id, actorID, at))
}

func (r *txRepository) MarkOpen(ctx context.Context, id, actorID int64, at time.Time) (Period, error) {
	return scanPeriod(r.tx.QueryRow(ctx, `UPDATE fiscal_periods SET status = 'OPEN', reopened_by = $2, reopened_at = $3, updated_at = NOW()
WHERE id = $1 RETURNING `+periodColumns, id, actorID, at))
}

func collectPeriods(rows pgx.Rows) ([]Period, error) {
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.CompanyID, &p.FiscalYear, &p.PeriodNumber, &p.StartDate, &p.EndDate, &p.Status,
		&p.ClosedBy, &p.ClosedAt, &p.ReopenedBy, &p.ReopenedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
