package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	Get(ctx context.Context, companyID, id int64) (JournalEntry, error)
	List(ctx context.Context, companyID int64, status JournalStatus, limit, offset int) ([]JournalEntry, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, companyID int64) (int64, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLines(ctx context.Context, journalID int64, lines []LineInput) ([]JournalLine, error)
	// GetForUpdate loads and row-locks an entry together with its lines.
	GetForUpdate(ctx context.Context, companyID, id int64) (JournalEntry, error)
	UpdateHeader(ctx context.Context, id int64, date time.Time, description string) error
	DeleteLines(ctx context.Context, journalID int64) error
	DeleteEntry(ctx context.Context, id int64) error
	MarkPosted(ctx context.Context, id, actorID int64, at time.Time) error
	MarkReversed(ctx context.Context, id, actorID int64, at time.Time, reversalEntryID *int64) error
	LoadAccounts(ctx context.Context, companyID int64, ids []int64) (map[int64]AccountRef, error)
	// PeriodForDate returns the period covering date under a shared lock, or nil.
	PeriodForDate(ctx context.Context, companyID int64, date time.Time) (*PeriodRef, error)
	// NextOpenPeriodAfter returns the earliest open period starting after date, or nil.
	NextOpenPeriodAfter(ctx context.Context, companyID int64, date time.Time) (*PeriodRef, error)
	ApplyNetChanges(ctx context.Context, companyID int64, changes []balances.Change) error
}

type repository struct {
	db      *pgxpool.Pool
	mutator *balances.Mutator
}

// NewRepository constructs the pgx-backed journal repository.
func NewRepository(pool *pgxpool.Pool, mutator *balances.Mutator) Repository {
	if mutator == nil {
		mutator = balances.NewMutator()
	}
	return &repository{db: pool, mutator: mutator}
}

const entryColumns = `id, company_id, number, entry_date, description, status, is_auto_generated, source_module, source_ref,
created_by, posted_by, posted_at, reversed_by, reversed_at, reversal_of_id, reversal_entry_id, created_at, updated_at`

const lineColumns = `id, journal_id, account_id, debit::float8, credit::float8, description, partner_type, partner_id, created_at`

func (r *repository) Get(ctx context.Context, companyID, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE company_id = $1 AND id = $2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	entry.Lines, err = queryLines(ctx, r.db, id)
	return entry, err
}

func (r *repository) List(ctx context.Context, companyID int64, status JournalStatus, limit, offset int) ([]JournalEntry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE company_id = $1 AND ($2 = '' OR status = $2)`,
		companyID, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE company_id = $1 AND ($2 = '' OR status = $2)
ORDER BY number DESC LIMIT $3 OFFSET $4`, companyID, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxOptions(ctx, r.db, db.LedgerTxOptions, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, mutator: r.mutator})
	})
}

type txRepository struct {
	tx      pgx.Tx
	mutator *balances.Mutator
}

func (r *txRepository) NextNumber(ctx context.Context, companyID int64) (int64, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (company_id, last_number) VALUES ($1, 1)
ON CONFLICT (company_id) DO UPDATE SET last_number = journal_sequences.last_number + 1
RETURNING last_number`, companyID).Scan(&n)
	return n, err
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	inserted, err := scanEntry(r.tx.QueryRow(ctx, `INSERT INTO journal_entries (company_id, number, entry_date, description, status, is_auto_generated,
source_module, source_ref, created_by, posted_by, posted_at, reversal_of_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING `+entryColumns,
		e.CompanyID, e.Number, e.EntryDate, e.Description, e.Status, e.IsAutoGenerated,
		e.SourceModule, e.SourceRef, e.CreatedBy, e.PostedBy, e.PostedAt, e.ReversalOfID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "uq_journal_entries_source" {
			return JournalEntry{}, fmt.Errorf("%w: %s/%s", shared.ErrSourceAlreadyLinked, e.SourceModule, e.SourceRef)
		}
		return JournalEntry{}, err
	}
	return inserted, nil
}

func (r *txRepository) InsertLines(ctx context.Context, journalID int64, lines []LineInput) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		var partnerType any
		if line.PartnerType != nil {
			partnerType = string(*line.PartnerType)
		}
		inserted, err := scanLine(r.tx.QueryRow(ctx, `INSERT INTO journal_lines (journal_id, account_id, debit, credit, description, partner_type, partner_id)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING `+lineColumns,
			journalID, line.AccountID, shared.ToNumeric(line.Debit), shared.ToNumeric(line.Credit), line.Description, partnerType, line.PartnerID))
		if err != nil {
			return nil, err
		}
		out = append(out, inserted)
	}
	return out, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, companyID, id int64) (JournalEntry, error) {
	entry, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE company_id = $1 AND id = $2 FOR UPDATE`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	entry.Lines, err = queryLines(ctx, r.tx, id)
	return entry, err
}

func (r *txRepository) UpdateHeader(ctx context.Context, id int64, date time.Time, description string) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET entry_date = $2, description = $3, updated_at = NOW() WHERE id = $1`, id, date, description)
	return err
}

func (r *txRepository) DeleteLines(ctx context.Context, journalID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id = $1`, journalID)
	return err
}

func (r *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) MarkPosted(ctx context.Context, id, actorID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status = 'POSTED', posted_by = NULLIF($2::bigint, 0), posted_at = $3, updated_at = NOW() WHERE id = $1`, id, actorID, at)
	return err
}

func (r *txRepository) MarkReversed(ctx context.Context, id, actorID int64, at time.Time, reversalEntryID *int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status = 'REVERSED', reversed_by = $2, reversed_at = $3, reversal_entry_id = $4, updated_at = NOW()
WHERE id = $1`, id, actorID, at, reversalEntryID)
	return err
}

func (r *txRepository) LoadAccounts(ctx context.Context, companyID int64, ids []int64) (map[int64]AccountRef, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, is_header, is_active FROM accounts WHERE company_id = $1 AND id = ANY($2)`, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]AccountRef, len(ids))
	for rows.Next() {
		var a AccountRef
		if err := rows.Scan(&a.ID, &a.IsHeader, &a.IsActive); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *txRepository) PeriodForDate(ctx context.Context, companyID int64, date time.Time) (*PeriodRef, error) {
	return scanPeriodRef(r.tx.QueryRow(ctx, `SELECT id, start_date, end_date, status = 'CLOSED' FROM fiscal_periods
WHERE company_id = $1 AND $2::date BETWEEN start_date AND end_date
ORDER BY start_date LIMIT 1
FOR SHARE`, companyID, date))
}

func (r *txRepository) NextOpenPeriodAfter(ctx context.Context, companyID int64, date time.Time) (*PeriodRef, error) {
	return scanPeriodRef(r.tx.QueryRow(ctx, `SELECT id, start_date, end_date, status = 'CLOSED' FROM fiscal_periods
WHERE company_id = $1 AND status = 'OPEN' AND start_date > $2::date
ORDER BY start_date LIMIT 1
FOR SHARE`, companyID, date))
}

func (r *txRepository) ApplyNetChanges(ctx context.Context, companyID int64, changes []balances.Change) error {
	_, err := r.mutator.ApplyAll(ctx, r.tx, companyID, changes)
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q querier, journalID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines WHERE journal_id = $1 ORDER BY id`, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.Number, &e.EntryDate, &e.Description, &e.Status, &e.IsAutoGenerated,
		&e.SourceModule, &e.SourceRef, &e.CreatedBy, &e.PostedBy, &e.PostedAt, &e.ReversedBy, &e.ReversedAt,
		&e.ReversalOfID, &e.ReversalEntryID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func scanLine(row pgx.Row) (JournalLine, error) {
	var (
		l           JournalLine
		partnerType *string
	)
	if err := row.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Debit, &l.Credit, &l.Description, &partnerType, &l.PartnerID, &l.CreatedAt); err != nil {
		return JournalLine{}, err
	}
	if partnerType != nil {
		pt := PartnerType(*partnerType)
		l.PartnerType = &pt
	}
	return l, nil
}

func scanPeriodRef(row pgx.Row) (*PeriodRef, error) {
	var p PeriodRef
	if err := row.Scan(&p.ID, &p.StartDate, &p.EndDate, &p.Closed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
