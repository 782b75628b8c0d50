package mappings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type Repository interface {
	Get(ctx context.Context, companyID int64, module, key string) (AccountMapping, error)
	List(ctx context.Context, companyID int64) ([]AccountMapping, error)
	Upsert(ctx context.Context, companyID int64, in SetInput) (AccountMapping, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const mappingColumns = `company_id, module, key, account_id, created_at, updated_at`

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, companyID int64, module, key string) (AccountMapping, error) {
	row := r.db.QueryRow(ctx, `SELECT `+mappingColumns+` FROM account_mappings WHERE company_id=$1 AND module=$2 AND key=$3`,
		companyID, normalizeModule(module), key)
	mapping, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, fmt.Errorf("%w: %s/%s", shared.ErrMappingNotFound, module, key)
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

func (r *repository) List(ctx context.Context, companyID int64) ([]AccountMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT `+mappingColumns+` FROM account_mappings WHERE company_id=$1 ORDER BY module, key`, companyID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AccountMapping, error) {
		return scanMapping(row)
	})
}

func (r *repository) Upsert(ctx context.Context, companyID int64, in SetInput) (AccountMapping, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO account_mappings (company_id, module, key, account_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (company_id, module, key)
DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = NOW()
RETURNING `+mappingColumns, companyID, in.Module, in.Key, in.AccountID)
	return scanMapping(row)
}

func scanMapping(row pgx.Row) (AccountMapping, error) {
	var m AccountMapping
	err := row.Scan(&m.CompanyID, &m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
