package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the audit_logs reader.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Find(ctx context.Context, q Query) ([]TimelineRow, error) {
	var (
		where = []string{"company_id = $1"}
		args  = []any{q.CompanyID}
	)
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("occurred_at < $%d", len(args)))
	}
	if q.ActorID > 0 {
		args = append(args, q.ActorID)
		where = append(where, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if q.Entity != "" {
		args = append(args, q.Entity)
		where = append(where, fmt.Sprintf("entity = $%d", len(args)))
	}
	if q.Action != "" {
		args = append(args, q.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	query := `SELECT id, occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY occurred_at DESC, id DESC`
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TimelineRow, error) {
		var (
			out  TimelineRow
			meta []byte
		)
		if err := row.Scan(&out.ID, &out.At, &out.ActorID, &out.Action, &out.Entity, &out.EntityID, &meta); err != nil {
			return TimelineRow{}, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &out.Meta); err != nil {
				return TimelineRow{}, fmt.Errorf("audit meta %d: %w", out.ID, err)
			}
		}
		return out, nil
	})
}
