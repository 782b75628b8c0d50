package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// exportLimit caps CSV exports.
	exportLimit = 10000
)

// Repository menyediakan akses ke audit_logs.
type Repository interface {
	Find(ctx context.Context, q Query) ([]TimelineRow, error)
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	repo Repository
}

// NewService membuat service audit timeline baru.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline mengambil data audit dengan paging, terbaru lebih dulu.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	q, err := s.query(filters)
	if err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize + 1
	rows, err := s.repo.Find(ctx, q)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export mengambil seluruh data timeline tanpa paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	q, err := s.query(filters)
	if err != nil {
		return nil, err
	}
	q.Limit = exportLimit
	return s.repo.Find(ctx, q)
}

func (s *Service) query(filters TimelineFilters) (Query, error) {
	if s.repo == nil {
		return Query{}, fmt.Errorf("audit: repository not configured")
	}
	if filters.CompanyID <= 0 {
		return Query{}, internalShared.ErrTenantMissing
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.From.After(filters.To) {
		return Query{}, fmt.Errorf("%w: from after to", shared.ErrInvalidField)
	}
	q := Query{
		CompanyID: filters.CompanyID,
		From:      filters.From,
		ActorID:   filters.ActorID,
		Entity:    strings.TrimSpace(filters.Entity),
		Action:    strings.TrimSpace(filters.Action),
	}
	if !filters.To.IsZero() {
		// inclusive end day
		q.To = filters.To.Add(24 * time.Hour)
	}
	return q, nil
}
