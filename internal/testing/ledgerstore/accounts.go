package ledgerstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type accountRepo struct{ s *Store }

func (r accountRepo) List(_ context.Context, companyID int64, filter accounts.ListFilter) ([]accounts.Account, error) {
	var out []accounts.Account
	r.s.read(func(st *state) {
		for _, a := range st.accounts {
			if a.CompanyID != companyID {
				continue
			}
			if filter.Type != "" && a.Type != filter.Type {
				continue
			}
			if filter.ParentID != nil && (a.ParentID == nil || *a.ParentID != *filter.ParentID) {
				continue
			}
			if !filter.IncludeHeaders && a.IsHeader {
				continue
			}
			out = append(out, a)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r accountRepo) Get(_ context.Context, companyID, id int64) (accounts.Account, error) {
	var (
		a  accounts.Account
		ok bool
	)
	r.s.read(func(st *state) { a, ok = st.accounts[id] })
	if !ok || a.CompanyID != companyID {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (r accountRepo) GetByCode(_ context.Context, companyID int64, code string) (accounts.Account, error) {
	var (
		out accounts.Account
		ok  bool
	)
	r.s.read(func(st *state) {
		for _, a := range st.accounts {
			if a.CompanyID == companyID && a.Code == code {
				out, ok = a, true
				return
			}
		}
	})
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return out, nil
}

func (r accountRepo) Create(_ context.Context, companyID int64, in accounts.CreateInput) (accounts.Account, error) {
	var created accounts.Account
	err := r.s.tx(func(st *state) error {
		for _, a := range st.accounts {
			if a.CompanyID == companyID && a.Code == in.Code {
				return fmt.Errorf("%w: %s", shared.ErrDuplicateCode, in.Code)
			}
		}
		now := time.Now()
		created = accounts.Account{
			ID:             st.id(),
			CompanyID:      companyID,
			Code:           in.Code,
			Name:           in.Name,
			LocalizedName:  in.LocalizedName,
			Type:           in.Type,
			Nature:         in.Nature,
			Classification: in.Classification,
			IsHeader:       in.IsHeader,
			ParentID:       in.ParentID,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		st.accounts[created.ID] = created
		return nil
	})
	return created, err
}
