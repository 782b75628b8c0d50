package ledgerstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type mappingKey struct {
	companyID int64
	module    string
	key       string
}

type mappingRepo struct{ s *Store }

// Mappings returns the account mapping view.
func (s *Store) Mappings() mappings.Repository { return mappingRepo{s} }

func (r mappingRepo) Get(_ context.Context, companyID int64, module, key string) (mappings.AccountMapping, error) {
	var (
		m  mappings.AccountMapping
		ok bool
	)
	r.s.read(func(st *state) {
		m, ok = st.mappings[mappingKey{companyID, strings.ToUpper(module), key}]
	})
	if !ok {
		return mappings.AccountMapping{}, fmt.Errorf("%w: %s/%s", shared.ErrMappingNotFound, module, key)
	}
	return m, nil
}

func (r mappingRepo) List(_ context.Context, companyID int64) ([]mappings.AccountMapping, error) {
	var out []mappings.AccountMapping
	r.s.read(func(st *state) {
		for k, m := range st.mappings {
			if k.companyID == companyID {
				out = append(out, m)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r mappingRepo) Upsert(_ context.Context, companyID int64, in mappings.SetInput) (mappings.AccountMapping, error) {
	var out mappings.AccountMapping
	err := r.s.tx(func(st *state) error {
		k := mappingKey{companyID, in.Module, in.Key}
		now := time.Now()
		m, ok := st.mappings[k]
		if !ok {
			m = mappings.AccountMapping{CompanyID: companyID, Module: in.Module, Key: in.Key, CreatedAt: now}
		}
		m.AccountID = in.AccountID
		m.UpdatedAt = now
		st.mappings[k] = m
		out = m
		return nil
	})
	return out, err
}
