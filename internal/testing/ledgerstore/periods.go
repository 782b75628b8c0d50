package ledgerstore

import (
	"context"
	"sort"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type periodRepo struct{ s *Store }

func (r periodRepo) List(_ context.Context, companyID int64, year int) ([]periods.Period, error) {
	var out []periods.Period
	r.s.read(func(st *state) {
		for _, p := range st.periods {
			if p.CompanyID == companyID && (year == 0 || p.FiscalYear == year) {
				out = append(out, p)
			}
		}
	})
	sortPeriods(out)
	return out, nil
}

func (r periodRepo) Get(_ context.Context, companyID, id int64) (periods.Period, error) {
	var (
		p  periods.Period
		ok bool
	)
	r.s.read(func(st *state) { p, ok = st.periods[id] })
	if !ok || p.CompanyID != companyID {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return p, nil
}

func (r periodRepo) FindByDate(_ context.Context, companyID int64, date time.Time) (periods.Period, error) {
	var (
		out periods.Period
		ok  bool
	)
	r.s.read(func(st *state) {
		for _, p := range st.periods {
			if p.CompanyID == companyID && p.Contains(date) {
				out, ok = p, true
				return
			}
		}
	})
	if !ok {
		return periods.Period{}, shared.ErrPeriodNotFound
	}
	return out, nil
}

func (r periodRepo) WithTx(ctx context.Context, fn func(context.Context, periods.TxRepository) error) error {
	return r.s.tx(func(st *state) error {
		return fn(ctx, periodTx{st: st})
	})
}

type periodTx struct{ st *state }

func (t periodTx) CountYear(_ context.Context, companyID int64, year int) (int, error) {
	n := 0
	for _, p := range t.st.periods {
		if p.CompanyID == companyID && p.FiscalYear == year {
			n++
		}
	}
	return n, nil
}

func (t periodTx) InsertPeriods(_ context.Context, in []periods.Period) ([]periods.Period, error) {
	out := make([]periods.Period, 0, len(in))
	now := time.Now()
	for _, p := range in {
		p.ID = t.st.id()
		p.CreatedAt = now
		p.UpdatedAt = now
		t.st.periods[p.ID] = p
		out = append(out, p)
	}
	return out, nil
}

func (t periodTx) LockYearOf(_ context.Context, companyID, periodID int64) ([]periods.Period, error) {
	target, ok := t.st.periods[periodID]
	if !ok || target.CompanyID != companyID {
		return nil, nil
	}
	var out []periods.Period
	for _, p := range t.st.periods {
		if p.CompanyID == companyID && p.FiscalYear == target.FiscalYear {
			out = append(out, p)
		}
	}
	sortPeriods(out)
	return out, nil
}

func (t periodTx) CountDrafts(_ context.Context, companyID int64, start, end time.Time) (int, error) {
	n := 0
	for _, e := range t.st.entries {
		if e.CompanyID != companyID || e.Status != journals.JournalStatusDraft {
			continue
		}
		if !e.EntryDate.Before(start) && !e.EntryDate.After(end) {
			n++
		}
	}
	return n, nil
}

func (t periodTx) MarkClosed(_ context.Context, id, actorID int64, at time.Time) (periods.Period, error) {
	p := t.st.periods[id]
	p.Status = periods.PeriodStatusClosed
	p.ClosedBy = &actorID
	p.ClosedAt = &at
	t.st.periods[id] = p
	return p, nil
}

func (t periodTx) MarkOpen(_ context.Context, id, actorID int64, at time.Time) (periods.Period, error) {
	p := t.st.periods[id]
	p.Status = periods.PeriodStatusOpen
	p.ReopenedBy = &actorID
	p.ReopenedAt = &at
	t.st.periods[id] = p
	return p, nil
}

func sortPeriods(ps []periods.Period) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].FiscalYear != ps[j].FiscalYear {
			return ps[i].FiscalYear < ps[j].FiscalYear
		}
		return ps[i].PeriodNumber < ps[j].PeriodNumber
	})
}
