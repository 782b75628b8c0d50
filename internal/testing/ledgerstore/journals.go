package ledgerstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

type journalRepo struct{ s *Store }

func (r journalRepo) Get(_ context.Context, companyID, id int64) (journals.JournalEntry, error) {
	var (
		e  journals.JournalEntry
		ok bool
	)
	r.s.read(func(st *state) {
		e, ok = st.entries[id]
		if ok {
			e.Lines = append([]journals.JournalLine(nil), st.lines[id]...)
		}
	})
	if !ok || e.CompanyID != companyID {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	return e, nil
}

func (r journalRepo) List(_ context.Context, companyID int64, status journals.JournalStatus, limit, offset int) ([]journals.JournalEntry, int, error) {
	var all []journals.JournalEntry
	r.s.read(func(st *state) {
		for _, e := range st.entries {
			if e.CompanyID == companyID && (status == "" || e.Status == status) {
				all = append(all, e)
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].Number > all[j].Number })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r journalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	return r.s.tx(func(st *state) error {
		return fn(ctx, &journalTx{store: r.s, st: st})
	})
}

type journalTx struct {
	store *Store
	st    *state
}

func (t *journalTx) NextNumber(_ context.Context, companyID int64) (int64, error) {
	t.st.sequences[companyID]++
	return t.st.sequences[companyID], nil
}

func (t *journalTx) InsertEntry(_ context.Context, e journals.JournalEntry) (journals.JournalEntry, error) {
	if e.SourceRef != "" && e.ReversalOfID == nil {
		for _, other := range t.st.entries {
			if other.CompanyID == e.CompanyID && other.SourceModule == e.SourceModule &&
				other.SourceRef == e.SourceRef && other.ReversalOfID == nil {
				return journals.JournalEntry{}, fmt.Errorf("%w: %s/%s", shared.ErrSourceAlreadyLinked, e.SourceModule, e.SourceRef)
			}
		}
	}
	now := time.Now()
	e.ID = t.st.id()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Lines = nil
	t.st.entries[e.ID] = e
	return e, nil
}

func (t *journalTx) InsertLines(_ context.Context, journalID int64, lines []journals.LineInput) ([]journals.JournalLine, error) {
	out := make([]journals.JournalLine, 0, len(lines))
	for _, l := range lines {
		line := journals.JournalLine{
			ID:          t.st.id(),
			JournalID:   journalID,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
			PartnerType: l.PartnerType,
			PartnerID:   l.PartnerID,
			CreatedAt:   time.Now(),
		}
		t.st.lines[journalID] = append(t.st.lines[journalID], line)
		out = append(out, line)
	}
	return out, nil
}

func (t *journalTx) GetForUpdate(_ context.Context, companyID, id int64) (journals.JournalEntry, error) {
	e, ok := t.st.entries[id]
	if !ok || e.CompanyID != companyID {
		return journals.JournalEntry{}, shared.ErrJournalNotFound
	}
	e.Lines = append([]journals.JournalLine(nil), t.st.lines[id]...)
	return e, nil
}

func (t *journalTx) UpdateHeader(_ context.Context, id int64, date time.Time, description string) error {
	e := t.st.entries[id]
	e.EntryDate = date
	e.Description = description
	e.UpdatedAt = time.Now()
	t.st.entries[id] = e
	return nil
}

func (t *journalTx) DeleteLines(_ context.Context, journalID int64) error {
	delete(t.st.lines, journalID)
	return nil
}

func (t *journalTx) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := t.st.entries[id]; !ok {
		return shared.ErrJournalNotFound
	}
	if len(t.st.lines[id]) > 0 {
		return fmt.Errorf("ledgerstore: journal %d still has lines", id)
	}
	delete(t.st.entries, id)
	return nil
}

func (t *journalTx) MarkPosted(_ context.Context, id, actorID int64, at time.Time) error {
	e := t.st.entries[id]
	e.Status = journals.JournalStatusPosted
	if actorID > 0 {
		e.PostedBy = &actorID
	}
	e.PostedAt = &at
	t.st.entries[id] = e
	return nil
}

func (t *journalTx) MarkReversed(_ context.Context, id, actorID int64, at time.Time, reversalEntryID *int64) error {
	e := t.st.entries[id]
	e.Status = journals.JournalStatusReversed
	e.ReversedBy = &actorID
	e.ReversedAt = &at
	e.ReversalEntryID = reversalEntryID
	t.st.entries[id] = e
	return nil
}

func (t *journalTx) LoadAccounts(_ context.Context, companyID int64, ids []int64) (map[int64]journals.AccountRef, error) {
	out := make(map[int64]journals.AccountRef, len(ids))
	for _, id := range ids {
		a, ok := t.st.accounts[id]
		if !ok || a.CompanyID != companyID {
			continue
		}
		out[id] = journals.AccountRef{ID: a.ID, IsHeader: a.IsHeader, IsActive: a.IsActive}
	}
	return out, nil
}

func (t *journalTx) PeriodForDate(_ context.Context, companyID int64, date time.Time) (*journals.PeriodRef, error) {
	for _, p := range t.st.periods {
		if p.CompanyID == companyID && p.Contains(date) {
			return periodRef(p), nil
		}
	}
	return nil, nil
}

func (t *journalTx) NextOpenPeriodAfter(_ context.Context, companyID int64, date time.Time) (*journals.PeriodRef, error) {
	var best *periods.Period
	for _, p := range t.st.periods {
		if p.CompanyID != companyID || p.Status != periods.PeriodStatusOpen || !p.StartDate.After(date) {
			continue
		}
		if best == nil || p.StartDate.Before(best.StartDate) {
			cp := p
			best = &cp
		}
	}
	if best == nil {
		return nil, nil
	}
	return periodRef(*best), nil
}

func (t *journalTx) ApplyNetChanges(_ context.Context, companyID int64, changes []balances.Change) error {
	nets := balances.Aggregate(changes)
	ids := make([]int64, 0, len(nets))
	for id := range nets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := t.store.FailApply[id]; err != nil {
			return err
		}
		a, ok := t.st.accounts[id]
		if !ok || a.CompanyID != companyID {
			return fmt.Errorf("%w: %d", shared.ErrAccountNotFound, id)
		}
		if a.IsHeader {
			return fmt.Errorf("%w: %d", shared.ErrHeaderAccount, id)
		}
		delta := decimal.NewFromFloat(nets[id])
		if a.Nature == accounts.NatureCredit {
			delta = delta.Neg()
		}
		a.Balance = decimal.NewFromFloat(a.Balance).Add(delta).Round(2).InexactFloat64()
		t.st.accounts[id] = a
	}
	return nil
}

func periodRef(p periods.Period) *journals.PeriodRef {
	return &journals.PeriodRef{
		ID:        p.ID,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Closed:    p.Status == periods.PeriodStatusClosed,
	}
}
