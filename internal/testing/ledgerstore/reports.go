package ledgerstore

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

type reportRepo struct{ s *Store }

// Reports returns the read model view.
func (s *Store) Reports() reports.Repository { return reportRepo{s} }

func (r reportRepo) AccountBalances(_ context.Context, companyID int64, asOf *time.Time) ([]reports.AccountBalance, error) {
	var out []reports.AccountBalance
	r.s.read(func(st *state) {
		late := map[int64]decimal.Decimal{}
		if asOf != nil {
			late = signedNets(st, companyID, func(e journals.JournalEntry) bool { return e.EntryDate.After(*asOf) })
		}
		for _, a := range st.accounts {
			if a.CompanyID != companyID || a.IsHeader {
				continue
			}
			balance := decimal.NewFromFloat(a.Balance).Sub(late[a.ID])
			out = append(out, reports.AccountBalance{
				ID:             a.ID,
				Code:           a.Code,
				Name:           a.Name,
				Type:           a.Type,
				Nature:         a.Nature,
				Classification: a.Classification,
				Balance:        balance.Round(2).InexactFloat64(),
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r reportRepo) LedgerBalances(_ context.Context, companyID int64) (map[int64]float64, error) {
	out := map[int64]float64{}
	r.s.read(func(st *state) {
		for id, net := range signedNets(st, companyID, func(journals.JournalEntry) bool { return true }) {
			out[id] = net.Round(2).InexactFloat64()
		}
	})
	return out, nil
}

func (r reportRepo) DocumentTotals(_ context.Context, companyID int64, from, to time.Time) (reports.DocumentTotals, error) {
	var totals reports.DocumentTotals
	r.s.read(func(st *state) {
		totals.Sales = sumDocuments(st.sales, companyID, from, to)
		totals.Purchases = sumDocuments(st.purchases, companyID, from, to)
	})
	return totals, nil
}

func (r reportRepo) OpenDocuments(_ context.Context, companyID int64, ledger reports.Ledger, asOf time.Time) ([]reports.OpenDocument, error) {
	var out []reports.OpenDocument
	r.s.read(func(st *state) {
		docs := st.sales
		if ledger == reports.LedgerPayable {
			docs = st.purchases
		}
		for _, inv := range docs {
			if inv.CompanyID != companyID || !counted(inv) || inv.InvoiceDate.After(asOf) {
				continue
			}
			outstanding := decimal.NewFromFloat(inv.Total).Sub(decimal.NewFromFloat(inv.PaidAmount))
			if !outstanding.IsPositive() {
				continue
			}
			out = append(out, reports.OpenDocument{
				ID:          inv.ID,
				Number:      inv.Number,
				PartnerID:   inv.PartnerID,
				DueDate:     inv.DueDate,
				Outstanding: outstanding.InexactFloat64(),
			})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r reportRepo) CompanyIDs(context.Context) ([]int64, error) {
	seen := map[int64]struct{}{}
	var out []int64
	r.s.read(func(st *state) {
		for _, a := range st.accounts {
			if _, ok := seen[a.CompanyID]; !ok {
				seen[a.CompanyID] = struct{}{}
				out = append(out, a.CompanyID)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// SetBalance overwrites a stored balance, simulating drift.
func (s *Store) SetBalance(accountID int64, balance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.state.accounts[accountID]
	a.Balance = balance
	s.state.accounts[accountID] = a
}

func signedNets(st *state, companyID int64, include func(journals.JournalEntry) bool) map[int64]decimal.Decimal {
	out := map[int64]decimal.Decimal{}
	for id, e := range st.entries {
		if e.CompanyID != companyID || e.Status == journals.JournalStatusDraft || !include(e) {
			continue
		}
		for _, l := range st.lines[id] {
			net := decimal.NewFromFloat(l.Debit).Sub(decimal.NewFromFloat(l.Credit))
			if st.accounts[l.AccountID].Nature == accounts.NatureCredit {
				net = net.Neg()
			}
			out[l.AccountID] = out[l.AccountID].Add(net)
		}
	}
	return out
}

func counted(inv Invoice) bool {
	return inv.Status != "DRAFT" && inv.Status != "VOID"
}

func sumDocuments(docs []Invoice, companyID int64, from, to time.Time) float64 {
	total := decimal.Zero
	for _, inv := range docs {
		if inv.CompanyID != companyID || !counted(inv) || inv.InvoiceDate.Before(from) || inv.InvoiceDate.After(to) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(inv.Total))
	}
	return total.Round(2).InexactFloat64()
}
