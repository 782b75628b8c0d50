// Package ledgerstore is an in-memory ledger backing the accounting repositories in tests.
// Every WithTx runs against a private copy of the state that replaces the shared state only
// when the callback succeeds, so failed operations leave nothing behind.
package ledgerstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
)

// Invoice is a sales or purchase document visible to the reports.
type Invoice struct {
	ID          int64
	CompanyID   int64
	Number      string
	PartnerID   int64
	InvoiceDate time.Time
	DueDate     time.Time
	Total       float64
	PaidAmount  float64
	Status      string
}

type state struct {
	accounts  map[int64]accounts.Account
	entries   map[int64]journals.JournalEntry
	lines     map[int64][]journals.JournalLine
	periods   map[int64]periods.Period
	sequences map[int64]int64
	mappings  map[mappingKey]mappings.AccountMapping
	sales     []Invoice
	purchases []Invoice
	nextID    int64
}

func (s *state) clone() *state {
	c := &state{
		accounts:  make(map[int64]accounts.Account, len(s.accounts)),
		entries:   make(map[int64]journals.JournalEntry, len(s.entries)),
		lines:     make(map[int64][]journals.JournalLine, len(s.lines)),
		periods:   make(map[int64]periods.Period, len(s.periods)),
		sequences: make(map[int64]int64, len(s.sequences)),
		mappings:  make(map[mappingKey]mappings.AccountMapping, len(s.mappings)),
		sales:     append([]Invoice(nil), s.sales...),
		purchases: append([]Invoice(nil), s.purchases...),
		nextID:    s.nextID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = append([]journals.JournalLine(nil), v...)
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.mappings {
		c.mappings[k] = v
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store holds the shared ledger state.
type Store struct {
	mu    sync.Mutex
	state *state
	// FailApply makes balance application fail for the listed account ids.
	FailApply map[int64]error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state: &state{
			accounts:  map[int64]accounts.Account{},
			entries:   map[int64]journals.JournalEntry{},
			lines:     map[int64][]journals.JournalLine{},
			periods:   map[int64]periods.Period{},
			sequences: map[int64]int64{},
			mappings:  map[mappingKey]mappings.AccountMapping{},
		},
		FailApply: map[int64]error{},
	}
}

// ErrInjected is returned by FailApply hooks created with FailOn.
var ErrInjected = errors.New("ledgerstore: injected failure")

// FailOn makes every later balance application against accountID fail.
func (s *Store) FailOn(accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailApply[accountID] = fmt.Errorf("%w: account %d", ErrInjected, accountID)
}

// read runs fn against the committed state.
func (s *Store) read(fn func(*state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// tx runs fn against a copy that is committed only when fn succeeds.
func (s *Store) tx(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.state = work
	return nil
}

// AddAccount seeds an account and returns it with its id.
func (s *Store) AddAccount(a accounts.Account) accounts.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.state.id()
	if a.Nature == "" {
		a.Nature = accounts.DefaultNature(a.Type)
	}
	if a.Classification == "" {
		a.Classification = accounts.DefaultClassification(a.Code, a.Type)
	}
	a.IsActive = true
	s.state.accounts[a.ID] = a
	return a
}

// Account returns the committed account by id.
func (s *Store) Account(id int64) accounts.Account {
	var out accounts.Account
	s.read(func(st *state) { out = st.accounts[id] })
	return out
}

// Balance returns the committed balance of an account.
func (s *Store) Balance(id int64) float64 {
	return s.Account(id).Balance
}

// LineCount returns the number of stored lines for a journal.
func (s *Store) LineCount(journalID int64) int {
	var n int
	s.read(func(st *state) { n = len(st.lines[journalID]) })
	return n
}

// AddSalesInvoice seeds a sales document.
func (s *Store) AddSalesInvoice(inv Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.state.id()
	s.state.sales = append(s.state.sales, inv)
}

// AddPurchaseInvoice seeds a purchase document.
func (s *Store) AddPurchaseInvoice(inv Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.state.id()
	s.state.purchases = append(s.state.purchases, inv)
}

// Accounts returns the account directory view.
func (s *Store) Accounts() accounts.Repository { return accountRepo{s} }

// Journals returns the journal entry store view.
func (s *Store) Journals() journals.Repository { return journalRepo{s} }

// Periods returns the fiscal period view.
func (s *Store) Periods() periods.Repository { return periodRepo{s} }
