package journals

import "time"

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusDraft    JournalStatus = "DRAFT"
	JournalStatusPosted   JournalStatus = "POSTED"
	JournalStatusReversed JournalStatus = "REVERSED"
)

// Valid reports whether s is a known status.
func (s JournalStatus) Valid() bool {
	switch s {
	case JournalStatusDraft, JournalStatusPosted, JournalStatusReversed:
		return true
	}
	return false
}

// PartnerType tags a line with the counterparty kind used for aging.
type PartnerType string

const (
	PartnerCustomer PartnerType = "CUSTOMER"
	PartnerSupplier PartnerType = "SUPPLIER"
)

// JournalEntry captures entry metadata and, when loaded, its lines.
type JournalEntry struct {
	ID              int64         `json:"id"`
	CompanyID       int64         `json:"company_id"`
	Number          int64         `json:"number"`
	EntryDate       time.Time     `json:"entry_date"`
	Description     string        `json:"description"`
	Status          JournalStatus `json:"status"`
	IsAutoGenerated bool          `json:"is_auto_generated"`
	SourceModule    string        `json:"source_module,omitempty"`
	SourceRef       string        `json:"source_ref,omitempty"`
	CreatedBy       *int64        `json:"created_by,omitempty"`
	PostedBy        *int64        `json:"posted_by,omitempty"`
	PostedAt        *time.Time    `json:"posted_at,omitempty"`
	ReversedBy      *int64        `json:"reversed_by,omitempty"`
	ReversedAt      *time.Time    `json:"reversed_at,omitempty"`
	ReversalOfID    *int64        `json:"reversal_of_id,omitempty"`
	ReversalEntryID *int64        `json:"reversal_entry_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Lines           []JournalLine `json:"lines,omitempty"`
}

// Editable reports whether the entry may be hand-edited or deleted.
func (e JournalEntry) Editable() bool {
	return e.Status == JournalStatusDraft && !e.IsAutoGenerated
}

// Totals returns the summed debit and credit of the loaded lines.
func (e JournalEntry) Totals() (debit, credit float64) {
	return lineTotals(e.Lines)
}

// JournalLine stores a debit or credit amount for an account.
type JournalLine struct {
	ID          int64        `json:"id"`
	JournalID   int64        `json:"journal_id"`
	AccountID   int64        `json:"account_id"`
	Debit       float64      `json:"debit"`
	Credit      float64      `json:"credit"`
	Description string       `json:"description,omitempty"`
	PartnerType *PartnerType `json:"partner_type,omitempty"`
	PartnerID   *int64       `json:"partner_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NetChange is the line's movement as debit minus credit.
func (l JournalLine) NetChange() float64 {
	return l.Debit - l.Credit
}

// AccountRef is the posting-relevant view of an account.
type AccountRef struct {
	ID       int64
	IsHeader bool
	IsActive bool
}

// PeriodRef is the gating view of the fiscal period covering a date.
type PeriodRef struct {
	ID        int64
	StartDate time.Time
	EndDate   time.Time
	Closed    bool
}
