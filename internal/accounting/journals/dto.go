package journals

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// LineInput describes one journal line in a create or edit request.
type LineInput struct {
	AccountID   int64        `json:"account_id"`
	Debit       float64      `json:"debit"`
	Credit      float64      `json:"credit"`
	Description string       `json:"description"`
	PartnerType *PartnerType `json:"partner_type,omitempty"`
	PartnerID   *int64       `json:"partner_id,omitempty"`
}

// CreateInput groups fields required to create a draft entry.
type CreateInput struct {
	EntryDate   time.Time   `json:"-"`
	Description string      `json:"description"`
	Lines       []LineInput `json:"lines"`
}

// AutoInput creates an entry on behalf of another subsystem.
type AutoInput struct {
	CreateInput
	SourceModule string
	SourceRef    string
	// Post posts the entry in the same transaction that creates it.
	Post bool
}

// EditInput replaces the header fields and lines of a draft entry.
type EditInput = CreateInput

// ReverseInput carries the optional date and memo of a reversing entry.
type ReverseInput struct {
	Date        *time.Time
	Description string
}

// ListFilter narrows List results.
type ListFilter struct {
	Status  JournalStatus
	Page    int
	PerPage int
}

// Validate checks header fields and every line. Drafts may be unbalanced.
func (in *CreateInput) Validate() error {
	in.Description = strings.TrimSpace(in.Description)
	if in.EntryDate.IsZero() {
		return fmt.Errorf("%w: entry_date", shared.ErrMissingField)
	}
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: lines", shared.ErrMissingField)
	}
	for idx := range in.Lines {
		if err := validateLine(idx, &in.Lines[idx]); err != nil {
			return err
		}
	}
	return nil
}

func validateLine(idx int, line *LineInput) error {
	if line.AccountID <= 0 {
		return fmt.Errorf("%w: line %d account_id", shared.ErrMissingField, idx+1)
	}
	if line.Debit < 0 || line.Credit < 0 {
		return fmt.Errorf("%w: line %d has a negative amount", shared.ErrInvalidLine, idx+1)
	}
	line.Debit = shared.Round2(line.Debit)
	line.Credit = shared.Round2(line.Credit)
	if line.Debit > 0 && line.Credit > 0 {
		return fmt.Errorf("%w: line %d cannot be both debit and credit", shared.ErrInvalidLine, idx+1)
	}
	if line.Debit == 0 && line.Credit == 0 {
		return fmt.Errorf("%w: line %d has no amount", shared.ErrInvalidLine, idx+1)
	}
	if line.PartnerType != nil {
		switch *line.PartnerType {
		case PartnerCustomer, PartnerSupplier:
		default:
			return fmt.Errorf("%w: line %d partner_type %q", shared.ErrInvalidField, idx+1, *line.PartnerType)
		}
		if line.PartnerID == nil || *line.PartnerID <= 0 {
			return fmt.Errorf("%w: line %d partner_id", shared.ErrMissingField, idx+1)
		}
	}
	line.Description = strings.TrimSpace(line.Description)
	return nil
}

func lineTotals(lines []JournalLine) (debit, credit float64) {
	debits := make([]float64, 0, len(lines))
	credits := make([]float64, 0, len(lines))
	for _, l := range lines {
		debits = append(debits, l.Debit)
		credits = append(credits, l.Credit)
	}
	return shared.Sum(debits...), shared.Sum(credits...)
}

func accountIDs(lines []LineInput) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	out := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		out = append(out, l.AccountID)
	}
	return out
}

func swapLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			AccountID:   l.AccountID,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
			PartnerType: l.PartnerType,
			PartnerID:   l.PartnerID,
		})
	}
	return out
}

func defaultReversalMemo(memo string, number int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}
