package shared

import "errors"

// Error categories. Every ledger error unwraps to exactly one of these.
var (
	// ErrValidation indicates missing or malformed input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict indicates a transition guard failed.
	ErrStateConflict = errors.New("state conflict")
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrUnexpected indicates a store-level failure.
	ErrUnexpected = errors.New("unexpected error")
)

// Error is a categorised ledger error with a stable machine-readable code.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return "accounting: " + e.Message
}

// Unwrap exposes the category so errors.Is(err, ErrStateConflict) holds.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// ErrMissingField indicates a required input is absent.
	ErrMissingField = newError(ErrValidation, "MISSING_FIELD", "required field missing")
	// ErrInvalidField indicates an input value is not acceptable.
	ErrInvalidField = newError(ErrValidation, "INVALID_FIELD", "invalid field value")
	// ErrInvalidLine indicates a journal line with negative or two-sided amounts.
	ErrInvalidLine = newError(ErrValidation, "INVALID_LINE", "invalid journal line")
	// ErrUnbalanced indicates debit != credit at posting time.
	ErrUnbalanced = newError(ErrValidation, "UNBALANCED", "journal lines must balance")
	// ErrHeaderAccount indicates a header account was used as a posting target.
	ErrHeaderAccount = newError(ErrValidation, "HEADER_ACCOUNT", "header accounts cannot be posted to")

	// ErrDuplicateCode indicates the account code is already used by the company.
	ErrDuplicateCode = newError(ErrStateConflict, "DUPLICATE_CODE", "account code already exists")
	// ErrInvalidTransition indicates a journal lifecycle guard failed.
	ErrInvalidTransition = newError(ErrStateConflict, "INVALID_TRANSITION", "invalid status transition")
	// ErrPeriodClosed indicates the entry date falls in a closed period.
	ErrPeriodClosed = newError(ErrStateConflict, "PERIOD_CLOSED", "period is closed")
	// ErrAlreadyExists indicates fiscal periods already exist for the year.
	ErrAlreadyExists = newError(ErrStateConflict, "ALREADY_EXISTS", "fiscal year already exists")
	// ErrAlreadyClosed indicates the period is already closed.
	ErrAlreadyClosed = newError(ErrStateConflict, "ALREADY_CLOSED", "period already closed")
	// ErrNotClosed indicates reopening a period that is open.
	ErrNotClosed = newError(ErrStateConflict, "NOT_CLOSED", "period is not closed")
	// ErrOutOfOrder indicates periods must close ascending and reopen descending.
	ErrOutOfOrder = newError(ErrStateConflict, "OUT_OF_ORDER", "period sequence violated")
	// ErrUnpostedEntries indicates draft entries remain inside the period.
	ErrUnpostedEntries = newError(ErrStateConflict, "UNPOSTED_ENTRIES", "period has unposted entries")
	// ErrSourceAlreadyLinked indicates an auto-generated entry already exists for the source.
	ErrSourceAlreadyLinked = newError(ErrStateConflict, "SOURCE_ALREADY_LINKED", "source already linked")

	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = newError(ErrNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	// ErrJournalNotFound indicates a missing journal entry.
	ErrJournalNotFound = newError(ErrNotFound, "JOURNAL_NOT_FOUND", "journal entry not found")
	// ErrPeriodNotFound indicates a missing fiscal period.
	ErrPeriodNotFound = newError(ErrNotFound, "PERIOD_NOT_FOUND", "period not found")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = newError(ErrNotFound, "MAPPING_NOT_FOUND", "account mapping not found")
)

// CodeOf returns the machine-readable code carried by err, or "UNEXPECTED".
func CodeOf(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return "UNEXPECTED"
}
