package journals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/balances"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// ReversalPolicy selects what Reverse does to balances.
type ReversalPolicy string

const (
	// ReversalMirror books an auto-generated entry with debits and credits swapped.
	ReversalMirror ReversalPolicy = "mirror"
	// ReversalLabel only flips the status of the original entry.
	ReversalLabel ReversalPolicy = "label"
)

// ParseReversalPolicy validates a configured policy name.
func ParseReversalPolicy(raw string) (ReversalPolicy, error) {
	switch p := ReversalPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return ReversalMirror, nil
	case ReversalMirror, ReversalLabel:
		return p, nil
	default:
		return "", fmt.Errorf("journals: unknown reversal policy %q", raw)
	}
}

// Options tunes posting behaviour.
type Options struct {
	ReversalPolicy  ReversalPolicy
	RequireBalanced bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{ReversalPolicy: ReversalMirror, RequireBalanced: true}
}

// AuditPort records journal lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// MetricsPort counts postings and reversals.
type MetricsPort interface {
	JournalPosted(auto bool)
	JournalReversed(policy string)
}

// CacheInvalidator drops cached reports after balances move.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, companyID int64) error
}

// Service drives the journal entry state machine.
type Service struct {
	repo    Repository
	opts    Options
	audit   AuditPort
	metrics MetricsPort
	cache   CacheInvalidator
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs the journal entry store.
func NewService(repo Repository, opts Options, audit AuditPort, logger *slog.Logger) *Service {
	if opts.ReversalPolicy == "" {
		opts.ReversalPolicy = ReversalMirror
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, opts: opts, audit: audit, logger: logger, now: time.Now}
}

// WithMetrics attaches posting counters.
func (s *Service) WithMetrics(m MetricsPort) *Service {
	s.metrics = m
	return s
}

// WithCache attaches the report cache invalidator.
func (s *Service) WithCache(c CacheInvalidator) *Service {
	s.cache = c
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create stores a new DRAFT entry.
func (s *Service) Create(ctx context.Context, companyID, actorID int64, in CreateInput) (JournalEntry, error) {
	entry, err := s.create(ctx, companyID, actorID, in, nil)
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, companyID, actorID, "journal.create", entry.ID, map[string]any{"number": entry.Number})
	return entry, nil
}

// CreateAuto stores an auto-generated entry linked to a source document, posting it in the
// same transaction when requested.
func (s *Service) CreateAuto(ctx context.Context, companyID, actorID int64, in AutoInput) (JournalEntry, error) {
	if strings.TrimSpace(in.SourceModule) == "" {
		return JournalEntry{}, fmt.Errorf("%w: source_module", shared.ErrMissingField)
	}
	if strings.TrimSpace(in.SourceRef) == "" {
		return JournalEntry{}, fmt.Errorf("%w: source_ref", shared.ErrMissingField)
	}
	entry, err := s.create(ctx, companyID, actorID, in.CreateInput, &in)
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, companyID, actorID, "journal.create_auto", entry.ID, map[string]any{
		"number":        entry.Number,
		"source_module": entry.SourceModule,
		"source_ref":    entry.SourceRef,
		"posted":        in.Post,
	})
	if in.Post {
		s.afterPost(ctx, companyID, true)
	}
	return entry, nil
}

func (s *Service) create(ctx context.Context, companyID, actorID int64, in CreateInput, auto *AutoInput) (JournalEntry, error) {
	if companyID <= 0 {
		return JournalEntry{}, internalShared.ErrTenantMissing
	}
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkAccounts(ctx, tx, companyID, in.Lines); err != nil {
			return err
		}
		period, err := tx.PeriodForDate(ctx, companyID, in.EntryDate)
		if err != nil {
			return err
		}
		if period != nil && period.Closed {
			return fmt.Errorf("%w: %s", shared.ErrPeriodClosed, in.EntryDate.Format(time.DateOnly))
		}
		number, err := tx.NextNumber(ctx, companyID)
		if err != nil {
			return err
		}
		draft := JournalEntry{
			CompanyID:   companyID,
			Number:      number,
			EntryDate:   in.EntryDate,
			Description: in.Description,
			Status:      JournalStatusDraft,
			CreatedBy:   optionalID(actorID),
		}
		if auto != nil {
			draft.IsAutoGenerated = true
			draft.SourceModule = strings.TrimSpace(auto.SourceModule)
			draft.SourceRef = strings.TrimSpace(auto.SourceRef)
		}
		entry, err = tx.InsertEntry(ctx, draft)
		if err != nil {
			return err
		}
		entry.Lines, err = tx.InsertLines(ctx, entry.ID, in.Lines)
		if err != nil {
			return err
		}
		if auto != nil && auto.Post {
			return s.postInTx(ctx, tx, companyID, actorID, &entry)
		}
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// Get returns an entry with its lines.
func (s *Service) Get(ctx context.Context, companyID, id int64) (JournalEntry, error) {
	if companyID <= 0 {
		return JournalEntry{}, internalShared.ErrTenantMissing
	}
	return s.repo.Get(ctx, companyID, id)
}

// List pages through entries, newest number first.
func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]JournalEntry, internalShared.Pagination, error) {
	if companyID <= 0 {
		return nil, internalShared.Pagination{}, internalShared.ErrTenantMissing
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, internalShared.Pagination{}, fmt.Errorf("%w: status %q", shared.ErrInvalidField, filter.Status)
	}
	page := internalShared.NewPagination(filter.Page, filter.PerPage, 0)
	entries, total, err := s.repo.List(ctx, companyID, filter.Status, page.PerPage, page.Offset())
	if err != nil {
		return nil, internalShared.Pagination{}, err
	}
	return entries, internalShared.NewPagination(page.Page, page.PerPage, total), nil
}

// Edit replaces the date, description and lines of a hand-made draft.
func (s *Service) Edit(ctx context.Context, companyID, actorID, id int64, in EditInput) (JournalEntry, error) {
	if companyID <= 0 {
		return JournalEntry{}, internalShared.ErrTenantMissing
	}
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !current.Editable() {
			return transitionError("edit", current)
		}
		if err := checkAccounts(ctx, tx, companyID, in.Lines); err != nil {
			return err
		}
		period, err := tx.PeriodForDate(ctx, companyID, in.EntryDate)
		if err != nil {
			return err
		}
		if period != nil && period.Closed {
			return fmt.Errorf("%w: %s", shared.ErrPeriodClosed, in.EntryDate.Format(time.DateOnly))
		}
		if err := tx.UpdateHeader(ctx, id, in.EntryDate, in.Description); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, id, in.Lines)
		if err != nil {
			return err
		}
		entry = current
		entry.EntryDate = in.EntryDate
		entry.Description = in.Description
		entry.Lines = lines
		entry.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, companyID, actorID, "journal.edit", id, map[string]any{"lines": len(entry.Lines)})
	return entry, nil
}

// Post moves a DRAFT entry to POSTED and applies its lines to account balances, all in one
// transaction.
func (s *Service) Post(ctx context.Context, companyID, actorID, id int64) (JournalEntry, error) {
	if companyID <= 0 {
		return JournalEntry{}, internalShared.ErrTenantMissing
	}
	if actorID <= 0 {
		return JournalEntry{}, internalShared.ErrActorMissing
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusDraft {
			return transitionError("post", current)
		}
		entry = current
		return s.postInTx(ctx, tx, companyID, actorID, &entry)
	})
	if err != nil {
		return JournalEntry{}, err
	}
	debit, credit := entry.Totals()
	s.record(ctx, companyID, actorID, "journal.post", id, map[string]any{
		"number": entry.Number,
		"debit":  debit,
		"credit": credit,
	})
	s.afterPost(ctx, companyID, entry.IsAutoGenerated)
	return entry, nil
}

func (s *Service) postInTx(ctx context.Context, tx TxRepository, companyID, actorID int64, entry *JournalEntry) error {
	period, err := tx.PeriodForDate(ctx, companyID, entry.EntryDate)
	if err != nil {
		return err
	}
	if period != nil && period.Closed {
		return fmt.Errorf("%w: %s", shared.ErrPeriodClosed, entry.EntryDate.Format(time.DateOnly))
	}
	if s.opts.RequireBalanced {
		debit, credit := entry.Totals()
		if !shared.NearlyEqual(debit, credit) {
			return fmt.Errorf("%w: debit %.2f credit %.2f", shared.ErrUnbalanced, debit, credit)
		}
	}
	if err := tx.ApplyNetChanges(ctx, companyID, netChanges(entry.Lines)); err != nil {
		return err
	}
	at := s.now()
	if err := tx.MarkPosted(ctx, entry.ID, actorID, at); err != nil {
		return err
	}
	entry.Status = JournalStatusPosted
	entry.PostedBy = optionalID(actorID)
	entry.PostedAt = &at
	return nil
}

// Reverse reverses a POSTED entry according to the configured policy. Under the mirror
// policy the returned reversal is the new offsetting entry; under label it is nil.
func (s *Service) Reverse(ctx context.Context, companyID, actorID, id int64, in ReverseInput) (JournalEntry, *JournalEntry, error) {
	if companyID <= 0 {
		return JournalEntry{}, nil, internalShared.ErrTenantMissing
	}
	if actorID <= 0 {
		return JournalEntry{}, nil, internalShared.ErrActorMissing
	}
	var (
		original JournalEntry
		reversal *JournalEntry
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if current.Status != JournalStatusPosted {
			return transitionError("reverse", current)
		}
		at := s.now()
		if s.opts.ReversalPolicy == ReversalLabel {
			if err := tx.MarkReversed(ctx, current.ID, actorID, at, nil); err != nil {
				return err
			}
		} else {
			mirrored, err := s.mirror(ctx, tx, companyID, actorID, current, in, at)
			if err != nil {
				return err
			}
			if err := tx.MarkReversed(ctx, current.ID, actorID, at, &mirrored.ID); err != nil {
				return err
			}
			current.ReversalEntryID = &mirrored.ID
			reversal = &mirrored
		}
		current.Status = JournalStatusReversed
		current.ReversedBy = &actorID
		current.ReversedAt = &at
		original = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, nil, err
	}
	meta := map[string]any{"policy": string(s.opts.ReversalPolicy)}
	if reversal != nil {
		meta["reversal_id"] = reversal.ID
		meta["reversal_number"] = reversal.Number
	}
	s.record(ctx, companyID, actorID, "journal.reverse", id, meta)
	if s.metrics != nil {
		s.metrics.JournalReversed(string(s.opts.ReversalPolicy))
	}
	if reversal != nil {
		s.invalidate(ctx, companyID)
	}
	return original, reversal, nil
}

func (s *Service) mirror(ctx context.Context, tx TxRepository, companyID, actorID int64, original JournalEntry, in ReverseInput, at time.Time) (JournalEntry, error) {
	date := original.EntryDate
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}
	period, err := tx.PeriodForDate(ctx, companyID, date)
	if err != nil {
		return JournalEntry{}, err
	}
	if period != nil && period.Closed {
		next, err := tx.NextOpenPeriodAfter(ctx, companyID, period.EndDate)
		if err != nil {
			return JournalEntry{}, err
		}
		if next == nil {
			return JournalEntry{}, fmt.Errorf("%w: no open period after %s", shared.ErrPeriodClosed, period.EndDate.Format(time.DateOnly))
		}
		date = next.StartDate
	}
	number, err := tx.NextNumber(ctx, companyID)
	if err != nil {
		return JournalEntry{}, err
	}
	originalID := original.ID
	mirrored, err := tx.InsertEntry(ctx, JournalEntry{
		CompanyID:       companyID,
		Number:          number,
		EntryDate:       date,
		Description:     defaultReversalMemo(strings.TrimSpace(in.Description), original.Number),
		Status:          JournalStatusPosted,
		IsAutoGenerated: true,
		SourceModule:    original.SourceModule,
		SourceRef:       original.SourceRef,
		CreatedBy:       optionalID(actorID),
		PostedBy:        optionalID(actorID),
		PostedAt:        &at,
		ReversalOfID:    &originalID,
	})
	if err != nil {
		return JournalEntry{}, err
	}
	mirrored.Lines, err = tx.InsertLines(ctx, mirrored.ID, swapLines(original.Lines))
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.ApplyNetChanges(ctx, companyID, netChanges(mirrored.Lines)); err != nil {
		return JournalEntry{}, err
	}
	return mirrored, nil
}

// Delete removes a hand-made draft and its lines.
func (s *Service) Delete(ctx context.Context, companyID, actorID, id int64) error {
	if companyID <= 0 {
		return internalShared.ErrTenantMissing
	}
	var number int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !current.Editable() {
			return transitionError("delete", current)
		}
		number = current.Number
		if err := tx.DeleteLines(ctx, id); err != nil {
			return err
		}
		return tx.DeleteEntry(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, companyID, actorID, "journal.delete", id, map[string]any{"number": number})
	return nil
}

func checkAccounts(ctx context.Context, tx TxRepository, companyID int64, lines []LineInput) error {
	ids := accountIDs(lines)
	refs, err := tx.LoadAccounts(ctx, companyID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		ref, ok := refs[id]
		if !ok {
			return fmt.Errorf("%w: %d", shared.ErrAccountNotFound, id)
		}
		if ref.IsHeader {
			return fmt.Errorf("%w: %d", shared.ErrHeaderAccount, id)
		}
		if !ref.IsActive {
			return fmt.Errorf("%w: account %d is inactive", shared.ErrInvalidLine, id)
		}
	}
	return nil
}

func netChanges(lines []JournalLine) []balances.Change {
	out := make([]balances.Change, 0, len(lines))
	for _, l := range lines {
		out = append(out, balances.Change{AccountID: l.AccountID, NetChange: l.NetChange()})
	}
	return out
}

func transitionError(action string, e JournalEntry) error {
	if e.IsAutoGenerated && (action == "edit" || action == "delete") {
		return fmt.Errorf("%w: cannot %s auto-generated entry %d", shared.ErrInvalidTransition, action, e.Number)
	}
	return fmt.Errorf("%w: cannot %s %s entry %d", shared.ErrInvalidTransition, action, strings.ToLower(string(e.Status)), e.Number)
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func (s *Service) afterPost(ctx context.Context, companyID int64, auto bool) {
	if s.metrics != nil {
		s.metrics.JournalPosted(auto)
	}
	s.invalidate(ctx, companyID)
}

func (s *Service) invalidate(ctx context.Context, companyID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, companyID); err != nil {
		s.logger.Warn("invalidate report cache", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, companyID, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, internalShared.AuditLog{
		CompanyID: companyID,
		ActorID:   actorID,
		Action:    action,
		Entity:    "journal_entry",
		EntityID:  fmt.Sprintf("%d", id),
		Meta:      meta,
		At:        s.now(),
	}); err != nil {
		s.logger.Warn("audit journal", slog.String("action", action), slog.Any("error", err))
	}
}
