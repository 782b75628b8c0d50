package audit

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

type stubTimelineRepo struct {
	rows     []TimelineRow
	lastCall Query
}

func (s *stubTimelineRepo) Find(_ context.Context, q Query) ([]TimelineRow, error) {
	s.lastCall = q
	rows := s.rows
	if q.Offset < len(rows) {
		rows = rows[q.Offset:]
	} else {
		rows = nil
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		rows: []TimelineRow{
			mockRow("2024-03-10T10:00:00Z", 7, "journal.post", "journal_entry", "1"),
			mockRow("2024-03-09T09:00:00Z", 7, "period.close", "fiscal_period", "2"),
			mockRow("2024-03-08T08:00:00Z", 0, "account.create", "account", "3"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		CompanyID: 1,
		From:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Page:      1,
		PageSize:  2,
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext || result.Paging.NextPage != 2 {
		t.Fatalf("expected next page 2, got %+v", result.Paging)
	}
	if repo.lastCall.Limit != 3 || repo.lastCall.Offset != 0 {
		t.Fatalf("expected limit 3 offset 0, got %d/%d", repo.lastCall.Limit, repo.lastCall.Offset)
	}
	if want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC); !repo.lastCall.To.Equal(want) {
		t.Fatalf("expected inclusive end %s, got %s", want, repo.lastCall.To)
	}

	result, err = svc.Timeline(context.Background(), TimelineFilters{CompanyID: 1, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("timeline page 2: %v", err)
	}
	if len(result.Rows) != 1 || result.Paging.HasNext || result.Paging.PrevPage != 1 {
		t.Fatalf("unexpected second page %+v", result.Paging)
	}
}

func TestServiceRejectsBadFilters(t *testing.T) {
	svc := NewService(&stubTimelineRepo{})
	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	if !errors.Is(err, internalShared.ErrTenantMissing) {
		t.Fatalf("expected tenant error, got %v", err)
	}
	_, err = svc.Export(context.Background(), TimelineFilters{
		CompanyID: 1,
		From:      time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceExportCapsRows(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{mockRow("2024-03-10T10:00:00Z", 7, "journal.post", "journal_entry", "1")}}
	svc := NewService(repo)
	rows, err := svc.Export(context.Background(), TimelineFilters{CompanyID: 1, Action: " journal.post "})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if repo.lastCall.Limit != exportLimit || repo.lastCall.Action != "journal.post" {
		t.Fatalf("unexpected query %+v", repo.lastCall)
	}
}

func TestWriteCSV(t *testing.T) {
	row := mockRow("2024-03-10T10:00:00Z", 7, "journal.post", "journal_entry", "1")
	row.Meta = map[string]any{"number": "JE-1"}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []TimelineRow{row, mockRow("2024-03-09T09:00:00Z", 0, "account.create", "account", "3")}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if lines[1] != `2024-03-10T10:00:00Z,7,journal.post,journal_entry,1,"{""number"":""JE-1""}"` {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if lines[2] != "2024-03-09T09:00:00Z,,account.create,account,3," {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func mockRow(ts string, actor int64, action, entity, entityID string) TimelineRow {
	at, _ := time.Parse(time.RFC3339, ts)
	row := TimelineRow{At: at, Action: action, Entity: entity, EntityID: entityID}
	if actor > 0 {
		row.ActorID = &actor
	}
	return row
}
