package periods

import "time"

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// Period represents a one-month fiscal window.
type Period struct {
	ID           int64        `json:"id"`
	CompanyID    int64        `json:"company_id"`
	FiscalYear   int          `json:"fiscal_year"`
	PeriodNumber int          `json:"period_number"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Status       PeriodStatus `json:"status"`
	ClosedBy     *int64       `json:"closed_by,omitempty"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty"`
	ReopenedBy   *int64       `json:"reopened_by,omitempty"`
	ReopenedAt   *time.Time   `json:"reopened_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Contains reports whether date falls inside the period, inclusive on both ends.
func (p Period) Contains(date time.Time) bool {
	d := truncateDay(date)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

const (
	minFiscalYear = 1900
	maxFiscalYear = 9999
)

// MonthBounds returns the first and last calendar day of month in year.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// BuildYear lays out the twelve open periods of a fiscal year.
func BuildYear(companyID int64, year int) []Period {
	out := make([]Period, 0, 12)
	for m := time.January; m <= time.December; m++ {
		start, end := MonthBounds(year, m)
		out = append(out, Period{
			CompanyID:    companyID,
			FiscalYear:   year,
			PeriodNumber: int(m),
			StartDate:    start,
			EndDate:      end,
			Status:       PeriodStatusOpen,
		})
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
