package analytics

import (
	"time"

	"predictive-maintenance-backend/internal/model"
)

// Schedule recommendations. RecommendInitial is used for machines that have
// never been serviced.
const (
	RecommendRegular = "Regular maintenance recommended"
	RecommendInitial = "Initial maintenance recommended"
)

// HistoryEntry is a condensed maintenance record.
type HistoryEntry struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schedule is the maintenance plan for one machine.
type Schedule struct {
	LastMaintenance *time.Time     `json:"-"`
	NextScheduled   *time.Time     `json:"-"`
	DaysUntilNext   *int           `json:"days_until_next"`
	History         []HistoryEntry `json:"maintenance_history"`
	IntervalDays    int            `json:"maintenance_interval"`
	Recommendation  string         `json:"recommendation"`
}

// PlanMaintenance derives the next due date from the latest maintenance
// record. latest may be nil; recent must be ordered newest first.
func (a *Analyzer) PlanMaintenance(latest *model.MaintenanceRecord, recent []model.MaintenanceRecord, now time.Time) Schedule {
	s := Schedule{
		IntervalDays:   a.params.MaintenanceInterval,
		Recommendation: RecommendInitial,
		History:        make([]HistoryEntry, 0, a.params.MaintenanceHistory),
	}

	for i, rec := range recent {
		if i == a.params.MaintenanceHistory {
			break
		}
		s.History = append(s.History, HistoryEntry{
			Date:        rec.Date.Format(time.DateOnly),
			Type:        rec.Type,
			Description: rec.Description,
		})
	}

	if latest == nil {
		return s
	}

	last := latest.Date
	next := last.AddDate(0, 0, a.params.MaintenanceInterval)
	days := int(Day(next).Sub(Day(now)).Hours() / 24)
	s.LastMaintenance = &last
	s.NextScheduled = &next
	s.DaysUntilNext = &days
	s.Recommendation = RecommendRegular
	return s
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
