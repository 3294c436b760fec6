// Package window selects units that fall inside the look-ahead, trailing-activity,
// and month-range windows used by the reports.
package window

import (
	"time"

	"github.com/sitebook/sitebook/internal/portfolio"
)

const (
	// LookaheadDays is the forward horizon of the look-ahead schedule (12 weeks).
	LookaheadDays = 84
	// ActivityDays is the span of the trailing-activity window (4 weeks).
	ActivityDays = 28
)

// LookaheadEntry flags a unit due to close inside the horizon or already overdue.
// DaysOverdue is set iff IsPastDue. WeeksRemaining is set iff !IsPastDue.
type LookaheadEntry struct {
	Development    portfolio.Development
	Unit           portfolio.Unit
	PlannedClose   time.Time
	IsPastDue      bool
	DaysOverdue    *int
	WeeksRemaining *int
}

// Lookahead returns every unit that is not sale-complete and has a planned close
// date on or before now + 84 days, including overdue backlog.
func Lookahead(snap portfolio.Snapshot, now time.Time) []LookaheadEntry {
	today := Day(now)
	horizon := today.AddDate(0, 0, LookaheadDays)
	var entries []LookaheadEntry
	for _, dev := range snap.Developments {
		for _, u := range dev.Units {
			if portfolio.IsSaleComplete(u) || u.Milestones.PlannedClose == nil {
				continue
			}
			planned := Day(*u.Milestones.PlannedClose)
			if planned.After(horizon) {
				continue
			}
			entry := LookaheadEntry{Development: dev, Unit: u, PlannedClose: planned}
			if planned.Before(today) {
				days := DaysBetween(planned, today)
				entry.IsPastDue = true
				entry.DaysOverdue = &days
			} else {
				weeks := (DaysBetween(today, planned) + 6) / 7
				entry.WeeksRemaining = &weeks
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
