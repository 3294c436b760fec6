package window

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/portfolio"
)

// ActivityKind names a sales milestone reported in the activity digest.
type ActivityKind string

const (
	SANApproved    ActivityKind = "SAN_APPROVED"
	ContractSigned ActivityKind = "CONTRACT_SIGNED"
	SaleClosed     ActivityKind = "SALE_CLOSED"
)

// ActivityKinds lists kinds in their canonical reporting priority.
var ActivityKinds = []ActivityKind{SANApproved, ContractSigned, SaleClosed}

// Priority orders kinds: SAN approved, contract signed, then sale closed.
func (k ActivityKind) Priority() int {
	for i, kind := range ActivityKinds {
		if kind == k {
			return i
		}
	}
	return len(ActivityKinds)
}

// Label is the human readable name of the kind.
func (k ActivityKind) Label() string {
	switch k {
	case SANApproved:
		return "SAN Approved"
	case ContractSigned:
		return "Contract Signed"
	case SaleClosed:
		return "Sale Closed"
	}
	return string(k)
}

// ActivityEntry is one milestone event inside the trailing window.
type ActivityEntry struct {
	Development portfolio.Development
	Unit        portfolio.Unit
	Kind        ActivityKind
	Date        time.Time
	WeeksAgo    int
	Value       decimal.Decimal
}

// Activity emits one entry per milestone that happened within the last 28 days.
// A unit reaching several milestones in the window yields several entries.
func Activity(snap portfolio.Snapshot, now time.Time) []ActivityEntry {
	today := Day(now)
	var entries []ActivityEntry
	for _, dev := range snap.Developments {
		for _, u := range dev.Units {
			for _, kind := range ActivityKinds {
				when, ok := milestoneFor(u, kind)
				if !ok {
					continue
				}
				days := DaysBetween(when, today)
				if days < 0 || days > ActivityDays {
					continue
				}
				entries = append(entries, ActivityEntry{
					Development: dev,
					Unit:        u,
					Kind:        kind,
					Date:        Day(when),
					WeeksAgo:    days / 7,
					Value:       portfolio.EffectivePrice(u),
				})
			}
		}
	}
	return entries
}

func milestoneFor(u portfolio.Unit, kind ActivityKind) (time.Time, bool) {
	switch kind {
	case SANApproved:
		return portfolio.MilestoneDate(u, portfolio.MilestoneSANApproved)
	case ContractSigned:
		return portfolio.MilestoneDate(u, portfolio.MilestoneContractSigned)
	case SaleClosed:
		return portfolio.EffectiveCloseDate(u)
	}
	return time.Time{}, false
}
