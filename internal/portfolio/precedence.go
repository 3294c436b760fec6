package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// EffectivePrice is the single rule for reading a unit's money value:
// PriceIncVAT when positive, otherwise ListPrice, otherwise zero.
func EffectivePrice(u Unit) decimal.Decimal {
	if u.PriceIncVAT.Sign() > 0 {
		return u.PriceIncVAT
	}
	if u.ListPrice.Sign() > 0 {
		return u.ListPrice
	}
	return decimal.Zero
}

// EffectiveCloseDate is the single rule for deciding whether and when a unit closed:
// the documented sale-closed date, then the actual-close key date, then the legacy
// close date.
func EffectiveCloseDate(u Unit) (time.Time, bool) {
	for _, d := range []*time.Time{u.Milestones.SaleClosed, u.Milestones.ActualClose, u.Milestones.LegacyClose} {
		if d != nil && !d.IsZero() {
			return *d, true
		}
	}
	return time.Time{}, false
}

// IsClosed reports whether EffectiveCloseDate resolves a date.
func IsClosed(u Unit) bool {
	_, ok := EffectiveCloseDate(u)
	return ok
}

// IsSaleComplete reports whether the unit reached the terminal sales status.
func IsSaleComplete(u Unit) bool {
	return u.SalesStatus == SalesComplete
}

// Milestone names a documentation checkpoint on a unit.
type Milestone string

const (
	MilestoneBCMSSubmitted     Milestone = "BCMS Submitted"
	MilestoneBCMSApproved      Milestone = "BCMS Approved"
	MilestoneHomebondSubmitted Milestone = "Homebond Submitted"
	MilestoneHomebondApproved  Milestone = "Homebond Approved"
	MilestoneSANSubmitted      Milestone = "SAN Submitted"
	MilestoneSANApproved       Milestone = "SAN Approved"
	MilestoneContractIssued    Milestone = "Contract Issued"
	MilestoneContractSigned    Milestone = "Contract Signed"
)

// DocumentationMilestones lists the checkpoints in the order reports show them.
var DocumentationMilestones = []Milestone{
	MilestoneBCMSSubmitted,
	MilestoneBCMSApproved,
	MilestoneHomebondSubmitted,
	MilestoneHomebondApproved,
	MilestoneSANSubmitted,
	MilestoneSANApproved,
	MilestoneContractIssued,
	MilestoneContractSigned,
}

// MilestoneDate returns the date recorded for a checkpoint.
func MilestoneDate(u Unit, m Milestone) (time.Time, bool) {
	var d *time.Time
	switch m {
	case MilestoneBCMSSubmitted:
		d = u.Milestones.BCMSSubmitted
	case MilestoneBCMSApproved:
		d = u.Milestones.BCMSApproved
	case MilestoneHomebondSubmitted:
		d = u.Milestones.HomebondSubmitted
	case MilestoneHomebondApproved:
		d = u.Milestones.HomebondApproved
	case MilestoneSANSubmitted:
		d = u.Milestones.SANSubmitted
	case MilestoneSANApproved:
		d = u.Milestones.SANApproved
	case MilestoneContractIssued:
		d = u.Milestones.ContractIssued
	case MilestoneContractSigned:
		d = u.Milestones.ContractSigned
	}
	if d == nil || d.IsZero() {
		return time.Time{}, false
	}
	return *d, true
}
