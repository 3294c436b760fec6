// Package portfolio defines the development and unit records consumed by the
// reporting engine and the snapshot boundary that validates them.
package portfolio

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/money"
)

// SalesStatus captures where a unit is in the sales pipeline.
type SalesStatus string

const (
	SalesNotReleased SalesStatus = "Not Released"
	SalesForSale     SalesStatus = "For Sale"
	SalesReserved    SalesStatus = "Reserved"
	SalesSaleAgreed  SalesStatus = "Sale Agreed"
	SalesContracted  SalesStatus = "Contracted"
	SalesComplete    SalesStatus = "Complete"
)

// SalesStatuses lists the pipeline in display order.
var SalesStatuses = []SalesStatus{SalesNotReleased, SalesForSale, SalesReserved, SalesSaleAgreed, SalesContracted, SalesComplete}

// ConstructionStatus captures build progress.
type ConstructionStatus string

const (
	ConstructionNotStarted ConstructionStatus = "Not Started"
	ConstructionInProgress ConstructionStatus = "In Progress"
	ConstructionComplete   ConstructionStatus = "Complete"
)

// NormaliseSalesStatus maps loose input onto a known status, defaulting to Not Released.
func NormaliseSalesStatus(v string) SalesStatus {
	v = strings.TrimSpace(v)
	for _, s := range SalesStatuses {
		if strings.EqualFold(v, string(s)) {
			return s
		}
	}
	switch strings.ToLower(strings.ReplaceAll(v, "_", " ")) {
	case "sold", "closed", "completed":
		return SalesComplete
	case "available", "for sale":
		return SalesForSale
	case "agreed", "sale agreed":
		return SalesSaleAgreed
	}
	return SalesNotReleased
}

// NormaliseConstructionStatus maps loose input onto a known construction status.
func NormaliseConstructionStatus(v string) ConstructionStatus {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(v, "_", " "))) {
	case "complete", "completed", "built":
		return ConstructionComplete
	case "in progress", "started", "under construction":
		return ConstructionInProgress
	}
	return ConstructionNotStarted
}

// Milestones holds the optional business-process dates of a unit. A nil date means
// the event has not happened.
type Milestones struct {
	PlannedClose      *time.Time
	ActualClose       *time.Time
	SaleClosed        *time.Time
	LegacyClose       *time.Time
	BCMSSubmitted     *time.Time
	BCMSApproved      *time.Time
	HomebondSubmitted *time.Time
	HomebondApproved  *time.Time
	SANSubmitted      *time.Time
	SANApproved       *time.Time
	ContractIssued    *time.Time
	ContractSigned    *time.Time
}

// Purchaser carries buyer metadata shown on detail reports.
type Purchaser struct {
	Name      string
	Solicitor string
	Agent     string
}

// Unit is a validated, read-only sale unit.
type Unit struct {
	ID                 string
	DevelopmentID      string
	Number             string
	Type               string
	Bedrooms           int
	ConstructionStatus ConstructionStatus
	SalesStatus        SalesStatus
	ListPrice          decimal.Decimal
	SoldPrice          decimal.Decimal
	PriceIncVAT        decimal.Decimal
	VATKey             string
	Milestones         Milestones
	Purchaser          Purchaser
}

// Development owns an ordered set of units.
type Development struct {
	ID          string
	Name        string
	ProjectCode string
	Currency    string
	VATRates    money.RateTable
	Units       []Unit
}

// Snapshot is an immutable view of the portfolio at a point in time.
type Snapshot struct {
	Developments []Development
	TakenAt      time.Time
}

// ErrDevelopmentNotFound is returned when a development id is absent from a snapshot.
var ErrDevelopmentNotFound = errors.New("portfolio: development not found")

// Development looks up a development by id.
func (s Snapshot) Development(id string) (Development, bool) {
	for _, dev := range s.Developments {
		if dev.ID == id {
			return dev, true
		}
	}
	return Development{}, false
}

// UnitCount returns the number of units across all developments.
func (s Snapshot) UnitCount() int {
	total := 0
	for _, dev := range s.Developments {
		total += len(dev.Units)
	}
	return total
}

// CurrencyCode returns the development currency or the default.
func (d Development) CurrencyCode() string {
	if strings.TrimSpace(d.Currency) == "" {
		return money.DefaultCurrency
	}
	return money.Currency(d.Currency).String()
}

// VATRate returns the VAT percentage applying to a unit of this development.
func (d Development) VATRate(u Unit) decimal.Decimal {
	key := u.VATKey
	if key == "" {
		key = u.Type
	}
	return money.RateFor(d.VATRates, key)
}
