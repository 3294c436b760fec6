package portfolio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sitebook/sitebook/internal/money"
)

// DevelopmentDocument is the stored shape of a development and its units.
type DevelopmentDocument struct {
	ID          string                     `json:"id" validate:"required"`
	Name        string                     `json:"name" validate:"required"`
	ProjectCode string                     `json:"projectCode"`
	Currency    string                     `json:"currency" validate:"omitempty,len=3"`
	VATRates    map[string]decimal.Decimal `json:"vatRates"`
	Units       []UnitDocument             `json:"units" validate:"dive"`
}

// UnitDocument is the stored shape of a unit. Optional fields may be absent.
type UnitDocument struct {
	ID                 string           `json:"id" validate:"required"`
	Number             string           `json:"unitNumber"`
	Type               string           `json:"unitType"`
	Bedrooms           int              `json:"bedrooms" validate:"gte=0"`
	ConstructionStatus string           `json:"constructionStatus"`
	SalesStatus        string           `json:"salesStatus"`
	ListPrice          decimal.Decimal  `json:"listPrice" validate:"gte=0"`
	SoldPrice          decimal.Decimal  `json:"soldPrice" validate:"gte=0"`
	PriceIncVAT        decimal.Decimal  `json:"priceIncVat" validate:"gte=0"`
	VATKey             string           `json:"vatKey"`
	KeyDates           KeyDatesDoc      `json:"keyDates"`
	Documentation      DocumentationDoc `json:"documentation"`
	LegacyCloseDate    DocDate          `json:"closeDate"`
	PurchaserName      string           `json:"purchaserName"`
	Solicitor          string           `json:"solicitor"`
	Agent              string           `json:"agent"`
}

// KeyDatesDoc groups planned and actual close dates.
type KeyDatesDoc struct {
	PlannedClose DocDate `json:"plannedCloseDate"`
	ActualClose  DocDate `json:"actualCloseDate"`
}

// DocumentationDoc groups documentation checkpoint dates.
type DocumentationDoc struct {
	BCMSSubmitted     DocDate `json:"bcmsSubmitDate"`
	BCMSApproved      DocDate `json:"bcmsApprovedDate"`
	HomebondSubmitted DocDate `json:"homebondSubmitDate"`
	HomebondApproved  DocDate `json:"homebondApprovedDate"`
	SANSubmitted      DocDate `json:"sanSubmitDate"`
	SANApproved       DocDate `json:"sanApprovedDate"`
	ContractIssued    DocDate `json:"contractIssuedDate"`
	ContractSigned    DocDate `json:"contractSignedDate"`
	SaleClosed        DocDate `json:"saleClosedDate"`
}

// DocDate is an optional calendar date accepting YYYY-MM-DD or RFC 3339 input.
// Empty, null, or unparseable values decode to an unset date.
type DocDate struct {
	Time  time.Time
	Valid bool
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "02/01/2006"}

// UnmarshalJSON implements json.Unmarshaler.
func (d *DocDate) UnmarshalJSON(raw []byte) error {
	*d = DocDate{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	*d = ParseDocDate(s)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d DocDate) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format("2006-01-02"))
}

// ParseDocDate parses a stored date string.
func ParseDocDate(s string) DocDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return DocDate{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, dd := t.Date()
			return DocDate{Time: time.Date(y, m, dd, 0, 0, 0, 0, time.UTC), Valid: true}
		}
	}
	return DocDate{}
}

// NewDocDate wraps a time as a set date.
func NewDocDate(t time.Time) DocDate {
	return DocDate{Time: t, Valid: !t.IsZero()}
}

func (d DocDate) ptr() *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.Time
	return &t
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// NewSnapshot validates stored documents and converts them into the typed records
// the reporting engine consumes.
func NewSnapshot(docs []DevelopmentDocument, takenAt time.Time) (Snapshot, error) {
	devs := make([]Development, 0, len(docs))
	var errs []error
	for i := range docs {
		dev, err := buildDevelopment(docs[i])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devs = append(devs, dev)
	}
	if len(errs) > 0 {
		return Snapshot{}, errors.Join(errs...)
	}
	return Snapshot{Developments: devs, TakenAt: takenAt}, nil
}

func buildDevelopment(doc DevelopmentDocument) (Development, error) {
	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" "+fe.Tag())
			}
			return Development{}, fmt.Errorf("portfolio: development %q invalid: %s", doc.ID, strings.Join(fields, ", "))
		}
		return Development{}, err
	}
	seen := make(map[string]struct{}, len(doc.Units))
	units := make([]Unit, 0, len(doc.Units))
	for _, ud := range doc.Units {
		if _, dup := seen[ud.ID]; dup {
			return Development{}, fmt.Errorf("portfolio: development %q has duplicate unit %q", doc.ID, ud.ID)
		}
		seen[ud.ID] = struct{}{}
		units = append(units, buildUnit(doc.ID, ud))
	}
	var rates money.RateTable
	if len(doc.VATRates) > 0 {
		rates = make(money.RateTable, len(doc.VATRates))
		for k, v := range doc.VATRates {
			rates[strings.ToLower(k)] = v
		}
	}
	return Development{
		ID:          doc.ID,
		Name:        strings.TrimSpace(doc.Name),
		ProjectCode: doc.ProjectCode,
		Currency:    strings.ToUpper(doc.Currency),
		VATRates:    rates,
		Units:       units,
	}, nil
}

func buildUnit(devID string, ud UnitDocument) Unit {
	number := strings.TrimSpace(ud.Number)
	if number == "" {
		number = ud.ID
	}
	return Unit{
		ID:                 ud.ID,
		DevelopmentID:      devID,
		Number:             number,
		Type:               strings.TrimSpace(ud.Type),
		Bedrooms:           ud.Bedrooms,
		ConstructionStatus: NormaliseConstructionStatus(ud.ConstructionStatus),
		SalesStatus:        NormaliseSalesStatus(ud.SalesStatus),
		ListPrice:          ud.ListPrice,
		SoldPrice:          ud.SoldPrice,
		PriceIncVAT:        ud.PriceIncVAT,
		VATKey:             strings.TrimSpace(ud.VATKey),
		Milestones: Milestones{
			PlannedClose:      ud.KeyDates.PlannedClose.ptr(),
			ActualClose:       ud.KeyDates.ActualClose.ptr(),
			SaleClosed:        ud.Documentation.SaleClosed.ptr(),
			LegacyClose:       ud.LegacyCloseDate.ptr(),
			BCMSSubmitted:     ud.Documentation.BCMSSubmitted.ptr(),
			BCMSApproved:      ud.Documentation.BCMSApproved.ptr(),
			HomebondSubmitted: ud.Documentation.HomebondSubmitted.ptr(),
			HomebondApproved:  ud.Documentation.HomebondApproved.ptr(),
			SANSubmitted:      ud.Documentation.SANSubmitted.ptr(),
			SANApproved:       ud.Documentation.SANApproved.ptr(),
			ContractIssued:    ud.Documentation.ContractIssued.ptr(),
			ContractSigned:    ud.Documentation.ContractSigned.ptr(),
		},
		Purchaser: Purchaser{Name: ud.PurchaserName, Solicitor: ud.Solicitor, Agent: ud.Agent},
	}
}
