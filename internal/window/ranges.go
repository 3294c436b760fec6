package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sitebook/sitebook/internal/period"
)

// PresetKind enumerates the cash-flow quick ranges.
type PresetKind string

const (
	PresetAll    PresetKind = "all"
	PresetYear   PresetKind = "year"
	PresetLast6  PresetKind = "last6"
	PresetLast12 PresetKind = "last12"
	PresetCustom PresetKind = "custom"
)

// Range selects month keys for the cash-flow view, either by preset or by an
// explicit inclusive [From, To] month pair.
type Range struct {
	Kind PresetKind
	Year int
	From string
	To   string
}

// Bounds is a resolved range. A zero From or To leaves that side open.
type Bounds struct {
	From     time.Time
	To       time.Time
	YearOnly int
}

// AllTime matches every month.
func AllTime() Range { return Range{Kind: PresetAll} }

// CalendarYear matches months of a single year.
func CalendarYear(year int) Range { return Range{Kind: PresetYear, Year: year} }

// Custom matches months between from and to inclusive.
func Custom(from, to string) Range { return Range{Kind: PresetCustom, From: from, To: to} }

// ParsePreset reads all, last6, last12, year:YYYY or a bare YYYY.
func ParsePreset(s string) (Range, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == string(PresetAll):
		return AllTime(), nil
	case s == string(PresetLast6):
		return Range{Kind: PresetLast6}, nil
	case s == string(PresetLast12):
		return Range{Kind: PresetLast12}, nil
	}
	yearStr := strings.TrimPrefix(s, "year:")
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1900 || year > 9999 {
		return Range{}, fmt.Errorf("window: unknown range preset %q", s)
	}
	return CalendarYear(year), nil
}

// Resolve converts the range into concrete boundary dates relative to now.
// Trailing presets cover the N calendar months ending with now's month.
func (r Range) Resolve(now time.Time) Bounds {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	switch r.Kind {
	case PresetYear:
		return Bounds{YearOnly: r.Year}
	case PresetLast6:
		return Bounds{From: monthStart.AddDate(0, -5, 0), To: monthEnd}
	case PresetLast12:
		return Bounds{From: monthStart.AddDate(0, -11, 0), To: monthEnd}
	case PresetCustom:
		var b Bounds
		if strings.TrimSpace(r.From) != "" {
			b.From = period.ParseMonthKey(r.From)
		}
		if strings.TrimSpace(r.To) != "" {
			to := period.ParseMonthKey(r.To)
			b.To = to.AddDate(0, 1, -1)
		}
		return b
	}
	return Bounds{}
}

// Contains reports whether the month key lies inside the bounds.
func (b Bounds) Contains(k period.Key) bool {
	start := k.Start()
	if b.YearOnly != 0 {
		return start.Year() == b.YearOnly
	}
	if !b.From.IsZero() && start.Before(b.From) {
		return false
	}
	if !b.To.IsZero() && start.After(b.To) {
		return false
	}
	return true
}

// Label describes the range for report subtitles.
func (r Range) Label() string {
	switch r.Kind {
	case PresetYear:
		return strconv.Itoa(r.Year)
	case PresetLast6:
		return "Last 6 months"
	case PresetLast12:
		return "Last 12 months"
	case PresetCustom:
		from, to := "start", "now"
		if k, ok := period.ParseKey(r.From); ok {
			from = k.Label()
		}
		if k, ok := period.ParseKey(r.To); ok {
			to = k.Label()
		}
		return from + " – " + to
	}
	return "All time"
}
