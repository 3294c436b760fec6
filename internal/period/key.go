// Package period buckets dates into week and month keys and parses keys back to dates.
package period

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Granularity distinguishes week keys from month keys.
type Granularity string

const (
	Week  Granularity = "WEEK"
	Month Granularity = "MONTH"
)

// Epoch is the representative date returned for keys that cannot be parsed.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Key identifies a calendar week or month. Keys are comparable with == and must be
// ordered with Less, never by their string form.
type Key struct {
	Granularity Granularity
	Year        int
	Number      int
}

// WeekKey buckets t into its week of year. Weeks start on Sunday; the partial week
// containing January 1 is week 1 and weeks never cross into another year.
func WeekKey(t time.Time) Key {
	t = day(t)
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := int(jan1.Weekday())
	yday := t.YearDay() - 1
	return Key{Granularity: Week, Year: t.Year(), Number: (yday + offset + 1 + 6) / 7}
}

// MonthKey buckets t into its calendar month.
func MonthKey(t time.Time) Key {
	t = day(t)
	return Key{Granularity: Month, Year: t.Year(), Number: int(t.Month())}
}

// String returns the canonical token, e.g. 2024-01 or 2024-W07.
func (k Key) String() string {
	switch k.Granularity {
	case Week:
		return fmt.Sprintf("%04d-W%02d", k.Year, k.Number)
	case Month:
		return fmt.Sprintf("%04d-%02d", k.Year, k.Number)
	}
	return ""
}

// Label returns the display label, e.g. Jan '24 or W7 2024.
func (k Key) Label() string {
	switch k.Granularity {
	case Week:
		return fmt.Sprintf("W%d %d", k.Number, k.Year)
	case Month:
		return k.Start().Format("Jan '06")
	}
	return ""
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Start returns the representative (first) date of the key.
func (k Key) Start() time.Time {
	switch k.Granularity {
	case Week:
		return weekStart(k.Year, k.Number)
	case Month:
		if k.Number < 1 || k.Number > 12 {
			return Epoch
		}
		return time.Date(k.Year, time.Month(k.Number), 1, 0, 0, 0, 0, time.UTC)
	}
	return Epoch
}

// End returns the last calendar day covered by the key.
func (k Key) End() time.Time {
	switch k.Granularity {
	case Week:
		end := k.Start().AddDate(0, 0, 6)
		if dec31 := time.Date(k.Year, time.December, 31, 0, 0, 0, 0, time.UTC); end.After(dec31) {
			return dec31
		}
		return end
	case Month:
		if k.Number < 1 || k.Number > 12 {
			return Epoch
		}
		return k.Start().AddDate(0, 1, -1)
	}
	return Epoch
}

// Less orders keys chronologically by their representative date.
func Less(a, b Key) bool {
	as, bs := a.Start(), b.Start()
	if as.Equal(bs) {
		return a.String() < b.String()
	}
	return as.Before(bs)
}

// SortKeys sorts keys chronologically in place.
func SortKeys(keys []Key) {
	sort.SliceStable(keys, func(i, j int) bool { return Less(keys[i], keys[j]) })
}

func weekStart(year, week int) time.Time {
	start, ok := weekStartIn(year, week)
	if !ok {
		return Epoch
	}
	return start
}

func weekStartIn(year, week int) (time.Time, bool) {
	if week < 1 || week > 54 {
		return time.Time{}, false
	}
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	start := jan1.AddDate(0, 0, (week-1)*7-int(jan1.Weekday()))
	if start.Before(jan1) {
		return jan1, true
	}
	return start, start.Year() == year
}

// day truncates t to its UTC calendar day.
func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	canonicalMonth = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	canonicalWeek  = regexp.MustCompile(`^(\d{4})-W(\d{1,2})$`)
	labelWeek      = regexp.MustCompile(`^W(\d{1,2})\s+(\d{4})$`)
	labelMonth     = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+'?(\d{2}|\d{4})$`)
)

// ParseKey parses canonical tokens and legacy labels. The boolean is false when
// the input is not recognised.
func ParseKey(s string) (Key, bool) {
	s = strings.TrimSpace(s)
	if m := canonicalWeek.FindStringSubmatch(s); m != nil {
		return validWeek(atoi(m[1]), atoi(m[2]))
	}
	if m := labelWeek.FindStringSubmatch(s); m != nil {
		return validWeek(atoi(m[2]), atoi(m[1]))
	}
	if m := canonicalMonth.FindStringSubmatch(s); m != nil {
		return validMonth(atoi(m[1]), atoi(m[2]))
	}
	if m := labelMonth.FindStringSubmatch(s); m != nil {
		month, ok := monthNames[strings.ToLower(m[1][:3])]
		if !ok {
			return Key{}, false
		}
		year := atoi(m[2])
		if len(m[2]) == 2 {
			year += 2000
		}
		return validMonth(year, int(month))
	}
	return Key{}, false
}

// ParseWeekKey returns the representative date of a week key, or Epoch when the
// key is not a recognisable week.
func ParseWeekKey(s string) time.Time {
	k, ok := ParseKey(s)
	if !ok || k.Granularity != Week {
		return Epoch
	}
	return k.Start()
}

// ParseMonthKey returns the first day of a month key, or Epoch when the key is
// not a recognisable month.
func ParseMonthKey(s string) time.Time {
	k, ok := ParseKey(s)
	if !ok || k.Granularity != Month {
		return Epoch
	}
	return k.Start()
}

func validWeek(year, week int) (Key, bool) {
	if year < 1 {
		return Key{}, false
	}
	if _, ok := weekStartIn(year, week); !ok {
		return Key{}, false
	}
	return Key{Granularity: Week, Year: year, Number: week}, true
}

func validMonth(year, month int) (Key, bool) {
	if year < 1 || month < 1 || month > 12 {
		return Key{}, false
	}
	return Key{Granularity: Month, Year: year, Number: month}, true
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}
