package reports

import (
	"strings"
	"time"
)

var kindFilePrefix = map[Kind]string{
	KindLookahead: "Lookahead",
	KindActivity:  "Sales-Activity",
	KindCashflow:  "Cash-Flow",
}

// Filename returns the download base name for a global report, e.g.
// "Cash-Flow-2024-03-01".
func Filename(kind Kind, at time.Time) string {
	prefix, ok := kindFilePrefix[kind]
	if !ok {
		prefix = "Report"
	}
	return prefix + "-" + at.UTC().Format("2006-01-02")
}

// DevelopmentFilename returns the base name for a single development report,
// e.g. "Riverside-Gardens-Report-2024-03-01".
func DevelopmentFilename(name string, at time.Time) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	slug := strings.Join(strings.Fields(name), "-")
	if slug == "" {
		slug = "Development"
	}
	return slug + "-Report-" + at.UTC().Format("2006-01-02")
}
