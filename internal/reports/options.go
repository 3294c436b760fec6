package reports

import (
	"strings"
	"time"

	"github.com/sitebook/sitebook/internal/money"
	"github.com/sitebook/sitebook/internal/portfolio"
	"github.com/sitebook/sitebook/internal/window"
)

// Options parameterise a build. Now anchors every window; a zero Now falls
// back to the snapshot time.
type Options struct {
	Now           time.Time
	Range         window.Range
	ExVAT         bool
	DevelopmentID string
	Currency      string
}

func (o Options) now(snap portfolio.Snapshot) time.Time {
	if !o.Now.IsZero() {
		return o.Now.UTC()
	}
	if !snap.TakenAt.IsZero() {
		return snap.TakenAt.UTC()
	}
	return time.Now().UTC()
}

// documentCurrency is the shared currency of devs, or the configured default
// when they disagree.
func (o Options) documentCurrency(devs []portfolio.Development) string {
	fallback := money.DefaultCurrency
	if strings.TrimSpace(o.Currency) != "" {
		fallback = money.Currency(o.Currency).String()
	}
	if len(devs) == 0 {
		return fallback
	}
	code := devs[0].CurrencyCode()
	for _, dev := range devs[1:] {
		if dev.CurrencyCode() != code {
			return fallback
		}
	}
	return code
}

func unitLabel(u portfolio.Unit) string {
	if strings.TrimSpace(u.Number) != "" {
		return u.Number
	}
	return u.ID
}

func unitDevelopments[E any](entries []E, dev func(E) portfolio.Development) []portfolio.Development {
	seen := map[string]bool{}
	var out []portfolio.Development
	for _, e := range entries {
		d := dev(e)
		if !seen[d.ID] {
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	return out
}

func byDevelopmentName(a, b portfolio.Development) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	return a.ID < b.ID
}
