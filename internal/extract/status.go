package extract

import (
	"regexp"
	"strings"
	"time"
)

type statusGroup struct {
	status   PaymentStatus
	keywords []string
}

// statusGroups are checked in order, so "paid late" normalizes to paid.
var statusGroups = []statusGroup{
	{PaymentPaid, []string{"paid", "settled", "cleared"}},
	{PaymentPartial, []string{"partial", "deposit"}},
	{PaymentOverdue, []string{"overdue", "late", "past due", "past-due"}},
}

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
}

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	claimPattern = regexp.MustCompile(`(?i)claim|ticket|case`)
)

// NormalizeStatus classifies a raw status into a canonical payment status by
// keyword substring. It returns nil when no group matches.
func NormalizeStatus(raw string) *PaymentStatus {
	lowered := strings.ToLower(raw)
	for _, g := range statusGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lowered, kw) {
				s := g.status
				return &s
			}
		}
	}
	return nil
}

// ClaimLinks returns URLs in content that reference a claim, ticket or case,
// in the order they appear.
func ClaimLinks(content string) []string {
	links := []string{}
	for _, u := range urlPattern.FindAllString(content, -1) {
		u = strings.TrimRight(u, `.,;:!?)]}>"'`)
		if claimPattern.MatchString(u) {
			links = append(links, u)
		}
	}
	return links
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
