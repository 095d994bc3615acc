package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// labeledAmount matches "total", "grand total", "amount" or "balance due"
	// followed by a number. "subtotal" does not match because of the word boundary.
	labeledAmount = regexp.MustCompile(`(?i)\b(?:grand\s+total|total|amount|balance\s+due)\b[^\d\n]*?(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{2}))?(?:[^\d]|$)`)

	// standaloneAmount matches a whitespace-delimited number with an optional
	// leading currency symbol.
	standaloneAmount = regexp.MustCompile(`(?:^|\s)(?:[$€£¥₹]\s?)?(\d{1,3}(?:,\d{3})+|\d+)(?:\.(\d{2}))?(?:\s|$)`)

	explicitCurrency = regexp.MustCompile(`(?i)\bcurrency\s*[:\-]?\s*([a-z]{3})\b`)
	bareCurrency     = regexp.MustCompile(`\b(USD|EUR|GBP|JPY|CAD|AUD|CHF|CNY|INR|MXN)\b`)
)

type currencySymbol struct {
	symbol string
	code   string
}

// currencySymbols is checked in order; the first symbol present wins.
var currencySymbols = []currencySymbol{
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"$", "USD"},
}

// extractAmount prefers labeled amounts, taking the largest, and falls back to
// the first standalone number in line order.
func extractAmount(lines []string) float64 {
	best, found := 0.0, false
	for _, line := range lines {
		for _, m := range labeledAmount.FindAllStringSubmatch(line, -1) {
			v := toAmount(m[1], m[2])
			if !found || v > best {
				best, found = v, true
			}
		}
	}
	if found {
		return best
	}

	for _, line := range lines {
		if m := standaloneAmount.FindStringSubmatch(line); m != nil {
			return toAmount(m[1], m[2])
		}
	}
	return 0
}

func toAmount(whole, cents string) float64 {
	s := strings.ReplaceAll(whole, ",", "")
	if cents != "" {
		s += "." + cents
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func detectCurrency(content string) string {
	for _, cs := range currencySymbols {
		if strings.Contains(content, cs.symbol) {
			return cs.code
		}
	}
	if m := explicitCurrency.FindStringSubmatch(content); m != nil {
		return strings.ToUpper(m[1])
	}
	if code := bareCurrency.FindString(content); code != "" {
		return code
	}
	return DefaultCurrency
}
