package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"plain total", "Total: 500", 500},
		{"thousands and cents", "Amount: $1,234.56", 1234.56},
		{"largest labeled wins", "Total: 100\nGrand Total: $1,250.50\nBalance due 900", 1250.50},
		{"single decimal digit ignored", "Total: 42.5", 42},
		{"subtotal is not a label", "Subtotal: 90", 90},
		{"fallback to first standalone number", "Invoice\nQty 3\n$250.00", 3},
		{"fallback with symbol", "Thanks for your order\n$250.00", 250},
		{"dates are not amounts", "Due: 2023-09-01", 0},
		{"nothing", "Vendor: Acme", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := Parse(tt.content)
			assert.InDelta(t, tt.want, rec.TotalAmount, 1e-9)
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"euro symbol", "Total: €500", "EUR"},
		{"symbol order beats position", "Paid $5 then £3", "GBP"},
		{"explicit label", "Currency: cad\nTotal: 10", "CAD"},
		{"bare code", "Total 100 CHF", "CHF"},
		{"symbol beats explicit", "Currency: EUR\nTotal: $10", "USD"},
		{"default", "Total: 10", "USD"},
		{"lowercase word is not a code", "the gbp rate", "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCurrency(tt.content))
		})
	}
}
