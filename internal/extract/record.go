// Package extract turns free-form purchase and invoice text into a structured record.
//
// Parsing is a total function: any input, however unstructured, yields a record.
// Missing fields fall back to documented defaults and lower the confidence score.
package extract

import (
	"math"
	"strings"
	"time"
)

// UnknownVendor is the vendor name used when no vendor line is found.
const UnknownVendor = "Unknown Vendor"

// DefaultCurrency is used when no currency marker is present.
const DefaultCurrency = "USD"

// MaxConfidence caps the additive confidence heuristic.
const MaxConfidence = 0.95

// PaymentStatus is the canonical payment state derived from a raw status line.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentOverdue PaymentStatus = "overdue"
)

// Record is the structured result of parsing a document.
type Record struct {
	VendorName    string         `json:"vendor_name"`
	TotalAmount   float64        `json:"total_amount"`
	Currency      string         `json:"currency"`
	DueDate       *time.Time     `json:"due_date,omitempty"`
	Description   *string        `json:"description,omitempty"`
	AssetName     *string        `json:"asset_name,omitempty"`
	Status        *string        `json:"status,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	Reference     *string        `json:"reference,omitempty"`
	ClaimLinks    []string       `json:"claim_links"`
}

var (
	vendorPrefixes      = []string{"vendor", "supplier"}
	referencePrefixes   = []string{"reference", "ref #", "ref:", "ref no", "invoice #", "invoice number", "invoice no", "po number", "po #"}
	statusPrefixes      = []string{"payment status", "status"}
	duePrefixes         = []string{"due date", "payment due", "pay by", "due"}
	assetPrefixes       = []string{"item", "product", "asset"}
	descriptionPrefixes = []string{"description", "notes"}
)

// Parse extracts a Record from raw text and scores how much of it was recognized.
func Parse(content string) (Record, float64) {
	raw := splitLines(content)
	lines := nonEmpty(raw)

	rec := Record{
		VendorName:  UnknownVendor,
		TotalAmount: extractAmount(lines),
		Currency:    detectCurrency(content),
		ClaimLinks:  ClaimLinks(content),
	}

	if v, ok := labeledValue(lines, vendorPrefixes); ok && v != "" {
		rec.VendorName = v
	}
	if v, ok := labeledValue(lines, referencePrefixes); ok && v != "" {
		rec.Reference = &v
	}
	if v, ok := labeledValue(lines, statusPrefixes); ok && v != "" {
		rec.Status = &v
		rec.PaymentStatus = NormalizeStatus(v)
	}
	if v, ok := labeledValue(lines, duePrefixes); ok {
		rec.DueDate = parseDate(v)
	}
	if v, ok := labeledValue(lines, assetPrefixes); ok && v != "" {
		rec.AssetName = &v
	}
	rec.Description = blockValue(raw, descriptionPrefixes)

	return rec, Confidence(rec)
}

// Confidence is a fixed additive heuristic over recognized fields, not a
// calibrated probability.
func Confidence(rec Record) float64 {
	score := 0.40
	if rec.VendorName != UnknownVendor {
		score += 0.15
	}
	if rec.TotalAmount > 0 {
		score += 0.25
	}
	if rec.DueDate != nil {
		score += 0.10
	}
	if rec.Status != nil || rec.PaymentStatus != nil {
		score += 0.05
	}
	if len(rec.ClaimLinks) > 0 {
		score += 0.05
	}
	score = math.Round(score*100) / 100
	return math.Min(score, MaxConfidence)
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}

func nonEmpty(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
