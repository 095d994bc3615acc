package rules

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/empire/internal/extract"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(WithClock(func() time.Time { return fixedNow }))
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func types(ss []Suggestion) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.SuggestionType
	}
	return out
}

func TestEvaluate_LargePurchase(t *testing.T) {
	rec, _ := extract.Parse("Vendor: Stellar Supplies\nTotal: 15000\nDue: 2023-09-01\nItem: Satellite Antenna\nDescription: Communication upgrade")
	order := Order{
		ID:          uuid.New(),
		VendorName:  rec.VendorName,
		TotalAmount: rec.TotalAmount,
		Currency:    rec.Currency,
		DueDate:     rec.DueDate,
		Status:      "pending",
	}

	got := testEngine().Evaluate(order, Snapshot{})

	assert.Contains(t, types(got), TypeRepaymentPlan)
}

func TestEvaluate_PastDueNotPaid(t *testing.T) {
	rec, _ := extract.Parse("Vendor: Stellar Supplies\nTotal: 500\nDue: 2020-01-01\nDescription: Late invoice")
	order := Order{ID: uuid.New(), VendorName: rec.VendorName, TotalAmount: rec.TotalAmount, DueDate: rec.DueDate, Status: "pending"}

	got := testEngine().Evaluate(order, Snapshot{})

	assert.Equal(t, []string{TypeFlagOverdue}, types(got))
	assert.Equal(t, "Payment appears overdue. Flag for follow-up.", got[0].Message)
	assert.Equal(t, AgentName, got[0].AgentName)
	assert.Equal(t, order.ID, got[0].PurchaseOrderID)
	assert.False(t, got[0].Approved)
	assert.Nil(t, got[0].ApprovedAt)
	assert.Equal(t, fixedNow, got[0].CreatedAt)
}

func TestEvaluate_OverdueDateBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		due    *time.Time
		status string
		want   bool
	}{
		{"no due date", nil, "pending", false},
		{"yesterday", date(2024, 3, 14), "pending", true},
		{"today counts as past midnight", date(2024, 3, 15), "pending", true},
		{"tomorrow", date(2024, 3, 16), "pending", false},
		{"paid suppresses", date(2020, 1, 1), "paid", false},
		{"partial still flagged", date(2020, 1, 1), "partial", true},
		{"empty status flagged", date(2020, 1, 1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testEngine().Evaluate(Order{DueDate: tt.due, Status: tt.status}, Snapshot{})
			if tt.want {
				assert.Contains(t, types(got), TypeFlagOverdue)
			} else {
				assert.NotContains(t, types(got), TypeFlagOverdue)
			}
		})
	}
}

func TestEvaluate_ReferenceZone(t *testing.T) {
	// 2024-03-15 00:00 in Auckland is still 2024-03-14 in UTC.
	auckland := time.FixedZone("NZDT", 13*3600)
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	order := Order{DueDate: date(2024, 3, 15), Status: "pending"}

	utc := NewEngine(WithClock(func() time.Time { return now }))
	nz := NewEngine(WithClock(func() time.Time { return now }), WithLocation(auckland))

	assert.NotContains(t, types(utc.Evaluate(order, Snapshot{})), TypeFlagOverdue)
	assert.Contains(t, types(nz.Evaluate(order, Snapshot{})), TypeFlagOverdue)
}

func TestEvaluate_RepaymentThreshold(t *testing.T) {
	e := testEngine()
	assert.NotContains(t, types(e.Evaluate(Order{TotalAmount: 9999.99}, Snapshot{})), TypeRepaymentPlan)
	assert.Contains(t, types(e.Evaluate(Order{TotalAmount: 10000}, Snapshot{})), TypeRepaymentPlan)
	assert.Contains(t, types(e.Evaluate(Order{TotalAmount: 10000, Currency: "JPY"}, Snapshot{})), TypeRepaymentPlan)
}

func TestEvaluate_ReconcileStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"overdue", true},
		{"Late", true},
		{"PAST-DUE", true},
		{"past due", false},
		{"overdue soon", false},
		{"paid", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := types(testEngine().Evaluate(Order{Status: tt.status}, Snapshot{}))
			assert.Equal(t, tt.want, contains(got, TypeReconcilePaymentStatus))
		})
	}
}

func TestEvaluate_VendorHistory(t *testing.T) {
	order := Order{VendorName: "Stellar Supplies"}

	assert.Empty(t, testEngine().Evaluate(order, Snapshot{OpenVendorOrders: 1}))

	got := testEngine().Evaluate(order, Snapshot{OpenVendorOrders: 3})
	require.Len(t, got, 1)
	assert.Equal(t, TypeReviewVendorHistory, got[0].SuggestionType)
	assert.Equal(t, "Stellar Supplies has 3 other open orders. Review payment cadence before approving new spend.", got[0].Message)
}

func TestEvaluate_RelatedClaimUsesFirstLink(t *testing.T) {
	text := "See https://support.example.com/ticket/42 and https://claims.example.com/claim/7 and https://example.com/about"

	got := testEngine().Evaluate(Order{}, Snapshot{SourceText: text})

	require.Len(t, got, 1)
	assert.Equal(t, TypeReviewRelatedClaim, got[0].SuggestionType)
	assert.Equal(t, "Source packet references an open claim (https://support.example.com/ticket/42). Verify status prior to approval.", got[0].Message)
}

func TestEvaluate_AllRulesInOrder(t *testing.T) {
	order := Order{
		VendorName:  "Acme",
		TotalAmount: 25000,
		DueDate:     date(2020, 1, 1),
		Status:      "overdue",
	}
	snap := Snapshot{OpenVendorOrders: 2, SourceText: "case: https://acme.example/case/1"}

	got := testEngine().Evaluate(order, snap)

	assert.Equal(t, testEngine().Types(), types(got))
}

func TestEvaluate_Idempotent(t *testing.T) {
	order := Order{
		VendorName:  "Acme",
		TotalAmount: 25000,
		DueDate:     date(2020, 1, 1),
		Status:      "late",
	}
	snap := Snapshot{OpenVendorOrders: 5, SourceText: "https://acme.example/claim/1"}
	e := testEngine()

	first := e.Evaluate(order, snap)
	require.NotEmpty(t, first)

	snap.ExistingTypes = append(snap.ExistingTypes, types(first)...)
	assert.Empty(t, e.Evaluate(order, snap))
}

func TestEvaluate_SkipsExistingTypes(t *testing.T) {
	order := Order{TotalAmount: 25000, DueDate: date(2020, 1, 1)}

	got := testEngine().Evaluate(order, Snapshot{ExistingTypes: []string{TypeFlagOverdue}})

	assert.Equal(t, []string{TypeRepaymentPlan}, types(got))
}

func TestApprove(t *testing.T) {
	e := testEngine()
	s := Suggestion{
		ID:              uuid.New(),
		PurchaseOrderID: uuid.New(),
		AgentName:       AgentName,
		SuggestionType:  TypeFlagOverdue,
		Message:         "Payment appears overdue. Flag for follow-up.",
	}

	ev := e.Approve(&s)

	assert.True(t, s.Approved)
	require.NotNil(t, s.ApprovedAt)
	assert.Equal(t, fixedNow, *s.ApprovedAt)

	assert.Equal(t, EventSuggestionApproved, ev.EventType)
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.Equal(t, fixedNow, ev.CreatedAt)
	assert.Equal(t, s.ID.String(), ev.Payload["suggestion_id"])
	assert.Equal(t, s.PurchaseOrderID.String(), ev.Payload["purchase_order_id"])
	assert.Equal(t, AgentName, ev.Payload["agent_name"])
	assert.Equal(t, TypeFlagOverdue, ev.Payload["suggestion_type"])
	assert.Equal(t, s.Message, ev.Payload["message"])
}

func TestApprove_DoesNotGuard(t *testing.T) {
	e := testEngine()
	s := Suggestion{ID: uuid.New(), SuggestionType: TypeRepaymentPlan}

	e.Approve(&s)
	ev := e.Approve(&s)

	assert.True(t, s.Approved)
	assert.Equal(t, EventSuggestionApproved, ev.EventType)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
