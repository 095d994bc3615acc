// Package rules evaluates purchase orders against a fixed list of finance rules
// and records approvals of the resulting suggestions.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/empire/internal/extract"
)

// AgentName identifies suggestions produced by this engine.
const AgentName = "FinanceAgent"

// Suggestion types, in evaluation order.
const (
	TypeFlagOverdue            = "flag-overdue"
	TypeRepaymentPlan          = "create-repayment-plan"
	TypeReconcilePaymentStatus = "reconcile-payment-status"
	TypeReviewVendorHistory    = "review-vendor-history"
	TypeReviewRelatedClaim     = "review-related-claim"
)

// EventSuggestionApproved is the audit event type emitted by Approve.
const EventSuggestionApproved = "suggestion.approved"

const (
	// RepaymentThreshold is compared to the raw total regardless of currency.
	RepaymentThreshold = 10000.0
	// VendorHistoryThreshold is the number of other open orders that triggers a review.
	VendorHistoryThreshold = 2
)

// StatusPaid is the order status that suppresses the overdue flag.
const StatusPaid = "paid"

var overdueStatuses = map[string]bool{"overdue": true, "late": true, "past-due": true}

// Order is the persisted view of a purchase order the rules look at.
type Order struct {
	ID          uuid.UUID
	VendorName  string
	TotalAmount float64
	Currency    string
	DueDate     *time.Time
	Status      string
}

// Snapshot is the point-in-time context an evaluation runs against. Version is
// the order's evaluation version at the moment the snapshot was read; callers
// use it to reject writes from an evaluation that raced another one.
type Snapshot struct {
	Version          int64
	ExistingTypes    []string
	OpenVendorOrders int
	SourceText       string
}

// Suggestion is a typed recommendation attached to a purchase order.
type Suggestion struct {
	ID              uuid.UUID  `json:"id"`
	PurchaseOrderID uuid.UUID  `json:"purchase_order_id"`
	AgentName       string     `json:"agent_name"`
	SuggestionType  string     `json:"suggestion_type"`
	Message         string     `json:"message"`
	Approved        bool       `json:"approved"`
	CreatedAt       time.Time  `json:"created_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

// AuditEvent records a state-changing action.
type AuditEvent struct {
	ID        uuid.UUID      `json:"id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// facts is what a rule predicate sees.
type facts struct {
	order      Order
	snapshot   Snapshot
	claimLinks []string
	now        time.Time
	loc        *time.Location
}

type rule struct {
	Type    string
	When    func(f *facts) bool
	Message func(f *facts) string
}

func fixed(msg string) func(*facts) string {
	return func(*facts) string { return msg }
}

var defaultRules = []rule{
	{
		Type:    TypeFlagOverdue,
		When:    isPastDue,
		Message: fixed("Payment appears overdue. Flag for follow-up."),
	},
	{
		Type:    TypeRepaymentPlan,
		When:    func(f *facts) bool { return f.order.TotalAmount >= RepaymentThreshold },
		Message: fixed("Consider creating a repayment plan for this large purchase."),
	},
	{
		Type: TypeReconcilePaymentStatus,
		When: func(f *facts) bool {
			return overdueStatuses[strings.ToLower(f.order.Status)]
		},
		Message: fixed("Invoice is marked overdue in the source packet. Confirm collections status."),
	},
	{
		Type: TypeReviewVendorHistory,
		When: func(f *facts) bool { return f.snapshot.OpenVendorOrders >= VendorHistoryThreshold },
		Message: func(f *facts) string {
			return fmt.Sprintf("%s has %d other open orders. Review payment cadence before approving new spend.",
				f.order.VendorName, f.snapshot.OpenVendorOrders)
		},
	},
	{
		Type: TypeReviewRelatedClaim,
		When: func(f *facts) bool { return len(f.claimLinks) > 0 },
		Message: func(f *facts) string {
			return fmt.Sprintf("Source packet references an open claim (%s). Verify status prior to approval.", f.claimLinks[0])
		},
	},
}

// isPastDue compares the due date's calendar day, taken in the engine's zone,
// with the current instant.
func isPastDue(f *facts) bool {
	if f.order.DueDate == nil || f.order.Status == StatusPaid {
		return false
	}
	d := *f.order.DueDate
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, f.loc)
	return day.Before(f.now)
}

// Engine evaluates orders. It is safe for concurrent use.
type Engine struct {
	rules []rule
	now   func() time.Time
	loc   *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the reference zone for due-date comparison.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// NewEngine creates an engine with the standard rule set.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules: defaultRules,
		now:   time.Now,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the suggestions that fire for order and whose type is not
// already present in the snapshot. Each type is emitted at most once per call.
func (e *Engine) Evaluate(order Order, snap Snapshot) []Suggestion {
	now := e.now()
	f := &facts{
		order:      order,
		snapshot:   snap,
		claimLinks: extract.ClaimLinks(snap.SourceText),
		now:        now,
		loc:        e.loc,
	}

	seen := make(map[string]bool, len(snap.ExistingTypes)+len(e.rules))
	for _, t := range snap.ExistingTypes {
		seen[t] = true
	}

	var out []Suggestion
	for _, r := range e.rules {
		if seen[r.Type] || !r.When(f) {
			continue
		}
		seen[r.Type] = true
		out = append(out, Suggestion{
			ID:              uuid.New(),
			PurchaseOrderID: order.ID,
			AgentName:       AgentName,
			SuggestionType:  r.Type,
			Message:         r.Message(f),
			CreatedAt:       now,
		})
	}
	return out
}

// Approve marks s approved and returns the audit event describing it. It does
// not check whether s was already approved.
func (e *Engine) Approve(s *Suggestion) AuditEvent {
	now := e.now()
	s.Approved = true
	s.ApprovedAt = &now

	return AuditEvent{
		ID:        uuid.New(),
		EventType: EventSuggestionApproved,
		Payload: map[string]any{
			"suggestion_id":     s.ID.String(),
			"purchase_order_id": s.PurchaseOrderID.String(),
			"agent_name":        s.AgentName,
			"suggestion_type":   s.SuggestionType,
			"message":           s.Message,
		},
		CreatedAt: now,
	}
}

// Types returns the suggestion types the engine can emit, in evaluation order.
func (e *Engine) Types() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Type
	}
	return out
}
