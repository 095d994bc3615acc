package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

// Approval is the outcome of approving a suggestion.
type Approval struct {
	Suggestion rules.Suggestion `json:"suggestion"`
	Event      store.Event      `json:"event"`
}

// ApproveSuggestion approves a pending suggestion and records the audit event.
// Approving twice returns ErrAlreadyApproved and changes nothing.
func (s *Service) ApproveSuggestion(ctx context.Context, suggestionID string) (*Approval, error) {
	id, err := parseID(suggestionID)
	if err != nil {
		return nil, err
	}

	var out Approval
	err = s.store.InTx(ctx, func(repo Repository) error {
		sg, err := repo.LockSuggestion(ctx, id)
		if err != nil {
			return err
		}
		if sg.Approved {
			return ErrAlreadyApproved
		}

		audit := s.engine.Approve(sg)
		if err := repo.MarkSuggestionApproved(ctx, sg); err != nil {
			return err
		}

		out.Suggestion = *sg
		out.Event = store.Event{
			ID:        audit.ID,
			EventType: audit.EventType,
			Payload:   audit.Payload,
			CreatedAt: audit.CreatedAt,
		}
		return repo.CreateEvent(ctx, &out.Event)
	})
	if err != nil {
		return nil, fmt.Errorf("approving suggestion %s: %w", suggestionID, err)
	}

	s.logger.Info("suggestion approved",
		"suggestion_id", out.Suggestion.ID,
		"type", out.Suggestion.SuggestionType,
		"purchase_order_id", out.Suggestion.PurchaseOrderID,
	)
	s.publish(ctx, []store.Event{out.Event})
	return &out, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", raw, ErrInvalidInput)
	}
	return id, nil
}
