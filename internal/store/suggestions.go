package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/empire/internal/rules"
)

const suggestionColumns = `id, purchase_order_id, agent_name, suggestion_type, message, approved, created_at, approved_at`

func scanSuggestion(row interface{ Scan(...any) error }, s *rules.Suggestion) error {
	return row.Scan(&s.ID, &s.PurchaseOrderID, &s.AgentName, &s.SuggestionType, &s.Message,
		&s.Approved, &s.CreatedAt, &s.ApprovedAt)
}

// CreateSuggestion inserts s. The id and timestamps come from the caller.
func (r *Repo) CreateSuggestion(ctx context.Context, s *rules.Suggestion) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO agent_suggestions (`+suggestionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.PurchaseOrderID, s.AgentName, s.SuggestionType, s.Message, s.Approved, s.CreatedAt, s.ApprovedAt)
	if err != nil {
		return fmt.Errorf("create suggestion %s: %w", s.SuggestionType, err)
	}
	return nil
}

// SuggestionTypes lists the suggestion types already recorded for an order.
func (r *Repo) SuggestionTypes(ctx context.Context, orderID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT suggestion_type FROM agent_suggestions WHERE purchase_order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("suggestion types: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan suggestion type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LockSuggestion fetches a suggestion and holds its row lock until the
// surrounding transaction ends.
func (r *Repo) LockSuggestion(ctx context.Context, id uuid.UUID) (*rules.Suggestion, error) {
	s := &rules.Suggestion{}
	row := r.db.QueryRow(ctx, `SELECT `+suggestionColumns+` FROM agent_suggestions WHERE id = $1 FOR UPDATE`, id)
	if err := scanSuggestion(row, s); err != nil {
		return nil, notFound(err, fmt.Sprintf("lock suggestion %s", id))
	}
	return s, nil
}

// MarkSuggestionApproved persists the approval fields of s.
func (r *Repo) MarkSuggestionApproved(ctx context.Context, s *rules.Suggestion) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE agent_suggestions SET approved = $2, approved_at = $3 WHERE id = $1
	`, s.ID, s.Approved, s.ApprovedAt)
	if err != nil {
		return fmt.Errorf("approve suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("approve suggestion %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

// ListSuggestions returns the newest suggestions first, optionally only those
// not yet approved.
func (r *Repo) ListSuggestions(ctx context.Context, limit int, pendingOnly bool) ([]rules.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM agent_suggestions`
	if pendingOnly {
		query += ` WHERE NOT approved`
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, clampLimit(limit, 50, 500))
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	var out []rules.Suggestion
	for rows.Next() {
		var s rules.Suggestion
		if err := scanSuggestion(rows, &s); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
