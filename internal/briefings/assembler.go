// Package briefings assembles the FinanceAgent briefing: what needs a human
// decision and what happened since the caller last looked.
package briefings

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

const (
	maxItemsCeiling = 100
	pendingScan     = 500
)

// Source is the read side of the pipeline a briefing draws from.
type Source interface {
	ListSuggestions(ctx context.Context, limit int, pendingOnly bool) ([]rules.Suggestion, error)
	ListEvents(ctx context.Context, eventType *string, limit int) ([]store.Event, error)
}

// Assembler builds briefings.
type Assembler struct {
	src Source
	now func() time.Time
}

// NewAssembler creates a new briefing assembler.
func NewAssembler(src Source) *Assembler {
	return &Assembler{src: src, now: func() time.Time { return time.Now().UTC() }}
}

// Briefing is the full package returned to a caller.
type Briefing struct {
	AgentName   string          `json:"agent_name"`
	GeneratedAt time.Time       `json:"generated_at"`
	Since       time.Time       `json:"since"`
	Content     BriefingContent `json:"briefing"`
}

// BriefingContent holds the structured briefing data.
type BriefingContent struct {
	Summary       string            `json:"summary"`
	Sections      []BriefingSection `json:"sections"`
	PendingByType map[string]int    `json:"pending_by_type"`
	PendingTotal  int               `json:"pending_total"`
	EventsSince   int               `json:"events_since"`
}

// BriefingSection is a named group of briefing items.
type BriefingSection struct {
	Title string         `json:"title"`
	Items []BriefingItem `json:"items"`
}

// BriefingItem is a single piece of briefing context.
type BriefingItem struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
}

// Generate assembles a briefing of pending suggestions and events newer than
// since. maxItems caps each section.
func (a *Assembler) Generate(ctx context.Context, since time.Time, maxItems int) (*Briefing, error) {
	if maxItems <= 0 || maxItems > maxItemsCeiling {
		maxItems = 50
	}

	pending, err := a.src.ListSuggestions(ctx, pendingScan, true)
	if err != nil {
		return nil, fmt.Errorf("listing pending suggestions: %w", err)
	}

	byType := make(map[string]int)
	var pendingItems []BriefingItem
	for _, s := range pending {
		byType[s.SuggestionType]++
		if len(pendingItems) < maxItems {
			pendingItems = append(pendingItems, BriefingItem{
				Timestamp: s.CreatedAt,
				Content:   s.Message,
				Source:    "suggestion:" + s.ID.String(),
			})
		}
	}

	// Events come newest first, so stop at the first one that predates since.
	events, err := a.src.ListEvents(ctx, nil, maxItemsCeiling)
	if err != nil {
		return nil, fmt.Errorf("listing recent events: %w", err)
	}
	var eventItems []BriefingItem
	for _, e := range events {
		if !e.CreatedAt.After(since) {
			break
		}
		if len(eventItems) < maxItems {
			eventItems = append(eventItems, BriefingItem{
				Timestamp: e.CreatedAt,
				Content:   e.EventType,
				Source:    "event:" + e.ID.String(),
			})
		}
	}

	summary := fmt.Sprintf("%s briefing. %d suggestions awaiting approval. %d events since %s.",
		rules.AgentName, len(pending), len(eventItems), since.Format(time.RFC3339))

	sections := []BriefingSection{}
	if len(pendingItems) > 0 {
		sections = append(sections, BriefingSection{Title: "Awaiting Approval", Items: pendingItems})
	}
	if len(eventItems) > 0 {
		sections = append(sections, BriefingSection{Title: "Recent Activity", Items: eventItems})
	}

	return &Briefing{
		AgentName:   rules.AgentName,
		GeneratedAt: a.now(),
		Since:       since,
		Content: BriefingContent{
			Summary:       summary,
			Sections:      sections,
			PendingByType: byType,
			PendingTotal:  len(pending),
			EventsSince:   len(eventItems),
		},
	}, nil
}
