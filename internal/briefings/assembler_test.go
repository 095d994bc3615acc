package briefings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/empire/internal/rules"
	"github.com/MikeSquared-Agency/empire/internal/store"
)

type fakeSource struct {
	suggestions []rules.Suggestion
	events      []store.Event
	err         error
	gotPending  bool
}

func (f *fakeSource) ListSuggestions(_ context.Context, _ int, pendingOnly bool) ([]rules.Suggestion, error) {
	f.gotPending = pendingOnly
	return f.suggestions, f.err
}

func (f *fakeSource) ListEvents(_ context.Context, _ *string, _ int) ([]store.Event, error) {
	return f.events, nil
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	src := &fakeSource{
		suggestions: []rules.Suggestion{
			{ID: uuid.New(), SuggestionType: rules.TypeFlagOverdue, Message: "overdue", CreatedAt: t0},
			{ID: uuid.New(), SuggestionType: rules.TypeFlagOverdue, Message: "overdue 2", CreatedAt: t0},
			{ID: uuid.New(), SuggestionType: rules.TypeRepaymentPlan, Message: "plan", CreatedAt: t0},
		},
		events: []store.Event{
			{ID: uuid.New(), EventType: rules.EventSuggestionApproved, CreatedAt: t0.Add(2 * time.Hour)},
			{ID: uuid.New(), EventType: store.EventPurchaseOrderCreated, CreatedAt: t0.Add(time.Hour)},
			{ID: uuid.New(), EventType: store.EventIngestReceived, CreatedAt: t0},
		},
	}

	b, err := NewAssembler(src).Generate(context.Background(), t0, 0)
	require.NoError(t, err)
	assert.True(t, src.gotPending)
	assert.Equal(t, rules.AgentName, b.AgentName)
	assert.Equal(t, 3, b.Content.PendingTotal)
	assert.Equal(t, map[string]int{rules.TypeFlagOverdue: 2, rules.TypeRepaymentPlan: 1}, b.Content.PendingByType)

	// The event at exactly since is excluded.
	assert.Equal(t, 2, b.Content.EventsSince)
	require.Len(t, b.Content.Sections, 2)
	assert.Equal(t, "Awaiting Approval", b.Content.Sections[0].Title)
	assert.Equal(t, rules.EventSuggestionApproved, b.Content.Sections[1].Items[0].Content)
	assert.Contains(t, b.Content.Summary, "3 suggestions awaiting approval")
}

func TestGenerate_CapsItems(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 5; i++ {
		src.suggestions = append(src.suggestions, rules.Suggestion{ID: uuid.New(), SuggestionType: rules.TypeFlagOverdue})
	}
	b, err := NewAssembler(src).Generate(context.Background(), t0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Content.PendingTotal)
	assert.Len(t, b.Content.Sections[0].Items, 2)
}

func TestGenerate_Empty(t *testing.T) {
	b, err := NewAssembler(&fakeSource{}).Generate(context.Background(), t0, 10)
	require.NoError(t, err)
	assert.Empty(t, b.Content.Sections)
	assert.Zero(t, b.Content.PendingTotal)
}

func TestGenerate_Error(t *testing.T) {
	_, err := NewAssembler(&fakeSource{err: errors.New("db down")}).Generate(context.Background(), t0, 10)
	assert.ErrorContains(t, err, "db down")
}
