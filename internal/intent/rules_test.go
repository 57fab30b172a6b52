package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"va-bridge/internal/store"
)

var greetings = []string{
	"Hi! How are you doing?",
	"Hello! How can I help you?",
	"Good day! What can I do for you today?",
	"Greetings! How can I assist?",
}

func testRuleSet() RuleSet {
	return RuleSet{
		Intents: []Rule{
			{
				Name:      "Default Welcome Intent",
				Action:    "input.welcome",
				Phrases:   []string{"hello", "hi", "hey", "good day", "greetings"},
				Responses: greetings,
			},
			{
				Name:      "Who am I",
				Phrases:   []string{"who am i"},
				Responses: []string{"You are #contact_profile.primaryIdentifier."},
			},
			{
				Name:           "Talk to a human",
				Phrases:        []string{"agent", "human"},
				Responses:      []string{"Let me get someone for you."},
				OutputContexts: []string{"handover-human"},
			},
			{
				Name:           "Thanks",
				Phrases:        []string{"thanks", "thank you"},
				Responses:      []string{"You're welcome!"},
				OutputContexts: []string{"handover-resolved"},
				Lifespan:       2,
			},
		},
	}
}

func newTestRules() (*Rules, *store.MemoryStore) {
	st := store.NewMemoryStore(0)
	r := NewRules(testRuleSet(), "demo", st)
	r.pick = func(int) int { return 0 }
	return r, st
}

func TestRulesGreeting(t *testing.T) {
	r, _ := newTestRules()
	r.pick = func(n int) int { return n - 1 }

	res, err := r.Ask(context.Background(), "conv-1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Default Welcome Intent", res.IntentName)
	assert.Equal(t, "input.welcome", res.Action)
	assert.Contains(t, greetings, res.FulfillmentText)
	assert.Equal(t, "Greetings! How can I assist?", res.FulfillmentText)
	assert.Empty(t, res.OutputContexts)
}

func TestRulesMatchesOnWordBoundaries(t *testing.T) {
	r, _ := newTestRules()

	// "this" contains "hi" but is not a greeting.
	res, err := r.Ask(context.Background(), "conv-1", "this is odd")
	require.NoError(t, err)
	assert.Equal(t, FallbackAction, res.Action)
	assert.Equal(t, "Default Fallback Intent", res.IntentName)
	assert.Equal(t, "Sorry, I didn't get that.", res.FulfillmentText)

	res, err = r.Ask(context.Background(), "conv-1", "Good day, sir!")
	require.NoError(t, err)
	assert.Equal(t, "Default Welcome Intent", res.IntentName)
}

func TestRulesEmptyTextFallsBack(t *testing.T) {
	r, _ := newTestRules()
	res, err := r.Ask(context.Background(), "conv-1", "  ?! ")
	require.NoError(t, err)
	assert.Equal(t, FallbackAction, res.Action)
}

func TestRulesRendersContextParameters(t *testing.T) {
	r, _ := newTestRules()
	require.NoError(t, r.CreateContext(context.Background(), "conv-1", "contact_profile", map[string]any{
		"primaryIdentifier": "jane@example.com",
	}))

	res, err := r.Ask(context.Background(), "conv-1", "Who am I?")
	require.NoError(t, err)
	assert.Equal(t, "You are jane@example.com.", res.FulfillmentText)
	assert.Equal(t, []string{"contact_profile"}, res.OutputContexts)

	// Another conversation has no such context.
	res, err = r.Ask(context.Background(), "conv-2", "Who am I?")
	require.NoError(t, err)
	assert.Equal(t, "You are .", res.FulfillmentText)
}

func TestRulesUploadedContextLifespan(t *testing.T) {
	r, st := newTestRules()
	require.NoError(t, r.CreateContext(context.Background(), "conv-1", "contact_attributes", map[string]any{"tier": "gold"}))

	session := SessionPath("demo", "conv-1")
	require.Len(t, st.ActiveContexts(session), 1)
	assert.Equal(t, ContextLifespan, st.ActiveContexts(session)[0].LifespanCount)

	for i := 0; i < ContextLifespan; i++ {
		_, err := r.Ask(context.Background(), "conv-1", "hmm")
		require.NoError(t, err)
	}
	assert.Empty(t, st.ActiveContexts(session))
}

func TestRulesOutputContexts(t *testing.T) {
	r, _ := newTestRules()

	res, err := r.Ask(context.Background(), "conv-1", "I want a human")
	require.NoError(t, err)
	assert.True(t, res.HasOutputContext("handover-human"))

	// Lifespan 1: gone on the next turn.
	res, err = r.Ask(context.Background(), "conv-1", "thanks")
	require.NoError(t, err)
	assert.False(t, res.HasOutputContext("handover-human"))
	assert.True(t, res.HasOutputContext("handover-resolved"))

	// Lifespan 2: still there one turn later.
	res, err = r.Ask(context.Background(), "conv-1", "hmm")
	require.NoError(t, err)
	assert.True(t, res.HasOutputContext("handover-resolved"))
}

func TestLoadRules(t *testing.T) {
	r, err := LoadRules("../../agent/rules.yaml", "", store.NewMemoryStore(0))
	require.NoError(t, err)

	res, err := r.Ask(context.Background(), "conv-1", "Hello")
	require.NoError(t, err)
	assert.Contains(t, greetings, res.FulfillmentText)

	_, err = LoadRules("does-not-exist.yaml", "", store.NewMemoryStore(0))
	assert.Error(t, err)
}
