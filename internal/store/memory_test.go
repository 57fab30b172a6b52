package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTrimsHistory(t *testing.T) {
	m := NewMemoryStore(2)
	m.Append("s", Message{Role: "user", Content: "one"})
	m.Append("s", Message{Role: "assistant", Content: "two"})
	m.Append("s", Message{Role: "user", Content: "three"})

	got := m.Get("s")
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Content)
	assert.Equal(t, "three", got[1].Content)

	got[0].Content = "mutated"
	assert.Equal(t, "two", m.Get("s")[0].Content)
	assert.Empty(t, m.Get("other"))
}

func TestContextLifespan(t *testing.T) {
	m := NewMemoryStore(0)
	m.SetContext("s", Context{Name: "contact_profile", LifespanCount: 2, Parameters: map[string]any{"primaryIdentifier": "Johan"}})
	m.SetContext("s", Context{Name: "handover-human", LifespanCount: 1})

	active := m.ActiveContexts("s")
	require.Len(t, active, 2)
	assert.Equal(t, "contact_profile", active[0].Name)
	assert.Equal(t, "Johan", active[0].Parameters["primaryIdentifier"])

	m.Turn("s")
	active = m.ActiveContexts("s")
	require.Len(t, active, 1)
	assert.Equal(t, "contact_profile", active[0].Name)
	assert.Equal(t, 1, active[0].LifespanCount)

	m.Turn("s")
	assert.Empty(t, m.ActiveContexts("s"))
}

func TestSetContextCopiesAndRemoves(t *testing.T) {
	m := NewMemoryStore(0)
	params := map[string]any{"k": "v"}
	m.SetContext("s", Context{Name: "c", LifespanCount: 5, Parameters: params})
	params["k"] = "changed"
	assert.Equal(t, "v", m.ActiveContexts("s")[0].Parameters["k"])

	m.SetContext("s", Context{Name: "c", LifespanCount: 0})
	assert.Empty(t, m.ActiveContexts("s"))
}

func TestContextTTL(t *testing.T) {
	m := NewMemoryStore(0)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.SetContext("s", Context{Name: "c", LifespanCount: 5})
	now = now.Add(DefaultContextTTL - time.Second)
	assert.Len(t, m.ActiveContexts("s"), 1)

	now = now.Add(2 * time.Second)
	assert.Empty(t, m.ActiveContexts("s"))
}

func TestSessionsAreIsolated(t *testing.T) {
	m := NewMemoryStore(0)
	m.SetContext("a", Context{Name: "c", LifespanCount: 1})
	m.Turn("b")
	assert.Len(t, m.ActiveContexts("a"), 1)
	assert.Empty(t, m.ActiveContexts("b"))
}
