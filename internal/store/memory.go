package store

import (
	"sort"
	"sync"
	"time"
)

type Message struct {
	Role    string
	Content string
}

// Context is a named parameter bag that stays active for a number of turns.
type Context struct {
	Name          string
	Parameters    map[string]any
	LifespanCount int
	UpdatedAt     time.Time
}

// MemoryStore keeps per-session transcripts and contexts for the local intent backends.
// Sessions are keyed by the intent session path.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string][]Message
	maxMessages int
	contexts    map[string]map[string]Context
	contextTTL  time.Duration
	now         func() time.Time
}

// DefaultContextTTL matches the idle expiry of Dialogflow contexts.
const DefaultContextTTL = 20 * time.Minute

func NewMemoryStore(maxMessages int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string][]Message),
		maxMessages: maxMessages,
		contexts:    make(map[string]map[string]Context),
		contextTTL:  DefaultContextTTL,
		now:         time.Now,
	}
}

func (m *MemoryStore) Append(sessionID string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], msg)
	m.trimLocked(sessionID)
}

func (m *MemoryStore) Get(sessionID string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.sessions[sessionID]
	copyMsgs := make([]Message, len(msgs))
	copy(copyMsgs, msgs)
	return copyMsgs
}

func (m *MemoryStore) trimLocked(sessionID string) {
	if m.maxMessages <= 0 {
		return
	}
	msgs := m.sessions[sessionID]
	if len(msgs) > m.maxMessages {
		m.sessions[sessionID] = msgs[len(msgs)-m.maxMessages:]
	}
}

// SetContext creates or replaces a context. A lifespan <= 0 removes it.
func (m *MemoryStore) SetContext(sessionID string, c Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := m.contexts[sessionID]
	if c.LifespanCount <= 0 {
		delete(byName, c.Name)
		return
	}
	if byName == nil {
		byName = make(map[string]Context)
		m.contexts[sessionID] = byName
	}
	params := make(map[string]any, len(c.Parameters))
	for k, v := range c.Parameters {
		params[k] = v
	}
	c.Parameters = params
	c.UpdatedAt = m.now()
	byName[c.Name] = c
}

// ActiveContexts returns the live contexts of a session sorted by name. Expired ones are dropped.
func (m *MemoryStore) ActiveContexts(sessionID string) []Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(sessionID)
	byName := m.contexts[sessionID]
	out := make([]Context, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Turn consumes one turn of every context's lifespan.
func (m *MemoryStore) Turn(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(sessionID)
	for name, c := range m.contexts[sessionID] {
		c.LifespanCount--
		if c.LifespanCount <= 0 {
			delete(m.contexts[sessionID], name)
			continue
		}
		m.contexts[sessionID][name] = c
	}
}

func (m *MemoryStore) expireLocked(sessionID string) {
	byName, ok := m.contexts[sessionID]
	if !ok {
		return
	}
	now := m.now()
	for name, c := range byName {
		if now.Sub(c.UpdatedAt) > m.contextTTL {
			delete(byName, name)
		}
	}
	if len(byName) == 0 {
		delete(m.contexts, sessionID)
	}
}
