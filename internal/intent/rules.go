package intent

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"va-bridge/internal/store"
)

// Rule is one intent of a local agent definition.
type Rule struct {
	Name      string   `yaml:"name"`
	Action    string   `yaml:"action"`
	Phrases   []string `yaml:"phrases"`
	Responses []string `yaml:"responses"`
	// OutputContexts are activated when the rule matches, for Lifespan turns (default 1).
	OutputContexts []string `yaml:"output_contexts"`
	Lifespan       int      `yaml:"lifespan"`
}

type RuleSet struct {
	Intents  []Rule `yaml:"intents"`
	Fallback Rule   `yaml:"fallback"`
}

// Rules is an in-process agent: keyword matching over a YAML intent catalogue, with
// Dialogflow-like contexts. Responses may reference context parameters as #context.param.
type Rules struct {
	set       RuleSet
	projectID string
	store     *store.MemoryStore
	pick      func(n int) int
}

func LoadRules(path, projectID string, st *store.MemoryStore) (*Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var set RuleSet
	if err := yaml.Unmarshal(b, &set); err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return NewRules(set, projectID, st), nil
}

func NewRules(set RuleSet, projectID string, st *store.MemoryStore) *Rules {
	if set.Fallback.Name == "" {
		set.Fallback.Name = "Default Fallback Intent"
	}
	if set.Fallback.Action == "" {
		set.Fallback.Action = FallbackAction
	}
	if len(set.Fallback.Responses) == 0 {
		set.Fallback.Responses = []string{"Sorry, I didn't get that."}
	}
	if projectID == "" {
		projectID = "local"
	}
	return &Rules{set: set, projectID: projectID, store: st, pick: rand.Intn}
}

func (r *Rules) CreateContext(_ context.Context, conversationID, name string, params map[string]any) error {
	r.store.SetContext(SessionPath(r.projectID, conversationID), store.Context{
		Name:          name,
		Parameters:    params,
		LifespanCount: ContextLifespan,
	})
	return nil
}

func (r *Rules) Ask(_ context.Context, conversationID, text string) (*Result, error) {
	session := SessionPath(r.projectID, conversationID)
	active := r.store.ActiveContexts(session)

	rule := r.match(text)
	reply := ""
	if len(rule.Responses) > 0 {
		reply = render(rule.Responses[r.pick(len(rule.Responses))], active)
	}

	r.store.Turn(session)
	lifespan := rule.Lifespan
	if lifespan <= 0 {
		lifespan = 1
	}
	for _, name := range rule.OutputContexts {
		r.store.SetContext(session, store.Context{Name: name, LifespanCount: lifespan})
	}

	out := &Result{FulfillmentText: reply, IntentName: rule.Name, Action: rule.Action}
	for _, c := range r.store.ActiveContexts(session) {
		out.OutputContexts = append(out.OutputContexts, c.Name)
	}
	return out, nil
}

// match returns the first rule with a phrase contained in text on word boundaries.
func (r *Rules) match(text string) Rule {
	m := normalize(text)
	if m == "" {
		return r.set.Fallback
	}
	for _, rule := range r.set.Intents {
		for _, p := range rule.Phrases {
			if p = normalize(p); p != "" && strings.Contains(m, p) {
				return rule
			}
		}
	}
	return r.set.Fallback
}

// normalize lowercases s and reduces it to space separated words, padded with spaces.
func normalize(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	if len(words) == 0 {
		return ""
	}
	return " " + strings.Join(words, " ") + " "
}

var contextRef = regexp.MustCompile(`#([A-Za-z0-9_-]+)\.([A-Za-z0-9_-]+)`)

func render(tmpl string, active []store.Context) string {
	return contextRef.ReplaceAllStringFunc(tmpl, func(ref string) string {
		parts := contextRef.FindStringSubmatch(ref)
		for _, c := range active {
			if c.Name != parts[1] {
				continue
			}
			if v, ok := c.Parameters[parts[2]]; ok && v != nil {
				return fmt.Sprint(v)
			}
		}
		return ""
	})
}
