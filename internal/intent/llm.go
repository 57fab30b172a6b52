package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"

	"va-bridge/internal/store"
)

// PromptIntent is one entry of the intent catalogue shown to the model.
type PromptIntent struct {
	Name           string   `yaml:"name" json:"name"`
	Description    string   `yaml:"description" json:"description"`
	Action         string   `yaml:"action" json:"action,omitempty"`
	OutputContexts []string `yaml:"output_contexts" json:"output_contexts,omitempty"`
}

// PromptSpec describes the agent the LLM impersonates.
type PromptSpec struct {
	System  string         `yaml:"system"`
	Intents []PromptIntent `yaml:"intents"`
	Style   struct {
		Temperature float32 `yaml:"temperature"`
		Language    string  `yaml:"language"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

// ClassifiedIntent is the JSON object the model is instructed to return.
type ClassifiedIntent struct {
	Intent         string   `json:"intent"`
	Action         string   `json:"action"`
	Reply          string   `json:"reply"`
	OutputContexts []string `json:"output_contexts"`
}

// LLM is an intent backend that lets a chat model pick an intent from the catalogue and
// write the reply. Transcript and contexts are kept per session in memory.
type LLM struct {
	spec      PromptSpec
	client    *openai.Client
	model     string
	projectID string
	store     *store.MemoryStore
}

func LoadLLM(path string, client *openai.Client, model, projectID string, st *store.MemoryStore) (*LLM, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec PromptSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("parse prompt spec %s: %w", path, err)
	}
	return NewLLM(spec, client, model, projectID, st), nil
}

func NewLLM(spec PromptSpec, client *openai.Client, model, projectID string, st *store.MemoryStore) *LLM {
	if projectID == "" {
		projectID = "local"
	}
	return &LLM{spec: spec, client: client, model: model, projectID: projectID, store: st}
}

func (l *LLM) CreateContext(_ context.Context, conversationID, name string, params map[string]any) error {
	l.store.SetContext(SessionPath(l.projectID, conversationID), store.Context{
		Name:          name,
		Parameters:    params,
		LifespanCount: ContextLifespan,
	})
	return nil
}

func (l *LLM) Ask(ctx context.Context, conversationID, text string) (*Result, error) {
	session := SessionPath(l.projectID, conversationID)
	l.store.Append(session, store.Message{Role: openai.ChatMessageRoleUser, Content: text})

	ci, err := l.classify(ctx, l.prompt(session))
	if err != nil {
		return nil, &UpstreamError{Service: "openai", Op: "detect intent", Err: err}
	}

	known := false
	var contexts []string
	for _, in := range l.spec.Intents {
		if in.Name == ci.Intent {
			known = true
			if ci.Action == "" {
				ci.Action = in.Action
			}
			contexts = append(contexts, in.OutputContexts...)
			break
		}
	}
	if !known {
		ci.Action = FallbackAction
	}
	contexts = append(contexts, ci.OutputContexts...)

	l.store.Append(session, store.Message{Role: openai.ChatMessageRoleAssistant, Content: ci.Reply})
	l.store.Turn(session)
	for _, name := range contexts {
		if name = strings.TrimSpace(name); name != "" {
			l.store.SetContext(session, store.Context{Name: name, LifespanCount: 1})
		}
	}

	out := &Result{FulfillmentText: ci.Reply, IntentName: ci.Intent, Action: ci.Action}
	for _, c := range l.store.ActiveContexts(session) {
		out.OutputContexts = append(out.OutputContexts, c.Name)
	}
	return out, nil
}

// prompt embeds catalogue, active contexts and transcript into a single system message.
func (l *LLM) prompt(session string) string {
	intentsJSON, _ := json.Marshal(l.spec.Intents)

	contexts := map[string]map[string]any{}
	for _, c := range l.store.ActiveContexts(session) {
		contexts[c.Name] = c.Parameters
	}
	contextsJSON, _ := json.Marshal(contexts)

	var b strings.Builder
	b.WriteString(l.spec.System)
	b.WriteString("\n\nIntents:\n")
	b.Write(intentsJSON)
	b.WriteString("\n\nContexts (name: parameters):\n")
	b.Write(contextsJSON)
	b.WriteString("\n\nTranscript (role: content):\n")
	for _, m := range l.store.Get(session) {
		content := strings.ReplaceAll(strings.TrimSpace(m.Content), "\n\n", "\n")
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n")
	}
	if lang := l.spec.Style.Language; lang != "" {
		fmt.Fprintf(&b, "\nReply in language %s.", lang)
	}
	b.WriteString("\nInstructions: Pick the intent that best matches the last USER message. " +
		"Output ONLY a JSON object with keys intent, action, reply, output_contexts.\n")
	return b.String()
}

func (l *LLM) classify(ctx context.Context, system string) (*ClassifiedIntent, error) {
	temperature := l.spec.Style.Temperature
	if temperature <= 0 {
		temperature = 0.1
	}
	maxTokens := l.spec.Style.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices")
	}
	return parseClassified(resp.Choices[0].Message.Content)
}

// parseClassified accepts the bare JSON object or the first {...} span of a chattier answer.
func parseClassified(raw string) (*ClassifiedIntent, error) {
	var out ClassifiedIntent
	err := json.Unmarshal([]byte(raw), &out)
	if err != nil {
		first := strings.IndexByte(raw, '{')
		last := strings.LastIndexByte(raw, '}')
		if first < 0 || last <= first {
			return nil, err
		}
		if err2 := json.Unmarshal([]byte(raw[first:last+1]), &out); err2 != nil {
			return nil, err
		}
	}
	return &out, nil
}
