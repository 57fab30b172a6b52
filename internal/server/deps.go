package server

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/oauth2/google"

	"va-bridge/internal/config"
	"va-bridge/internal/giphy"
	"va-bridge/internal/intent"
	"va-bridge/internal/sparkcentral"
	"va-bridge/internal/store"
)

//go:generate mockgen -destination=mocks/mock_deps.go -package=mocks va-bridge/internal/server Detector,Messenger,MediaSource

// Detector is the intent service the webhook forwards contact messages to.
type Detector interface {
	CreateContext(ctx context.Context, conversationID, name string, params map[string]any) error
	Ask(ctx context.Context, conversationID, text string) (*intent.Result, error)
}

// Messenger sends actions to a Sparkcentral conversation.
type Messenger interface {
	UploadAttachment(ctx context.Context, conversationID string, data []byte, filename, contentType string) (int, error)
	Send(ctx context.Context, conversationID string, action sparkcentral.Action) (int, error)
}

// MediaSource finds a random GIF for a search term.
type MediaSource interface {
	Random(ctx context.Context, tag string) (*giphy.Media, error)
}

// Deps are the upstream services of the bridge. Media may be nil, which disables the gif trigger.
type Deps struct {
	Detector  Detector
	Messenger Messenger
	Media     MediaSource
}

// transcriptSize bounds the per-conversation history kept by the local backends.
const transcriptSize = 40

// DefaultDeps builds the production upstream clients for cfg.
func DefaultDeps(ctx context.Context, cfg config.Config) (Deps, error) {
	d := Deps{
		Messenger: sparkcentral.NewClient(cfg.SparkcentralBaseURL, cfg.SparkcentralClientID, cfg.SparkcentralClientSecret, cfg.UpstreamTimeout),
	}
	if cfg.GiphyAPIKey != "" {
		d.Media = giphy.NewClient(cfg.GiphyBaseURL, cfg.GiphyAPIKey, cfg.GiphyRating, cfg.UpstreamTimeout)
	}

	switch cfg.IntentBackend {
	case config.BackendDialogflow:
		hc, err := google.DefaultClient(ctx, intent.DialogflowScope)
		if err != nil {
			return Deps{}, fmt.Errorf("google credentials: %w", err)
		}
		hc.Timeout = cfg.UpstreamTimeout
		d.Detector = intent.NewDialogflowClient(hc, cfg.DialogflowBaseURL, cfg.DialogflowProjectID, cfg.DialogflowLanguageCode)
	case config.BackendOpenAI:
		oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
		oc.HTTPClient = &http.Client{Timeout: cfg.UpstreamTimeout}
		llm, err := intent.LoadLLM(cfg.IntentPromptFile, openai.NewClientWithConfig(oc), cfg.Model, cfg.DialogflowProjectID, store.NewMemoryStore(transcriptSize))
		if err != nil {
			return Deps{}, fmt.Errorf("failed to load intent prompt: %w", err)
		}
		d.Detector = llm
	case config.BackendRules:
		rules, err := intent.LoadRules(cfg.IntentRulesFile, cfg.DialogflowProjectID, store.NewMemoryStore(transcriptSize))
		if err != nil {
			return Deps{}, fmt.Errorf("failed to load intent rules: %w", err)
		}
		d.Detector = rules
	default:
		return Deps{}, fmt.Errorf("unknown intent backend %q", cfg.IntentBackend)
	}
	return d, nil
}
