package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"va-bridge/internal/config"
	"va-bridge/internal/intent"
)

func TestDefaultDepsRules(t *testing.T) {
	cfg := config.Config{
		IntentBackend:       config.BackendRules,
		IntentRulesFile:     "../../agent/rules.yaml",
		SparkcentralBaseURL: "https://public-api.sparkcentral.com",
		UpstreamTimeout:     time.Second,
	}
	d, err := DefaultDeps(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &intent.Rules{}, d.Detector)
	assert.NotNil(t, d.Messenger)
	assert.Nil(t, d.Media, "no giphy key, no media source")

	cfg.GiphyAPIKey = "key"
	d, err = DefaultDeps(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, d.Media)
}

func TestDefaultDepsOpenAI(t *testing.T) {
	cfg := config.Config{
		IntentBackend:    config.BackendOpenAI,
		OpenAIAPIKey:     "sk-test",
		Model:            "gpt-4o-mini",
		IntentPromptFile: "../../agent/intent.yaml",
		UpstreamTimeout:  time.Second,
	}
	d, err := DefaultDeps(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &intent.LLM{}, d.Detector)
}

func TestDefaultDepsErrors(t *testing.T) {
	_, err := DefaultDeps(context.Background(), config.Config{IntentBackend: config.BackendRules, IntentRulesFile: "missing.yaml"})
	assert.ErrorContains(t, err, "failed to load intent rules")

	_, err = DefaultDeps(context.Background(), config.Config{IntentBackend: "watson"})
	assert.ErrorContains(t, err, "unknown intent backend")
}
