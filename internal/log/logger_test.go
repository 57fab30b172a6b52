package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("INFO"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetupWriterFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, "WARN")

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "kept", out["msg"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "INFO")

	WithComponent("server").Info("hello")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "server", out["component"])
	assert.Equal(t, "hello", out["msg"])
}

func TestWithConversation(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWriter(&buf, "INFO")

	WithConversation(l, "c1").Info("msg")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "c1", out["conversation_id"])
}
