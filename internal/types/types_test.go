package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageReplyEncoding(t *testing.T) {
	tests := []struct {
		name      string
		directive Directive
		want      string
	}{
		{"no directive is null", DirectiveNone, `{"sendMessage":{"text":"hi"},"applyTopics":["Welcome"],"complete":null}`},
		{"handover", DirectiveHandover, `{"sendMessage":{"text":"hi"},"applyTopics":["Welcome"],"complete":"HANDOVER"}`},
		{"resolved", DirectiveResolved, `{"sendMessage":{"text":"hi"},"applyTopics":["Welcome"],"complete":"RESOLVED"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(MessageReply{
				SendMessage: MessageText{Text: "hi"},
				ApplyTopics: []string{"Welcome"},
				Complete:    tt.directive,
			})
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestEmptyEncodesAsObject(t *testing.T) {
	b, err := json.Marshal(Empty{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}
