package sparkcentral

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const conversationStartedBody = `{
  "timestamp": "2019-02-20T10:28:57.229144Z",
  "idempotencyKey": "36bce710-87d1-4b4c-9299-c873c34fac64",
  "version": 1,
  "type": "CONVERSATION_STARTED",
  "data": {
    "conversationId": "0-01e67a8c216-000-8c9ea98e",
    "contactProfile": {
      "id": "0-01e639d0a57-000-516b9710",
      "mediumContactProfileId": "2853168558034488",
      "primaryIdentifier": "Johan",
      "secondaryIdentifier": "",
      "vip": false
    },
    "contactAttributes": [
      {"attribute": "smooch-rtm-page-title", "value": "In-Web Messaging Demo", "source": "MEDIUM"},
      {"attribute": "smooch-rtm-browser-language", "value": "en-GB", "source": "MEDIUM"}
    ],
    "medium": {"id": "smooch-rtm"},
    "channel": {"id": "0-01c6421333d-000-4a29abb0", "name": "Demo Channel"}
  }
}`

func TestParseConversationStarted(t *testing.T) {
	ev := ParseEvent([]byte(conversationStartedBody))

	assert.Equal(t, EventConversationStarted, ev.Type)
	assert.Equal(t, "0-01e67a8c216-000-8c9ea98e", ev.ConversationID)
	assert.False(t, ev.HasText)
	assert.Equal(t, "Johan", ev.ContactProfile["primaryIdentifier"])
	assert.Equal(t, false, ev.ContactProfile["vip"])
	assert.Equal(t, map[string]string{
		"smooch-rtm-page-title":       "In-Web Messaging Demo",
		"smooch-rtm-browser-language": "en-GB",
	}, ev.ContactAttributes)
}

func TestParseInboundMessage(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"INBOUND_MESSAGE_RECEIVED","data":{"conversationId":"c1","message":{"text":"Hello"}}}`))

	assert.Equal(t, EventInboundMessageReceived, ev.Type)
	assert.Equal(t, "c1", ev.ConversationID)
	assert.True(t, ev.HasText)
	assert.Equal(t, "Hello", ev.Text)
	assert.Empty(t, ev.ContactProfile)
	assert.NotNil(t, ev.ContactProfile)
	assert.NotNil(t, ev.ContactAttributes)
}

func TestParseAttributesLastWins(t *testing.T) {
	ev := ParseEvent([]byte(`{"type":"CONVERSATION_STARTED","data":{"contactAttributes":[
		{"attribute":"plan","value":"free"},
		{"attribute":"plan","value":"pro"},
		{"attribute":"age","value":42},
		{"attribute":"tags","value":["a","b"]},
		{"attribute":"empty","value":null},
		{"value":"orphan"},
		"not-an-object"
	]}}`))

	assert.Equal(t, map[string]string{
		"plan":  "pro",
		"age":   "42",
		"tags":  `["a","b"]`,
		"empty": "",
	}, ev.ContactAttributes)
}

func TestParseToleratesShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want EventType
	}{
		{"unknown type", `{"type":"CONVERSATION_ASSIGNED","data":{}}`, EventOther},
		{"missing type", `{"data":{}}`, EventOther},
		{"numeric type", `{"type":7}`, EventOther},
		{"not json", `hello`, EventOther},
		{"json array", `[1,2]`, EventOther},
		{"data not object", `{"type":"INBOUND_MESSAGE_RECEIVED","data":"x"}`, EventInboundMessageReceived},
		{"message not object", `{"type":"INBOUND_MESSAGE_RECEIVED","data":{"message":"x"}}`, EventInboundMessageReceived},
		{"profile not object", `{"type":"CONVERSATION_STARTED","data":{"contactProfile":[1]}}`, EventConversationStarted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ParseEvent([]byte(tt.body))
			assert.Equal(t, tt.want, ev.Type)
			assert.Empty(t, ev.ConversationID)
			assert.False(t, ev.HasText)
			assert.NotNil(t, ev.ContactProfile)
			assert.NotNil(t, ev.ContactAttributes)
		})
	}
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "CONVERSATION_STARTED", EventConversationStarted.String())
	assert.Equal(t, "INBOUND_MESSAGE_RECEIVED", EventInboundMessageReceived.String())
	assert.Equal(t, "OTHER", EventOther.String())
}
