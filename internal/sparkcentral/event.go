package sparkcentral

import (
	"encoding/json"
	"fmt"
)

type EventType int

const (
	EventOther EventType = iota
	EventConversationStarted
	EventInboundMessageReceived
)

func (t EventType) String() string {
	switch t {
	case EventConversationStarted:
		return "CONVERSATION_STARTED"
	case EventInboundMessageReceived:
		return "INBOUND_MESSAGE_RECEIVED"
	default:
		return "OTHER"
	}
}

// Event holds the fields of a webhook delivery the bridge acts on.
// Missing or mistyped fields are left at their zero value.
type Event struct {
	Type           EventType
	RawType        string
	ConversationID string
	Text           string
	HasText        bool
	// ContactProfile is never nil.
	ContactProfile map[string]any
	// ContactAttributes flattens the {attribute, value} list; never nil.
	ContactAttributes map[string]string
}

// ParseEvent extracts an Event from a raw webhook body. It never fails: a body that is not
// a JSON object yields an EventOther with empty fields.
func ParseEvent(body []byte) Event {
	ev := Event{
		ContactProfile:    map[string]any{},
		ContactAttributes: map[string]string{},
	}
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return ev
	}

	ev.RawType, _ = root["type"].(string)
	switch ev.RawType {
	case "CONVERSATION_STARTED":
		ev.Type = EventConversationStarted
	case "INBOUND_MESSAGE_RECEIVED":
		ev.Type = EventInboundMessageReceived
	}

	data := object(root, "data")
	ev.ConversationID, _ = data["conversationId"].(string)
	ev.Text, ev.HasText = object(data, "message")["text"].(string)
	if profile := object(data, "contactProfile"); profile != nil {
		ev.ContactProfile = profile
	}

	attrs, _ := data["contactAttributes"].([]any)
	for _, a := range attrs {
		entry, ok := a.(map[string]any)
		if !ok {
			continue
		}
		name, ok := entry["attribute"].(string)
		if !ok {
			continue
		}
		ev.ContactAttributes[name] = stringValue(entry["value"])
	}
	return ev
}

// object returns m[key] when it is a JSON object. Indexing the nil result is safe.
func object(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
