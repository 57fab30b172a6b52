package types

import "encoding/json"

// Directive tells Sparkcentral what to do with the conversation after the bot replied.
// The zero value means "leave the conversation as it is" and serializes as null.
type Directive string

const (
	DirectiveNone     Directive = ""
	DirectiveHandover Directive = "HANDOVER"
	DirectiveResolved Directive = "RESOLVED"
)

func (d Directive) MarshalJSON() ([]byte, error) {
	if d == DirectiveNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

type MessageText struct {
	Text string `json:"text"`
}

// MessageReply is the synchronous answer to an INBOUND_MESSAGE_RECEIVED webhook.
type MessageReply struct {
	SendMessage MessageText `json:"sendMessage"`
	ApplyTopics []string    `json:"applyTopics"`
	Complete    Directive   `json:"complete"`
}

// Empty is the "nothing to do" answer; it encodes as {}.
type Empty struct{}

type ErrorResponse struct {
	Error string `json:"error"`
}
