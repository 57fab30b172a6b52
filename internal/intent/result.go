package intent

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ContextLifespan is the number of turns an uploaded context stays active.
const ContextLifespan = 5

// FallbackAction is the action of the fallback intent: the bot did not understand.
const FallbackAction = "input.unknown"

// Result is the part of a detect-intent answer the bridge acts on.
type Result struct {
	FulfillmentText string
	IntentName      string
	// OutputContexts holds short context names, e.g. "handover-human".
	OutputContexts []string
	Action         string
}

func (r *Result) HasOutputContext(name string) bool {
	for _, c := range r.OutputContexts {
		if c == name {
			return true
		}
	}
	return false
}

// UpstreamError wraps any failure of the intent service.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed", e.Service, e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SessionPath scopes a conversation to the agent of a project. Using the conversation id as
// session id keeps history and contexts across webhook deliveries of one conversation.
func SessionPath(projectID, conversationID string) string {
	return "projects/" + url.PathEscape(projectID) + "/agent/sessions/" + url.PathEscape(conversationID)
}

// shortContextName strips the resource prefix of a context name.
func shortContextName(name string) string {
	return path.Base(name)
}
