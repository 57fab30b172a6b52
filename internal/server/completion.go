package server

import (
	"va-bridge/internal/intent"
	"va-bridge/internal/types"
)

// Output contexts an agent sets to end the bot's part of a conversation.
const (
	ContextHandoverHuman    = "handover-human"
	ContextHandoverResolved = "handover-resolved"
)

// CompletionFor decides what happens to the conversation after the bot's reply. The checks
// are ordered: a misunderstood message always goes to a human.
func CompletionFor(res *intent.Result) types.Directive {
	switch {
	case res == nil:
		return types.DirectiveNone
	case res.Action == intent.FallbackAction:
		return types.DirectiveHandover
	case res.HasOutputContext(ContextHandoverHuman):
		return types.DirectiveHandover
	case res.HasOutputContext(ContextHandoverResolved):
		return types.DirectiveResolved
	default:
		return types.DirectiveNone
	}
}
