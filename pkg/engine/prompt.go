package engine

import (
	"encoding/json"
	"strings"

	"github.com/bolt-foundry/gambit/pkg/artifact"
	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

const (
	toolInit     = "gambit_init"
	toolRespond  = "gambit_respond"
	toolComplete = "gambit_complete"
)

// buildSystemPrompt concatenates the deck's own body with every flattened
// card's body, each trimmed, joined by blank lines.
func buildSystemPrompt(ld *deck.LoadedDeck) string {
	parts := make([]string, 0, len(ld.Cards)+1)
	if body := strings.TrimSpace(ld.Body); body != "" {
		parts = append(parts, body)
	}
	for _, c := range ld.Cards {
		if body := strings.TrimSpace(c.Body); body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n\n")
}

func encodeAsContent(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// buildInitialMessages implements turn-loop step 2: resume-vs-fresh
// history, the gambit_init synthetic pair, and the optional
// initialUserMessage append. Returns the built messages; when the
// session is resumed, restored messages take precedence over a system
// prompt rebuild.
func buildInitialMessages(ld *deck.LoadedDeck, in RunInput, runID, actionCallID string, tracer trace.Sink) []provider.Message {
	var messages []provider.Message
	resumed := in.State != nil && len(in.State.Messages) > 0

	if resumed {
		messages = append(messages, in.State.Sanitized().Messages...)
	} else {
		messages = append(messages, provider.Message{
			Role:    provider.RoleSystem,
			Content: buildSystemPrompt(ld),
		})
	}

	if in.InputProvided && !resumed {
		toolCallID := newShortID()
		messages = append(messages,
			provider.Message{
				Role: provider.RoleAssistant,
				ToolCalls: []provider.ToolCall{
					{ID: toolCallID, Name: toolInit, Arguments: "{}"},
				},
			},
			provider.Message{
				Role:       provider.RoleTool,
				ToolCallID: toolCallID,
				Name:       toolInit,
				Content:    encodeAsContent(in.Input),
			},
		)
		tracer.Emit(trace.ToolCall(runID, actionCallID, in.ParentActionCallID, toolCallID, toolInit, "{}"))
		tracer.Emit(trace.ToolResult(runID, actionCallID, in.ParentActionCallID, toolCallID, encodeAsContent(in.Input)))
	}

	if in.InitialUserMessage != "" {
		messages = append(messages, provider.Message{
			Role:    provider.RoleUser,
			Content: in.InitialUserMessage,
		})
	}

	return messages
}

// sanitizedState builds the artifact.SavedState the engine hands to
// onStateUpdate: sanitized messages plus run linkage.
func sanitizedState(runID string, messages []provider.Message, meta map[string]any) *artifact.SavedState {
	s := &artifact.SavedState{RunID: runID, Messages: messages, Meta: meta}
	return s.Sanitized()
}
