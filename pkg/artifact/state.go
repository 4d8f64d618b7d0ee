package artifact

import "github.com/bolt-foundry/gambit/pkg/provider"

// SavedState is the run engine's authoritative conversation state: the
// message list plus session linkage metadata. Trace history is never
// part of SavedState — it lives only in the event log.
type SavedState struct {
	RunID    string            `json:"runId"`
	Messages []provider.Message `json:"messages"`
	Meta     map[string]any    `json:"meta,omitempty"`
}

// Sanitized returns a copy of s with every message's empty ToolCalls
// slice cleared to nil, the form onStateUpdate callers receive (an
// empty tool_calls array is a JSON-encoding artifact, not meaningful
// state).
func (s *SavedState) Sanitized() *SavedState {
	if s == nil {
		return nil
	}
	out := &SavedState{RunID: s.RunID, Meta: s.Meta}
	out.Messages = make([]provider.Message, len(s.Messages))
	for i, m := range s.Messages {
		if len(m.ToolCalls) == 0 {
			m.ToolCalls = nil
		}
		out.Messages[i] = m
	}
	return out
}
