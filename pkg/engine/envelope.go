package engine

import (
	"encoding/json"

	"github.com/bolt-foundry/gambit/pkg/provider"
)

// EnvelopeSource identifies the action a tool result's envelope concerns.
type EnvelopeSource struct {
	DeckPath   string `json:"deckPath"`
	ActionName string `json:"actionName"`
}

// Envelope is the canonical record tools and handlers exchange (§4.6.2).
type Envelope struct {
	RunID              string         `json:"runId"`
	ActionCallID       string         `json:"actionCallId"`
	ParentActionCallID string         `json:"parentActionCallId,omitempty"`
	Source             EnvelopeSource `json:"source"`
	Status             any            `json:"status,omitempty"`
	Payload            any            `json:"payload,omitempty"`
	Message            string         `json:"message,omitempty"`
	Code               string         `json:"code,omitempty"`
	Meta               any            `json:"meta,omitempty"`
}

func mustEncode(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// knownEnvelopeFields is the set of fields normalizeChildResult lifts
// out of a child's returned object verbatim rather than nesting it as
// payload.
type knownEnvelopeFields struct {
	Status  any `json:"status"`
	Payload any `json:"payload"`
	Message any `json:"message"`
	Code    any `json:"code"`
	Meta    any `json:"meta"`
}

// normalizeChildResult implements §4.6.2: a child result shaped like
// {status?,payload?,message?,code?,meta?} keeps those fields; any other
// value (including a bare string or number) becomes the whole payload.
func normalizeChildResult(result any) (status, payload, message, code, meta any) {
	obj, ok := result.(map[string]any)
	if !ok {
		return nil, result, nil, nil, nil
	}
	known := false
	for _, k := range []string{"status", "payload", "message", "code", "meta"} {
		if _, present := obj[k]; present {
			known = true
			break
		}
	}
	if !known {
		return nil, result, nil, nil, nil
	}
	return obj["status"], obj["payload"], obj["message"], obj["code"], obj["meta"]
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

// buildSuccessEnvelope wraps a successful child result per §4.6.2.
func buildSuccessEnvelope(runID, actionCallID, parentActionCallID, deckPath, actionName string, result any) Envelope {
	status, payload, message, code, meta := normalizeChildResult(result)
	return Envelope{
		RunID:              runID,
		ActionCallID:       actionCallID,
		ParentActionCallID: parentActionCallID,
		Source:             EnvelopeSource{DeckPath: deckPath, ActionName: actionName},
		Status:             status,
		Payload:            payload,
		Message:            stringField(message),
		Code:               stringField(code),
		Meta:               meta,
	}
}

// buildUnknownActionEnvelope is the 404 envelope returned when the model
// calls a tool name the deck does not define.
func buildUnknownActionEnvelope(runID, actionCallID, parentActionCallID, deckPath, actionName string) Envelope {
	return Envelope{
		RunID:              runID,
		ActionCallID:       actionCallID,
		ParentActionCallID: parentActionCallID,
		Source:             EnvelopeSource{DeckPath: deckPath, ActionName: actionName},
		Status:             404,
		Message:            "unknown action",
	}
}

// buildHandlerEnvelope wraps an onError handler's own output per §4.6.2,
// defaulting status to 500 when the handler's result does not supply one.
func buildHandlerEnvelope(runID, actionCallID, parentActionCallID, deckPath, actionName string, handlerResult any) Envelope {
	env := buildSuccessEnvelope(runID, actionCallID, parentActionCallID, deckPath, actionName, handlerResult)
	if env.Status == nil {
		env.Status = 500
	}
	return env
}

// buildHandlerFallbackEnvelope is synthesized when the onError handler
// itself fails: the original error is reported rather than re-thrown.
func buildHandlerFallbackEnvelope(runID, actionCallID, parentActionCallID, deckPath, actionName string, originalErr error, childInput any) Envelope {
	return Envelope{
		RunID:              runID,
		ActionCallID:       actionCallID,
		ParentActionCallID: parentActionCallID,
		Source:             EnvelopeSource{DeckPath: deckPath, ActionName: actionName},
		Status:             500,
		Code:               "HANDLER_FALLBACK",
		Message:            "Handled error: " + originalErr.Error(),
		Payload:            childInput,
		Meta:               map[string]any{"handlerFailed": true},
	}
}

// appendCompletePair appends the trailing synthetic assistant+tool
// message pair named gambit_complete that records a tool dispatch's
// completion explicitly in history, so the parent loop observes it
// directly rather than only through the original call's tool result.
func appendCompletePair(messages []provider.Message, envelopeJSON string) []provider.Message {
	id := newShortID()
	return append(messages,
		provider.Message{
			Role:      provider.RoleAssistant,
			ToolCalls: []provider.ToolCall{{ID: id, Name: toolComplete, Arguments: "{}"}},
		},
		provider.Message{
			Role:       provider.RoleTool,
			ToolCallID: id,
			Name:       toolComplete,
			Content:    envelopeJSON,
		},
	)
}
