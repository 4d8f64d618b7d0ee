// Package trace defines the typed event stream emitted by the run engine
// and the Sink capability that consumes it.
package trace

import "time"

// Type identifies an event variant. Kept as a string rather than an enum
// of structs so sinks that only care about a subset (e.g. a log viewer)
// can switch on it without importing every payload type.
type Type string

const (
	TypeRunStart          Type = "run.start"
	TypeRunEnd            Type = "run.end"
	TypeDeckStart         Type = "deck.start"
	TypeDeckEnd           Type = "deck.end"
	TypeActionStart       Type = "action.start"
	TypeActionEnd         Type = "action.end"
	TypeToolCall          Type = "tool.call"
	TypeToolResult        Type = "tool.result"
	TypeModelCall         Type = "model.call"
	TypeModelResult       Type = "model.result"
	TypeModelStreamEvent  Type = "model.stream.event"
	TypeLog               Type = "log"
	TypeMonolog           Type = "monolog"
)

// LogLevel mirrors the handful of severities a deck author's Log entry
// can carry.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Event is the common envelope every trace event carries. Payload holds
// the type-specific fields as a map so the Sink interface stays a single
// method; engine code that needs strong typing uses the constructors
// below (RunStart, DeckStart, ...), which populate Payload consistently.
type Event struct {
	RunID               string
	Type                Type
	CreatedAt           time.Time
	ActionCallID        string
	ParentActionCallID  string
	Payload             map[string]any
}

func newEvent(runID string, t Type, actionCallID, parentActionCallID string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		RunID:              runID,
		Type:               t,
		CreatedAt:          time.Now(),
		ActionCallID:       actionCallID,
		ParentActionCallID: parentActionCallID,
		Payload:            payload,
	}
}

// RunStart / RunEnd bracket one top-level invocation of the engine.
func RunStart(runID, deckPath string) Event {
	return newEvent(runID, TypeRunStart, "", "", map[string]any{"deckPath": deckPath})
}

func RunEnd(runID string, err error) Event {
	p := map[string]any{}
	if err != nil {
		p["error"] = err.Error()
	}
	return newEvent(runID, TypeRunEnd, "", "", p)
}

// DeckStart / DeckEnd bracket one deck invocation (root or recursed).
func DeckStart(runID, actionCallID, parentActionCallID, deckPath string, depth int) Event {
	return newEvent(runID, TypeDeckStart, actionCallID, parentActionCallID, map[string]any{
		"deckPath": deckPath,
		"depth":    depth,
	})
}

func DeckEnd(runID, actionCallID, parentActionCallID string, err error) Event {
	p := map[string]any{}
	if err != nil {
		p["error"] = err.Error()
	}
	return newEvent(runID, TypeDeckEnd, actionCallID, parentActionCallID, p)
}

// ActionStart / ActionEnd bracket dispatch of one tool call to a child
// deck.
func ActionStart(runID, actionCallID, parentActionCallID, actionName, deckPath string) Event {
	return newEvent(runID, TypeActionStart, actionCallID, parentActionCallID, map[string]any{
		"actionName": actionName,
		"deckPath":   deckPath,
	})
}

func ActionEnd(runID, actionCallID, parentActionCallID string, err error) Event {
	p := map[string]any{}
	if err != nil {
		p["error"] = err.Error()
	}
	return newEvent(runID, TypeActionEnd, actionCallID, parentActionCallID, p)
}

// ToolCall / ToolResult record the raw wire-level tool call and its
// resolved content.
func ToolCall(runID, actionCallID, parentActionCallID, toolCallID, name, arguments string) Event {
	return newEvent(runID, TypeToolCall, actionCallID, parentActionCallID, map[string]any{
		"toolCallId": toolCallID,
		"name":       name,
		"arguments":  arguments,
	})
}

func ToolResult(runID, actionCallID, parentActionCallID, toolCallID, content string) Event {
	return newEvent(runID, TypeToolResult, actionCallID, parentActionCallID, map[string]any{
		"toolCallId": toolCallID,
		"content":    content,
	})
}

// ModelCall / ModelResult bracket one provider.Chat invocation.
func ModelCall(runID, actionCallID, parentActionCallID, model string, messageCount, toolCount int) Event {
	return newEvent(runID, TypeModelCall, actionCallID, parentActionCallID, map[string]any{
		"model":        model,
		"messageCount": messageCount,
		"toolCount":    toolCount,
	})
}

func ModelResult(runID, actionCallID, parentActionCallID, finishReason string, toolCallCount, promptTokens, completionTokens int) Event {
	return newEvent(runID, TypeModelResult, actionCallID, parentActionCallID, map[string]any{
		"finishReason":     finishReason,
		"toolCallCount":    toolCallCount,
		"promptTokens":     promptTokens,
		"completionTokens": completionTokens,
	})
}

// ModelStreamEvent carries an opaque provider streaming item.
func ModelStreamEvent(runID, actionCallID, parentActionCallID string, raw any) Event {
	return newEvent(runID, TypeModelStreamEvent, actionCallID, parentActionCallID, map[string]any{"event": raw})
}

// Log is a user-emitted note, carried by compute decks via
// ExecutionContext.Log.
func Log(runID, actionCallID, parentActionCallID string, level LogLevel, title, message string, body any, meta map[string]any) Event {
	return newEvent(runID, TypeLog, actionCallID, parentActionCallID, map[string]any{
		"level":   level,
		"title":   title,
		"message": message,
		"body":    body,
		"meta":    meta,
	})
}

// Monolog records assistant content produced during a non-root deck turn
// that made no tool calls.
func Monolog(runID, actionCallID, parentActionCallID, content string) Event {
	return newEvent(runID, TypeMonolog, actionCallID, parentActionCallID, map[string]any{"content": content})
}
