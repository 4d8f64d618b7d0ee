// Package provider defines the model provider capability (C4) and the
// router that resolves model ids and aliases to a concrete provider (C7).
package provider

import "context"

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is the canonical structured form of an assistant tool
// invocation request.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded
}

// Message is one entry in the conversation sent to / returned from a
// provider. ToolCalls is populated on assistant messages that invoke
// tools; ToolCallID and Name are populated on tool-role messages.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// FinishReason mirrors the provider's reason for ending generation.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
)

// ToolDefinition is one callable tool surfaced to the model, built by the
// run engine from an action's child-deck input schema (C1's
// ToParameterShape) or from a synthetic tool.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage reports token accounting, when the provider supplies it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamChunk is one piece of incremental assistant text delivered during
// a streaming chat call.
type StreamChunk string

// ChatRequest is the input to Provider.Chat.
type ChatRequest struct {
	Model        string
	Messages     []Message
	Tools        []ToolDefinition
	Stream       bool
	State        any
	Params       map[string]any
	OnStreamText func(StreamChunk)
}

// ChatResult is the output of Provider.Chat.
type ChatResult struct {
	Message      Message
	FinishReason FinishReason
	ToolCalls    []ToolCall
	Usage        *Usage
	UpdatedState any
}

// StreamEvent is one item of the optional event-stream Responses variant.
type StreamEvent struct {
	Type string // "response.created" | "response.output_text.delta" | "response.output_text.done" | "response.completed"
	Data map[string]any
}

// ResponsesRequest is the input to Provider.Responses.
type ResponsesRequest struct {
	Model         string
	Messages      []Message
	Tools         []ToolDefinition
	OnStreamEvent func(StreamEvent)
}

// Provider is the capability the run engine drives. Responses is
// optional: a provider that does not implement it only supports Chat.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

// ResponsesProvider is implemented by providers that additionally expose
// the event-stream variant.
type ResponsesProvider interface {
	Provider
	Responses(ctx context.Context, req ResponsesRequest) (*ChatResult, error)
}
