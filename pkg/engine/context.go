package engine

import (
	"context"

	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

// executionContext implements deck.ExecutionContext for one compute
// deck invocation.
type executionContext struct {
	engine   *Engine
	ctx      context.Context
	tracer   trace.Sink
	in       RunInput
	deckPath string

	runID              string
	actionCallID       string
	parentActionCallID string
	depth              int
	input              any
	label              string
}

func (c *executionContext) RunID() string              { return c.runID }
func (c *executionContext) ActionCallID() string        { return c.actionCallID }
func (c *executionContext) ParentActionCallID() string  { return c.parentActionCallID }
func (c *executionContext) Depth() int                  { return c.depth }
func (c *executionContext) Input() any                  { return c.input }
func (c *executionContext) Label() string               { return c.label }

func (c *executionContext) Log(entry deck.LogEntry) {
	level := trace.LogLevel(entry.Level)
	if level == "" {
		level = trace.LogInfo
	}
	c.tracer.Emit(trace.Log(c.runID, c.actionCallID, c.parentActionCallID, level, entry.Title, entry.Message, entry.Body, entry.Meta))
}

// SpawnAndWait resolves req.Path relative to the compute deck's own
// file and recurses with depth+1, the same provider/guardrails/trace
// hooks, and this invocation's actionCallId as the child's parent.
func (c *executionContext) SpawnAndWait(req deck.SpawnRequest) (any, error) {
	childPath := deck.ResolvePath(req.Path, c.deckPath)
	return c.engine.RunDeck(c.ctx, RunInput{
		Path:               childPath,
		Input:              req.Input,
		InputProvided:      true,
		ModelProvider:      c.in.ModelProvider,
		IsRoot:             false,
		Guardrails:         c.in.Guardrails,
		Depth:              c.depth + 1,
		ParentActionCallID: c.actionCallID,
		RunID:              c.runID,
		DefaultModel:       c.in.DefaultModel,
		ModelOverride:      c.in.ModelOverride,
		Trace:              c.tracer,
		Stream:             c.in.Stream,
		OnStreamText:       c.in.OnStreamText,
		OnStateUpdate:      c.in.OnStateUpdate,
	})
}

func (c *executionContext) Fail(message, code string, details any) error {
	return &ComputeError{Message: message, Code: code, Details: details}
}

var _ deck.ExecutionContext = (*executionContext)(nil)
