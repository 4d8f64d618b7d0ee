package engine

import (
	"context"
	"encoding/json"

	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

// dispatchOutcome is the result of dispatching one non-synthetic tool
// call: the content for the call's own tool-result message, plus any
// extra messages (fired busy notes and the gambit_complete pair) to
// append after it. err is
// set only when the call fails with no onError handler — the turn loop
// re-throws it per §4.6.3.
type dispatchOutcome struct {
	toolContent   string
	extraMessages []provider.Message
	err           error
}

// dispatchTool implements §4.6.1: unknown-action 404, busy-handler
// scheduling around the recursive call, success normalization with a
// trailing gambit_complete pair, and the §4.6.3 error-handler fallback.
func (e *Engine) dispatchTool(ctx context.Context, ld *deck.LoadedDeck, call provider.ToolCall, in RunInput, runID, actionCallID string, idle *idleController, tracer trace.Sink) dispatchOutcome {
	action, ok := ld.Actions[call.Name]
	if !ok {
		env := buildUnknownActionEnvelope(runID, actionCallID, in.ParentActionCallID, ld.Path, call.Name)
		return dispatchOutcome{toolContent: mustEncode(env)}
	}

	var args any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		args = call.Arguments
	}

	idle.Pause()
	defer idle.Resume()

	childRunInput := func() RunInput {
		return RunInput{
			Path:               action.Path,
			Input:              args,
			InputProvided:      true,
			ModelProvider:      in.ModelProvider,
			IsRoot:             false,
			Guardrails:         in.Guardrails,
			Depth:              in.Depth + 1,
			ParentActionCallID: actionCallID,
			RunID:              runID,
			DefaultModel:       in.DefaultModel,
			ModelOverride:      in.ModelOverride,
			Trace:              tracer,
			Stream:             in.Stream,
			OnStreamText:       in.OnStreamText,
			OnStateUpdate:      in.OnStateUpdate,
		}
	}

	var busy *busyScheduler
	if ld.Handlers != nil && ld.Handlers.OnBusy != nil {
		busy = startBusyScheduler(ctx, e, ld.Handlers.OnBusy, func(elapsedMs int64) RunInput {
			return RunInput{
				Path:               ld.Handlers.OnBusy.Path,
				Input:              busyInput(ld.Label, ld.Path, call.Name, elapsedMs, args),
				InputProvided:      true,
				ModelProvider:      in.ModelProvider,
				IsRoot:             false,
				Guardrails:         in.Guardrails,
				Depth:              in.Depth + 1,
				ParentActionCallID: actionCallID,
				RunID:              runID,
				DefaultModel:       in.DefaultModel,
				ModelOverride:      in.ModelOverride,
				Trace:              tracer,
				Stream:             in.Stream,
				OnStateUpdate:      in.OnStateUpdate,
			}
		}, in.OnStreamText, tracer, runID, actionCallID, in.ParentActionCallID)
	}

	result, err := e.RunDeck(ctx, childRunInput())
	busy.Stop()
	busyNotes := busy.Drain()

	if err != nil {
		out := e.handleChildError(ctx, ld, call, args, in, runID, actionCallID, err, tracer)
		out.extraMessages = append(busyNotesToMessages(busyNotes), out.extraMessages...)
		return out
	}

	env := buildSuccessEnvelope(runID, actionCallID, in.ParentActionCallID, ld.Path, call.Name, result)
	encoded := mustEncode(env)
	return dispatchOutcome{
		toolContent:   encoded,
		extraMessages: append(busyNotesToMessages(busyNotes), appendCompletePair(nil, encoded)...),
	}
}

// busyNotesToMessages turns every fired busy note into an assistant
// message, the same way idle notes are folded into the turn's message
// list (engine.go's drainIdleNotes), per §4.6.1 step 2's "streamed AND
// appended to the message list" requirement.
func busyNotesToMessages(notes []string) []provider.Message {
	if len(notes) == 0 {
		return nil
	}
	msgs := make([]provider.Message, len(notes))
	for i, note := range notes {
		msgs[i] = provider.Message{Role: provider.RoleAssistant, Content: note}
	}
	return msgs
}

func busyInput(label, deckPath, actionName string, elapsedMs int64, childInput any) map[string]any {
	return map[string]any{
		"kind":  "busy",
		"label": label,
		"source": map[string]any{
			"deckPath":   deckPath,
			"actionName": actionName,
		},
		"trigger": map[string]any{
			"reason":    "timeout",
			"elapsedMs": elapsedMs,
		},
		"childInput": childInput,
	}
}

// handleChildError implements §4.6.3: run the onError handler deck when
// present (itself recursed, with a HANDLER_FALLBACK envelope if that
// handler also fails) and swallow the original error into the tool
// result; otherwise re-throw it.
func (e *Engine) handleChildError(ctx context.Context, ld *deck.LoadedDeck, call provider.ToolCall, args any, in RunInput, runID, actionCallID string, childErr error, tracer trace.Sink) dispatchOutcome {
	if ld.Handlers == nil || ld.Handlers.OnError == nil {
		return dispatchOutcome{err: childErr}
	}

	handlerInput := map[string]any{
		"kind":  "error",
		"label": ld.Label,
		"source": map[string]any{
			"deckPath":   ld.Path,
			"actionName": call.Name,
		},
		"error":      map[string]any{"message": childErr.Error()},
		"childInput": args,
	}

	handlerResult, handlerErr := e.RunDeck(ctx, RunInput{
		Path:               ld.Handlers.OnError.Path,
		Input:              handlerInput,
		InputProvided:      true,
		ModelProvider:      in.ModelProvider,
		IsRoot:             false,
		Guardrails:         in.Guardrails,
		Depth:              in.Depth + 1,
		ParentActionCallID: actionCallID,
		RunID:              runID,
		DefaultModel:       in.DefaultModel,
		ModelOverride:      in.ModelOverride,
		Trace:              tracer,
		Stream:             in.Stream,
		OnStreamText:       in.OnStreamText,
		OnStateUpdate:      in.OnStateUpdate,
	})

	var env Envelope
	if handlerErr != nil {
		env = buildHandlerFallbackEnvelope(runID, actionCallID, in.ParentActionCallID, ld.Path, call.Name, childErr, handlerInput)
	} else {
		env = buildHandlerEnvelope(runID, actionCallID, in.ParentActionCallID, ld.Path, call.Name, handlerResult)
	}
	encoded := mustEncode(env)
	return dispatchOutcome{
		toolContent:   encoded,
		extraMessages: appendCompletePair(nil, encoded),
	}
}
