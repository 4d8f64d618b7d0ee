package engine

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/schema"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

// RunDeck loads in.Path and drives it to completion: a compute deck runs
// its executor once; an LLM deck enters the turn loop. Every recursive
// call (tool dispatch, busy/idle/error handlers, ExecutionContext.
// SpawnAndWait) re-enters here with depth+1 and the same runId.
func (e *Engine) RunDeck(ctx context.Context, in RunInput) (any, error) {
	tracer := in.Trace
	if tracer == nil {
		tracer = trace.Noop
	}

	callerDepthLimit := resolveGuardrails(in.Guardrails, nil).MaxDepth
	if in.Depth > callerDepthLimit {
		return nil, &GuardrailError{Message: "Max depth exceeded"}
	}

	runID := in.RunID
	isTopLevel := runID == ""
	if isTopLevel {
		runID = newShortID()
		tracer.Emit(trace.RunStart(runID, in.Path))
	}
	in.RunID = runID

	ld, err := e.Loader.Load(in.Path, "", in.IsRoot)
	if err != nil {
		if isTopLevel {
			tracer.Emit(trace.RunEnd(runID, err))
		}
		return nil, err
	}

	g := resolveGuardrails(in.Guardrails, ld.Guardrails)

	actionCallID := newShortID()
	tracer.Emit(trace.DeckStart(runID, actionCallID, in.ParentActionCallID, ld.Path, in.Depth))

	canonInput, err := canonicalizeInput(ld, in)
	if err == nil {
		in.Input = canonInput
	}

	var result any
	if err == nil {
		if ld.IsComputeDeck() {
			result, err = e.runCompute(ctx, ld, in, runID, actionCallID, tracer)
		} else {
			result, err = e.runLLMTurn(ctx, ld, in, runID, actionCallID, g, tracer)
		}
	}

	tracer.Emit(trace.DeckEnd(runID, actionCallID, in.ParentActionCallID, err))
	if isTopLevel {
		tracer.Emit(trace.RunEnd(runID, err))
	}
	return result, err
}

// canonicalizeInput validates in.Input against ld.InputSchema when one
// was provided, applying the root-deck raw-string fallback (C1 contract)
// when ld is root and in.AllowRootStringInput is set.
func canonicalizeInput(ld *deck.LoadedDeck, in RunInput) (any, error) {
	if !in.InputProvided {
		return in.Input, nil
	}
	if ld.IsRoot && in.AllowRootStringInput {
		if s, ok := in.Input.(string); ok {
			return schema.ValidateRootString(ld.InputSchema, s, true)
		}
	}
	return schema.Validate(ld.InputSchema, in.Input)
}

// runCompute invokes a compute deck's executor and validates its return
// against the output schema.
func (e *Engine) runCompute(ctx context.Context, ld *deck.LoadedDeck, in RunInput, runID, actionCallID string, tracer trace.Sink) (any, error) {
	ec := &executionContext{
		engine:             e,
		ctx:                ctx,
		tracer:             tracer,
		in:                 in,
		deckPath:           ld.Path,
		runID:              runID,
		actionCallID:       actionCallID,
		parentActionCallID: in.ParentActionCallID,
		depth:              in.Depth,
		input:              in.Input,
		label:              ld.Label,
	}
	result, err := ld.Executor(ec)
	if err != nil {
		return nil, err
	}
	return schema.Validate(ld.OutputSchema, result)
}

func modelOf(ld *deck.LoadedDeck) string {
	if ld.ModelParams == nil {
		return ""
	}
	return ld.ModelParams.Model
}

func modelParamsOf(ld *deck.LoadedDeck) map[string]any {
	if ld.ModelParams == nil || len(ld.ModelParams.Params) == 0 && ld.ModelParams.Temperature == nil {
		return nil
	}
	params := map[string]any{}
	for k, v := range ld.ModelParams.Params {
		params[k] = v
	}
	if ld.ModelParams.Temperature != nil {
		params["temperature"] = *ld.ModelParams.Temperature
	}
	return params
}

func idleHandlerFor(ld *deck.LoadedDeck) *deck.HandlerRef {
	if ld.Handlers == nil {
		return nil
	}
	return ld.Handlers.OnIdle
}

// runLLMTurn implements the turn loop of §4.6 steps 2-4: message/tool
// setup followed by the pass loop over provider.Chat calls.
func (e *Engine) runLLMTurn(ctx context.Context, ld *deck.LoadedDeck, in RunInput, runID, actionCallID string, g resolvedGuardrails, tracer trace.Sink) (any, error) {
	if in.ModelProvider == nil {
		return nil, &ProviderError{Message: "No model configured for deck " + ld.Path}
	}

	messages := buildInitialMessages(ld, in, runID, actionCallID, tracer)
	notify := func() { notifyState(in, runID, messages) }
	notify()

	toolDefs, err := e.buildToolDefinitions(ld)
	if err != nil {
		return nil, err
	}

	idleHandler := idleHandlerFor(ld)
	idle := newIdleController(idleHandler, idleFireFunc(ctx, e, func(elapsedMs int64) RunInput {
		return RunInput{
			Path:          idleHandler.Path,
			Input:         idleInput(ld.Label, ld.Path, elapsedMs),
			InputProvided: true,
			ModelProvider: in.ModelProvider,
			IsRoot:        false,
			Guardrails:    in.Guardrails,
			Depth:         in.Depth + 1,
			RunID:         runID,
			DefaultModel:  in.DefaultModel,
			ModelOverride: in.ModelOverride,
			Trace:         tracer,
			Stream:        in.Stream,
			OnStateUpdate: in.OnStateUpdate,
		}
	}, in.OnStreamText, tracer, runID, actionCallID, in.ParentActionCallID))
	defer idle.Stop()

	drainIdleNotes := func() {
		for _, note := range idle.Drain() {
			messages = append(messages, provider.Message{Role: provider.RoleAssistant, Content: note})
		}
	}

	wrappedStream := func(chunk provider.StreamChunk) {
		idle.Touch()
		if in.OnStreamText != nil {
			in.OnStreamText(chunk)
		}
	}

	turnStart := time.Now()
	passes := 0
	for {
		if time.Since(turnStart) > time.Duration(g.TimeoutMs)*time.Millisecond {
			return nil, &GuardrailError{Message: "Timeout exceeded"}
		}

		model := firstNonEmpty(in.ModelOverride, modelOf(ld), in.DefaultModel)
		if model == "" {
			return nil, &ProviderError{Message: "No model configured for deck " + ld.Path}
		}

		idle.Touch()
		tracer.Emit(trace.ModelCall(runID, actionCallID, in.ParentActionCallID, model, len(messages), len(toolDefs)))
		res, err := in.ModelProvider.Chat(ctx, provider.ChatRequest{
			Model:        model,
			Messages:     messages,
			Tools:        toolDefs,
			Stream:       in.Stream,
			State:        in.State,
			Params:       modelParamsOf(ld),
			OnStreamText: wrappedStream,
		})
		if err != nil {
			return nil, &ProviderError{Message: "provider chat failed", Cause: err}
		}
		var promptTokens, completionTokens int
		if res.Usage != nil {
			promptTokens, completionTokens = res.Usage.PromptTokens, res.Usage.CompletionTokens
		}
		tracer.Emit(trace.ModelResult(runID, actionCallID, in.ParentActionCallID, string(res.FinishReason), len(res.ToolCalls), promptTokens, completionTokens))
		idle.Touch()
		drainIdleNotes()

		if len(res.ToolCalls) > 0 {
			responded := false
			var respondValue any
			for _, call := range res.ToolCalls {
				if ld.SyntheticTools.Respond && call.Name == toolRespond {
					tracer.Emit(trace.ToolCall(runID, actionCallID, in.ParentActionCallID, call.ID, call.Name, call.Arguments))
					value, rerr := handleRespond(ld, call)
					if rerr != nil {
						return nil, rerr
					}
					messages = append(messages,
						provider.Message{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{call}},
						provider.Message{Role: provider.RoleTool, ToolCallID: call.ID, Name: call.Name, Content: call.Arguments},
					)
					tracer.Emit(trace.ToolResult(runID, actionCallID, in.ParentActionCallID, call.ID, call.Arguments))
					respondValue = value
					responded = true
					break
				}

				tracer.Emit(trace.ActionStart(runID, actionCallID, in.ParentActionCallID, call.Name, ld.Path))
				tracer.Emit(trace.ToolCall(runID, actionCallID, in.ParentActionCallID, call.ID, call.Name, call.Arguments))

				outcome := e.dispatchTool(ctx, ld, call, in, runID, actionCallID, idle, tracer)
				drainIdleNotes()

				if outcome.err != nil {
					tracer.Emit(trace.ActionEnd(runID, actionCallID, in.ParentActionCallID, outcome.err))
					return nil, outcome.err
				}

				messages = append(messages,
					provider.Message{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{call}},
					provider.Message{Role: provider.RoleTool, ToolCallID: call.ID, Name: call.Name, Content: outcome.toolContent},
				)
				messages = append(messages, outcome.extraMessages...)
				tracer.Emit(trace.ToolResult(runID, actionCallID, in.ParentActionCallID, call.ID, outcome.toolContent))
				tracer.Emit(trace.ActionEnd(runID, actionCallID, in.ParentActionCallID, nil))
			}

			notify()
			if responded {
				return respondValue, nil
			}
			continue
		}

		if res.FinishReason == provider.FinishToolCalls {
			return nil, &ProviderError{Message: "Model requested tool_calls but provided none"}
		}
		if res.FinishReason == provider.FinishLength && strings.TrimSpace(res.Message.Content) == "" {
			return nil, &ProviderError{Message: "Model stopped early (length) with no content"}
		}

		content := res.Message.Content
		if content == "" {
			if res.FinishReason == provider.FinishStop {
				return nil, &ProviderError{Message: "Model produced no content and no tool calls"}
			}
			passes++
			if passes >= g.MaxPasses {
				return nil, &GuardrailError{Message: "Max passes exceeded without completing"}
			}
			continue
		}

		messages = append(messages, provider.Message{Role: provider.RoleAssistant, Content: content})
		notify()
		if !ld.IsRoot {
			tracer.Emit(trace.Monolog(runID, actionCallID, in.ParentActionCallID, content))
		}

		if !ld.SyntheticTools.Respond {
			return schema.Validate(ld.OutputSchema, content)
		}
		if res.FinishReason == provider.FinishStop {
			return nil, &ProviderError{Message: "Deck requires gambit_respond to finish"}
		}

		passes++
		if passes >= g.MaxPasses {
			return nil, &GuardrailError{Message: "Max passes exceeded without completing"}
		}
	}
}

func idleInput(label, deckPath string, elapsedMs int64) map[string]any {
	return map[string]any{
		"kind":  "idle",
		"label": label,
		"source": map[string]any{
			"deckPath": deckPath,
		},
		"trigger": map[string]any{
			"reason":    "quiescence",
			"elapsedMs": elapsedMs,
		},
	}
}

// respondArgs is the decode target for a gambit_respond tool call's
// JSON-encoded arguments.
type respondArgs struct {
	Status  any `json:"status"`
	Payload any `json:"payload"`
	Message any `json:"message"`
	Code    any `json:"code"`
	Meta    any `json:"meta"`
}

// handleRespond implements turn-loop step f's gambit_respond branch:
// fields are taken verbatim except payload, which is validated against
// the deck's output schema.
func handleRespond(ld *deck.LoadedDeck, call provider.ToolCall) (any, error) {
	var args respondArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, &ProviderError{Message: "invalid gambit_respond arguments", Cause: err}
	}
	payload, err := schema.Validate(ld.OutputSchema, args.Payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":  args.Status,
		"payload": payload,
		"message": args.Message,
		"code":    args.Code,
		"meta":    args.Meta,
	}, nil
}

func notifyState(in RunInput, runID string, messages []provider.Message) {
	if in.OnStateUpdate == nil {
		return
	}
	in.OnStateUpdate(sanitizedState(runID, messages, nil))
}
