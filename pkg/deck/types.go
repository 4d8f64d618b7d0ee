// Package deck implements the deck loader (C2): resolving a deck/card
// graph from a path into a flattened, validated LoadedDeck the run
// engine can drive.
package deck

import "github.com/bolt-foundry/gambit/pkg/schema"

// Action is a named child-deck callable by the model via a tool call.
type Action struct {
	Name        string
	Path        string
	Description string
}

// ModelParams selects the model(s) an LLM deck may use and carries any
// free-form provider parameters (temperature, reasoning effort, ...).
type ModelParams struct {
	Model       string
	Models      []string
	Temperature *float64
	Params      map[string]any
}

// HandlerRef points to a handler deck and its trigger timing.
type HandlerRef struct {
	Path     string
	DelayMs  int
	RepeatMs int
}

// Handlers bundles the three lifecycle hooks a deck may declare.
type Handlers struct {
	OnError *HandlerRef
	OnBusy  *HandlerRef
	OnIdle  *HandlerRef
}

// SyntheticTools toggles engine-injected tools for a deck.
type SyntheticTools struct {
	Respond bool
}

// Guardrails overrides the engine's default limits for one deck.
type Guardrails struct {
	MaxDepth  *int
	MaxPasses *int
	TimeoutMs *int
}

// Executor is the inline function backing a compute deck. ctx exposes
// exactly the capabilities spec.md's ExecutionContext names; ctx.Fail
// constructs the error an executor returns instead of panicking or
// throwing, since Go has no exception channel distinct from the error
// return.
type Executor func(ctx ExecutionContext) (any, error)

// LogEntry is one user-emitted note from a compute deck.
type LogEntry struct {
	Level   string
	Title   string
	Message string
	Body    any
	Meta    map[string]any
}

// SpawnRequest is the input to ExecutionContext.SpawnAndWait.
type SpawnRequest struct {
	Path  string
	Input any
}

// ExecutionContext is implemented by the run engine and passed to a
// compute deck's Executor. It is declared here, not in pkg/engine, so
// that deck definitions (which reference Executor) never need to import
// the engine package.
type ExecutionContext interface {
	RunID() string
	ActionCallID() string
	ParentActionCallID() string
	Depth() int
	Input() any
	Label() string
	Log(entry LogEntry)
	SpawnAndWait(req SpawnRequest) (any, error)
	Fail(message string, code string, details any) error
}

// Deck is a deck definition as declared by a source, before embed
// resolution, action-path normalization, and schema merging.
type Deck struct {
	Path           string
	Label          string
	Body           string
	ModelParams    *ModelParams
	InputSchema    *schema.Schema
	OutputSchema   *schema.Schema
	Actions        []Action
	Embeds         []string
	Handlers       *Handlers
	SyntheticTools SyntheticTools
	Guardrails     *Guardrails
	Executor       Executor
}

// Card is a prompt/schema fragment embedded into one or more decks.
// Cards MUST NOT declare handlers, model params, or an executor — the
// loader rejects a card source that tries to.
type Card struct {
	Path           string
	Label          string
	Body           string
	InputFragment  *schema.Schema
	OutputFragment *schema.Schema
	Actions        []Action
	Embeds         []string
}

// LoadedDeck is the flattened, validated result of Load: cards merged in
// flatten order, actions merged into a name-keyed map (deck overrides
// card), schemas unioned, handler paths resolved absolute.
type LoadedDeck struct {
	Path           string
	Label          string
	Body           string
	ModelParams    *ModelParams
	InputSchema    *schema.Schema
	OutputSchema   *schema.Schema
	Cards          []*Card
	Actions        map[string]Action
	ActionOrder    []string
	Executor       Executor
	Handlers       *Handlers
	SyntheticTools SyntheticTools
	Guardrails     *Guardrails
	IsRoot         bool
}

// IsComputeDeck reports whether this deck should be driven by an
// Executor rather than the LLM turn loop (spec §4.6 deck classification).
func (d *LoadedDeck) IsComputeDeck() bool {
	if d.Executor == nil {
		return false
	}
	if d.ModelParams == nil {
		return true
	}
	return d.ModelParams.Model == "" && d.ModelParams.Temperature == nil
}
