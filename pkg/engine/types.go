// Package engine implements the run engine (C5): the agent turn loop,
// tool dispatch, synthetic tools, guardrails, and busy/idle/error
// handlers driving one deck invocation, recursively.
package engine

import (
	"github.com/bolt-foundry/gambit/pkg/artifact"
	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

// Default guardrail values applied when neither the caller nor the deck
// itself overrides them.
const (
	DefaultMaxDepth  = 3
	DefaultMaxPasses = 3
	DefaultTimeoutMs = 120_000
)

// RunInput is the input to Engine.RunDeck.
type RunInput struct {
	Path                 string
	Input                any
	InputProvided        bool
	InitialUserMessage   string
	ModelProvider        provider.Provider
	IsRoot               bool
	Guardrails           *deck.Guardrails
	Depth                int
	ParentActionCallID   string
	RunID                string
	DefaultModel         string
	ModelOverride        string
	Trace                trace.Sink
	Stream               bool
	State                *artifact.SavedState
	OnStateUpdate        func(*artifact.SavedState)
	OnStreamText         func(provider.StreamChunk)
	AllowRootStringInput bool
}

// Engine drives deck invocations against a Loader. It holds no
// per-run state itself: every RunDeck call is independent except for
// the runId threaded through recursive calls.
type Engine struct {
	Loader *deck.Loader
}

// New builds an Engine over loader, or the default composite source if
// loader is nil.
func New(loader *deck.Loader) *Engine {
	if loader == nil {
		loader = deck.NewLoader(nil)
	}
	return &Engine{Loader: loader}
}

type resolvedGuardrails struct {
	MaxDepth  int
	MaxPasses int
	TimeoutMs int
}

// resolveGuardrails applies caller overrides first, then deck-level
// overrides on top, falling back to the package defaults for anything
// neither specifies.
func resolveGuardrails(caller, deckLevel *deck.Guardrails) resolvedGuardrails {
	g := resolvedGuardrails{MaxDepth: DefaultMaxDepth, MaxPasses: DefaultMaxPasses, TimeoutMs: DefaultTimeoutMs}
	apply := func(g *resolvedGuardrails, o *deck.Guardrails) {
		if o == nil {
			return
		}
		if o.MaxDepth != nil {
			g.MaxDepth = *o.MaxDepth
		}
		if o.MaxPasses != nil {
			g.MaxPasses = *o.MaxPasses
		}
		if o.TimeoutMs != nil {
			g.TimeoutMs = *o.TimeoutMs
		}
	}
	apply(&g, caller)
	apply(&g, deckLevel)
	return g
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
