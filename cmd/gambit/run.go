package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"github.com/bolt-foundry/gambit/pkg/artifact"
	"github.com/bolt-foundry/gambit/pkg/config"
	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/engine"
	"github.com/bolt-foundry/gambit/pkg/observability"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

// RunCmd invokes the engine once against a freshly acquired session
// artifact store, tracing to that store, the observability manager (if
// configured), and a debug-level slog sink.
type RunCmd struct {
	Deck    string `arg:"" help:"Path to the deck to run." type:"path"`
	Message string `help:"Initial user message."`
	Init    string `help:"Initial input, as a JSON value or a raw string."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	obs, err := observability.NewManager(ctx, &cfg.Observability)
	if err != nil {
		return err
	}
	defer obs.Shutdown(ctx)

	loader := deck.NewLoader(nil)
	ld, err := loader.Load(c.Deck, "", true)
	if err != nil {
		return err
	}

	router := provider.NewRouter()
	if cfg.Providers.Fallback != "" && cfg.Providers.Fallback != "none" {
		router.SetFallback(cfg.Providers.Fallback)
	}

	var modelProvider provider.Provider
	var resolvedModel string
	if ld.ModelParams != nil {
		candidates := ld.ModelParams.Models
		if ld.ModelParams.Model != "" {
			candidates = append([]string{ld.ModelParams.Model}, candidates...)
		}
		if len(candidates) > 0 {
			modelProvider, resolvedModel, err = router.ResolveModel(ctx, candidates...)
			if err != nil {
				return err
			}
		}
	}

	sessionID := uuid.NewString()
	store, err := artifact.Acquire(cfg.Artifacts.Root, sessionID, false)
	if err != nil {
		return err
	}
	defer store.Finalize()

	sink := trace.NewMultiSink(store, obs, trace.NewSlogSink(nil))

	var initInput any
	inputProvided := c.Init != ""
	if inputProvided {
		if err := json.Unmarshal([]byte(c.Init), &initInput); err != nil {
			initInput = c.Init
		}
	}

	eng := engine.New(loader)
	result, err := eng.RunDeck(ctx, engine.RunInput{
		Path:                 c.Deck,
		Input:                initInput,
		InputProvided:        inputProvided,
		InitialUserMessage:   c.Message,
		ModelProvider:        modelProvider,
		ModelOverride:        resolvedModel,
		IsRoot:               true,
		Guardrails:           cfg.ToDeckGuardrails(),
		Trace:                sink,
		AllowRootStringInput: true,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

