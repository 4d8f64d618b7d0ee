package provider_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/provider/providertest"
)

func TestRouter_PrefixRouting(t *testing.T) {
	r := provider.NewRouter()
	or := &providertest.Scripted{Turns: []provider.ChatResult{{FinishReason: provider.FinishStop}}}
	r.RegisterProvider("openrouter", "openrouter/", or, providertest.AlwaysAvailable{})

	p, model, err := r.ResolveModel(context.Background(), "openrouter/anthropic/claude-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != provider.Provider(or) {
		t.Fatalf("expected the openrouter provider to be selected")
	}
	if model != "anthropic/claude-3" {
		t.Fatalf("expected prefix to be stripped, got %q", model)
	}
}

func TestRouter_UnprefixedBindsToFallback(t *testing.T) {
	r := provider.NewRouter()
	ollama := &providertest.Scripted{}
	r.RegisterProvider("ollama", "ollama/", ollama, providertest.AlwaysAvailable{})
	r.SetFallback("ollama")

	_, model, err := r.ResolveModel(context.Background(), "llama3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "llama3" {
		t.Fatalf("expected unprefixed model id unchanged, got %q", model)
	}
}

func TestRouter_NoFallbackMatchesNothing(t *testing.T) {
	r := provider.NewRouter()
	_, _, err := r.ResolveModel(context.Background(), "unprefixed-model")
	if err == nil {
		t.Fatal("expected an error when no fallback is configured")
	}
	if !strings.Contains(err.Error(), "Tried:") {
		t.Fatalf("expected error to list tried candidates, got %v", err)
	}
}

func TestRouter_CandidateListFallsThroughToFirstAvailable(t *testing.T) {
	r := provider.NewRouter()
	down := &providertest.Scripted{}
	up := &providertest.Scripted{Turns: []provider.ChatResult{{FinishReason: provider.FinishStop}}}
	r.RegisterProvider("down", "down/", down, providertest.NeverAvailable{})
	r.RegisterProvider("up", "up/", up, providertest.AlwaysAvailable{})

	p, model, err := r.ResolveModel(context.Background(), "down/x", "up/y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != provider.Provider(up) {
		t.Fatalf("expected the available candidate to win")
	}
	if model != "y" {
		t.Fatalf("expected the winning candidate's model, got %q", model)
	}
}

func TestRouter_AliasExpansion(t *testing.T) {
	r := provider.NewRouter()
	up := &providertest.Scripted{Turns: []provider.ChatResult{{FinishReason: provider.FinishStop}}}
	r.RegisterProvider("up", "up/", up, providertest.AlwaysAvailable{})
	r.RegisterAlias("fast", provider.Alias{Models: []string{"up/small"}})

	_, model, err := r.ResolveModel(context.Background(), "fast")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "small" {
		t.Fatalf("expected alias to expand to up/small, got %q", model)
	}
}

func TestRouter_UnknownAliasWarnsOnceAndFallsThroughToLiteral(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	r := provider.NewRouter()
	up := &providertest.Scripted{Turns: []provider.ChatResult{{FinishReason: provider.FinishStop}}}
	r.RegisterProvider("up", "", up, providertest.AlwaysAvailable{})
	r.SetFallback("up")

	_, model, err := r.ResolveModel(context.Background(), "totally-unknown-alias")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "totally-unknown-alias" {
		t.Fatalf("expected unknown alias to fall through as a literal model id, got %q", model)
	}

	// Resolving the same unknown name again must not warn a second time.
	_, _, _ = r.ResolveModel(context.Background(), "totally-unknown-alias")

	out := buf.String()
	if strings.Count(out, "unknown model alias") != 1 {
		t.Fatalf("expected exactly one warning for a repeated unknown alias, got log: %s", out)
	}
	if !strings.Contains(out, "totally-unknown-alias") {
		t.Fatalf("expected the warning to name the unknown alias, got log: %s", out)
	}
}
