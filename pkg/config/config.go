package config

import (
	"log/slog"

	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/observability"
)

// Default guardrail values mirror pkg/engine's package defaults
// (DefaultMaxDepth/DefaultMaxPasses/DefaultTimeoutMs) — duplicated here
// rather than imported so this leaf package never depends on the engine
// it configures.
const (
	defaultMaxDepth  = 3
	defaultMaxPasses = 3
	defaultTimeoutMs = 120_000

	defaultArtifactRoot = "./.gambit/sessions"
	defaultFallback     = "none"
)

// recognizedFallbacks are the providers.fallback values §4.9/§6
// recognize. Anything else warns once; "codex" is a hard error.
var recognizedFallbacks = map[string]bool{
	"openrouter": true,
	"ollama":     true,
	"google":     true,
	"codex-cli":  true,
	"none":       true,
}

// Config is the root gambit.toml structure.
type Config struct {
	Providers     ProvidersConfig      `mapstructure:"providers"`
	Guardrails    GuardrailsConfig     `mapstructure:"guardrails"`
	Artifacts     ArtifactsConfig      `mapstructure:"artifacts"`
	Observability observability.Config `mapstructure:"observability"`
}

// ProvidersConfig selects the fallback provider for unprefixed model ids.
type ProvidersConfig struct {
	Fallback string `mapstructure:"fallback"`
}

// GuardrailsConfig overrides the engine's package-level guardrail
// defaults at the project level. Nil fields fall back to the engine's
// own defaults; a project that sets none of these gets the engine's
// defaults unchanged.
type GuardrailsConfig struct {
	MaxDepth  *int `mapstructure:"max_depth"`
	MaxPasses *int `mapstructure:"max_passes"`
	TimeoutMs *int `mapstructure:"timeout_ms"`
}

// ArtifactsConfig locates the session artifact store's root directory.
type ArtifactsConfig struct {
	Root string `mapstructure:"root"`
}

// SetDefaults fills in every field a project's gambit.toml left unset.
func (c *Config) SetDefaults() {
	if c.Providers.Fallback == "" {
		c.Providers.Fallback = defaultFallback
	}
	if c.Artifacts.Root == "" {
		c.Artifacts.Root = defaultArtifactRoot
	}
	if c.Guardrails.MaxDepth == nil {
		c.Guardrails.MaxDepth = intPtr(defaultMaxDepth)
	}
	if c.Guardrails.MaxPasses == nil {
		c.Guardrails.MaxPasses = intPtr(defaultMaxPasses)
	}
	if c.Guardrails.TimeoutMs == nil {
		c.Guardrails.TimeoutMs = intPtr(defaultTimeoutMs)
	}
	c.Observability.SetDefaults()
}

// Validate checks providers.fallback against the recognized set, per
// §4.9 step 6 / §6: "codex" is a hard error, any other unrecognized
// value is a single warning, everything else passes silently.
func (c *Config) Validate() error {
	if c.Providers.Fallback == "codex" {
		return &ConfigError{Path: "providers.fallback", Message: `providers.fallback "codex" is no longer supported`}
	}
	if !recognizedFallbacks[c.Providers.Fallback] {
		slog.Warn("unrecognized providers.fallback value, proceeding anyway",
			"value", c.Providers.Fallback,
			"recognized", []string{"openrouter", "ollama", "google", "codex-cli", "none"})
	}
	if err := c.Observability.Validate(); err != nil {
		return &ConfigError{Path: "observability", Message: err.Error()}
	}
	return nil
}

// ToDeckGuardrails converts the project-level guardrail overrides into
// the *deck.Guardrails shape RunInput.Guardrails expects.
func (c *Config) ToDeckGuardrails() *deck.Guardrails {
	return &deck.Guardrails{
		MaxDepth:  c.Guardrails.MaxDepth,
		MaxPasses: c.Guardrails.MaxPasses,
		TimeoutMs: c.Guardrails.TimeoutMs,
	}
}

func intPtr(v int) *int { return &v }
