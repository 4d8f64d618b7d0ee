package config

import (
	"context"
	"errors"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
)

// Loader reads and decodes gambit.toml through a Provider, the same
// six-step pipeline the teacher's pkg/config.Loader.Load runs, scaled
// down from YAML to TOML and from koanf-driven defaulting to a direct
// SetDefaults/Validate pair.
type Loader struct {
	provider Provider
}

// NewLoader builds a Loader over the given provider, or DefaultProvider
// if nil.
func NewLoader(p Provider) *Loader {
	if p == nil {
		p = DefaultProvider()
	}
	return &Loader{provider: p}
}

// Load runs the full pipeline: read raw bytes, parse TOML, expand env
// var references, decode into Config, apply defaults, validate.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	data, err := l.provider.Load(ctx)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		data = nil // no gambit.toml present: proceed with an all-defaults Config
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "parse gambit.toml", Cause: err}
	}

	expanded, _ := expandEnvVarsInData(raw).(map[string]any)

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, &ConfigError{Message: "build config decoder", Cause: err}
	}
	if err := decoder.Decode(expanded); err != nil {
		return nil, &ConfigError{Message: "decode gambit.toml", Cause: err}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is the convenience entry point: read gambit.toml (or the path
// GAMBIT_CONFIG names) through DefaultProvider and decode it.
func Load(ctx context.Context) (*Config, error) {
	return NewLoader(nil).Load(ctx)
}
