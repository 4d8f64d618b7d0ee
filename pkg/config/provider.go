// Package config implements the project config loader (C9): reading
// gambit.toml, expanding environment variable references, decoding into
// a typed Config, applying defaults, and validating the result.
package config

import (
	"context"
	"os"
)

// defaultConfigPath is used when GAMBIT_CONFIG is unset.
const defaultConfigPath = "gambit.toml"

// Provider abstracts the config source, the same role the teacher's
// pkg/config/provider.Provider plays for its YAML sources — here scaled
// down to the single source gambit needs.
type Provider interface {
	// Type identifies the provider for logging.
	Type() string

	// Load reads the raw gambit.toml bytes.
	Load(ctx context.Context) ([]byte, error)
}

// FileProvider loads gambit.toml from a local path.
type FileProvider struct {
	Path string
}

// NewFileProvider builds a Provider reading from path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

func (p *FileProvider) Type() string { return "file" }

func (p *FileProvider) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, &ConfigError{Path: p.Path, Message: "read gambit.toml", Cause: err}
	}
	return data, nil
}

// DefaultProvider resolves the config path the way §4.9 step 1
// specifies: GAMBIT_CONFIG overrides the default "gambit.toml" in the
// working directory.
func DefaultProvider() Provider {
	if path := os.Getenv("GAMBIT_CONFIG"); path != "" {
		return NewFileProvider(path)
	}
	return NewFileProvider(defaultConfigPath)
}
