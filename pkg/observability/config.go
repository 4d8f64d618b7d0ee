// Package observability implements the run engine's optional C8
// component: an OpenTelemetry tracer and a Prometheus metrics registry
// fed by the same trace.Event stream the engine already emits, with zero
// coupling between the engine and OTEL/Prometheus beyond the trace.Sink
// interface.
package observability

import "fmt"

// Config configures the observability manager. Both halves default to
// disabled — a project opts in explicitly via gambit.toml's
// [observability] table.
type Config struct {
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	ServiceName  string  `mapstructure:"service_name"`
	Insecure     bool    `mapstructure:"insecure"`
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

const (
	defaultServiceName  = "gambit"
	defaultOTLPEndpoint = "localhost:4317"
	defaultSampling     = 1.0
	defaultNamespace    = "gambit"
)

// SetDefaults fills in every field a project's gambit.toml left unset.
func (c *Config) SetDefaults() {
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaultServiceName
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = defaultOTLPEndpoint
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = defaultSampling
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaultNamespace
	}
}

// Validate checks the config for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Tracing.Enabled && (c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1) {
		return fmt.Errorf("observability: tracing.sampling_rate must be between 0 and 1, got %f", c.Tracing.SamplingRate)
	}
	return nil
}
