package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus vectors §4.8 names: model calls, tool
// dispatch, deck invocations, and artifact-store appends.
type Metrics struct {
	registry *prometheus.Registry

	modelCalls        *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	modelTokensInput  *prometheus.CounterVec
	modelTokensOutput *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	deckInvocations *prometheus.CounterVec
	deckDuration    *prometheus.HistogramVec

	artifactAppends *prometheus.CounterVec
}

// newMetrics builds a Metrics instance registered under cfg.Namespace,
// or nil when metrics are disabled.
func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.modelCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "model", Name: "calls_total",
		Help: "Total number of model provider calls.",
	}, []string{"model"})
	m.modelCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace, Subsystem: "model", Name: "call_duration_seconds",
		Help: "Model call duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"model"})
	m.modelTokensInput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "model", Name: "tokens_input_total",
		Help: "Total input tokens consumed.",
	}, []string{"model"})
	m.modelTokensOutput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "model", Name: "tokens_output_total",
		Help: "Total output tokens generated.",
	}, []string{"model"})

	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool dispatches.",
	}, []string{"tool"})
	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help: "Tool dispatch duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"tool"})
	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total number of tool dispatch errors.",
	}, []string{"tool"})

	m.deckInvocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "deck", Name: "invocations_total",
		Help: "Total number of deck invocations.",
	}, []string{"deckPath", "depth"})
	m.deckDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace, Subsystem: "deck", Name: "duration_seconds",
		Help: "Deck invocation duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
	}, []string{"deckPath", "depth"})

	m.artifactAppends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace, Subsystem: "artifact", Name: "appends_total",
		Help: "Total number of session artifact store appends.",
	}, []string{"sessionId"})

	m.registry.MustRegister(
		m.modelCalls, m.modelCallDuration, m.modelTokensInput, m.modelTokensOutput,
		m.toolCalls, m.toolCallDuration, m.toolErrors,
		m.deckInvocations, m.deckDuration,
		m.artifactAppends,
	)
	return m
}

func (m *Metrics) recordModelCall(model string, d time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(model).Inc()
	m.modelCallDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (m *Metrics) recordModelTokens(model string, input, output int) {
	if m == nil {
		return
	}
	if input > 0 {
		m.modelTokensInput.WithLabelValues(model).Add(float64(input))
	}
	if output > 0 {
		m.modelTokensOutput.WithLabelValues(model).Add(float64(output))
	}
}

func (m *Metrics) recordToolCall(tool string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
	if failed {
		m.toolErrors.WithLabelValues(tool).Inc()
	}
}

func (m *Metrics) recordDeckInvocation(deckPath, depth string, d time.Duration) {
	if m == nil {
		return
	}
	m.deckInvocations.WithLabelValues(deckPath, depth).Inc()
	m.deckDuration.WithLabelValues(deckPath, depth).Observe(d.Seconds())
}

// RecordArtifactAppend counts a session append. Manager.Emit calls it
// once per trace event it receives, passing the event's runId as the
// sessionId label.
func (m *Metrics) RecordArtifactAppend(sessionID string) {
	if m == nil {
		return
	}
	m.artifactAppends.WithLabelValues(sessionID).Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
