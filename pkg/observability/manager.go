package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bolt-foundry/gambit/pkg/trace"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// openSpan is the bookkeeping kept between a *.start/*.call event and its
// matching *.end/*.result event so Manager can compute a duration and
// close the OTEL span it opened.
type openSpan struct {
	span      oteltrace.Span
	startedAt time.Time
	label     string // deckPath or tool/model name, used as the closing metric's label
	extra     string // secondary metric label (deck depth); empty where unused
}

// Manager is the C8 observability component: it implements trace.Sink so
// it can sit in a trace.MultiSink alongside a JSONL file sink, translating
// the same event stream the engine already emits into OTEL spans and
// Prometheus metrics. A Manager with tracing and metrics both disabled
// behaves like trace.Noop — Emit is always safe to call.
type Manager struct {
	cfg      *Config
	tracer   oteltrace.Tracer
	shutdown func(context.Context) error
	metrics  *Metrics

	mu    sync.Mutex
	spans map[string]*openSpan
}

// NewManager builds a Manager from cfg. A nil cfg behaves as fully
// disabled.
func NewManager(ctx context.Context, cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}

	tp, shutdown, err := newTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:      cfg,
		tracer:   tp.Tracer("gambit"),
		shutdown: shutdown,
		metrics:  newMetrics(cfg.Metrics),
		spans:    make(map[string]*openSpan),
	}

	if cfg.Tracing.Enabled {
		slog.Info("observability: tracing enabled", "endpoint", cfg.Tracing.Endpoint, "samplingRate", cfg.Tracing.SamplingRate)
	}
	if cfg.Metrics.Enabled {
		slog.Info("observability: metrics enabled", "namespace", cfg.Metrics.Namespace)
	}
	return m, nil
}

// Metrics returns the Prometheus metrics instance, or nil if disabled.
func (m *Manager) Metrics() *Metrics {
	if m == nil {
		return nil
	}
	return m.metrics
}

// MetricsHandler exposes the Prometheus registry over HTTP, regardless of
// whether metrics are enabled (an unavailable response is still a valid
// HTTP handler).
func (m *Manager) MetricsHandler() http.Handler {
	if m == nil || m.metrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics not enabled"))
		})
	}
	return m.metrics.Handler()
}

// Shutdown flushes the OTEL exporter and releases resources. Safe to
// call on a nil or fully-disabled Manager.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil || m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx)
}

// Emit implements trace.Sink: it opens an OTEL span on every
// *.start/*.call event and closes it, recording the matching Prometheus
// metric, on the paired *.end/*.result event.
func (m *Manager) Emit(e trace.Event) {
	if m == nil {
		return
	}

	// artifact.Store.Emit appends exactly one event per trace.Event it
	// receives, so the append count tracks this stream one-for-one.
	m.metrics.RecordArtifactAppend(e.RunID)

	switch e.Type {
	case trace.TypeDeckStart:
		deckPath, _ := e.Payload["deckPath"].(string)
		depth, _ := e.Payload["depth"].(int)
		m.startSpan(spanKey("deck", e.ActionCallID), deckPath, depthLabel(depth), e,
			attribute.String("deckPath", deckPath), attribute.Int("depth", depth))
	case trace.TypeDeckEnd:
		m.endSpan(spanKey("deck", e.ActionCallID), e, m.metrics.recordDeckInvocation)

	case trace.TypeActionStart:
		actionName, _ := e.Payload["actionName"].(string)
		m.startSpan(spanKey("action", e.ActionCallID), actionName, "", e,
			attribute.String("actionName", actionName))
	case trace.TypeActionEnd:
		failed, _ := e.Payload["error"].(string)
		m.endSpan(spanKey("action", e.ActionCallID), e, func(label, _ string, _ time.Duration) {
			if failed != "" && m.metrics != nil {
				m.metrics.toolErrors.WithLabelValues(label).Inc()
			}
		})

	case trace.TypeModelCall:
		model, _ := e.Payload["model"].(string)
		m.startSpan(spanKey("model", e.ActionCallID), model, "", e,
			attribute.String("model", model))
	case trace.TypeModelResult:
		promptTokens, _ := e.Payload["promptTokens"].(int)
		completionTokens, _ := e.Payload["completionTokens"].(int)
		m.endSpan(spanKey("model", e.ActionCallID), e, func(label, _ string, d time.Duration) {
			m.metrics.recordModelCall(label, d)
			m.metrics.recordModelTokens(label, promptTokens, completionTokens)
		})

	case trace.TypeToolCall:
		toolCallID, _ := e.Payload["toolCallId"].(string)
		name, _ := e.Payload["name"].(string)
		m.startSpan(spanKey("tool", toolCallID), name, "", e,
			attribute.String("toolName", name))
	case trace.TypeToolResult:
		toolCallID, _ := e.Payload["toolCallId"].(string)
		m.endSpan(spanKey("tool", toolCallID), e, func(label, _ string, d time.Duration) {
			m.metrics.recordToolCall(label, d, false)
		})

	case trace.TypeRunStart, trace.TypeRunEnd, trace.TypeLog, trace.TypeMonolog, trace.TypeModelStreamEvent:
		// No span or metric of their own; carried by the surrounding
		// deck/action/model spans above.
	}
}

func spanKey(kind, id string) string { return kind + ":" + id }

func depthLabel(depth int) string { return strconv.Itoa(depth) }

func (m *Manager) startSpan(key, label, extra string, e trace.Event, attrs ...attribute.KeyValue) {
	_, span := m.tracer.Start(context.Background(), string(e.Type))
	span.SetAttributes(attrs...)

	m.mu.Lock()
	m.spans[key] = &openSpan{span: span, startedAt: e.CreatedAt, label: label, extra: extra}
	m.mu.Unlock()
}

func (m *Manager) endSpan(key string, e trace.Event, record func(label, extra string, d time.Duration)) {
	m.mu.Lock()
	open, ok := m.spans[key]
	if ok {
		delete(m.spans, key)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	if errMsg, ok := e.Payload["error"].(string); ok && errMsg != "" {
		open.span.RecordError(fmt.Errorf("%s", errMsg))
	}
	open.span.End()

	if record != nil {
		record(open.label, open.extra, e.CreatedAt.Sub(open.startedAt))
	}
}

var _ trace.Sink = (*Manager)(nil)
