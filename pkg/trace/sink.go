package trace

import (
	"log/slog"
	"sync"
)

// Sink receives trace events emitted by the run engine. Delivery is
// best-effort, synchronous, and exception-swallowing from the engine's
// point of view: a Sink implementation must never panic, and Emit itself
// returns no error — a Sink that needs to report delivery failures does
// so to its own log, not by propagating to the engine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Noop discards every event. Used as the default when a caller does not
// configure tracing.
var Noop Sink = SinkFunc(func(Event) {})

// MultiSink fans one event stream out to several sinks. A panic in one
// delegate is recovered and logged so it cannot take down the run.
type MultiSink struct {
	mu       sync.Mutex
	delegates []Sink
}

// NewMultiSink builds a MultiSink over the given delegates.
func NewMultiSink(delegates ...Sink) *MultiSink {
	return &MultiSink{delegates: delegates}
}

// Add appends a delegate sink.
func (m *MultiSink) Add(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegates = append(m.delegates, s)
}

func (m *MultiSink) Emit(e Event) {
	m.mu.Lock()
	delegates := make([]Sink, len(m.delegates))
	copy(delegates, m.delegates)
	m.mu.Unlock()

	for _, d := range delegates {
		emitSafely(d, e)
	}
}

func emitSafely(s Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("trace sink panicked", "recovered", r, "eventType", e.Type)
		}
	}()
	s.Emit(e)
}

// SlogSink renders events through the standard structured logger, the
// lightest-weight way to observe a run during development.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink builds a SlogSink using logger, or slog.Default() if nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger}
}

func (s *SlogSink) Emit(e Event) {
	s.Logger.Debug(string(e.Type),
		"runId", e.RunID,
		"actionCallId", e.ActionCallID,
		"parentActionCallId", e.ParentActionCallID,
		"payload", e.Payload,
	)
}

var (
	_ Sink = (*MultiSink)(nil)
	_ Sink = (*SlogSink)(nil)
)
