package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

// busyNote is one fired busy-handler message, timestamped with the
// elapsed time since the tool dispatch began.
type busyNote struct {
	text string
}

// busyScheduler fires handler.Path as a sub-deck after an initial delay,
// and again every repeatMs if set, until Stop is called (the child tool
// call resolving cancels every exit path per §5).
type busyScheduler struct {
	notes        chan busyNote
	stopCh       chan struct{}
	done         chan struct{}
	onStreamText func(provider.StreamChunk)
	tracer       trace.Sink
	runID        string
	actionCallID string
	parentID     string
}

func startBusyScheduler(ctx context.Context, e *Engine, handler *deck.HandlerRef, build func(elapsedMs int64) RunInput, onStreamText func(provider.StreamChunk), tracer trace.Sink, runID, actionCallID, parentID string) *busyScheduler {
	if handler == nil {
		return nil
	}
	s := &busyScheduler{
		notes:        make(chan busyNote, 4),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
		onStreamText: onStreamText,
		tracer:       tracer,
		runID:        runID,
		actionCallID: actionCallID,
		parentID:     parentID,
	}
	go s.run(ctx, e, handler, build)
	return s
}

func (s *busyScheduler) run(ctx context.Context, e *Engine, handler *deck.HandlerRef, build func(elapsedMs int64) RunInput) {
	defer close(s.done)
	start := time.Now()

	timer := time.NewTimer(time.Duration(handler.DelayMs) * time.Millisecond)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			elapsed := time.Since(start).Milliseconds()
			s.fire(ctx, e, handler, build, elapsed)
			if handler.RepeatMs <= 0 {
				return
			}
			timer.Reset(time.Duration(handler.RepeatMs) * time.Millisecond)
		}
	}
}

func (s *busyScheduler) fire(ctx context.Context, e *Engine, handler *deck.HandlerRef, build func(elapsedMs int64) RunInput, elapsedMs int64) {
	in := build(elapsedMs)
	result, err := e.RunDeck(ctx, in)
	if err != nil {
		return
	}
	text := busyResultMessage(result)
	if text == "" {
		return
	}
	formatted := formatBusyNote(text, elapsedMs)
	if s.onStreamText != nil {
		s.onStreamText(provider.StreamChunk(formatted))
	} else if s.tracer != nil {
		s.tracer.Emit(trace.Log(s.runID, s.actionCallID, s.parentID, trace.LogInfo, "busy", formatted, nil, nil))
	}
	select {
	case s.notes <- busyNote{text: formatted}:
	case <-s.stopCh:
	}
}

func busyResultMessage(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case map[string]any:
		if m, ok := v["message"].(string); ok {
			return m
		}
	}
	return ""
}

func formatBusyNote(message string, elapsedMs int64) string {
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	return message + " (elapsed " + strconv.FormatInt(elapsedMs, 10) + "ms)"
}

// Stop cancels all pending timers and drains the scheduler goroutine.
func (s *busyScheduler) Stop() {
	if s == nil {
		return
	}
	close(s.stopCh)
	<-s.done
}

// Drain returns every busy note fired so far without blocking.
func (s *busyScheduler) Drain() []string {
	if s == nil {
		return nil
	}
	var out []string
	for {
		select {
		case n := <-s.notes:
			out = append(out, n.text)
		default:
			return out
		}
	}
}

