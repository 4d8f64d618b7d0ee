package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bolt-foundry/gambit/pkg/deck"
	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/trace"
)

// idleController fires a deck-scoped onIdle handler after delayMs of
// quiescence (no stream chunks and no tool activity), per §4.6.5. It is
// touched on every stream chunk, tool dispatch start/end, and model call
// boundary; paused while a child deck executes; stopped on deck
// completion. Fired notes are delivered through a channel rather than a
// direct callback into the turn loop's message slice, since the timer
// fires on its own goroutine and the turn loop is the only goroutine
// allowed to mutate messages.
type idleController struct {
	mu      sync.Mutex
	timer   *time.Timer
	paused  bool
	stopped bool
	start   time.Time
	fire    func(elapsedMs int64) string
	delay   time.Duration
	notes   chan string
}

func newIdleController(handler *deck.HandlerRef, fire func(elapsedMs int64) string) *idleController {
	if handler == nil {
		return nil
	}
	c := &idleController{
		delay: time.Duration(handler.DelayMs) * time.Millisecond,
		fire:  fire,
		notes: make(chan string, 8),
	}
	c.arm()
	return c
}

func (c *idleController) arm() {
	c.start = time.Now()
	c.timer = time.AfterFunc(c.delay, c.onTimer)
}

func (c *idleController) onTimer() {
	c.mu.Lock()
	if c.stopped || c.paused {
		c.mu.Unlock()
		return
	}
	elapsed := time.Since(c.start).Milliseconds()
	c.mu.Unlock()

	note := c.fire(elapsed)
	if note == "" {
		return
	}
	select {
	case c.notes <- note:
	default:
	}
}

// Touch resets the quiescence window.
func (c *idleController) Touch() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.paused {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.arm()
}

// Pause suspends firing until Resume, for the duration of child deck
// execution.
func (c *idleController) Pause() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Resume rearms the quiescence window after a child deck completes.
func (c *idleController) Resume() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.paused = false
	c.arm()
}

// Stop permanently disarms the controller at deck completion.
func (c *idleController) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Drain returns every idle note fired since the last Drain, without
// blocking. The turn loop calls this at safe points (pass boundaries,
// after a Chat call returns) to fold notes into the message list on its
// own goroutine.
func (c *idleController) Drain() []string {
	if c == nil {
		return nil
	}
	var out []string
	for {
		select {
		case n := <-c.notes:
			out = append(out, n)
		default:
			return out
		}
	}
}

func formatIdleNote(message string, elapsedMs int64) string {
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	return message + " (idle for " + strconv.FormatInt(elapsedMs, 10) + "ms)"
}

// idleFireFunc builds the fire callback an idleController invokes: it
// runs the handler deck and returns the formatted note text (or "" if
// the handler produced nothing), streaming it immediately when a stream
// hook is available since that call is safe from any goroutine.
func idleFireFunc(ctx context.Context, e *Engine, build func(elapsedMs int64) RunInput, onStreamText func(provider.StreamChunk), tracer trace.Sink, runID, actionCallID, parentID string) func(int64) string {
	return func(elapsedMs int64) string {
		in := build(elapsedMs)
		result, err := e.RunDeck(ctx, in)
		if err != nil {
			return ""
		}
		text := busyResultMessage(result)
		if text == "" {
			return ""
		}
		formatted := formatIdleNote(text, elapsedMs)
		if onStreamText != nil {
			onStreamText(provider.StreamChunk(formatted))
		} else if tracer != nil {
			tracer.Emit(trace.Log(runID, actionCallID, parentID, trace.LogInfo, "idle", formatted, nil, nil))
		}
		return formatted
	}
}
