// Package logging sets up the process-wide structured logger. Every
// package in gambit logs through log/slog; this package only decides
// how those records are rendered and filtered.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

const gambitPackagePrefix = "github.com/bolt-foundry/gambit"

// ParseLevel converts a CLI-supplied level string to a slog.Level.
// Unrecognized values fall back to warn rather than erroring, since a
// bad --log-level flag shouldn't keep the CLI from starting.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Init builds and installs the default slog.Logger: a colored text
// handler when output is a terminal, plain text otherwise, with
// third-party library logs (anything outside gambit's own packages)
// dropped at every level unless level is debug or lower, so a gambit
// run's own decisions stay legible.
func Init(level slog.Level, output *os.File) *slog.Logger {
	base := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeWarningLevel,
	})

	var handler slog.Handler = base
	if isTerminal(output) {
		handler = &coloredHandler{handler: base, writer: output}
	}
	handler = &filteringHandler{handler: handler, minLevel: level}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func normalizeWarningLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
		return slog.String(slog.LevelKey, "WARN")
	}
	return a
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// filteringHandler drops records of any level whose caller is
// outside gambit's own module path, so a chatty dependency (an OTEL
// exporter, an HTTP client) doesn't drown out the run's own logging
// unless the operator explicitly asked for debug output.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || fromGambit(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func fromGambit(pc uintptr) bool {
	if pc == 0 {
		return true // no caller info: don't filter it out
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return true
	}
	return strings.Contains(fn.Name(), gambitPackagePrefix)
}

// coloredHandler adds an ANSI color code to the level field when writing
// to a terminal. Handle writes the time, colored level, message and the
// record's own attributes itself; the wrapped handler only decides
// Enabled. Attributes and groups added through WithAttrs/WithGroup go to
// the wrapped handler and are not written.
type coloredHandler struct {
	handler slog.Handler
	writer  io.Writer
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}

func (h *coloredHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *coloredHandler) Handle(ctx context.Context, record slog.Record) error {
	var buf strings.Builder
	if !record.Time.IsZero() {
		buf.WriteString(record.Time.Format("2006/01/02 15:04:05 "))
	}
	buf.WriteString(levelColor(record.Level))
	buf.WriteString(record.Level.String())
	buf.WriteString("\033[0m ")
	buf.WriteString(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		buf.WriteString(" ")
		buf.WriteString(a.Key)
		buf.WriteString("=")
		buf.WriteString(a.Value.String())
		return true
	})
	buf.WriteString("\n")
	_, err := h.writer.Write([]byte(buf.String()))
	return err
}

func (h *coloredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &coloredHandler{handler: h.handler.WithAttrs(attrs), writer: h.writer}
}

func (h *coloredHandler) WithGroup(name string) slog.Handler {
	return &coloredHandler{handler: h.handler.WithGroup(name), writer: h.writer}
}

// OpenLogFile opens path for append, creating it if necessary, for a CLI
// --log-file flag that redirects structured output away from stderr.
func OpenLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
