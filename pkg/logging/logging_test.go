package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestInit_WritesToGivenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gambit.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)
	defer f.Close()

	logger := Init(slog.LevelInfo, f)
	logger.Info("hello", "k", "v")
	require.NoError(t, f.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
	require.Contains(t, string(data), "k=v")
}

func TestInit_PassesGambitRecordsAboveDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gambit.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)
	defer f.Close()

	logger := Init(slog.LevelInfo, f)
	// Called from within the gambit module, so fromGambit matches on the
	// caller's function name and the record passes through unfiltered.
	logger.Info("visible")
	require.NoError(t, f.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "visible")
}
