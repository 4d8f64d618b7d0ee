package artifact

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bolt-foundry/gambit/pkg/provider"
	"github.com/bolt-foundry/gambit/pkg/trace"
	"github.com/stretchr/testify/require"
)

func TestAcquire_FailsWhenArtifactsExistWithoutContinue(t *testing.T) {
	root := t.TempDir()
	s, err := Acquire(root, "sess-1", false)
	require.NoError(t, err)
	_, err = s.Append("session", "run.start", map[string]any{"deckPath": "/a.deck"})
	require.NoError(t, err)
	require.NoError(t, s.Finalize())

	_, err = Acquire(root, "sess-1", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exist")
}

func TestAcquire_SecondLockFailsWhileFirstHeld(t *testing.T) {
	root := t.TempDir()
	s1, err := Acquire(root, "sess-2", false)
	require.NoError(t, err)

	_, err = Acquire(root, "sess-2", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already active")

	require.NoError(t, s1.Finalize())
}

func TestAppend_OffsetsAreDenseAndMonotonic(t *testing.T) {
	root := t.TempDir()
	s, err := Acquire(root, "sess-3", false)
	require.NoError(t, err)
	defer s.Finalize()

	for i := 0; i < 5; i++ {
		offset, err := s.Append("session", "log", map[string]any{"i": i})
		require.NoError(t, err)
		require.Equal(t, i, offset)
	}
	require.Equal(t, 4, s.HighestOffset())
}

func TestAppend_NormalizesTypeIntoGambitNamespace(t *testing.T) {
	root := t.TempDir()
	s, err := Acquire(root, "sess-4", false)
	require.NoError(t, err)
	defer s.Finalize()

	_, err = s.Append("build", "compile.start", map[string]any{})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "sess-4", "events.jsonl"))
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, "gambit.compile.start", rec["type"])
	meta := rec["_gambit"].(map[string]any)
	require.Equal(t, "build", meta["domain"])
	require.Equal(t, "compile.start", meta["source_type"])
}

func TestEmit_PrefixesTraceTypeIntoGambitNamespace(t *testing.T) {
	root := t.TempDir()
	s, err := Acquire(root, "sess-5", false)
	require.NoError(t, err)
	defer s.Finalize()

	s.Emit(trace.RunStart("run-1", "/a.deck"))

	data, err := os.ReadFile(filepath.Join(root, "sess-5", "events.jsonl"))
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	require.Equal(t, "gambit.run.start", rec["type"])
	require.Equal(t, "run-1", rec["runId"])
}

func TestPersistLatest_WritesAtomicallyAndReloads(t *testing.T) {
	root := t.TempDir()
	s, err := Acquire(root, "sess-6", false)
	require.NoError(t, err)

	s.OnStateUpdate(&SavedState{
		RunID:    "run-1",
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
		Meta:     map[string]any{"sessionId": "sess-6"},
	})
	require.NoError(t, s.PersistLatest())
	require.NoError(t, s.Finalize())

	entries, err := os.ReadDir(filepath.Join(root, "sess-6"))
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasPrefix(e.Name(), ".tmp-state.json-"), "temp snapshot file left behind: %s", e.Name())
	}

	reopened, err := Acquire(root, "sess-6", true)
	require.NoError(t, err)
	require.NoError(t, reopened.OpenForContinuation(true, nil))
	require.NotNil(t, reopened.LatestState())
	require.Equal(t, "run-1", reopened.LatestState().RunID)
	require.NoError(t, reopened.Finalize())
}

func TestOpenForContinuation_RejectsNonDenseOffsets(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sess-7")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.Create(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	w := bufio.NewWriter(f)
	_, _ = w.WriteString(`{"offset":0,"type":"gambit.log"}` + "\n")
	_, _ = w.WriteString(`{"offset":2,"type":"gambit.log"}` + "\n")
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())

	s, err := Acquire(root, "sess-7", true)
	require.NoError(t, err)
	defer s.Finalize()

	err = s.OpenForContinuation(true, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-monotonic offset")
}

func TestOpenForContinuation_ArchivesOrphanedLogWhenStateMissing(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "sess-8")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte(`{"offset":0,"type":"gambit.log"}`+"\n"), 0o644))

	s, err := Acquire(root, "sess-8", true)
	require.NoError(t, err)
	defer s.Finalize()

	require.NoError(t, s.OpenForContinuation(true, nil))
	require.Equal(t, -1, s.HighestOffset())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var archived bool
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "events.orphaned.") {
			archived = true
		}
	}
	require.True(t, archived)

	offset, err := s.Append("session", "log", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, 0, offset)
}

func TestFinalize_IgnoresMissingLock(t *testing.T) {
	root := t.TempDir()
	s, err := Acquire(root, "sess-9", false)
	require.NoError(t, err)
	require.NoError(t, s.Finalize())
	require.NoError(t, s.Finalize())
}
