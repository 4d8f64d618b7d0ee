package deck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMarkdownFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "card.md")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMarkdownSource_LoadCard_RejectsHandlers(t *testing.T) {
	path := writeMarkdownFile(t, `+++
label = "greeting"

[handlers.onError]
path = "/handler.deck"
+++
body text
`)

	_, err := MarkdownSource{}.LoadCard(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "declares handlers")
}

func TestMarkdownSource_LoadCard_RejectsModelParams(t *testing.T) {
	path := writeMarkdownFile(t, `+++
label = "greeting"

[modelParams]
model = "test-model"
+++
body text
`)

	_, err := MarkdownSource{}.LoadCard(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "declares modelParams")
}

func TestMarkdownSource_LoadCard_AllowsPlainCard(t *testing.T) {
	path := writeMarkdownFile(t, `+++
label = "greeting"
+++
hello
`)

	c, err := MarkdownSource{}.LoadCard(path)
	require.NoError(t, err)
	require.Equal(t, "greeting", c.Label)
	require.Equal(t, "hello\n", c.Body)
}
