package deck

import (
	"embed"
	"strings"

	"github.com/bolt-foundry/gambit/pkg/schema"
)

//go:embed assets/snippets/*.md
var snippetFS embed.FS

// GambitAssetSource resolves the gambit:// scheme to resources packaged
// with the core binary: reusable prompt-fragment cards under
// "gambit://snippets/..." and built-in schemas under
// "gambit://schemas/...".
type GambitAssetSource struct{}

func (GambitAssetSource) Supports(path string) bool { return isGambitURI(path) }

func (GambitAssetSource) LoadDeck(path string) (*Deck, error) {
	return nil, loadErrf(path, "gambit:// assets are cards or schemas, not decks")
}

func (GambitAssetSource) LoadCard(path string) (*Card, error) {
	if !strings.HasPrefix(path, GambitScheme+"snippets/") {
		return nil, loadErrf(path, "unknown gambit:// asset")
	}
	rel := strings.TrimPrefix(path, GambitScheme+"snippets/")
	raw, err := snippetFS.ReadFile("assets/snippets/" + rel)
	if err != nil {
		return nil, loadErrWrap(path, "packaged snippet not found", err)
	}
	fm, body, err := parseFrontMatter(raw)
	if err != nil {
		return nil, loadErrWrap(path, "malformed packaged snippet", err)
	}
	return &Card{Path: path, Label: fm.Label, Body: stripEmbedMarkers(body)}, nil
}

// builtinSchemas backs "gambit://schemas/..." references. These mirror
// the .zod.ts schema modules the original markdown decks reference; here
// they are plain Go values since the Go loader never parses TypeScript.
var builtinSchemas = map[string]*schema.Schema{
	"gambit://schemas/graders/grader_output.zod.ts": schema.Object(map[string]*schema.Schema{
		"score":   schema.Number().WithDescription("0.0-1.0 grade for the graded response"),
		"reasons": schema.Array(schema.String()),
	}, "score"),
	"gambit://schemas/common/envelope_payload.zod.ts": schema.Object(map[string]*schema.Schema{
		"status":  schema.Integer(),
		"payload": schema.Any(),
		"message": schema.String(),
	}),
}

func resolveGambitSchema(path string) (*schema.Schema, error) {
	s, ok := builtinSchemas[path]
	if !ok {
		return nil, loadErrf(path, "unknown packaged schema")
	}
	return s, nil
}
