package deck

import (
	"strings"
	"testing"

	"github.com/bolt-foundry/gambit/pkg/schema"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory Source for loader tests, avoiding any disk
// I/O or dependency on the markdown/TOML path.
type fakeSource struct {
	decks map[string]Deck
	cards map[string]Card
}

func newFakeSource() *fakeSource {
	return &fakeSource{decks: map[string]Deck{}, cards: map[string]Card{}}
}

func (s *fakeSource) Supports(path string) bool {
	_, d := s.decks[path]
	_, c := s.cards[path]
	return d || c
}

func (s *fakeSource) LoadDeck(path string) (*Deck, error) {
	d, ok := s.decks[path]
	if !ok {
		return nil, loadErrf(path, "no deck")
	}
	cp := d
	return &cp, nil
}

func (s *fakeSource) LoadCard(path string) (*Card, error) {
	c, ok := s.cards[path]
	if !ok {
		return nil, loadErrf(path, "no card")
	}
	cp := c
	return &cp, nil
}

func TestLoad_DetectsEmbedCycle(t *testing.T) {
	src := newFakeSource()
	src.decks["/a.deck"] = Deck{Embeds: []string{"/b.card"}}
	src.cards["/b.card"] = Card{Embeds: []string{"/a.deck"}}

	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Card/embed cycle detected")
	require.Contains(t, err.Error(), "/a.deck -> /b.card -> /a.deck")
}

func TestLoad_RejectsInvalidActionName(t *testing.T) {
	src := newFakeSource()
	src.decks["/a.deck"] = Deck{
		Actions: []Action{{Name: "1bad", Path: "/child.deck"}},
	}
	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match")
}

func TestLoad_RejectsLegacyCodexModelPrefix(t *testing.T) {
	src := newFakeSource()
	src.decks["/a.deck"] = Deck{
		ModelParams:  &ModelParams{Model: "codex/default"},
		InputSchema:  schema.DefaultString(),
		OutputSchema: schema.DefaultString(),
	}
	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "legacy codex prefix is unsupported")
}

func TestLoad_RejectsLegacyCodexModelPrefixInCandidateList(t *testing.T) {
	src := newFakeSource()
	src.decks["/a.deck"] = Deck{
		ModelParams:  &ModelParams{Models: []string{"openrouter/gpt-5", "codex/fallback"}},
		InputSchema:  schema.DefaultString(),
		OutputSchema: schema.DefaultString(),
	}
	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "legacy codex prefix is unsupported")
}

func TestLoad_RejectsReservedActionPrefix(t *testing.T) {
	src := newFakeSource()
	src.decks["/a.deck"] = Deck{
		Actions: []Action{{Name: "gambit_custom", Path: "/child.deck"}},
	}
	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "reserved prefix")
}

func TestLoad_RejectsOverlongActionName(t *testing.T) {
	src := newFakeSource()
	long := strings.Repeat("a", 65)
	src.decks["/a.deck"] = Deck{
		Actions: []Action{{Name: long, Path: "/child.deck"}},
	}
	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds 64 characters")
}

func TestLoad_DeckActionOverridesCardAction(t *testing.T) {
	src := newFakeSource()
	src.cards["/c.card"] = Card{
		Actions: []Action{{Name: "lookup", Path: "/from_card.deck", Description: "card version"}},
	}
	src.decks["/a.deck"] = Deck{
		Embeds:  []string{"/c.card"},
		Actions: []Action{{Name: "lookup", Path: "/from_deck.deck", Description: "deck version"}},
	}
	l := NewLoader(src)
	ld, err := l.Load("/a.deck", "", true)
	require.NoError(t, err)
	require.Equal(t, "deck version", ld.Actions["lookup"].Description)
}

func TestLoad_MergesCardSchemaFragmentsByUnion(t *testing.T) {
	src := newFakeSource()
	src.cards["/c.card"] = Card{
		InputFragment: schema.Object(map[string]*schema.Schema{
			"fromCard": schema.String(),
		}),
	}
	src.decks["/a.deck"] = Deck{
		Embeds: []string{"/c.card"},
		InputSchema: schema.Object(map[string]*schema.Schema{
			"fromDeck": schema.String(),
		}),
	}
	l := NewLoader(src)
	ld, err := l.Load("/a.deck", "", true)
	require.NoError(t, err)
	require.Contains(t, ld.InputSchema.Properties, "fromCard")
	require.Contains(t, ld.InputSchema.Properties, "fromDeck")
}

func TestLoad_ConflictingSchemaFragmentsIsError(t *testing.T) {
	src := newFakeSource()
	src.cards["/c.card"] = Card{
		InputFragment: schema.Object(map[string]*schema.Schema{
			"field": schema.String(),
		}),
	}
	src.decks["/a.deck"] = Deck{
		Embeds: []string{"/c.card"},
		InputSchema: schema.Object(map[string]*schema.Schema{
			"field": schema.Number(),
		}),
	}
	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", true)
	require.Error(t, err)
}

func TestLoad_NonRootMissingSchemaIsError(t *testing.T) {
	src := newFakeSource()
	src.decks["/a.deck"] = Deck{}
	l := NewLoader(src)
	_, err := l.Load("/a.deck", "", false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must declare inputSchema")
}

func TestLoad_RootMissingSchemaDefaultsToString(t *testing.T) {
	src := newFakeSource()
	src.decks["/a.deck"] = Deck{}
	l := NewLoader(src)
	ld, err := l.Load("/a.deck", "", true)
	require.NoError(t, err)
	require.Equal(t, schema.KindString, ld.InputSchema.Kind)
	require.Equal(t, schema.KindString, ld.OutputSchema.Kind)
}

func TestLoad_ActionPathNormalizedRelativeToDefiningFile(t *testing.T) {
	src := newFakeSource()
	src.decks["/decks/a.deck"] = Deck{
		Actions: []Action{{Name: "child", Path: "./sibling.deck"}},
	}
	l := NewLoader(src)
	ld, err := l.Load("/decks/a.deck", "", true)
	require.NoError(t, err)
	require.Equal(t, "/decks/sibling.deck", ld.Actions["child"].Path)
}

func TestLoad_DiamondEmbedKeptOnce(t *testing.T) {
	src := newFakeSource()
	src.cards["/shared.card"] = Card{Label: "shared"}
	src.cards["/left.card"] = Card{Embeds: []string{"/shared.card"}}
	src.cards["/right.card"] = Card{Embeds: []string{"/shared.card"}}
	src.decks["/a.deck"] = Deck{Embeds: []string{"/left.card", "/right.card"}}

	l := NewLoader(src)
	ld, err := l.Load("/a.deck", "", true)
	require.NoError(t, err)
	count := 0
	for _, c := range ld.Cards {
		if c.Path == "/shared.card" {
			count++
		}
	}
	require.Equal(t, 1, count)
}
