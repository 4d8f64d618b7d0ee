package deck

import (
	"strings"

	"github.com/bolt-foundry/gambit/pkg/registry"
	"github.com/bolt-foundry/gambit/pkg/schema"
)

// GambitScheme is the deck-local URI scheme authors use to reference
// packaged assets shipped with the core, e.g.
// "gambit://snippets/respond.md".
const GambitScheme = "gambit://"

// Source loads deck and card definitions from some backing format. Two
// flavors ship with the core: a structured module source (Go-registered
// definitions) and a markdown-with-TOML-front-matter source; a third,
// GambitAssetSource, resolves the gambit:// scheme to packaged resources.
type Source interface {
	// Supports reports whether this source recognizes path.
	Supports(path string) bool
	LoadDeck(path string) (*Deck, error)
	LoadCard(path string) (*Card, error)
}

// deckRegistry and cardRegistry back the structured module source: Go
// packages that author decks/cards register them under an absolute path
// via init(), the same pattern the teacher uses for named tool/provider
// registration (pkg/tool/tool.go, pkg/llms/registry.go).
var (
	deckRegistry = registry.New[Deck]()
	cardRegistry = registry.New[Card]()
)

// RegisterDeck makes a Go-authored deck definition loadable under path.
func RegisterDeck(path string, d Deck) {
	d.Path = path
	_ = deckRegistry.Register(path, d)
}

// RegisterCard makes a Go-authored card definition loadable under path.
func RegisterCard(path string, c Card) {
	c.Path = path
	_ = cardRegistry.Register(path, c)
}

// StructuredSource resolves paths against the process-wide deck/card
// registries populated by RegisterDeck/RegisterCard.
type StructuredSource struct{}

func (StructuredSource) Supports(path string) bool {
	_, deckOK := deckRegistry.Get(path)
	_, cardOK := cardRegistry.Get(path)
	return deckOK || cardOK
}

func (StructuredSource) LoadDeck(path string) (*Deck, error) {
	d, ok := deckRegistry.Get(path)
	if !ok {
		return nil, loadErrf(path, "no structured deck registered at this path")
	}
	cp := d
	return &cp, nil
}

func (StructuredSource) LoadCard(path string) (*Card, error) {
	c, ok := cardRegistry.Get(path)
	if !ok {
		return nil, loadErrf(path, "no structured card registered at this path")
	}
	cp := c
	return &cp, nil
}

// CompositeSource tries each underlying source in order, using the first
// one that Supports the requested path.
type CompositeSource struct {
	Sources []Source
}

// DefaultSource returns the composite of every source the loader ships
// with: structured module, markdown+TOML front matter, and the
// gambit:// packaged-asset source.
func DefaultSource() Source {
	return &CompositeSource{Sources: []Source{
		GambitAssetSource{},
		StructuredSource{},
		MarkdownSource{},
	}}
}

func (c *CompositeSource) Supports(path string) bool {
	for _, s := range c.Sources {
		if s.Supports(path) {
			return true
		}
	}
	return false
}

func (c *CompositeSource) LoadDeck(path string) (*Deck, error) {
	for _, s := range c.Sources {
		if s.Supports(path) {
			return s.LoadDeck(path)
		}
	}
	return nil, loadErrf(path, "unknown deck source")
}

func (c *CompositeSource) LoadCard(path string) (*Card, error) {
	for _, s := range c.Sources {
		if s.Supports(path) {
			return s.LoadCard(path)
		}
	}
	return nil, loadErrf(path, "unknown deck source")
}

func isGambitURI(path string) bool {
	return strings.HasPrefix(path, GambitScheme)
}

// schemaRegistry backs schema module references: a front-matter
// inputSchema/outputSchema value is a path, resolved here or in the
// gambit://schemas/ asset set, never parsed inline.
var schemaRegistry = registry.New[schema.Schema]()

// RegisterSchema makes a schema.Schema loadable by path, the same way
// RegisterDeck makes a deck definition loadable by path.
func RegisterSchema(path string, s *schema.Schema) {
	if s == nil {
		return
	}
	_ = schemaRegistry.Register(path, *s)
}

// ResolveSchema loads the schema registered or packaged at path.
func ResolveSchema(path string) (*schema.Schema, error) {
	if isGambitURI(path) {
		return resolveGambitSchema(path)
	}
	s, ok := schemaRegistry.Get(path)
	if !ok {
		return nil, loadErrf(path, "unknown schema module")
	}
	cp := s
	return &cp, nil
}
