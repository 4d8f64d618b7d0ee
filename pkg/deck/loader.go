package deck

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bolt-foundry/gambit/pkg/schema"
)

var actionNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const reservedPrefix = "gambit_"

// legacyCodexPrefix was how decks referenced the old codex integration
// before it was replaced by the codex-cli provider; rejected at load
// time so a stale deck fails fast instead of at resolution time.
const legacyCodexPrefix = "codex/"

// ReservedActionNames are the engine-injected synthetic tool names a deck
// author must never declare.
var ReservedActionNames = map[string]bool{
	"gambit_init":     true,
	"gambit_respond":  true,
	"gambit_complete": true,
}

// validateModelParams rejects the legacy "codex/" model prefix. It runs
// at load time, independent of provider/router configuration, so
// `gambit check` can catch a stale deck without any provider set up.
func validateModelParams(mp *ModelParams, definingPath string) error {
	if mp == nil {
		return nil
	}
	models := mp.Models
	if mp.Model != "" {
		models = append([]string{mp.Model}, models...)
	}
	for _, m := range models {
		if strings.HasPrefix(m, legacyCodexPrefix) {
			return loadErrf(definingPath, "model %q: legacy codex prefix is unsupported, use codex-cli/ instead", m)
		}
	}
	return nil
}

func validateActionName(name string) error {
	if !actionNameRE.MatchString(name) {
		return loadErrf(name, "action name %q does not match ^[A-Za-z_][A-Za-z0-9_]*$", name)
	}
	if len(name) > 64 {
		return loadErrf(name, "action name %q exceeds 64 characters", name)
	}
	if strings.HasPrefix(name, reservedPrefix) {
		return loadErrf(name, "action name %q uses the reserved prefix %q", name, reservedPrefix)
	}
	return nil
}

// Loader resolves a deck path into a flattened, validated LoadedDeck.
type Loader struct {
	Source Source
}

// NewLoader builds a Loader over the given source, or the default
// structured+markdown+gambit:// composite if source is nil.
func NewLoader(source Source) *Loader {
	if source == nil {
		source = DefaultSource()
	}
	return &Loader{Source: source}
}

// ResolvePath makes path absolute relative to parentPath's directory,
// unless it is already absolute or uses the gambit:// scheme. Exported
// for ExecutionContext.SpawnAndWait, which must resolve a compute
// deck's child paths the same way the loader resolves action paths.
func ResolvePath(path, parentPath string) string {
	return resolvePath(path, parentPath)
}

func resolvePath(path, parentPath string) string {
	if isGambitURI(path) || filepath.IsAbs(path) {
		return path
	}
	if parentPath == "" {
		return path
	}
	base := parentPath
	if !isGambitURI(parentPath) {
		base = filepath.Dir(parentPath)
	}
	return filepath.Join(base, path)
}

// Load resolves the deck at deckPath (relative to parentPath, if given)
// into a LoadedDeck. isRoot controls whether a missing input/output
// schema is an error (non-root) or defaults to string (root).
func (l *Loader) Load(deckPath, parentPath string, isRoot bool) (*LoadedDeck, error) {
	absPath := resolvePath(deckPath, parentPath)

	rawDeck, err := l.Source.LoadDeck(absPath)
	if err != nil {
		return nil, err
	}
	rawDeck.Path = absPath

	if err := validateModelParams(rawDeck.ModelParams, absPath); err != nil {
		return nil, err
	}

	cards, err := l.flattenEmbeds(rawDeck.Embeds, absPath, []string{absPath})
	if err != nil {
		return nil, err
	}

	if err := l.normalizeAndValidateActions(&rawDeck.Actions, absPath); err != nil {
		return nil, err
	}
	for _, c := range cards {
		if err := l.normalizeAndValidateActions(&c.Actions, c.Path); err != nil {
			return nil, err
		}
	}

	actions, order := mergeActions(cards, rawDeck.Actions)

	inputSchema, outputSchema, err := mergeSchemas(rawDeck, cards, isRoot)
	if err != nil {
		return nil, err
	}

	handlers, err := resolveHandlerPaths(rawDeck.Handlers, absPath)
	if err != nil {
		return nil, err
	}

	return &LoadedDeck{
		Path:           absPath,
		Label:          rawDeck.Label,
		Body:           rawDeck.Body,
		ModelParams:    rawDeck.ModelParams,
		InputSchema:    inputSchema,
		OutputSchema:   outputSchema,
		Cards:          cards,
		Actions:        actions,
		ActionOrder:    order,
		Executor:       rawDeck.Executor,
		Handlers:       handlers,
		SyntheticTools: rawDeck.SyntheticTools,
		Guardrails:     rawDeck.Guardrails,
		IsRoot:         isRoot,
	}, nil
}

// flattenEmbeds walks the embed graph depth-first, detecting cycles via
// the path stack, and returns cards in traversal order (a card's own
// embeds appear immediately before it would duplicate one already
// present — duplicates from diamond embedding are kept once, first
// occurrence wins, matching a DAG's natural flattening).
func (l *Loader) flattenEmbeds(embedPaths []string, definingPath string, stack []string) ([]*Card, error) {
	var out []*Card
	seen := map[string]bool{}
	for _, out0 := range out {
		seen[out0.Path] = true
	}
	for _, rawEmbed := range embedPaths {
		embedPath := resolvePath(rawEmbed, definingPath)

		for _, s := range stack {
			if s == embedPath {
				return nil, loadErrf(embedPath, "Card/embed cycle detected: %s", strings.Join(append(stack, embedPath), " -> "))
			}
		}

		if seen[embedPath] {
			continue
		}

		card, err := l.Source.LoadCard(embedPath)
		if err != nil {
			return nil, err
		}
		card.Path = embedPath

		children, err := l.flattenEmbeds(card.Embeds, embedPath, append(append([]string{}, stack...), embedPath))
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if !seen[child.Path] {
				seen[child.Path] = true
				out = append(out, child)
			}
		}

		if !seen[card.Path] {
			seen[card.Path] = true
			out = append(out, card)
		}
	}
	return out, nil
}

func (l *Loader) normalizeAndValidateActions(actions *[]Action, definingPath string) error {
	for i := range *actions {
		a := &(*actions)[i]
		if err := validateActionName(a.Name); err != nil {
			return err
		}
		a.Path = resolvePath(a.Path, definingPath)
	}
	return nil
}

// mergeActions merges card actions (in flatten order) and then the
// deck's own actions into a single name-keyed map; the deck's
// definition wins on a name collision (last-writer on the merged map).
func mergeActions(cards []*Card, deckActions []Action) (map[string]Action, []string) {
	merged := map[string]Action{}
	var order []string
	add := func(a Action) {
		if _, exists := merged[a.Name]; !exists {
			order = append(order, a.Name)
		}
		merged[a.Name] = a
	}
	for _, c := range cards {
		for _, a := range c.Actions {
			add(a)
		}
	}
	for _, a := range deckActions {
		add(a)
	}
	return merged, order
}

// mergeSchemas unions the deck's inputSchema/outputSchema with every
// card's inputFragment/outputFragment, defaulting to string for a root
// deck that declares neither and erroring for a non-root deck that does.
func mergeSchemas(d *Deck, cards []*Card, isRoot bool) (*schema.Schema, *schema.Schema, error) {
	in := d.InputSchema
	out := d.OutputSchema
	for _, c := range cards {
		var err error
		if c.InputFragment != nil {
			if in, err = schema.Merge(in, c.InputFragment); err != nil {
				return nil, nil, loadErrWrap(d.Path, "merge inputSchema with card "+c.Path, err)
			}
		}
		if c.OutputFragment != nil {
			if out, err = schema.Merge(out, c.OutputFragment); err != nil {
				return nil, nil, loadErrWrap(d.Path, "merge outputSchema with card "+c.Path, err)
			}
		}
	}

	if in == nil {
		if !isRoot {
			return nil, nil, loadErrf(d.Path, "non-root deck must declare inputSchema")
		}
		in = schema.DefaultString()
	}
	if out == nil {
		if !isRoot {
			return nil, nil, loadErrf(d.Path, "non-root deck must declare outputSchema")
		}
		out = schema.DefaultString()
	}
	return in, out, nil
}

func resolveHandlerPaths(h *Handlers, definingPath string) (*Handlers, error) {
	if h == nil {
		return nil, nil
	}
	resolved := &Handlers{}
	for _, pair := range []struct {
		src **HandlerRef
		dst **HandlerRef
	}{
		{&h.OnError, &resolved.OnError},
		{&h.OnBusy, &resolved.OnBusy},
		{&h.OnIdle, &resolved.OnIdle},
	} {
		if *pair.src == nil {
			continue
		}
		cp := **pair.src
		cp.Path = resolvePath(cp.Path, definingPath)
		*pair.dst = &cp
	}
	return resolved, nil
}
