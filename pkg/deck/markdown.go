package deck

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
)

// frontMatter is the raw decode target for the "+++ ... +++" TOML block
// at the head of a markdown deck/card file.
type frontMatter struct {
	Label          string         `toml:"label"`
	InputSchema    string         `toml:"inputSchema"`
	OutputSchema   string         `toml:"outputSchema"`
	InputFragment  string         `toml:"inputFragment"`
	OutputFragment string         `toml:"outputFragment"`
	Embeds         []string       `toml:"embeds"`
	Actions        []actionFM     `toml:"actions"`
	ModelParams    map[string]any `toml:"modelParams"`
	Handlers       map[string]any `toml:"handlers"`
	SyntheticTools map[string]any `toml:"syntheticTools"`
	Guardrails     map[string]any `toml:"guardrails"`
}

type actionFM struct {
	Name        string `toml:"name"`
	Path        string `toml:"path"`
	Description string `toml:"description"`
}

var frontMatterDelim = regexp.MustCompile(`(?s)^\+\+\+\r?\n(.*?)\r?\n\+\+\+\r?\n?(.*)$`)

// parseFrontMatter splits raw markdown into its decoded TOML front matter
// and the remaining body text. A file with no "+++" block is treated as
// a bodyless-frontmatter file (body == the whole input).
func parseFrontMatter(raw []byte) (*frontMatter, string, error) {
	m := frontMatterDelim.FindSubmatch(raw)
	if m == nil {
		return &frontMatter{}, string(raw), nil
	}
	var fm frontMatter
	if err := toml.Unmarshal(m[1], &fm); err != nil {
		return nil, "", fmt.Errorf("parse TOML front matter: %w", err)
	}
	return &fm, string(m[2]), nil
}

var embedMarkerRE = regexp.MustCompile(`(?m)^!\[[^\]]*\]\([^)]*\)\r?\n?`)

// stripEmbedMarkers removes inline "![label](path)" embed markers from a
// rendered body: only the embedded card's own body contributes to the
// system prompt, the marker itself is a loader directive, not prompt
// text.
func stripEmbedMarkers(body string) string {
	return embedMarkerRE.ReplaceAllString(body, "")
}

func decodeHandlerRef(raw any) (*HandlerRef, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("handler must be a table")
	}
	var h HandlerRef
	h.DelayMs = 800
	if err := mapstructure.Decode(m, &h); err != nil {
		return nil, fmt.Errorf("decode handler: %w", err)
	}
	if h.Path == "" {
		return nil, fmt.Errorf("handler missing path")
	}
	return &h, nil
}

func decodeHandlers(raw map[string]any) (*Handlers, error) {
	if raw == nil {
		return nil, nil
	}
	var h Handlers
	var err error
	if h.OnError, err = decodeHandlerRef(raw["onError"]); err != nil {
		return nil, fmt.Errorf("onError: %w", err)
	}
	onBusy, err := decodeHandlerRef(raw["onBusy"])
	if err != nil {
		return nil, fmt.Errorf("onBusy: %w", err)
	}
	onInterval, err := decodeHandlerRef(raw["onInterval"])
	if err != nil {
		return nil, fmt.Errorf("onInterval: %w", err)
	}
	// onInterval is a deprecated alias of onBusy (spec §4.6.5 / §9 open
	// question): when both are absent for a slot, fall back to the
	// other.
	if onBusy != nil {
		h.OnBusy = onBusy
	} else {
		h.OnBusy = onInterval
	}
	if h.OnIdle, err = decodeHandlerRef(raw["onIdle"]); err != nil {
		return nil, fmt.Errorf("onIdle: %w", err)
	}
	return &h, nil
}

func decodeModelParams(raw map[string]any) (*ModelParams, error) {
	if raw == nil {
		return nil, nil
	}
	mp := &ModelParams{Params: map[string]any{}}
	if v, ok := raw["model"].(string); ok {
		mp.Model = v
	}
	if v, ok := raw["models"].([]any); ok {
		for _, item := range v {
			if s, ok := item.(string); ok {
				mp.Models = append(mp.Models, s)
			}
		}
	}
	if v, ok := raw["temperature"]; ok {
		f, err := toFloat(v)
		if err != nil {
			return nil, fmt.Errorf("temperature: %w", err)
		}
		mp.Temperature = &f
	}
	for k, v := range raw {
		switch k {
		case "model", "models", "temperature":
			continue
		default:
			mp.Params[k] = v
		}
	}
	return mp, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

func decodeGuardrails(raw map[string]any) (*Guardrails, error) {
	if raw == nil {
		return nil, nil
	}
	var g Guardrails
	if v, ok := raw["maxDepth"]; ok {
		n, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		iv := int(n)
		g.MaxDepth = &iv
	}
	if v, ok := raw["maxPasses"]; ok {
		n, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		iv := int(n)
		g.MaxPasses = &iv
	}
	if v, ok := raw["timeoutMs"]; ok {
		n, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		iv := int(n)
		g.TimeoutMs = &iv
	}
	return &g, nil
}

func decodeSyntheticTools(raw map[string]any) SyntheticTools {
	if raw == nil {
		return SyntheticTools{}
	}
	var st SyntheticTools
	if v, ok := raw["respond"].(bool); ok {
		st.Respond = v
	}
	return st
}

func actionsFromFrontMatter(fm []actionFM) []Action {
	out := make([]Action, 0, len(fm))
	for _, a := range fm {
		out = append(out, Action{Name: a.Name, Path: a.Path, Description: a.Description})
	}
	return out
}

// MarkdownSource loads decks/cards from markdown files with a TOML
// front-matter block. It is the fallback source: any path not claimed
// by the structured registry or the gambit:// scheme is read from disk.
type MarkdownSource struct{}

func (MarkdownSource) Supports(path string) bool {
	if isGambitURI(path) {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (MarkdownSource) read(path string) (*frontMatter, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", loadErrWrap(path, "read deck file", err)
	}
	fm, body, err := parseFrontMatter(raw)
	if err != nil {
		return nil, "", loadErrWrap(path, "parse front matter", err)
	}
	return fm, stripEmbedMarkers(body), nil
}

func (s MarkdownSource) LoadDeck(path string) (*Deck, error) {
	fm, body, err := s.read(path)
	if err != nil {
		return nil, err
	}

	d := &Deck{Path: path, Label: fm.Label, Body: body, Embeds: fm.Embeds, Actions: actionsFromFrontMatter(fm.Actions)}

	if fm.InputSchema != "" {
		if d.InputSchema, err = ResolveSchema(fm.InputSchema); err != nil {
			return nil, loadErrWrap(path, "resolve inputSchema", err)
		}
	}
	if fm.OutputSchema != "" {
		if d.OutputSchema, err = ResolveSchema(fm.OutputSchema); err != nil {
			return nil, loadErrWrap(path, "resolve outputSchema", err)
		}
	}
	if d.ModelParams, err = decodeModelParams(fm.ModelParams); err != nil {
		return nil, loadErrWrap(path, "modelParams", err)
	}
	if d.Handlers, err = decodeHandlers(fm.Handlers); err != nil {
		return nil, loadErrWrap(path, "handlers", err)
	}
	d.SyntheticTools = decodeSyntheticTools(fm.SyntheticTools)
	if d.Guardrails, err = decodeGuardrails(fm.Guardrails); err != nil {
		return nil, loadErrWrap(path, "guardrails", err)
	}
	return d, nil
}

func (s MarkdownSource) LoadCard(path string) (*Card, error) {
	fm, body, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if fm.Handlers != nil {
		return nil, loadErrf(path, "card declares handlers, which is not allowed")
	}
	if len(fm.ModelParams) != 0 {
		return nil, loadErrf(path, "card declares modelParams, which is not allowed")
	}

	c := &Card{Path: path, Label: fm.Label, Body: body, Embeds: fm.Embeds, Actions: actionsFromFrontMatter(fm.Actions)}
	if fm.InputFragment != "" {
		if c.InputFragment, err = ResolveSchema(fm.InputFragment); err != nil {
			return nil, loadErrWrap(path, "resolve inputFragment", err)
		}
	}
	if fm.OutputFragment != "" {
		if c.OutputFragment, err = ResolveSchema(fm.OutputFragment); err != nil {
			return nil, loadErrWrap(path, "resolve outputFragment", err)
		}
	}
	return c, nil
}
