package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bolt-foundry/gambit/pkg/registry"
)

// Capability reports whether a provider can currently serve a given
// model id, without making a network call for every resolution attempt.
type Capability interface {
	// Available reports whether model is usable right now (e.g. an
	// Ollama model already pulled, or an OpenRouter key configured).
	Available(ctx context.Context, model string) bool
}

// binding pairs a provider key with the prefix it owns, e.g.
// ("openrouter", "openrouter/").
type binding struct {
	key    string
	prefix string
}

// Router resolves a model id or an ordered candidate list to a concrete
// (provider, model) pair, handling prefix routing, a single unprefixed
// fallback provider, alias expansion, and availability probing.
type Router struct {
	mu           sync.RWMutex
	providers    *registry.Registry[Provider]
	capabilities *registry.Registry[Capability]
	bindings     []binding
	fallbackKey  string
	aliases      map[string]Alias
	warned       map[string]bool
}

// Alias maps a friendly model name to a concrete model id or ordered
// candidate list, plus default params. The Router stores Params with
// the alias; ResolveModel does not return or apply them.
type Alias struct {
	Models []string
	Params map[string]any
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		providers:    registry.New[Provider](),
		capabilities: registry.New[Capability](),
		aliases:      map[string]Alias{},
		warned:       map[string]bool{},
	}
}

// RegisterProvider associates key with p, and optionally binds key as the
// owner of the given model-id prefix (e.g. "openrouter/"). Pass an empty
// prefix for a provider reached only through the fallback slot or
// explicit SetFallback.
func (r *Router) RegisterProvider(key, prefix string, p Provider, cap Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.providers.Register(key, p)
	if cap != nil {
		_ = r.capabilities.Register(key, cap)
	}
	if prefix != "" {
		r.bindings = append(r.bindings, binding{key: key, prefix: prefix})
	}
}

// SetFallback designates the provider key used for unprefixed model ids.
func (r *Router) SetFallback(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbackKey = key
}

// RegisterAlias registers a friendly model name.
func (r *Router) RegisterAlias(name string, alias Alias) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[name] = alias
}

// ResolveModel accepts a single model id or an ordered candidate list
// (aliases are expanded first) and returns the first available
// (provider, model) pair. Returns an error naming every candidate tried
// when none are available.
func (r *Router) ResolveModel(ctx context.Context, candidates ...string) (Provider, string, error) {
	expanded := r.expandAliases(candidates)
	if len(expanded) == 0 {
		return nil, "", fmt.Errorf("no model configured")
	}

	var tried []string
	for _, model := range expanded {
		key, resolvedModel, ok := r.route(model)
		if !ok {
			tried = append(tried, model)
			continue
		}
		p, ok := r.providers.Get(key)
		if !ok {
			tried = append(tried, model)
			continue
		}
		if cap, ok := r.capabilities.Get(key); ok && !cap.Available(ctx, resolvedModel) {
			tried = append(tried, model)
			continue
		}
		return p, resolvedModel, nil
	}

	return nil, "", fmt.Errorf("no available model found for %s. Tried: %s", strings.Join(candidates, ", "), strings.Join(tried, ", "))
}

// expandAliases resolves each candidate through the alias table, warning
// once per distinct unknown alias name and falling through to treating it
// as a literal model id.
func (r *Router) expandAliases(candidates []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, c := range candidates {
		alias, ok := r.aliases[c]
		if !ok {
			r.warnUnknownAliasLocked(c)
			out = append(out, c)
			continue
		}
		out = append(out, alias.Models...)
	}
	return out
}

// WarnUnknownAlias emits one slog.Warn per distinct unknown alias name.
func (r *Router) WarnUnknownAlias(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnUnknownAliasLocked(name)
}

// warnUnknownAliasLocked is WarnUnknownAlias's body, callable by callers
// that already hold r.mu (expandAliases locks for the whole candidate
// loop, so it cannot call WarnUnknownAlias directly without deadlocking).
func (r *Router) warnUnknownAliasLocked(name string) {
	if r.warned[name] {
		return
	}
	r.warned[name] = true
	slog.Warn("unknown model alias, falling through to literal model id", "alias", name)
}

// route determines which provider key owns model, by prefix or fallback.
// The returned model has any matched prefix stripped.
func (r *Router) route(model string) (key string, resolvedModel string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bindings {
		if strings.HasPrefix(model, b.prefix) {
			return b.key, strings.TrimPrefix(model, b.prefix), true
		}
	}
	if r.fallbackKey == "" {
		return "", "", false
	}
	return r.fallbackKey, model, true
}
