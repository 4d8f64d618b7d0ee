// Package providertest provides deterministic provider.Provider test
// doubles for engine and router tests.
package providertest

import (
	"context"

	"github.com/bolt-foundry/gambit/pkg/provider"
)

// Scripted is a deterministic test double implementing Provider: each
// call to Chat returns the next entry in Turns, in order, regardless of
// the request contents. It exists for engine and router tests that need
// a fully predictable model without a network dependency, the same role
// MockLLMProvider plays in the teacher's provider registry tests.
type Scripted struct {
	Turns []provider.ChatResult
	calls int

	// Requests records every ChatRequest seen, for assertions about what
	// the engine sent (message count, tool definitions, and so on).
	Requests []provider.ChatRequest
}

func (s *Scripted) Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResult, error) {
	s.Requests = append(s.Requests, req)
	if s.calls >= len(s.Turns) {
		return nil, errNoMoreScriptedTurns
	}
	result := s.Turns[s.calls]
	s.calls++
	if req.Stream && req.OnStreamText != nil && result.Message.Content != "" {
		req.OnStreamText(provider.StreamChunk(result.Message.Content))
	}
	return &result, nil
}

var errNoMoreScriptedTurns = chatError("scripted provider: no more turns configured")

type chatError string

func (e chatError) Error() string { return string(e) }

// AlwaysAvailable is a Capability that reports every model as available.
type AlwaysAvailable struct{}

func (AlwaysAvailable) Available(ctx context.Context, model string) bool { return true }

// NeverAvailable is a Capability that reports every model as unavailable,
// used to test router fallback/failure paths.
type NeverAvailable struct{}

func (NeverAvailable) Available(ctx context.Context, model string) bool { return false }
