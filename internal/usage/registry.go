// Package usage normalizes provider-specific LLM response payloads into
// token usage records.
package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/bkyoung/ragmeter/internal/domain"
)

// ErrParserNotFound indicates no parser is registered for a provider.
// Callers must register a parser explicitly; response shapes are not
// self-describing, so there is no auto-detection fallback.
var ErrParserNotFound = errors.New("usage parser not found")

// Parser maps a raw provider response to a normalized token usage.
// Parsers are pure functions: stateless, no side effects, safe for
// concurrent use.
type Parser func(raw json.RawMessage) (domain.TokenUsage, error)

// Registry maps provider identifiers to usage parsers.
// Construct at startup and treat as read-only during evaluation;
// Register is not safe to call concurrently with Resolve.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// NewDefaultRegistry creates a registry with the built-in parsers
// registered under their provider names.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderBatch, BatchParser())
	r.Register(ProviderOpenAI, OpenAIParser)
	r.Register(ProviderAnthropic, AnthropicParser)
	r.Register(ProviderGemini, GeminiParser)
	return r
}

// Register stores a parser under the given provider identifier.
// Re-registration silently overwrites; last write wins. This is the
// extensibility point for custom providers.
func (r *Registry) Register(provider string, p Parser) {
	r.parsers[provider] = p
}

// Resolve returns the parser registered for the provider.
func (r *Registry) Resolve(provider string) (Parser, error) {
	p, ok := r.parsers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrParserNotFound, provider)
	}
	return p, nil
}

// Providers returns the registered provider identifiers in sorted order.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
