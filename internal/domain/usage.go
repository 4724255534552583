package domain

import "time"

// TokenUsage captures token consumption for a single generation call.
// Values are set once by a parser and never mutated; derived totals are
// produced by Add, which returns a new value.
type TokenUsage struct {
	TokensIn  int    `json:"tokensIn"`  // Input tokens consumed
	TokensOut int    `json:"tokensOut"` // Output tokens generated
	Model     string `json:"model"`     // Model name, empty when the raw result does not report one
}

// Add returns the component-wise sum of two usages.
// The model of the sum is kept only when both sides agree; an aggregate
// spanning models has no single meaningful model name.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	model := ""
	if u.Model == other.Model {
		model = u.Model
	}
	return TokenUsage{
		TokensIn:  u.TokensIn + other.TokensIn,
		TokensOut: u.TokensOut + other.TokensOut,
		Model:     model,
	}
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.TokensIn + u.TokensOut
}

// IsZero reports whether no tokens were counted.
func (u TokenUsage) IsZero() bool {
	return u.TokensIn == 0 && u.TokensOut == 0
}

// UsageRecord attributes one generation call's usage to a provider.
type UsageRecord struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Usage    TokenUsage    `json:"usage"`
	Duration time.Duration `json:"duration,omitempty"`
}
