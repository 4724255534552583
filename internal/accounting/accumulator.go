// Package accounting aggregates token usage and computes monetary cost
// across a batch of generation calls.
package accounting

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bkyoung/ragmeter/internal/domain"
)

// ErrNegativePrice indicates a negative per-token price was supplied.
// Prices are never clamped; a negative value is a caller mistake that
// must surface immediately.
var ErrNegativePrice = errors.New("negative price per token")

// Accumulator collects token usage emitted during a batch of generation
// calls. Totals only move forward; reset by constructing a new one.
// All methods are safe for concurrent use.
type Accumulator struct {
	mu         sync.RWMutex
	tokensIn   int
	tokensOut  int
	requests   int
	byProvider map[string]ProviderStats
}

// Stats contains aggregate counts for a batch.
type Stats struct {
	Requests   int
	TokensIn   int
	TokensOut  int
	ByProvider map[string]ProviderStats
}

// ProviderStats contains per-provider counts.
type ProviderStats struct {
	Requests  int
	TokensIn  int
	TokensOut int
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		byProvider: make(map[string]ProviderStats),
	}
}

// Record adds one usage record to the running totals.
func (a *Accumulator) Record(rec domain.UsageRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tokensIn += rec.Usage.TokensIn
	a.tokensOut += rec.Usage.TokensOut
	a.requests++

	ps := a.byProvider[rec.Provider]
	ps.Requests++
	ps.TokensIn += rec.Usage.TokensIn
	ps.TokensOut += rec.Usage.TokensOut
	a.byProvider[rec.Provider] = ps
}

// TotalTokens returns the sum of all recorded input and output tokens.
// The model field of the aggregate is left empty; a total spanning many
// calls has no single model.
func (a *Accumulator) TotalTokens() domain.TokenUsage {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return domain.TokenUsage{
		TokensIn:  a.tokensIn,
		TokensOut: a.tokensOut,
	}
}

// TotalCost computes the batch cost in USD from explicit per-token prices.
// Both prices are required: rates vary by provider and model, and the
// accumulator carries no pricing table of its own. Zero is permitted
// (free tier); negative prices are rejected with ErrNegativePrice and
// leave the accumulator unchanged. No rounding is performed.
func (a *Accumulator) TotalCost(perInputToken, perOutputToken float64) (float64, error) {
	if perInputToken < 0 {
		return 0, fmt.Errorf("%w: input price %g", ErrNegativePrice, perInputToken)
	}
	if perOutputToken < 0 {
		return 0, fmt.Errorf("%w: output price %g", ErrNegativePrice, perOutputToken)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.tokensIn)*perInputToken + float64(a.tokensOut)*perOutputToken, nil
}

// Stats returns a copy of the current aggregate counts.
func (a *Accumulator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		Requests:   a.requests,
		TokensIn:   a.tokensIn,
		TokensOut:  a.tokensOut,
		ByProvider: make(map[string]ProviderStats, len(a.byProvider)),
	}
	for provider, ps := range a.byProvider {
		stats.ByProvider[provider] = ps
	}
	return stats
}
