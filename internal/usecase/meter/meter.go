// Package meter drives usage accounting over a batch of recorded
// generation calls.
package meter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bkyoung/ragmeter/internal/accounting"
	"github.com/bkyoung/ragmeter/internal/domain"
	"github.com/bkyoung/ragmeter/internal/logging"
	"github.com/bkyoung/ragmeter/internal/pricing"
	"github.com/bkyoung/ragmeter/internal/usage"
)

// RawCall is one recorded generation call: an opaque provider response
// plus the provider identifier needed to pick a parser.
type RawCall struct {
	Provider string          `json:"provider"`
	Model    string          `json:"model,omitempty"`
	Response json.RawMessage `json:"response"`

	// Line is the source line of the record, for error reporting.
	Line int `json:"-"`
}

// Dependencies captures the collaborators for the meter.
type Dependencies struct {
	Registry    *usage.Registry
	Pricing     *pricing.Table
	Logger      logging.Logger
	Concurrency int
}

// Meter parses raw calls and aggregates their usage and cost.
type Meter struct {
	deps Dependencies
}

// NewMeter constructs a Meter. A nil logger disables logging.
func NewMeter(deps Dependencies) *Meter {
	if deps.Logger == nil {
		deps.Logger = logging.NopLogger{}
	}
	if deps.Concurrency < 1 {
		deps.Concurrency = 1
	}
	return &Meter{deps: deps}
}

// Request describes one metering run.
type Request struct {
	Calls   []RawCall
	Source  string // Where the calls came from, for logging and reports
	Dataset string // Optional dataset label
}

// Run parses every call, records usage, and returns the aggregate report.
// Parser resolution happens up front: an unregistered provider is a
// configuration gap and fails the run before any work starts. Individual
// parse failures are collected, logged, and never abort the batch.
func (m *Meter) Run(ctx context.Context, req Request) (Report, error) {
	started := time.Now()

	parsers, err := m.resolveParsers(req.Calls)
	if err != nil {
		return Report{}, err
	}

	acc := accounting.NewAccumulator()

	type callResult struct {
		call  RawCall
		usage domain.TokenUsage
		cost  float64
		err   error
	}

	jobs := make(chan RawCall)
	results := make(chan callResult, len(req.Calls))

	var wg sync.WaitGroup
	for i := 0; i < m.deps.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for call := range jobs {
				parsed, err := parsers[call.Provider](call.Response)
				if err != nil {
					results <- callResult{call: call, err: err}
					continue
				}

				model := parsed.Model
				if model == "" {
					model = call.Model
				}

				cost := 0.0
				if m.deps.Pricing != nil {
					cost = m.deps.Pricing.Cost(call.Provider, model, parsed.TokensIn, parsed.TokensOut)
				}

				acc.Record(domain.UsageRecord{
					Provider: call.Provider,
					Model:    model,
					Usage:    parsed,
				})
				results <- callResult{call: call, usage: parsed, cost: cost}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, call := range req.Calls {
			select {
			case jobs <- call:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	report := Report{
		Source:      req.Source,
		Dataset:     req.Dataset,
		GeneratedAt: started,
		ByProvider:  make(map[string]ProviderReport),
	}

	for result := range results {
		if result.err != nil {
			report.Failures = append(report.Failures, CallFailure{
				Provider: result.call.Provider,
				Line:     result.call.Line,
				Err:      result.err,
			})
			m.deps.Logger.LogError(ctx, logging.ErrorLog{
				Provider: result.call.Provider,
				Line:     result.call.Line,
				Err:      result.err,
			})
			continue
		}

		model := result.usage.Model
		if model == "" {
			model = result.call.Model
		}

		report.Records = append(report.Records, CallUsage{
			Provider: result.call.Provider,
			Model:    model,
			Usage:    result.usage,
			Cost:     result.cost,
		})
		report.TotalCost += result.cost

		pr := report.ByProvider[result.call.Provider]
		pr.Requests++
		pr.TokensIn += result.usage.TokensIn
		pr.TokensOut += result.usage.TokensOut
		pr.Cost += result.cost
		report.ByProvider[result.call.Provider] = pr

		m.deps.Logger.LogCall(ctx, logging.CallLog{
			Provider:  result.call.Provider,
			Model:     model,
			Line:      result.call.Line,
			TokensIn:  result.usage.TokensIn,
			TokensOut: result.usage.TokensOut,
			Cost:      result.cost,
		})
	}

	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("metering interrupted: %w", err)
	}

	report.TotalUsage = acc.TotalTokens()
	report.Requests = acc.Stats().Requests
	report.Duration = time.Since(started)
	report.Accumulator = acc

	m.deps.Logger.LogSummary(ctx, logging.SummaryLog{
		Source:    req.Source,
		Requests:  report.Requests,
		Failures:  len(report.Failures),
		TokensIn:  report.TotalUsage.TokensIn,
		TokensOut: report.TotalUsage.TokensOut,
		Cost:      report.TotalCost,
		Duration:  report.Duration,
	})

	return report, nil
}

// resolveParsers looks up one parser per distinct provider before any
// parsing starts, so configuration gaps surface immediately.
func (m *Meter) resolveParsers(calls []RawCall) (map[string]usage.Parser, error) {
	parsers := make(map[string]usage.Parser)
	for _, call := range calls {
		if _, ok := parsers[call.Provider]; ok {
			continue
		}
		parser, err := m.deps.Registry.Resolve(call.Provider)
		if err != nil {
			return nil, fmt.Errorf("resolve parser: %w", err)
		}
		parsers[call.Provider] = parser
	}
	return parsers, nil
}
