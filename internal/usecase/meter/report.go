package meter

import (
	"time"

	"github.com/bkyoung/ragmeter/internal/accounting"
	"github.com/bkyoung/ragmeter/internal/domain"
)

// Report is the aggregate result of one metering run.
type Report struct {
	Source      string
	Dataset     string
	GeneratedAt time.Time
	Duration    time.Duration

	// TotalUsage sums tokens across all successfully parsed calls.
	TotalUsage domain.TokenUsage

	// TotalCost is priced per provider/model from the pricing table.
	TotalCost float64

	Requests   int
	Records    []CallUsage
	Failures   []CallFailure
	ByProvider map[string]ProviderReport

	// Accumulator holds the run's totals for callers that need to price
	// them with explicit per-token rates instead of the table.
	Accumulator *accounting.Accumulator
}

// CallUsage is the parsed usage for one call, priced.
type CallUsage struct {
	Provider string            `json:"provider"`
	Model    string            `json:"model,omitempty"`
	Usage    domain.TokenUsage `json:"usage"`
	Cost     float64           `json:"cost"`
}

// CallFailure describes a call record that could not be parsed.
type CallFailure struct {
	Provider string
	Line     int
	Err      error
}

// ProviderReport aggregates parsed calls for one provider.
type ProviderReport struct {
	Requests  int     `json:"requests"`
	TokensIn  int     `json:"tokensIn"`
	TokensOut int     `json:"tokensOut"`
	Cost      float64 `json:"cost"`
}
