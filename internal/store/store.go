package store

import (
	"context"
	"time"
)

// Store defines the persistence layer interface for run history.
type Store interface {
	// Run management
	CreateRun(ctx context.Context, run Run) error
	FinalizeRun(ctx context.Context, runID string, totals RunTotals) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Usage persistence
	SaveUsageRecords(ctx context.Context, runID string, records []UsageRow) error
	ProviderTotals(ctx context.Context, runID string) (map[string]ProviderTotal, error)

	// Utility
	Close() error
}

// Run represents a single metering execution.
type Run struct {
	RunID     string
	Timestamp time.Time
	Dataset   string // Optional label for the evaluated dataset
	Source    string // Path of the ingested call log
	TokensIn  int
	TokensOut int
	TotalCost float64
}

// RunTotals holds the final aggregates written when a run completes.
type RunTotals struct {
	TokensIn  int
	TokensOut int
	TotalCost float64
}

// UsageRow stores one generation call's usage attributed to a run.
type UsageRow struct {
	Provider  string
	Model     string
	TokensIn  int
	TokensOut int
	Cost      float64
}

// ProviderTotal aggregates usage rows for one provider within a run.
type ProviderTotal struct {
	Requests  int
	TokensIn  int
	TokensOut int
	Cost      float64
}
