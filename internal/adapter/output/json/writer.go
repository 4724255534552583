package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkyoung/ragmeter/internal/usecase/meter"
)

// Artifact bundles a usage report with its destination directory.
type Artifact struct {
	OutputDir string
	Label     string
	Report    meter.Report
}

// Writer persists usage reports as JSON files.
type Writer struct {
	now func() string
}

// NewWriter creates a new JSON writer with a timestamp supplier.
func NewWriter(now func() string) *Writer {
	return &Writer{now: now}
}

// Write persists a usage report to disk as a JSON file.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filePath := filepath.Join(artifact.OutputDir,
		fmt.Sprintf("usage-%s-%s.json", sanitise(artifact.Label), w.now()))

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create json file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(reportPayload(artifact.Report)); err != nil {
		return "", fmt.Errorf("failed to encode report to json: %w", err)
	}

	return filePath, nil
}

// payload is the serialised report shape. Failures carry their error as
// a string so the file round-trips.
type payload struct {
	Source      string                          `json:"source,omitempty"`
	Dataset     string                          `json:"dataset,omitempty"`
	GeneratedAt string                          `json:"generatedAt"`
	Requests    int                             `json:"requests"`
	TokensIn    int                             `json:"tokensIn"`
	TokensOut   int                             `json:"tokensOut"`
	TotalCost   float64                         `json:"totalCost"`
	ByProvider  map[string]meter.ProviderReport `json:"byProvider,omitempty"`
	Calls       []meter.CallUsage               `json:"calls,omitempty"`
	Failures    []failurePayload                `json:"failures,omitempty"`
}

type failurePayload struct {
	Provider string `json:"provider"`
	Line     int    `json:"line"`
	Error    string `json:"error"`
}

func reportPayload(report meter.Report) payload {
	p := payload{
		Source:      report.Source,
		Dataset:     report.Dataset,
		GeneratedAt: report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Requests:    report.Requests,
		TokensIn:    report.TotalUsage.TokensIn,
		TokensOut:   report.TotalUsage.TokensOut,
		TotalCost:   report.TotalCost,
		ByProvider:  report.ByProvider,
		Calls:       report.Records,
	}
	for _, failure := range report.Failures {
		p.Failures = append(p.Failures, failurePayload{
			Provider: failure.Provider,
			Line:     failure.Line,
			Error:    failure.Err.Error(),
		})
	}
	return p
}

func sanitise(value string) string {
	if value == "" {
		return "report"
	}
	return value
}
