// Package csv exports per-call usage rows for spreadsheet analysis.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bkyoung/ragmeter/internal/usecase/meter"
)

// Artifact bundles a usage report with its destination directory.
type Artifact struct {
	OutputDir string
	Label     string
	Report    meter.Report
}

// Writer persists usage reports as CSV files, one row per call.
type Writer struct {
	now func() string
}

// NewWriter creates a new CSV writer with a timestamp supplier.
func NewWriter(now func() string) *Writer {
	return &Writer{now: now}
}

// Write persists a CSV artifact to disk.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	label := artifact.Label
	if label == "" {
		label = "report"
	}
	path := filepath.Join(artifact.OutputDir, fmt.Sprintf("usage-%s-%s.csv", label, w.now()))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"provider", "model", "tokens_in", "tokens_out", "cost"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, record := range artifact.Report.Records {
		row := []string{
			record.Provider,
			record.Model,
			strconv.Itoa(record.Usage.TokensIn),
			strconv.Itoa(record.Usage.TokensOut),
			strconv.FormatFloat(record.Cost, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	return path, nil
}
