package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bkyoung/ragmeter/internal/usecase/meter"
)

type clock func() string

// Artifact bundles a usage report with its destination directory.
type Artifact struct {
	OutputDir string
	Label     string
	Report    meter.Report
}

// Writer renders usage reports into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Write persists a Markdown artifact to disk.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("usage_%s_%s.md", sanitise(artifact.Label), w.now())
	path := filepath.Join(artifact.OutputDir, filename)

	content := buildContent(artifact.Report)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

func buildContent(report meter.Report) string {
	var builder strings.Builder
	caser := cases.Title(language.English)
	printer := message.NewPrinter(language.English)

	builder.WriteString("# Token Usage Report\n\n")
	if report.Source != "" {
		builder.WriteString(fmt.Sprintf("- Source: %s\n", report.Source))
	}
	if report.Dataset != "" {
		builder.WriteString(fmt.Sprintf("- Dataset: %s\n", report.Dataset))
	}
	builder.WriteString(printer.Sprintf("- Requests: %d\n", report.Requests))
	builder.WriteString(printer.Sprintf("- Tokens in: %d\n", report.TotalUsage.TokensIn))
	builder.WriteString(printer.Sprintf("- Tokens out: %d\n", report.TotalUsage.TokensOut))
	builder.WriteString(fmt.Sprintf("- Total cost: $%.6f\n\n", report.TotalCost))

	if len(report.ByProvider) > 0 {
		builder.WriteString("## Providers\n\n")
		builder.WriteString("| Provider | Requests | Tokens In | Tokens Out | Cost |\n")
		builder.WriteString("|----------|---------:|----------:|-----------:|-----:|\n")
		for _, provider := range sortedProviders(report.ByProvider) {
			stats := report.ByProvider[provider]
			builder.WriteString(printer.Sprintf("| %s | %d | %d | %d | $%.6f |\n",
				caser.String(provider), stats.Requests, stats.TokensIn, stats.TokensOut, stats.Cost))
		}
		builder.WriteString("\n")
	}

	if len(report.Failures) > 0 {
		builder.WriteString("## Failures\n\n")
		for _, failure := range report.Failures {
			builder.WriteString(fmt.Sprintf("- line %d (%s): %v\n", failure.Line, failure.Provider, failure.Err))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func sortedProviders(byProvider map[string]meter.ProviderReport) []string {
	providers := make([]string, 0, len(byProvider))
	for provider := range byProvider {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}

func sanitise(value string) string {
	if value == "" {
		return "report"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
