package markdown_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/bkyoung/ragmeter/internal/adapter/output/markdown"
	"github.com/bkyoung/ragmeter/internal/domain"
	"github.com/bkyoung/ragmeter/internal/usecase/meter"
)

func TestWriterProducesDeterministicMarkdown(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer := markdown.NewWriter(func() string {
		return "2026-08-31T00-00-00Z"
	})

	report := meter.Report{
		Source:     "calls.jsonl",
		Dataset:    "hotpotqa",
		Requests:   3,
		TotalUsage: domain.TokenUsage{TokensIn: 16765, TokensOut: 39031},
		TotalCost:  0.66929,
		ByProvider: map[string]meter.ProviderReport{
			"openai":    {Requests: 2, TokensIn: 16665, TokensOut: 38981, Cost: 0.5},
			"anthropic": {Requests: 1, TokensIn: 100, TokensOut: 50, Cost: 0.16929},
		},
		Failures: []meter.CallFailure{
			{Provider: "openai", Line: 7, Err: errors.New("invalid character")},
		},
	}

	path, err := writer.Write(ctx, markdown.Artifact{
		OutputDir: dir,
		Label:     "hotpotqa",
		Report:    report,
	})
	if err != nil {
		t.Fatalf("write markdown: %v", err)
	}

	if !strings.HasSuffix(path, "usage_hotpotqa_2026-08-31T00-00-00Z.md") {
		t.Fatalf("unexpected path %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	content := string(raw)

	for _, want := range []string{
		"# Token Usage Report",
		"- Source: calls.jsonl",
		"- Dataset: hotpotqa",
		"- Tokens in: 16,765",
		"- Tokens out: 39,031",
		"- Total cost: $0.669290",
		"| Provider | Requests | Tokens In | Tokens Out | Cost |",
		"| Anthropic | 1 | 100 | 50 |",
		"| Openai | 2 | 16,665 | 38,981 |",
		"## Failures",
		"- line 7 (openai): invalid character",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("markdown missing %q\n%s", want, content)
		}
	}

	// Providers sort alphabetically so reruns produce identical files.
	anthropicIdx := strings.Index(content, "| Anthropic")
	openaiIdx := strings.Index(content, "| Openai")
	if anthropicIdx > openaiIdx {
		t.Errorf("providers out of order:\n%s", content)
	}
}

func TestWriterOmitsEmptySections(t *testing.T) {
	dir := t.TempDir()
	writer := markdown.NewWriter(func() string { return "ts" })

	path, err := writer.Write(context.Background(), markdown.Artifact{
		OutputDir: dir,
		Report:    meter.Report{Requests: 0},
	})
	if err != nil {
		t.Fatalf("write markdown: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	content := string(raw)

	if strings.Contains(content, "## Providers") {
		t.Errorf("empty report should omit provider table:\n%s", content)
	}
	if strings.Contains(content, "## Failures") {
		t.Errorf("empty report should omit failures:\n%s", content)
	}
}
