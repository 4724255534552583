package csv_test

import (
	"context"
	stdcsv "encoding/csv"
	"os"
	"testing"

	"github.com/bkyoung/ragmeter/internal/adapter/output/csv"
	"github.com/bkyoung/ragmeter/internal/domain"
	"github.com/bkyoung/ragmeter/internal/usecase/meter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Write(t *testing.T) {
	writer := csv.NewWriter(func() string { return "20260831T120000Z" })

	report := meter.Report{
		Records: []meter.CallUsage{
			{Provider: "openai", Model: "gpt-4o", Usage: domain.TokenUsage{TokensIn: 100, TokensOut: 50}, Cost: 0.00075},
			{Provider: "anthropic", Model: "claude-haiku-4-5", Usage: domain.TokenUsage{TokensIn: 10, TokensOut: 20}, Cost: 0.00011},
		},
	}

	path, err := writer.Write(context.Background(), csv.Artifact{
		OutputDir: t.TempDir(),
		Label:     "eval",
		Report:    report,
	})
	require.NoError(t, err)
	assert.Contains(t, path, "usage-eval-20260831T120000Z.csv")

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := stdcsv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"provider", "model", "tokens_in", "tokens_out", "cost"}, rows[0])
	assert.Equal(t, []string{"openai", "gpt-4o", "100", "50", "0.00075"}, rows[1])
	assert.Equal(t, []string{"anthropic", "claude-haiku-4-5", "10", "20", "0.00011"}, rows[2])
}

func TestWriter_Write_EmptyReport(t *testing.T) {
	writer := csv.NewWriter(func() string { return "ts" })

	path, err := writer.Write(context.Background(), csv.Artifact{
		OutputDir: t.TempDir(),
		Report:    meter.Report{},
	})
	require.NoError(t, err)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	rows, err := stdcsv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
