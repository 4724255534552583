package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkyoung/ragmeter/internal/store"
	"github.com/bkyoung/ragmeter/internal/usecase/meter"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// UsageMeter defines the dependency required to run the report command.
type UsageMeter interface {
	Run(ctx context.Context, req meter.Request) (meter.Report, error)
}

// SourceReader loads raw call records from an input file.
type SourceReader interface {
	ReadFile(path string) ([]meter.RawCall, error)
}

// ReportWriter persists a report in one output format.
type ReportWriter interface {
	Write(ctx context.Context, outputDir, label string, report meter.Report) (string, error)
}

// RunStore persists finished runs. Nil disables persistence.
type RunStore interface {
	CreateRun(ctx context.Context, run store.Run) error
	FinalizeRun(ctx context.Context, runID string, totals store.RunTotals) error
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	SaveUsageRecords(ctx context.Context, runID string, rows []store.UsageRow) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Meter         UsageMeter
	Source        SourceReader
	Writers       map[string]ReportWriter // keyed by format: json, markdown, csv
	Store         RunStore
	Providers     []string
	DefaultOutput string
	Version       string
	Args          Arguments
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "ragmeter",
		Short: "Token usage and cost accounting for LLM evaluation runs",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(reportCommand(deps))
	root.AddCommand(runsCommand(deps))
	root.AddCommand(providersCommand(deps))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func reportCommand(deps Dependencies) *cobra.Command {
	var inputPath string
	var format string
	var outputDir string
	var dataset string
	var persist bool
	var priceIn float64
	var priceOut float64

	cmd := &cobra.Command{
		Use:   "report [input]",
		Short: "Meter a batch of recorded generation calls",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				inputPath = args[0]
			}
			if inputPath == "" {
				return fmt.Errorf("input file not specified; pass as an argument or use --input")
			}
			if _, ok := validFormats[format]; !ok {
				return fmt.Errorf("unknown format %q (json, markdown, csv, table)", format)
			}

			ctx := cmd.Context()

			calls, err := deps.Source.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read calls: %w", err)
			}

			report, err := deps.Meter.Run(ctx, meter.Request{
				Calls:   calls,
				Source:  inputPath,
				Dataset: dataset,
			})
			if err != nil {
				return err
			}

			// Uniform per-token rates override the pricing table when set.
			if cmd.Flags().Changed("price-in") || cmd.Flags().Changed("price-out") {
				cost, err := report.Accumulator.TotalCost(priceIn, priceOut)
				if err != nil {
					return fmt.Errorf("price report: %w", err)
				}
				report.TotalCost = cost
			}

			if persist && deps.Store != nil {
				if err := persistRun(ctx, deps.Store, report); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to persist run: %v\n", err)
				}
			}

			if format == "table" {
				renderTable(cmd.OutOrStdout(), report)
				return nil
			}

			writer, ok := deps.Writers[format]
			if !ok {
				return fmt.Errorf("no writer configured for format %q", format)
			}
			path, err := writer.Write(ctx, outputDir, label(report), report)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "JSONL file of recorded calls (overrides positional)")
	defaultOutput := deps.DefaultOutput
	if defaultOutput == "" {
		defaultOutput = "out"
	}
	cmd.Flags().StringVar(&outputDir, "output", defaultOutput, "Directory to write report artifacts")
	cmd.Flags().StringVar(&format, "format", defaultFormat(), "Output format (json, markdown, csv, table)")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset label recorded with the run")
	cmd.Flags().BoolVar(&persist, "store", false, "Persist the run to the local store")
	cmd.Flags().Float64Var(&priceIn, "price-in", 0, "Uniform price per input token (overrides the pricing table)")
	cmd.Flags().Float64Var(&priceOut, "price-out", 0, "Uniform price per output token (overrides the pricing table)")

	return cmd
}

func runsCommand(deps Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect persisted metering runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Store == nil {
				return fmt.Errorf("store is not enabled; set store.enabled in config")
			}
			runs, err := deps.Store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%-34s %-20s %-14s %10s %10s %12s\n",
				"RUN", "TIMESTAMP", "DATASET", "TOKENS IN", "TOKENS OUT", "COST")
			for _, run := range runs {
				_, _ = fmt.Fprintf(out, "%-34s %-20s %-14s %10d %10d %12.6f\n",
					run.RunID,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					orDash(run.Dataset),
					run.TokensIn,
					run.TokensOut,
					run.TotalCost,
				)
			}
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.AddCommand(listCmd)

	return cmd
}

func providersCommand(deps Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers with a registered usage parser",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers := append([]string(nil), deps.Providers...)
			sort.Strings(providers)
			for _, provider := range providers {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), provider)
			}
			return nil
		},
	}
}

var validFormats = map[string]struct{}{
	"json":     {},
	"markdown": {},
	"csv":      {},
	"table":    {},
}

// defaultFormat prefers the terminal table when stdout is interactive.
func defaultFormat() string {
	if IsOutputTerminal() {
		return "table"
	}
	return "json"
}

func renderTable(out io.Writer, report meter.Report) {
	_, _ = fmt.Fprintf(out, "%-12s %8s %12s %12s %12s\n", "PROVIDER", "CALLS", "TOKENS IN", "TOKENS OUT", "COST")
	for _, provider := range sortedProviders(report.ByProvider) {
		stats := report.ByProvider[provider]
		_, _ = fmt.Fprintf(out, "%-12s %8d %12d %12d %12.6f\n",
			provider, stats.Requests, stats.TokensIn, stats.TokensOut, stats.Cost)
	}
	_, _ = fmt.Fprintf(out, "%-12s %8d %12d %12d %12.6f\n",
		"total", report.Requests, report.TotalUsage.TokensIn, report.TotalUsage.TokensOut, report.TotalCost)
	if len(report.Failures) > 0 {
		_, _ = fmt.Fprintf(out, "\n%d record(s) failed to parse:\n", len(report.Failures))
		for _, failure := range report.Failures {
			_, _ = fmt.Fprintf(out, "  line %d (%s): %v\n", failure.Line, failure.Provider, failure.Err)
		}
	}
}

func persistRun(ctx context.Context, runStore RunStore, report meter.Report) error {
	runID := store.GenerateRunID(report.GeneratedAt, report.Dataset, report.Source)
	if err := runStore.CreateRun(ctx, store.Run{
		RunID:     runID,
		Timestamp: report.GeneratedAt,
		Dataset:   report.Dataset,
		Source:    report.Source,
	}); err != nil {
		return err
	}

	rows := make([]store.UsageRow, 0, len(report.Records))
	for _, record := range report.Records {
		rows = append(rows, store.UsageRow{
			Provider:  record.Provider,
			Model:     record.Model,
			TokensIn:  record.Usage.TokensIn,
			TokensOut: record.Usage.TokensOut,
			Cost:      record.Cost,
		})
	}
	if err := runStore.SaveUsageRecords(ctx, runID, rows); err != nil {
		return err
	}

	return runStore.FinalizeRun(ctx, runID, store.RunTotals{
		TokensIn:  report.TotalUsage.TokensIn,
		TokensOut: report.TotalUsage.TokensOut,
		TotalCost: report.TotalCost,
	})
}

func sortedProviders(byProvider map[string]meter.ProviderReport) []string {
	providers := make([]string, 0, len(byProvider))
	for provider := range byProvider {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}

func label(report meter.Report) string {
	if report.Dataset != "" {
		return report.Dataset
	}
	if report.Source != "" {
		base := report.Source
		if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
			base = base[idx+1:]
		}
		if idx := strings.LastIndexByte(base, '.'); idx > 0 {
			base = base[:idx]
		}
		return base
	}
	return ""
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
