package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bkyoung/ragmeter/internal/adapter/cli"
	csvwriter "github.com/bkyoung/ragmeter/internal/adapter/output/csv"
	jsonwriter "github.com/bkyoung/ragmeter/internal/adapter/output/json"
	markdownwriter "github.com/bkyoung/ragmeter/internal/adapter/output/markdown"
	"github.com/bkyoung/ragmeter/internal/adapter/source/jsonl"
	"github.com/bkyoung/ragmeter/internal/adapter/store/sqlite"
	"github.com/bkyoung/ragmeter/internal/config"
	"github.com/bkyoung/ragmeter/internal/logging"
	"github.com/bkyoung/ragmeter/internal/pricing"
	"github.com/bkyoung/ragmeter/internal/usage"
	"github.com/bkyoung/ragmeter/internal/usecase/meter"
	"github.com/bkyoung/ragmeter/internal/version"
)

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "ragmeter",
		EnvPrefix:   "RAGMETER",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	registry := buildRegistry(cfg.Providers)
	priceTable := buildPricing(cfg.Pricing)

	logger := logging.NewDefaultLogger(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)

	usageMeter := meter.NewMeter(meter.Dependencies{
		Registry:    registry,
		Pricing:     priceTable,
		Logger:      logger,
		Concurrency: cfg.Meter.Concurrency,
	})

	// Timestamp function for deterministic output file naming
	nowFunc := func() string {
		return time.Now().UTC().Format("20060102T150405Z")
	}

	writers := map[string]cli.ReportWriter{
		"json":     jsonWriterAdapter{writer: jsonwriter.NewWriter(nowFunc)},
		"markdown": markdownWriterAdapter{writer: markdownwriter.NewWriter(nowFunc)},
		"csv":      csvWriterAdapter{writer: csvwriter.NewWriter(nowFunc)},
	}

	// Initialize store if enabled
	var runStore cli.RunStore
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			sqliteStore, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				runStore = sqliteStore
				defer sqliteStore.Close()
			}
		}
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Meter:         usageMeter,
		Source:        jsonl.NewReader(),
		Writers:       writers,
		Store:         runStore,
		Providers:     registry.Providers(),
		DefaultOutput: cfg.Output.Directory,
		Version:       version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ragmeter"))
	}
	return paths
}

// buildRegistry registers a parser for every enabled provider.
func buildRegistry(providersConfig map[string]config.ProviderConfig) *usage.Registry {
	registry := usage.NewRegistry()

	enabled := func(name string) bool {
		cfg, ok := providersConfig[name]
		if !ok {
			// Unconfigured providers stay enabled so bare installs work.
			return true
		}
		return cfg.Enabled
	}

	if enabled(usage.ProviderBatch) {
		var opts []usage.BatchOption
		if providersConfig[usage.ProviderBatch].Estimate {
			opts = append(opts, usage.WithTokenEstimation())
		}
		registry.Register(usage.ProviderBatch, usage.BatchParser(opts...))
	}
	if enabled(usage.ProviderOpenAI) {
		registry.Register(usage.ProviderOpenAI, usage.OpenAIParser)
	}
	if enabled(usage.ProviderAnthropic) {
		registry.Register(usage.ProviderAnthropic, usage.AnthropicParser)
	}
	if enabled(usage.ProviderGemini) {
		registry.Register(usage.ProviderGemini, usage.GeminiParser)
	}

	return registry
}

// buildPricing applies configured per-model overrides on top of the
// built-in price table.
func buildPricing(overrides map[string]map[string]config.Pricing) *pricing.Table {
	table := pricing.NewTable()
	for provider, models := range overrides {
		for model, price := range models {
			table.Override(provider, model, pricing.ModelPricing{
				InputPer1M:  price.InputPer1M,
				OutputPer1M: price.OutputPer1M,
			})
		}
	}
	return table
}

// The concrete writers take their own artifact types; these adapters
// bridge them to the signature the CLI expects.

type jsonWriterAdapter struct {
	writer *jsonwriter.Writer
}

func (a jsonWriterAdapter) Write(ctx context.Context, outputDir, label string, report meter.Report) (string, error) {
	return a.writer.Write(ctx, jsonwriter.Artifact{OutputDir: outputDir, Label: label, Report: report})
}

type markdownWriterAdapter struct {
	writer *markdownwriter.Writer
}

func (a markdownWriterAdapter) Write(ctx context.Context, outputDir, label string, report meter.Report) (string, error) {
	return a.writer.Write(ctx, markdownwriter.Artifact{OutputDir: outputDir, Label: label, Report: report})
}

type csvWriterAdapter struct {
	writer *csvwriter.Writer
}

func (a csvWriterAdapter) Write(ctx context.Context, outputDir, label string, report meter.Report) (string, error) {
	return a.writer.Write(ctx, csvwriter.Artifact{OutputDir: outputDir, Label: label, Report: report})
}

// Compile-time interface compliance checks
var _ cli.UsageMeter = (*meter.Meter)(nil)
var _ cli.SourceReader = (*jsonl.Reader)(nil)
var _ cli.RunStore = (*sqlite.Store)(nil)
