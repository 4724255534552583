package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bkyoung/ragmeter/internal/config"
)

func TestMergePrioritizesLaterConfigs(t *testing.T) {
	base := config.Config{
		Output: config.OutputConfig{Directory: "default"},
	}
	file := config.Config{
		Output: config.OutputConfig{Directory: "file"},
	}
	final := config.Config{
		Output: config.OutputConfig{Directory: "env"},
	}

	merged := config.Merge(base, file, final)

	if merged.Output.Directory != "env" {
		t.Fatalf("expected env directory to win, got %s", merged.Output.Directory)
	}
}

func TestMergeCombinesProviderMaps(t *testing.T) {
	base := config.Config{
		Providers: map[string]config.ProviderConfig{
			"batch":  {Enabled: true},
			"openai": {Enabled: false},
		},
	}
	overlay := config.Config{
		Providers: map[string]config.ProviderConfig{
			"openai": {Enabled: true},
		},
	}

	merged := config.Merge(base, overlay)

	if !merged.Providers["batch"].Enabled {
		t.Error("expected batch provider to survive the merge")
	}
	if !merged.Providers["openai"].Enabled {
		t.Error("expected overlay openai config to win")
	}
}

func TestMergeCombinesPricingOverrides(t *testing.T) {
	base := config.Config{
		Pricing: map[string]map[string]config.Pricing{
			"anthropic": {"claude-haiku-4-5": {InputPer1M: 1, OutputPer1M: 5}},
		},
	}
	overlay := config.Config{
		Pricing: map[string]map[string]config.Pricing{
			"anthropic": {"claude-haiku-4-5": {InputPer1M: 2, OutputPer1M: 10}},
			"batch":     {"": {InputPer1M: 5, OutputPer1M: 15}},
		},
	}

	merged := config.Merge(base, overlay)

	if merged.Pricing["anthropic"]["claude-haiku-4-5"].InputPer1M != 2 {
		t.Error("expected overlay pricing to win")
	}
	if merged.Pricing["batch"][""].OutputPer1M != 15 {
		t.Error("expected new provider pricing to be added")
	}
}

func TestLoadReadsFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ragmeter.yaml")
	if err := os.WriteFile(file, []byte("output:\n  directory: file\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("RAGMETER_OUTPUT_DIRECTORY", "env")

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "ragmeter",
		EnvPrefix:   "RAGMETER",
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Output.Directory != "env" {
		t.Fatalf("expected env to override file, got %s", cfg.Output.Directory)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{t.TempDir()},
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Output.Directory != "out" {
		t.Errorf("expected default output directory, got %s", cfg.Output.Directory)
	}
	if cfg.Meter.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Meter.Concurrency)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if !cfg.Providers["batch"].Enabled {
		t.Error("expected batch provider enabled by default")
	}
	if cfg.Store.Enabled {
		t.Error("expected store disabled by default")
	}
}

func TestLoadParsesPricingOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ragmeter.yaml")
	content := "pricing:\n  batch:\n    \"\":\n      inputPer1M: 5.0\n      outputPer1M: 15.0\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := config.Load(config.LoaderOptions{ConfigPaths: []string{dir}})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	price := cfg.Pricing["batch"][""]
	if price.InputPer1M != 5.0 || price.OutputPer1M != 15.0 {
		t.Fatalf("unexpected pricing override: %+v", price)
	}
}
