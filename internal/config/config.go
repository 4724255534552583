package config

// Config represents the full application configuration.
type Config struct {
	Providers map[string]ProviderConfig     `yaml:"providers"`
	Pricing   map[string]map[string]Pricing `yaml:"pricing"`
	Meter     MeterConfig                   `yaml:"meter"`
	Output    OutputConfig                  `yaml:"output"`
	Store     StoreConfig                   `yaml:"store"`
	Logging   LoggingConfig                 `yaml:"logging"`
}

// ProviderConfig configures a single usage parser.
type ProviderConfig struct {
	Enabled bool `yaml:"enabled"`

	// Estimate enables token estimation from generation text when the
	// raw result carries none. Only honored by the batch parser.
	Estimate bool `yaml:"estimate"`
}

// Pricing overrides the built-in price table for one provider/model pair.
// Values are USD per 1M tokens.
type Pricing struct {
	InputPer1M  float64 `yaml:"inputPer1M"`
	OutputPer1M float64 `yaml:"outputPer1M"`
}

// MeterConfig configures the batch driver.
type MeterConfig struct {
	// Concurrency is the number of parse workers. Zero means one.
	Concurrency int `yaml:"concurrency"`
}

// OutputConfig configures where report artifacts are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures run logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, error
	Format string `yaml:"format"` // json, human
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.Meter = chooseMeter(base.Meter, overlay.Meter)
	result.Output = chooseOutput(base.Output, overlay.Output)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Logging = chooseLogging(base.Logging, overlay.Logging)
	result.Providers = mergeProviders(base.Providers, overlay.Providers)
	result.Pricing = mergePricing(base.Pricing, overlay.Pricing)

	return result
}

func mergeProviders(base, overlay map[string]ProviderConfig) map[string]ProviderConfig {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]ProviderConfig, len(base)+len(overlay))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range overlay {
		result[key] = value
	}
	return result
}

func mergePricing(base, overlay map[string]map[string]Pricing) map[string]map[string]Pricing {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]map[string]Pricing, len(base)+len(overlay))
	for provider, models := range base {
		result[provider] = make(map[string]Pricing, len(models))
		for model, price := range models {
			result[provider][model] = price
		}
	}
	for provider, models := range overlay {
		if result[provider] == nil {
			result[provider] = make(map[string]Pricing, len(models))
		}
		for model, price := range models {
			result[provider][model] = price
		}
	}
	return result
}

func chooseMeter(base, overlay MeterConfig) MeterConfig {
	if overlay.Concurrency != 0 {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	if overlay.Directory != "" {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseLogging(base, overlay LoggingConfig) LoggingConfig {
	if overlay.Level != "" || overlay.Format != "" {
		return overlay
	}
	return base
}
