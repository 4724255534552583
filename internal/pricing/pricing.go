// Package pricing maps provider models to per-token USD rates.
// It sits beside the accounting core, which deliberately carries no
// pricing table of its own.
package pricing

// ModelPricing contains pricing information for a model.
type ModelPricing struct {
	InputPer1M  float64 // Cost per 1M input tokens in USD
	OutputPer1M float64 // Cost per 1M output tokens in USD
}

// Rates are per-token prices suitable for accounting.Accumulator.TotalCost.
type Rates struct {
	PerInputToken  float64
	PerOutputToken float64
}

// Table resolves per-token prices by provider and model.
type Table struct {
	prices map[string]map[string]ModelPricing
}

// NewTable creates a pricing table with the built-in rates.
func NewTable() *Table {
	return &Table{prices: buildPricingTable()}
}

// Override sets or replaces the pricing for a provider/model pair.
// Intended for config-supplied rates; published prices go stale.
func (t *Table) Override(provider, model string, pricing ModelPricing) {
	if t.prices[provider] == nil {
		t.prices[provider] = make(map[string]ModelPricing)
	}
	t.prices[provider][model] = pricing
}

// Rates returns per-token prices for the given provider and model.
// Unknown providers or models price at zero; missing rates must never
// abort a report, they just under-count spend.
func (t *Table) Rates(provider, model string) Rates {
	providerPrices, ok := t.prices[provider]
	if !ok {
		return Rates{}
	}
	modelPrice, ok := providerPrices[model]
	if !ok {
		return Rates{}
	}
	return Rates{
		PerInputToken:  modelPrice.InputPer1M / 1_000_000.0,
		PerOutputToken: modelPrice.OutputPer1M / 1_000_000.0,
	}
}

// Cost calculates the cost for a single call's token counts.
func (t *Table) Cost(provider, model string, tokensIn, tokensOut int) float64 {
	rates := t.Rates(provider, model)
	return float64(tokensIn)*rates.PerInputToken + float64(tokensOut)*rates.PerOutputToken
}

// buildPricingTable returns pricing data for all models.
// Pricing as of: 2025-12-27
// Sources:
// - OpenAI: https://openai.com/api/pricing/
// - Anthropic: https://claude.com/pricing
// - Gemini: https://ai.google.dev/gemini-api/docs/pricing
func buildPricingTable() map[string]map[string]ModelPricing {
	return map[string]map[string]ModelPricing{
		"openai": {
			"gpt-5.2": {
				InputPer1M:  1.75,
				OutputPer1M: 14.00,
			},
			"gpt-5.2-pro": {
				InputPer1M:  21.00,
				OutputPer1M: 168.00,
			},
			"gpt-5.2-2025-12-11": {
				InputPer1M:  1.75,
				OutputPer1M: 14.00,
			},
			"gpt-4o": {
				InputPer1M:  2.50,
				OutputPer1M: 10.00,
			},
			"gpt-4o-mini": {
				InputPer1M:  0.15,
				OutputPer1M: 0.60,
			},
			"o1": {
				InputPer1M:  15.00,
				OutputPer1M: 60.00,
			},
			"o4-mini": {
				InputPer1M:  1.10,
				OutputPer1M: 4.40,
			},
		},
		"anthropic": {
			"claude-opus-4-5-20251101": {
				InputPer1M:  5.00,
				OutputPer1M: 25.00,
			},
			"claude-sonnet-4-5-20250929": {
				InputPer1M:  3.00,
				OutputPer1M: 15.00,
			},
			"claude-haiku-4-5": {
				InputPer1M:  1.00,
				OutputPer1M: 5.00,
			},
			"claude-3-5-sonnet-20241022": {
				InputPer1M:  3.00,
				OutputPer1M: 15.00,
			},
			"claude-3-5-haiku-20241022": {
				InputPer1M:  0.80,
				OutputPer1M: 4.00,
			},
		},
		"gemini": {
			"gemini-3-pro-preview": {
				InputPer1M:  2.00,
				OutputPer1M: 12.00,
			},
			"gemini-3-flash-preview": {
				InputPer1M:  0.50,
				OutputPer1M: 3.00,
			},
			"gemini-2.5-pro": {
				InputPer1M:  1.25,
				OutputPer1M: 10.00,
			},
			"gemini-2.5-flash": {
				InputPer1M:  0.15,
				OutputPer1M: 0.60,
			},
		},
		// The batch reference provider reports no model; price via
		// config overrides when spend matters.
		"batch": {},
	}
}
