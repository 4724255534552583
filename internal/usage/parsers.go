package usage

import (
	"encoding/json"
	"fmt"

	"github.com/bkyoung/ragmeter/internal/domain"
)

// Built-in provider identifiers.
const (
	ProviderBatch     = "batch"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// batchResult is the wire shape for the reference batch provider: a list
// of generations, each optionally carrying its own token counts.
type batchResult struct {
	Prompt      string            `json:"prompt,omitempty"`
	Generations []batchGeneration `json:"generations"`
}

type batchGeneration struct {
	Text  string      `json:"text"`
	Usage *batchUsage `json:"usage,omitempty"`
}

type batchUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// BatchOption configures the batch parser.
type BatchOption func(*batchOptions)

type batchOptions struct {
	estimate bool
}

// WithTokenEstimation makes the batch parser estimate token counts from
// generation text when a generation reports no usage block. Partial usage
// reporting is common; estimation keeps totals plausible instead of
// silently undercounting.
func WithTokenEstimation() BatchOption {
	return func(o *batchOptions) {
		o.estimate = true
	}
}

// BatchParser returns the parser for the reference batch provider.
// Token counts are summed across all generations in the result. The model
// is left empty: the batch shape does not report one unambiguously.
// Missing or malformed usage blocks count as zero rather than failing,
// so partial usage reporting never aborts an evaluation.
func BatchParser(opts ...BatchOption) Parser {
	options := batchOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return func(raw json.RawMessage) (domain.TokenUsage, error) {
		var result batchResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return domain.TokenUsage{}, fmt.Errorf("decode batch result: %w", err)
		}

		var total domain.TokenUsage
		for _, gen := range result.Generations {
			if gen.Usage != nil {
				total.TokensIn += nonNegative(gen.Usage.InputTokens)
				total.TokensOut += nonNegative(gen.Usage.OutputTokens)
				continue
			}
			if options.estimate && gen.Text != "" {
				total.TokensOut += EstimateTokens(gen.Text)
			}
		}
		if options.estimate && total.TokensIn == 0 && result.Prompt != "" {
			total.TokensIn = EstimateTokens(result.Prompt)
		}
		return total, nil
	}
}

// OpenAIParser reads the Chat Completions usage block.
func OpenAIParser(raw json.RawMessage) (domain.TokenUsage, error) {
	var result struct {
		Model string `json:"model"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.TokenUsage{}, fmt.Errorf("decode openai result: %w", err)
	}
	return domain.TokenUsage{
		TokensIn:  nonNegative(result.Usage.PromptTokens),
		TokensOut: nonNegative(result.Usage.CompletionTokens),
		Model:     result.Model,
	}, nil
}

// AnthropicParser reads the Messages API usage block.
func AnthropicParser(raw json.RawMessage) (domain.TokenUsage, error) {
	var result struct {
		Model string `json:"model"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.TokenUsage{}, fmt.Errorf("decode anthropic result: %w", err)
	}
	return domain.TokenUsage{
		TokensIn:  nonNegative(result.Usage.InputTokens),
		TokensOut: nonNegative(result.Usage.OutputTokens),
		Model:     result.Model,
	}, nil
}

// GeminiParser reads the generateContent usageMetadata block.
func GeminiParser(raw json.RawMessage) (domain.TokenUsage, error) {
	var result struct {
		ModelVersion  string `json:"modelVersion"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.TokenUsage{}, fmt.Errorf("decode gemini result: %w", err)
	}
	return domain.TokenUsage{
		TokensIn:  nonNegative(result.UsageMetadata.PromptTokenCount),
		TokensOut: nonNegative(result.UsageMetadata.CandidatesTokenCount),
		Model:     result.ModelVersion,
	}, nil
}

// nonNegative clamps provider-reported counts at zero. Some providers
// emit -1 for "unknown", which must not decrement aggregates.
func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
