package usage_test

import (
	"encoding/json"
	"testing"

	"github.com/bkyoung/ragmeter/internal/domain"
	"github.com/bkyoung/ragmeter/internal/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchParser(t *testing.T) {
	parser := usage.BatchParser()

	t.Run("sums usage across generations", func(t *testing.T) {
		raw := json.RawMessage(`{
			"generations": [
				{"text": "first", "usage": {"input_tokens": 100, "output_tokens": 50}},
				{"text": "second", "usage": {"input_tokens": 16665, "output_tokens": 38981}}
			]
		}`)

		got, err := parser(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenUsage{TokensIn: 16765, TokensOut: 39031}, got)
	})

	t.Run("zero generations yields zero usage and empty model", func(t *testing.T) {
		got, err := parser(json.RawMessage(`{"generations": []}`))
		require.NoError(t, err)
		assert.Equal(t, domain.TokenUsage{TokensIn: 0, TokensOut: 0, Model: ""}, got)
	})

	t.Run("missing usage blocks count as zero", func(t *testing.T) {
		raw := json.RawMessage(`{
			"generations": [
				{"text": "no counts here"},
				{"text": "counted", "usage": {"input_tokens": 10, "output_tokens": 20}}
			]
		}`)

		got, err := parser(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenUsage{TokensIn: 10, TokensOut: 20}, got)
	})

	t.Run("negative counts clamp to zero", func(t *testing.T) {
		raw := json.RawMessage(`{
			"generations": [{"usage": {"input_tokens": -1, "output_tokens": 5}}]
		}`)

		got, err := parser(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenUsage{TokensIn: 0, TokensOut: 5}, got)
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		_, err := parser(json.RawMessage(`{not json`))
		assert.Error(t, err)
	})
}

func TestBatchParser_WithTokenEstimation(t *testing.T) {
	parser := usage.BatchParser(usage.WithTokenEstimation())

	t.Run("estimates output tokens for uncounted generations", func(t *testing.T) {
		raw := json.RawMessage(`{
			"prompt": "What is the capital of France?",
			"generations": [{"text": "The capital of France is Paris."}]
		}`)

		got, err := parser(raw)
		require.NoError(t, err)
		assert.Positive(t, got.TokensIn)
		assert.Positive(t, got.TokensOut)
	})

	t.Run("prefers reported counts over estimation", func(t *testing.T) {
		raw := json.RawMessage(`{
			"prompt": "ignored because usage is reported",
			"generations": [{"text": "answer", "usage": {"input_tokens": 3, "output_tokens": 4}}]
		}`)

		got, err := parser(raw)
		require.NoError(t, err)
		assert.Equal(t, domain.TokenUsage{TokensIn: 3, TokensOut: 4}, got)
	})
}

func TestProviderParsers(t *testing.T) {
	tests := []struct {
		name   string
		parser usage.Parser
		raw    string
		want   domain.TokenUsage
	}{
		{
			name:   "openai chat completion",
			parser: usage.OpenAIParser,
			raw:    `{"model": "gpt-4o", "usage": {"prompt_tokens": 57, "completion_tokens": 17, "total_tokens": 74}}`,
			want:   domain.TokenUsage{TokensIn: 57, TokensOut: 17, Model: "gpt-4o"},
		},
		{
			name:   "openai missing usage",
			parser: usage.OpenAIParser,
			raw:    `{"model": "gpt-4o", "choices": []}`,
			want:   domain.TokenUsage{Model: "gpt-4o"},
		},
		{
			name:   "anthropic message",
			parser: usage.AnthropicParser,
			raw:    `{"model": "claude-sonnet-4-5-20250929", "usage": {"input_tokens": 2095, "output_tokens": 503}}`,
			want:   domain.TokenUsage{TokensIn: 2095, TokensOut: 503, Model: "claude-sonnet-4-5-20250929"},
		},
		{
			name:   "anthropic missing usage",
			parser: usage.AnthropicParser,
			raw:    `{"model": "claude-haiku-4-5"}`,
			want:   domain.TokenUsage{Model: "claude-haiku-4-5"},
		},
		{
			name:   "gemini generate content",
			parser: usage.GeminiParser,
			raw:    `{"modelVersion": "gemini-2.5-flash", "usageMetadata": {"promptTokenCount": 11, "candidatesTokenCount": 34, "totalTokenCount": 45}}`,
			want:   domain.TokenUsage{TokensIn: 11, TokensOut: 34, Model: "gemini-2.5-flash"},
		},
		{
			name:   "gemini missing usage metadata",
			parser: usage.GeminiParser,
			raw:    `{"candidates": []}`,
			want:   domain.TokenUsage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parser(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	t.Run("returns positive count for non-empty text", func(t *testing.T) {
		assert.Positive(t, usage.EstimateTokens("hello world"))
	})

	t.Run("returns zero for empty text", func(t *testing.T) {
		assert.Equal(t, 0, usage.EstimateTokens(""))
	})

	t.Run("longer text yields more tokens", func(t *testing.T) {
		short := usage.EstimateTokens("hi")
		long := usage.EstimateTokens("The quick brown fox jumps over the lazy dog, again and again and again.")
		assert.Greater(t, long, short)
	})
}
