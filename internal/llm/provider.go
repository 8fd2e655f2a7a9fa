// Package llm talks to the generation backend that turns questions into SQL
// and query results into answers.
package llm

import (
	"fmt"

	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/config"
)

// Provider names a generation backend
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderGroq      Provider = "groq"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Selection is the backend chosen at startup
type Selection struct {
	Provider Provider
	Model    string
	APIKey   string
	BaseURL  string
}

// String never includes the key
func (s Selection) String() string {
	return fmt.Sprintf("%s/%s", s.Provider, s.Model)
}

type providerEntry struct {
	provider Provider
	model    string
	baseURL  string
	key      func(config.LLMConfig) string
}

// providers is ordered by priority; the first configured key wins.
var providers = []providerEntry{
	{
		provider: ProviderGemini,
		model:    "gemini-2.0-flash",
		baseURL:  "https://generativelanguage.googleapis.com/v1beta/openai",
		key:      func(c config.LLMConfig) string { return c.GeminiAPIKey },
	},
	{
		provider: ProviderGroq,
		model:    "openai/gpt-oss-120b",
		baseURL:  "https://api.groq.com/openai/v1",
		key:      func(c config.LLMConfig) string { return c.GroqAPIKey },
	},
	{
		provider: ProviderOpenAI,
		model:    "gpt-5-mini-2025-08-07",
		baseURL:  "https://api.openai.com/v1",
		key:      func(c config.LLMConfig) string { return c.OpenAIAPIKey },
	},
	{
		provider: ProviderAnthropic,
		model:    "claude-sonnet-4-20250514",
		baseURL:  "https://api.anthropic.com/v1",
		key:      func(c config.LLMConfig) string { return c.AnthropicAPIKey },
	},
}

// Resolve picks the first provider, in the order gemini, groq, openai,
// anthropic, whose key is set. No key at all is apperr.ErrNotConfigured.
func Resolve(cfg config.LLMConfig) (Selection, error) {
	for _, p := range providers {
		if key := p.key(cfg); key != "" {
			return Selection{
				Provider: p.provider,
				Model:    p.model,
				APIKey:   key,
				BaseURL:  p.baseURL,
			}, nil
		}
	}
	return Selection{}, fmt.Errorf("%w: no generation backend API key found", apperr.ErrNotConfigured)
}
