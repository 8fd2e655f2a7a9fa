package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/septivank/energy-insights/internal/apperr"
	"github.com/septivank/energy-insights/internal/config"
)

func TestResolve_FirstMatchWins(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LLMConfig
		provider Provider
		model    string
	}{
		{
			name:     "all keys",
			cfg:      config.LLMConfig{GeminiAPIKey: "g", GroqAPIKey: "q", OpenAIAPIKey: "o", AnthropicAPIKey: "a"},
			provider: ProviderGemini,
			model:    "gemini-2.0-flash",
		},
		{
			name:     "groq before openai",
			cfg:      config.LLMConfig{GroqAPIKey: "q", OpenAIAPIKey: "o"},
			provider: ProviderGroq,
			model:    "openai/gpt-oss-120b",
		},
		{
			name:     "openai before anthropic",
			cfg:      config.LLMConfig{OpenAIAPIKey: "o", AnthropicAPIKey: "a"},
			provider: ProviderOpenAI,
			model:    "gpt-5-mini-2025-08-07",
		},
		{
			name:     "anthropic only",
			cfg:      config.LLMConfig{AnthropicAPIKey: "a"},
			provider: ProviderAnthropic,
			model:    "claude-sonnet-4-20250514",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Resolve(tt.cfg)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if sel.Provider != tt.provider || sel.Model != tt.model {
				t.Errorf("Resolve() = %s, want %s/%s", sel, tt.provider, tt.model)
			}
			if sel.BaseURL == "" {
				t.Error("BaseURL should be set")
			}
		})
	}
}

func TestResolve_NoKey(t *testing.T) {
	_, err := Resolve(config.LLMConfig{})
	if !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("Resolve() error = %v, want ErrNotConfigured", err)
	}
}

func TestSelection_StringHidesKey(t *testing.T) {
	sel, err := Resolve(config.LLMConfig{OpenAIAPIKey: "sk-secret"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if strings.Contains(sel.String(), "sk-secret") {
		t.Errorf("String() leaks the key: %s", sel)
	}
}
