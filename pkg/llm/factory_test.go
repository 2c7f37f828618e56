package llm

import (
	"testing"

	"github.com/talkloop/voiceagent/internal/config"
)

func TestNewFromConfigDispatchesByProvider(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"ollama", "ollama-llm"},
		{"openai", "openai-llm"},
		{"claude", "anthropic-llm"},
		{"gemini", "gemini-llm"},
	}

	for _, c := range cases {
		cfg := config.LLM{
			Provider:        c.provider,
			OpenAIAPIKey:    "k",
			AnthropicAPIKey: "k",
			GeminiAPIKey:    "k",
		}
		p, err := NewFromConfig(cfg)
		if err != nil {
			t.Fatalf("provider %q: unexpected error: %v", c.provider, err)
		}
		if p.Name() != c.want {
			t.Errorf("provider %q: expected Name() %q, got %q", c.provider, c.want, p.Name())
		}
	}
}

func TestNewFromConfigUnknownProvider(t *testing.T) {
	_, err := NewFromConfig(config.LLM{Provider: "mystery"})
	if err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
