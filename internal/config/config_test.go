package config

import (
	"os"
	"testing"

	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LLM_PROVIDER", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
	} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadDefaultsToOllamaWithNoCredential(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Fatalf("expected default provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.OllamaModel != "llama3.2:3b" {
		t.Fatalf("unexpected default ollama model: %s", cfg.LLM.OllamaModel)
	}
}

func TestLoadFailsForMissingCredential(t *testing.T) {
	clearProviderEnv(t)
	os.Setenv("LLM_PROVIDER", "openai")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected config error for missing OPENAI_API_KEY")
	}
	if !voiceerr.IsFatal(err) {
		t.Fatalf("expected fatal config error, got %v", err)
	}
}

func TestLoadUnknownProvider(t *testing.T) {
	clearProviderEnv(t)
	os.Setenv("LLM_PROVIDER", "bogus")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected config error for unknown provider")
	}
}

func TestLoadAcceptsConfiguredProvider(t *testing.T) {
	clearProviderEnv(t)
	os.Setenv("LLM_PROVIDER", "claude")
	os.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Fatalf("unexpected default claude model: %s", cfg.LLM.ClaudeModel)
	}
}
