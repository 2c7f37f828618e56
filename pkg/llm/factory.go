package llm

import (
	"github.com/talkloop/voiceagent/internal/config"
	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

// NewFromConfig builds the Provider named by cfg.Provider, wiring in the
// matching credentials. Returns a ConfigError for an unrecognized provider
// name (config.Load should already have rejected a missing credential).
func NewFromConfig(cfg config.LLM) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case "claude":
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.ClaudeModel), nil
	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	default:
		return nil, voiceerr.ConfigError(voiceerr.ErrUnknownProvider)
	}
}
