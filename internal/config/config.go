// Package config loads voice-agent configuration from the environment,
// following the teacher's .env-plus-os.Getenv convention.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

// STT holds the consumed speech-to-text engine's tunables.
type STT struct {
	ModelSize   string // WHISPER_MODEL_SIZE
	Device      string // WHISPER_DEVICE
	ComputeType string // WHISPER_COMPUTE_TYPE
}

// TTS holds the consumed text-to-speech engine's tunables.
type TTS struct {
	Voice string // TTS_VOICE
}

// TurnDetection holds the turn detector's thresholds, all in milliseconds.
type TurnDetection struct {
	SilenceMS          int // TURN_DETECTION_SILENCE_MS
	MinSpeechMS        int // TURN_DETECTION_MIN_SPEECH_MS
	PrefixPaddingMS    int // TURN_DETECTION_PREFIX_PADDING_MS
	InterruptThreshold int // INTERRUPT_THRESHOLD_MS
}

// LLM holds the four supported backend configurations; only the one named
// by Provider is required to be valid.
type LLM struct {
	Provider string // LLM_PROVIDER: ollama|openai|claude|gemini

	OllamaBaseURL string
	OllamaModel   string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicAPIKey string
	ClaudeModel     string

	GeminiAPIKey string
	GeminiModel  string
}

// Config is the full process configuration, loaded once at startup.
type Config struct {
	STT           STT
	TTS           TTS
	TurnDetection TurnDetection
	LLM           LLM
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Load reads .env (if present, errors are non-fatal — matching the
// teacher's "no .env file found" note) then the process environment,
// returning a fully populated Config. It validates that the selected LLM
// provider has its required credential set, returning a ConfigError
// otherwise.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		STT: STT{
			ModelSize:   getenv("WHISPER_MODEL_SIZE", "base"),
			Device:      getenv("WHISPER_DEVICE", "cpu"),
			ComputeType: getenv("WHISPER_COMPUTE_TYPE", "int8"),
		},
		TTS: TTS{
			Voice: getenv("TTS_VOICE", "ko-KR-SunHiNeural"),
		},
		TurnDetection: TurnDetection{
			SilenceMS:          getenvInt("TURN_DETECTION_SILENCE_MS", 800),
			MinSpeechMS:        getenvInt("TURN_DETECTION_MIN_SPEECH_MS", 300),
			PrefixPaddingMS:    getenvInt("TURN_DETECTION_PREFIX_PADDING_MS", 300),
			InterruptThreshold: getenvInt("INTERRUPT_THRESHOLD_MS", 500),
		},
		LLM: LLM{
			Provider: getenv("LLM_PROVIDER", "ollama"),

			OllamaBaseURL: getenv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getenv("OLLAMA_MODEL", "llama3.2:3b"),

			OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			ClaudeModel:     getenv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),

			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LLM.Provider {
	case "ollama":
		// No credential required; a local base URL is always set.
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return voiceerr.ConfigError(voiceerr.ErrMissingCredential)
		}
	case "claude":
		if c.LLM.AnthropicAPIKey == "" {
			return voiceerr.ConfigError(voiceerr.ErrMissingCredential)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return voiceerr.ConfigError(voiceerr.ErrMissingCredential)
		}
	default:
		return voiceerr.ConfigError(voiceerr.ErrUnknownProvider)
	}
	return nil
}

// SilenceDuration returns TurnDetection.SilenceMS as a time.Duration.
func (t TurnDetection) SilenceDuration() time.Duration {
	return time.Duration(t.SilenceMS) * time.Millisecond
}

// MinSpeechDuration returns TurnDetection.MinSpeechMS as a time.Duration.
func (t TurnDetection) MinSpeechDuration() time.Duration {
	return time.Duration(t.MinSpeechMS) * time.Millisecond
}

// PrefixPaddingDuration returns TurnDetection.PrefixPaddingMS as a time.Duration.
func (t TurnDetection) PrefixPaddingDuration() time.Duration {
	return time.Duration(t.PrefixPaddingMS) * time.Millisecond
}

// InterruptThresholdDuration returns TurnDetection.InterruptThreshold as a time.Duration.
func (t TurnDetection) InterruptThresholdDuration() time.Duration {
	return time.Duration(t.InterruptThreshold) * time.Millisecond
}
