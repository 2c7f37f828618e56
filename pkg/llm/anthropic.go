package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/talkloop/voiceagent/pkg/voiceerr"
)

// Anthropic talks to Claude's messages API. System messages are
// concatenated (newline-joined) into the request's top-level "system"
// field rather than sent inline, per Claude's wire format.
type Anthropic struct {
	apiKey string
	url    string
	model  string
	client *http.Client
}

// NewAnthropic creates an Anthropic provider. model defaults to
// claude-sonnet-4-20250514 when empty.
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Anthropic{
		apiKey: apiKey,
		url:    "https://api.anthropic.com/v1/messages",
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Anthropic) Chat(ctx context.Context, messages []Message, opts Options) (Response, error) {
	var systemParts []string
	var chatMessages []map[string]string

	for _, m := range messages {
		if m.Role == "system" {
			systemParts = append(systemParts, m.Content)
			continue
		}
		chatMessages = append(chatMessages, map[string]string{"role": m.Role, "content": m.Content})
	}

	maxTokens := 4096
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}

	payload := map[string]interface{}{
		"model":      p.model,
		"max_tokens": maxTokens,
		"messages":   chatMessages,
	}
	if len(systemParts) > 0 {
		payload["system"] = strings.Join(systemParts, "\n")
	}
	if opts.Temperature != nil {
		payload["temperature"] = *opts.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return Response{}, voiceerr.LLMRequestError(fmt.Errorf("anthropic error (status %d): %v", resp.StatusCode, errBody))
	}

	var result struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}

	var content strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	model := result.Model
	if model == "" {
		model = p.model
	}

	var usage *Usage
	if result.Usage.InputTokens > 0 || result.Usage.OutputTokens > 0 {
		usage = &Usage{
			PromptTokens:     result.Usage.InputTokens,
			CompletionTokens: result.Usage.OutputTokens,
			TotalTokens:      result.Usage.InputTokens + result.Usage.OutputTokens,
		}
	}

	return Response{Content: content.String(), Model: model, Usage: usage}, nil
}

func (p *Anthropic) Name() string { return "anthropic-llm" }
