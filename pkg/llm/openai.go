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

// OpenAI talks to the OpenAI chat-completions API, or any OpenAI-compatible
// endpoint when baseURL is overridden.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider. model defaults to gpt-4o-mini and
// baseURL to the public OpenAI API when empty.
func NewOpenAI(apiKey, model, baseURL string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *OpenAI) Chat(ctx context.Context, messages []Message, opts Options) (Response, error) {
	wire := make([]openAIMessage, len(messages))
	for i, m := range messages {
		wire[i] = openAIMessage{Role: m.Role, Content: m.Content}
	}

	payload := map[string]interface{}{
		"model":    p.model,
		"messages": wire,
	}
	if opts.Temperature != nil {
		payload["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		payload["max_tokens"] = *opts.MaxTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return Response{}, voiceerr.LLMRequestError(fmt.Errorf("openai error (status %d): %v", resp.StatusCode, errBody))
	}

	var result struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}
	if len(result.Choices) == 0 {
		return Response{}, voiceerr.LLMRequestError(fmt.Errorf("no choices returned from openai"))
	}

	model := result.Model
	if model == "" {
		model = p.model
	}

	var usage *Usage
	if result.Usage.TotalTokens > 0 {
		usage = &Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		}
	}

	return Response{Content: result.Choices[0].Message.Content, Model: model, Usage: usage}, nil
}

func (p *OpenAI) Name() string { return "openai-llm" }
