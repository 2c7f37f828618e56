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

// Ollama talks to a local Ollama server's /api/chat endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama provider. baseURL defaults to
// http://localhost:11434 and model to llama3.2:3b when empty.
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2:3b"
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *Ollama) Chat(ctx context.Context, messages []Message, opts Options) (Response, error) {
	wire := make([]ollamaMessage, len(messages))
	for i, m := range messages {
		wire[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}

	payload := map[string]interface{}{
		"model":    p.model,
		"messages": wire,
		"stream":   false,
	}

	options := map[string]interface{}{}
	if opts.Temperature != nil {
		options["temperature"] = *opts.Temperature
	}
	if opts.MaxTokens != nil {
		options["num_predict"] = *opts.MaxTokens
	}
	if len(options) > 0 {
		payload["options"] = options
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return Response{}, voiceerr.LLMRequestError(fmt.Errorf("ollama error (status %d): %v", resp.StatusCode, errBody))
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		PromptEvalCount int `json:"prompt_eval_count"`
		EvalCount       int `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}

	var usage *Usage
	if result.EvalCount > 0 {
		usage = &Usage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		}
	}

	return Response{Content: result.Message.Content, Model: p.model, Usage: usage}, nil
}

func (p *Ollama) Name() string { return "ollama-llm" }
