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

// Gemini talks to the Google Generative Language API. System messages are
// concatenated into a separate systemInstruction field and excluded from
// contents — unlike naively collapsing "system" into "user", this matches
// what the Gemini API actually expects.
type Gemini struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewGemini creates a Gemini provider. model defaults to gemini-1.5-flash
// when empty.
func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Gemini{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiContent struct {
	Role  string `json:"role"`
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

func (p *Gemini) Chat(ctx context.Context, messages []Message, opts Options) (Response, error) {
	var systemParts []string
	var contents []geminiContent

	for _, m := range messages {
		if m.Role == "system" {
			systemParts = append(systemParts, m.Content)
			continue
		}
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		c := geminiContent{Role: role}
		c.Parts = append(c.Parts, struct {
			Text string `json:"text"`
		}{Text: m.Content})
		contents = append(contents, c)
	}

	maxTokens := 4096
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}

	generationConfig := map[string]interface{}{
		"maxOutputTokens": maxTokens,
	}
	if opts.Temperature != nil {
		generationConfig["temperature"] = *opts.Temperature
	}

	payload := map[string]interface{}{
		"contents":         contents,
		"generationConfig": generationConfig,
	}
	if len(systemParts) > 0 {
		payload["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]string{{"text": strings.Join(systemParts, "\n")}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
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
		return Response{}, voiceerr.LLMRequestError(fmt.Errorf("gemini error (status %d): %v", resp.StatusCode, errBody))
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Response{}, voiceerr.LLMRequestError(err)
	}

	var content string
	if len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
		content = result.Candidates[0].Content.Parts[0].Text
	}

	var usage *Usage
	if result.UsageMetadata.TotalTokenCount > 0 {
		usage = &Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		}
	}

	return Response{
		Content: content,
		Model:   p.model,
		Usage:   usage,
	}, nil
}

func (p *Gemini) Name() string { return "gemini-llm" }
