package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaOmitsOptionsBlockWhenNoOverrides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		if _, present := req["options"]; present {
			t.Errorf("expected no options block when neither temperature nor max tokens set, got %v", req["options"])
		}
		if req["stream"] != false {
			t.Errorf("expected stream=false, got %v", req["stream"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"content": "hi"},
		})
	}))
	defer server.Close()

	p := NewOllama(server.URL, "llama3.2:3b")
	resp, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hi" {
		t.Errorf("expected content 'hi', got %q", resp.Content)
	}
	if resp.Usage != nil {
		t.Errorf("expected no usage when eval_count absent, got %+v", resp.Usage)
	}
}

func TestOllamaIncludesOptionsWhenOverridesSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		json.NewDecoder(r.Body).Decode(&req)
		opts, ok := req["options"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected options block, got %v", req["options"])
		}
		if opts["temperature"] != 0.5 {
			t.Errorf("expected temperature 0.5, got %v", opts["temperature"])
		}
		if opts["num_predict"] != float64(128) {
			t.Errorf("expected num_predict 128, got %v", opts["num_predict"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":           map[string]string{"content": "hi"},
			"prompt_eval_count": 7,
			"eval_count":        3,
		})
	}))
	defer server.Close()

	temp := 0.5
	maxTokens := 128
	p := NewOllama(server.URL, "")
	resp, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 10 {
		t.Errorf("expected usage totals from prompt+eval counts, got %+v", resp.Usage)
	}
}

func TestOllamaNon200IsLLMRequestError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewOllama(server.URL, "")
	_, err := p.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}
