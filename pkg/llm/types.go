// Package llm provides a uniform chat-completion interface over four
// backends (Ollama, OpenAI-compatible, Anthropic, Gemini), each
// normalizing the shared message list into its own wire format.
package llm

import "context"

// Message is one turn in the dialogue history, role one of
// "system", "user", "assistant".
type Message struct {
	Role    string
	Content string
}

// Usage reports token accounting, when the backend provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the result of a completed chat call.
type Response struct {
	Content string
	Model   string
	Usage   *Usage
}

// Options carries the optional sampling parameters a caller may set; nil
// fields are omitted from the request payload rather than sent with a
// zero value, except where a backend requires a token limit: Anthropic's
// max_tokens and Gemini's maxOutputTokens default to 4096 when MaxTokens
// is nil.
type Options struct {
	Temperature *float64
	MaxTokens   *int
}

// Provider is the uniform interface every backend implements.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts Options) (Response, error)
	Name() string
}
