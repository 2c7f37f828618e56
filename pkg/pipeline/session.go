package pipeline

import (
	"sync"

	"github.com/talkloop/voiceagent/pkg/llm"
)

const maxHistoryMessages = 20

// dialogueHistory is the bounded per-participant conversation context fed
// to the LLM on every turn. Length is capped at maxHistoryMessages; the
// oldest messages are dropped first.
type dialogueHistory struct {
	mu       sync.RWMutex
	messages []llm.Message
}

func newDialogueHistory() *dialogueHistory {
	return &dialogueHistory{}
}

func (h *dialogueHistory) add(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, llm.Message{Role: role, Content: content})
	if len(h.messages) > maxHistoryMessages {
		h.messages = h.messages[len(h.messages)-maxHistoryMessages:]
	}
}

func (h *dialogueHistory) snapshot() []llm.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *dialogueHistory) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}
