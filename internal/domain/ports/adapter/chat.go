package adapter

import "context"

// Message is one turn of a model conversation.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// ChatModel is the raw text-in/text-out capability behind the extraction and
// ranking adapters. Implementations exist for OpenAI and Gemini, plus
// rate-limited and fallback decorators.
type ChatModel interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}
