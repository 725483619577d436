package ai

import (
	"context"
	"strings"

	"apidoc-digester/internal/domain/ports/adapter"
)

var _ adapter.ChatModel = (*MultiChatModel)(nil)

// MultiChatModel routes each call to a provider picked from the model name
// ("gemini-*" to Gemini, "gpt-*" to OpenAI), falling back to the default
// provider for anything else.
type MultiChatModel struct {
	defaultProvider string
	byProvider      map[string]adapter.ChatModel
}

func NewMultiChatModel(defaultProvider string, byProvider map[string]adapter.ChatModel) *MultiChatModel {
	return &MultiChatModel{
		defaultProvider: strings.ToLower(defaultProvider),
		byProvider:      byProvider,
	}
}

func (m *MultiChatModel) resolveProvider(model string) string {
	l := strings.ToLower(model)
	switch {
	case strings.HasPrefix(l, "gemini"):
		return "gemini"
	case strings.HasPrefix(l, "gpt"):
		return "openai"
	default:
		return m.defaultProvider
	}
}

func (m *MultiChatModel) pick(model string) adapter.ChatModel {
	if a := m.byProvider[m.resolveProvider(model)]; a != nil {
		return a
	}
	// last resort: first available
	for _, a := range m.byProvider {
		if a != nil {
			return a
		}
	}
	return nil
}

func (m *MultiChatModel) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	a := m.pick(model)
	if a == nil {
		return "", ErrNoProvider
	}
	return a.Chat(ctx, model, messages)
}
