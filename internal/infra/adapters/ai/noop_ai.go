package ai

import (
	"context"
	"errors"

	"apidoc-digester/internal/domain/ports/adapter"
)

// ErrNoProvider is returned when no chat model provider is configured.
var ErrNoProvider = errors.New("no chat model provider configured")

var _ adapter.ChatModel = (*NoopChatModel)(nil)

// NoopChatModel answers every call with an empty JSON array. Used in dev
// setups without provider credentials.
type NoopChatModel struct{}

func (NoopChatModel) Chat(context.Context, string, []adapter.Message) (string, error) {
	return "[]", nil
}
