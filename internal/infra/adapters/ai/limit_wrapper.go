package ai

import (
	"context"

	"golang.org/x/time/rate"

	"apidoc-digester/internal/domain/ports/adapter"
)

var _ adapter.ChatModel = (*limitedChat)(nil)

// limitedChat throttles calls to the backing model with a token bucket so a
// wide chunk fan-out cannot exceed the provider's rate limits.
type limitedChat struct {
	inner   adapter.ChatModel
	limiter *rate.Limiter
}

func NewLimitedChatModel(inner adapter.ChatModel, perSecond float64, burst int) adapter.ChatModel {
	if perSecond <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	return &limitedChat{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (l *limitedChat) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.inner.Chat(ctx, model, messages)
}
