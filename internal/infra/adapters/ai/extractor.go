package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/infra/metrics"
)

var (
	_ adapter.ExtractionAdapter = (*Extractor)(nil)
	_ adapter.RankAdapter       = (*Extractor)(nil)
)

// Extractor implements the structured-extraction and ranking capabilities on
// top of any ChatModel. One Chat call per method; the response goes through
// the normalization boundary before it leaves this package.
type Extractor struct {
	chat  adapter.ChatModel
	model string
	log   *zerolog.Logger
}

func NewExtractor(chat adapter.ChatModel, model string, log *zerolog.Logger) *Extractor {
	return &Extractor{chat: chat, model: model, log: log}
}

func (e *Extractor) ExtractObjectClasses(ctx context.Context, chunk string, ec adapter.ExtractionContext) ([]model.ObjectClass, error) {
	system, user := objectClassPrompt(chunk, ec)
	return callList[model.ObjectClass](ctx, e, "object_class", system, user)
}

func (e *Extractor) ExtractAttributes(ctx context.Context, chunk string, ec adapter.ExtractionContext) ([]model.Attribute, error) {
	system, user := attributePrompt(chunk, ec)
	return callList[model.Attribute](ctx, e, "attribute", system, user)
}

func (e *Extractor) ExtractEndpoints(ctx context.Context, chunk string, ec adapter.ExtractionContext) ([]model.Endpoint, error) {
	system, user := endpointPrompt(chunk, ec)
	return callList[model.Endpoint](ctx, e, "endpoint", system, user)
}

func (e *Extractor) ExtractAuthMethods(ctx context.Context, chunk string, ec adapter.ExtractionContext) ([]model.AuthMethod, error) {
	system, user := authMethodPrompt(chunk, ec)
	return callList[model.AuthMethod](ctx, e, "auth_method", system, user)
}

func (e *Extractor) ExtractRelations(ctx context.Context, text string, ec adapter.ExtractionContext) ([]model.Relation, error) {
	system, user := relationPrompt(text, ec)
	return callList[model.Relation](ctx, e, "relation", system, user)
}

func (e *Extractor) VerifyEndpointParams(ctx context.Context, ep model.Endpoint, snippet string, ec adapter.ExtractionContext) (*model.Endpoint, error) {
	system, user := verifyEndpointPrompt(ep, snippet, ec)
	raw, err := e.call(ctx, "endpoint_verify", system, user)
	return normalizeObject[model.Endpoint]("endpoint_verify", raw, err)
}

func (e *Extractor) AggregateInfo(ctx context.Context, chunk string, aggregate model.InfoMetadata, ec adapter.ExtractionContext) (*model.InfoMetadata, error) {
	system, user := infoPrompt(chunk, aggregate, ec)
	raw, err := e.call(ctx, "info_metadata", system, user)
	return normalizeObject[model.InfoMetadata]("info_metadata", raw, err)
}

func (e *Extractor) RankAuthMethods(ctx context.Context, methods []model.AuthMethod) ([]model.AuthMethod, error) {
	system, user := rankAuthPrompt(methods)
	return callList[model.AuthMethod](ctx, e, "auth_rank", system, user)
}

func (e *Extractor) ClassifyObjectClasses(ctx context.Context, classes []model.ObjectClass) ([]model.ClassRelevancy, error) {
	system, user := classifyClassesPrompt(classes)
	return callList[model.ClassRelevancy](ctx, e, "class_relevancy", system, user)
}

func (e *Extractor) RankObjectClasses(ctx context.Context, classes []model.ObjectClass) ([]model.ObjectClass, error) {
	system, user := rankClassesPrompt(classes)
	return callList[model.ObjectClass](ctx, e, "class_rank", system, user)
}

func (e *Extractor) ResolveAttributeDuplicates(ctx context.Context, objectClass string, candidates map[string][]model.Attribute) (map[string]model.Attribute, error) {
	system, user := resolveAttributesPrompt(objectClass, candidates)
	chosen, err := callList[model.Attribute](ctx, e, "attribute_resolve", system, user)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Attribute, len(chosen))
	for _, a := range chosen {
		out[strings.ToLower(strings.TrimSpace(a.Name))] = a
	}
	return out, nil
}

func (e *Extractor) call(ctx context.Context, entity, system, user string) (string, error) {
	start := time.Now()
	raw, err := e.chat.Chat(ctx, e.model, []adapter.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	metrics.ObserveExtractionLatency(entity, float64(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		e.log.Warn().Err(err).Str("entity", entity).Msg("extraction call failed")
	}
	return raw, err
}

func callList[T any](ctx context.Context, e *Extractor, entity, system, user string) ([]T, error) {
	raw, err := e.call(ctx, entity, system, user)
	return normalizeList[T](entity, raw, err)
}
