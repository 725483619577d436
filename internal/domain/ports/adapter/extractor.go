package adapter

import (
	"context"

	"apidoc-digester/internal/domain/model"
)

// ExtractionContext carries the non-chunk inputs of an extraction call:
// document metadata hints plus the entity-specific framing (owner class for
// attribute/endpoint extraction, the relevant class list for relations).
type ExtractionContext struct {
	Summary     string
	Tags        []string
	ObjectClass string
	BaseAPIURL  string
	Classes     []ClassHint
}

// ClassHint names a previously extracted object class for relation extraction.
type ClassHint struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ExtractionAdapter is the external structured-extraction capability. One
// call covers exactly one chunk. Calls must be safe to retry: a retried call
// may return a different but still valid candidate set. Implementations
// normalize whatever the backing model returns (typed, mapping, raw text)
// before these methods return, so callers only ever see typed candidates or
// an error.
type ExtractionAdapter interface {
	ExtractObjectClasses(ctx context.Context, chunk string, ec ExtractionContext) ([]model.ObjectClass, error)
	ExtractAttributes(ctx context.Context, chunk string, ec ExtractionContext) ([]model.Attribute, error)
	ExtractEndpoints(ctx context.Context, chunk string, ec ExtractionContext) ([]model.Endpoint, error)
	ExtractAuthMethods(ctx context.Context, chunk string, ec ExtractionContext) ([]model.AuthMethod, error)
	ExtractRelations(ctx context.Context, text string, ec ExtractionContext) ([]model.Relation, error)

	// VerifyEndpointParams re-checks a single extracted endpoint against a
	// narrow context snippet around its path and returns corrected fields.
	VerifyEndpointParams(ctx context.Context, ep model.Endpoint, snippet string, ec ExtractionContext) (*model.Endpoint, error)

	// AggregateInfo folds one more chunk into the running product/API
	// metadata aggregate. Unlike the Extract methods this one is stateful
	// across calls: the caller passes the previous aggregate forward and
	// replaces it with the returned one.
	AggregateInfo(ctx context.Context, chunk string, aggregate model.InfoMetadata, ec ExtractionContext) (*model.InfoMetadata, error)
}

// RankAdapter is the remote rerank/disambiguate/classify capability used by
// the merge policies. Every method may fail or return a partial set; callers
// validate returned items against their inputs and fall back per policy.
type RankAdapter interface {
	RankAuthMethods(ctx context.Context, methods []model.AuthMethod) ([]model.AuthMethod, error)
	ClassifyObjectClasses(ctx context.Context, classes []model.ObjectClass) ([]model.ClassRelevancy, error)
	RankObjectClasses(ctx context.Context, classes []model.ObjectClass) ([]model.ObjectClass, error)
	ResolveAttributeDuplicates(ctx context.Context, objectClass string, candidates map[string][]model.Attribute) (map[string]model.Attribute, error)
}
