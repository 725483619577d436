package repository

import (
	"context"

	"github.com/google/uuid"

	"apidoc-digester/internal/domain/model"
)

// DocumentSource provides read-only access to stored documents. The engine
// never writes documents; ownership stays with the caller.
type DocumentSource interface {
	// ListDocuments returns every document in the given scope (a session id).
	ListDocuments(ctx context.Context, scope uuid.UUID) ([]model.Document, error)

	// GetDocument returns one document or domain.ErrNotFound.
	GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error)
}
