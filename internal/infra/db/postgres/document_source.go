package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/repository"
)

var _ repository.DocumentSource = (*documentSource)(nil)

// documentSource reads stored documents; the engine never writes them.
type documentSource struct {
	pool *pgxpool.Pool
}

func NewDocumentSource(pool *pgxpool.Pool) *documentSource {
	return &documentSource{pool: pool}
}

func (r *documentSource) ListDocuments(ctx context.Context, scope uuid.UUID) ([]model.Document, error) {
	const q = `
SELECT id, content, summary, tags
FROM documents
WHERE session_id = $1
ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, nil, q, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return docs, nil
}

func (r *documentSource) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	const q = `SELECT id, content, summary, tags FROM documents WHERE id = $1;`
	row, err := pickRow(ctx, r.pool, nil, q, id)
	if err != nil {
		return nil, err
	}
	return scanDocument(row)
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var (
		doc     model.Document
		summary *string
		tags    []string
	)
	if err := row.Scan(&doc.ID, &doc.Content, &summary, &tags); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if summary != nil {
		doc.Metadata.Summary = *summary
	}
	doc.Metadata.Tags = tags
	return &doc, nil
}
