package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/repository"
	"apidoc-digester/internal/infra/metrics"
	"apidoc-digester/internal/infra/security"
)

var _ repository.DocumentSource = (*CachedDocumentSource)(nil)

// CachedDocumentSource caches single-document reads in front of a slower
// DocumentSource. Documents are immutable once stored, so entries never need
// invalidation, only expiry. List reads always go to the backing source.
// With a non-nil encryption service, entries are encrypted at rest.
type CachedDocumentSource struct {
	inner  repository.DocumentSource
	client RedisClient
	ttl    time.Duration
	enc    *security.EncryptionService
	log    *zerolog.Logger
}

func NewCachedDocumentSource(inner repository.DocumentSource, client RedisClient, ttl time.Duration, enc *security.EncryptionService, log *zerolog.Logger) *CachedDocumentSource {
	return &CachedDocumentSource{inner: inner, client: client, ttl: ttl, enc: enc, log: log}
}

func (c *CachedDocumentSource) ListDocuments(ctx context.Context, scope uuid.UUID) ([]model.Document, error) {
	return c.inner.ListDocuments(ctx, scope)
}

func (c *CachedDocumentSource) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	key := "document:" + id.String()
	if data, err := c.client.Get(ctx, key); err == nil {
		if doc, derr := c.decode(data); derr == nil {
			metrics.IncDocumentCache("hit")
			return doc, nil
		}
		// corrupt or unreadable entry, drop it and fall through
		_ = c.client.Del(ctx, key)
	} else if !IsCacheMiss(err) {
		c.log.Warn().Err(err).Str("key", key).Msg("document cache read failed")
	}
	metrics.IncDocumentCache("miss")

	doc, err := c.inner.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, merr := c.encode(doc); merr == nil {
		if serr := c.client.Set(ctx, key, data, c.ttl); serr != nil {
			c.log.Warn().Err(serr).Str("key", key).Msg("document cache write failed")
		}
	}
	return doc, nil
}

func (c *CachedDocumentSource) encode(doc *model.Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	if c.enc == nil {
		return string(data), nil
	}
	return c.enc.Encrypt(string(data))
}

func (c *CachedDocumentSource) decode(data string) (*model.Document, error) {
	if c.enc != nil {
		plain, err := c.enc.Decrypt(data)
		if err != nil {
			return nil, err
		}
		data = plain
	}
	var doc model.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
