// Package docfs is a filesystem DocumentSource for the file jobs backend.
// Layout: <root>/<sessionID>/<name>.{md,txt,html} holds document content; an
// optional <name>.meta.json sidecar carries the summary and tags.
package docfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/repository"
)

const metaSuffix = ".meta.json"

var contentExtensions = map[string]bool{
	".md":   true,
	".txt":  true,
	".html": true,
}

type Source struct {
	root string
}

var _ repository.DocumentSource = (*Source)(nil)

func NewSource(root string) *Source {
	return &Source{root: root}
}

func (s *Source) ListDocuments(_ context.Context, scope uuid.UUID) ([]model.Document, error) {
	dir := filepath.Join(s.root, scope.String())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	var docs []model.Document
	for _, e := range entries {
		if e.IsDir() || !contentExtensions[filepath.Ext(e.Name())] {
			continue
		}
		doc, err := s.readDocument(dir, e.Name())
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID.String() < docs[j].ID.String() })
	return docs, nil
}

func (s *Source) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	sessions, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("read documents root: %w", err)
	}
	for _, sess := range sessions {
		if !sess.IsDir() {
			continue
		}
		scope, err := uuid.Parse(sess.Name())
		if err != nil {
			continue
		}
		docs, err := s.ListDocuments(ctx, scope)
		if err != nil {
			return nil, err
		}
		for i := range docs {
			if docs[i].ID == id {
				return &docs[i], nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Source) readDocument(dir, name string) (model.Document, error) {
	path := filepath.Join(dir, name)
	content, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read document %s: %w", name, err)
	}

	doc := model.Document{
		// stable across restarts: the id is a function of the path
		ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)),
		Content: string(content),
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	metaPath := filepath.Join(dir, base+metaSuffix)
	if raw, err := os.ReadFile(metaPath); err == nil {
		var meta model.DocumentMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return model.Document{}, fmt.Errorf("parse metadata %s: %w", base+metaSuffix, err)
		}
		doc.Metadata = meta
	}
	return doc, nil
}
