package docfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"apidoc-digester/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestListDocuments(t *testing.T) {
	root := t.TempDir()
	session := uuid.New()
	dir := filepath.Join(root, session.String())

	writeFile(t, filepath.Join(dir, "users.md"), "# Users API")
	writeFile(t, filepath.Join(dir, "groups.txt"), "Groups doc")
	writeFile(t, filepath.Join(dir, "groups.meta.json"), `{"summary":"group endpoints","tags":["groups"]}`)
	writeFile(t, filepath.Join(dir, "ignore.pdf"), "binary")

	src := NewSource(root)
	docs, err := src.ListDocuments(context.Background(), session)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	var foundMeta bool
	for _, d := range docs {
		if d.Metadata.Summary == "group endpoints" {
			foundMeta = true
			if len(d.Metadata.Tags) != 1 || d.Metadata.Tags[0] != "groups" {
				t.Errorf("tags not loaded: %+v", d.Metadata)
			}
			if d.Content != "Groups doc" {
				t.Errorf("content mismatch: %q", d.Content)
			}
		}
	}
	if !foundMeta {
		t.Error("sidecar metadata not attached")
	}
}

func TestListDocuments_UnknownSessionIsEmpty(t *testing.T) {
	src := NewSource(t.TempDir())
	docs, err := src.ListDocuments(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %d", len(docs))
	}
}

func TestDocumentIDsAreStable(t *testing.T) {
	root := t.TempDir()
	session := uuid.New()
	writeFile(t, filepath.Join(root, session.String(), "api.md"), "doc")

	src := NewSource(root)
	first, err := src.ListDocuments(context.Background(), session)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	second, err := NewSource(root).ListDocuments(context.Background(), session)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Errorf("document id changed between reads: %s vs %s", first[0].ID, second[0].ID)
	}
}

func TestGetDocument(t *testing.T) {
	root := t.TempDir()
	session := uuid.New()
	writeFile(t, filepath.Join(root, session.String(), "api.md"), "doc body")

	src := NewSource(root)
	docs, err := src.ListDocuments(context.Background(), session)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}

	got, err := src.GetDocument(context.Background(), docs[0].ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Content != "doc body" {
		t.Errorf("content = %q", got.Content)
	}

	if _, err := src.GetDocument(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
