package model

import "github.com/google/uuid"

// Document is an immutable piece of source text owned by the caller. The
// engine only ever reads it.
type Document struct {
	ID       uuid.UUID
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata carries optional hints produced upstream (summaries and
// tags from the scraper). Passed through to extraction calls verbatim.
type DocumentMetadata struct {
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Chunk is a token-bounded slice of a document. Chunks are derived, never
// persisted; (documentID, index) is the provenance address.
type Chunk struct {
	Text       string
	TokenCount int
}

// ChunkRef identifies the origin of extracted data. ChunkIndex is -1 for
// extractors that only track document-level provenance.
type ChunkRef struct {
	DocID      uuid.UUID `json:"docUuid"`
	ChunkIndex int       `json:"chunkIndex,omitempty"`
}

// DocRef is document-level provenance, used where chunk indexes are not
// meaningful (object classes, endpoints).
type DocRef struct {
	DocID uuid.UUID `json:"docUuid"`
}
