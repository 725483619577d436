package digest

import (
	"context"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/extract"
	"apidoc-digester/internal/infra/logging"
	"apidoc-digester/internal/merge"
)

// runAttributes extracts the attributes of one object class. Conflicting
// candidates for the same attribute name go to the remote disambiguation
// call; provenance is tracked per (document, chunk).
func (s *Service) runAttributes(ctx context.Context, job *model.Job) (map[string]any, error) {
	defer logging.TraceDuration(s.log, "digest.attributes")()
	in, docs, err := s.loadDocuments(ctx, job)
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageProcessingChunks, "")
	results, err := extract.RunOverDocuments(ctx, s.orch, job.ID, docs, func(ctx context.Context, doc model.Document) ([]model.Attribute, []model.ChunkRef, error) {
		chunks, err := s.splitDoc(doc)
		if err != nil {
			return nil, nil, err
		}
		ec := adapter.ExtractionContext{
			Summary:     doc.Metadata.Summary,
			Tags:        doc.Metadata.Tags,
			ObjectClass: in.ObjectClass,
		}
		candidates, relevant := extract.RunChunks(ctx, s.orch, job.ID, doc, chunks, func(ctx context.Context, _ model.Document, _ int, c model.Chunk) ([]model.Attribute, error) {
			return s.ext.ExtractAttributes(ctx, c.Text, ec)
		})
		return candidates, relevant, nil
	})
	if err != nil {
		return nil, err
	}

	var candidates []model.Attribute
	var relevant []model.ChunkRef
	for _, r := range results {
		candidates = append(candidates, r.Candidates...)
		relevant = append(relevant, r.Relevant...)
	}

	s.setStage(ctx, job.ID, model.StageResolvingDups, "")
	merged := merge.Attributes(ctx, in.ObjectClass, candidates, s.rank.ResolveAttributeDuplicates)

	s.setStage(ctx, job.ID, model.StageFinished, "")
	return shapeResult(merged, relevant), nil
}
