package digest

import (
	"context"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/extract"
	"apidoc-digester/internal/infra/logging"
	"apidoc-digester/internal/merge"
)

// runRelations finds references between the session's known object classes.
// The class list comes from a previous object class digest and travels in
// the job input.
func (s *Service) runRelations(ctx context.Context, job *model.Job) (map[string]any, error) {
	defer logging.TraceDuration(s.log, "digest.relations")()
	in, docs, err := s.loadDocuments(ctx, job)
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageProcessingChunks, "")
	results, err := extract.RunOverDocuments(ctx, s.orch, job.ID, docs, func(ctx context.Context, doc model.Document) ([]model.Relation, []model.ChunkRef, error) {
		chunks, err := s.splitDoc(doc)
		if err != nil {
			return nil, nil, err
		}
		ec := adapter.ExtractionContext{
			Summary: doc.Metadata.Summary,
			Tags:    doc.Metadata.Tags,
			Classes: in.Classes,
		}
		candidates, relevant := extract.RunChunks(ctx, s.orch, job.ID, doc, chunks, func(ctx context.Context, _ model.Document, _ int, c model.Chunk) ([]model.Relation, error) {
			return s.ext.ExtractRelations(ctx, c.Text, ec)
		})
		return candidates, relevant, nil
	})
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageMerging, "")
	var candidates []model.Relation
	var relevant []model.ChunkRef
	for _, r := range results {
		candidates = append(candidates, r.Candidates...)
		relevant = append(relevant, r.Relevant...)
	}
	merged := merge.Relations(candidates)

	s.setStage(ctx, job.ID, model.StageFinished, "")
	return shapeResult(merged, docRefs(relevant)), nil
}
