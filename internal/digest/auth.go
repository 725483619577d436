package digest

import (
	"context"
	"fmt"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/extract"
	"apidoc-digester/internal/infra/logging"
	"apidoc-digester/internal/merge"
)

// runAuthMethods extracts the authentication mechanisms of a session's
// documents and orders them by remote importance ranking, falling back to
// merge order when the ranking call fails or returns an inconsistent set.
func (s *Service) runAuthMethods(ctx context.Context, job *model.Job) (map[string]any, error) {
	defer logging.TraceDuration(s.log, "digest.authMethods")()
	_, docs, err := s.loadDocuments(ctx, job)
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageProcessingChunks, "")
	results, err := extract.RunOverDocuments(ctx, s.orch, job.ID, docs, func(ctx context.Context, doc model.Document) ([]model.AuthMethod, []model.ChunkRef, error) {
		chunks, err := s.splitDoc(doc)
		if err != nil {
			return nil, nil, err
		}
		ec := adapter.ExtractionContext{Summary: doc.Metadata.Summary, Tags: doc.Metadata.Tags}
		candidates, relevant := extract.RunChunks(ctx, s.orch, job.ID, doc, chunks, func(ctx context.Context, _ model.Document, _ int, c model.Chunk) ([]model.AuthMethod, error) {
			return s.ext.ExtractAuthMethods(ctx, c.Text, ec)
		})
		return candidates, relevant, nil
	})
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageMerging, "")
	var candidates []model.AuthMethod
	var relevant []model.ChunkRef
	for _, r := range results {
		candidates = append(candidates, r.Candidates...)
		relevant = append(relevant, r.Relevant...)
	}
	merged := merge.AuthMethods(candidates)

	if len(merged) > 1 {
		s.setStage(ctx, job.ID, model.StageSorting, "")
		ranked, rerr := s.rank.RankAuthMethods(ctx, merged)
		if rerr != nil {
			s.absorb(ctx, job.ID, fmt.Sprintf("auth method ranking failed, keeping merge order: %v", rerr))
		} else {
			merged = merge.RankAuthMethods(merged, ranked)
		}
		s.setStage(ctx, job.ID, model.StageSortingFinished, "")
	}

	s.setStage(ctx, job.ID, model.StageFinished, "")
	return shapeResult(merged, docRefs(relevant)), nil
}
