package digest

import (
	"context"
	"fmt"

	"apidoc-digester/internal/chunk"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/extract"
	"apidoc-digester/internal/infra/logging"
	"apidoc-digester/internal/infra/metrics"
	"apidoc-digester/internal/merge"
)

// runObjectClasses discovers the object classes described across all of a
// session's documents. Provenance is tracked per document; the optional
// remote relevancy filter and importance sort degrade to keep-all and
// alphabetical order when the ranking capability fails.
func (s *Service) runObjectClasses(ctx context.Context, job *model.Job) (map[string]any, error) {
	defer logging.TraceDuration(s.log, "digest.objectClasses")()
	_, docs, err := s.loadDocuments(ctx, job)
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageProcessingChunks, "")
	results, err := extract.RunOverDocuments(ctx, s.orch, job.ID, docs, func(ctx context.Context, doc model.Document) ([]model.ObjectClass, []model.ChunkRef, error) {
		chunks, err := s.splitDoc(doc)
		if err != nil {
			return nil, nil, err
		}
		ec := adapter.ExtractionContext{Summary: doc.Metadata.Summary, Tags: doc.Metadata.Tags}
		candidates, relevant := extract.RunChunks(ctx, s.orch, job.ID, doc, chunks, func(ctx context.Context, doc model.Document, _ int, c model.Chunk) ([]model.ObjectClass, error) {
			got, err := s.ext.ExtractObjectClasses(ctx, c.Text, ec)
			if err != nil {
				return nil, err
			}
			kept := keepMentionedClasses(c.Text, got)
			for i := range kept {
				kept[i].RelevantChunks = []model.DocRef{{DocID: doc.ID}}
			}
			return kept, nil
		})
		return candidates, relevant, nil
	})
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageMerging, "")
	var candidates []model.ObjectClass
	var relevant []model.ChunkRef
	for _, r := range results {
		candidates = append(candidates, r.Candidates...)
		relevant = append(relevant, r.Relevant...)
	}
	merged := merge.ObjectClasses(candidates)

	if s.cfg.FilterRelevancy && len(merged) > 0 {
		s.setStage(ctx, job.ID, model.StageRelevancyFiltering, "")
		levels, cerr := s.rank.ClassifyObjectClasses(ctx, merged)
		if cerr != nil {
			s.absorb(ctx, job.ID, fmt.Sprintf("relevancy classification failed, keeping all classes: %v", cerr))
		} else {
			merged = merge.FilterClassesByRelevancy(merged, levels, model.RelevancyLevel(s.cfg.MinRelevancy))
		}
	}

	if len(merged) > 1 {
		s.setStage(ctx, job.ID, model.StageSorting, "")
		ranked, rerr := s.rank.RankObjectClasses(ctx, merged)
		if rerr != nil {
			s.absorb(ctx, job.ID, fmt.Sprintf("importance ranking failed, sorting alphabetically: %v", rerr))
			merged = merge.SortClassesByName(merged)
		} else {
			merged = merge.RankObjectClasses(merged, ranked)
		}
		s.setStage(ctx, job.ID, model.StageSortingFinished, "")
	}

	s.setStage(ctx, job.ID, model.StageFinished, "")
	return shapeResult(merged, docRefs(relevant)), nil
}

func (s *Service) splitDoc(doc model.Document) ([]model.Chunk, error) {
	chunks, err := chunk.Split(doc.Content, s.cfg.Chunking.MaxTokens, s.cfg.Chunking.OverlapRatio, s.cfg.Chunking.Encoding)
	if err != nil {
		return nil, err
	}
	metrics.AddChunksProduced(len(chunks))
	return chunks, nil
}

// docRefs collapses chunk-level provenance to unique document references.
func docRefs(refs []model.ChunkRef) []model.DocRef {
	seen := make(map[string]bool, len(refs))
	var out []model.DocRef
	for _, r := range refs {
		key := r.DocID.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, model.DocRef{DocID: r.DocID})
		}
	}
	return out
}
