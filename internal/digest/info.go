package digest

import (
	"context"
	"fmt"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/infra/logging"
	"apidoc-digester/internal/merge"
)

// runInfo aggregates product-level API metadata across all of a session's
// documents. Unlike the other pipelines this one runs sequentially: every
// chunk sees the aggregate built so far and returns an updated one, so the
// orchestrator's fan-out does not apply. A failed chunk is absorbed and the
// aggregate carries on unchanged.
func (s *Service) runInfo(ctx context.Context, job *model.Job) (map[string]any, error) {
	defer logging.TraceDuration(s.log, "digest.info")()
	_, docs, err := s.loadDocuments(ctx, job)
	if err != nil {
		return nil, err
	}

	type docChunks struct {
		doc    model.Document
		chunks []model.Chunk
	}
	split := make([]docChunks, 0, len(docs))
	total := 0
	for _, doc := range docs {
		chunks, err := s.splitDoc(doc)
		if err != nil {
			return nil, err
		}
		split = append(split, docChunks{doc: doc, chunks: chunks})
		total += len(chunks)
	}

	s.setStage(ctx, job.ID, model.StageProcessingChunks, "")
	if perr := s.store.UpdateProgress(ctx, job.ID, model.ProgressUpdate{
		TotalUnits:     &total,
		CompletedUnits: model.IntPtr(0),
	}); perr != nil {
		s.log.Warn().Err(perr).Str("job_id", job.ID).Msg("failed to reset job progress")
	}

	var agg model.InfoMetadata
	var relevant []model.ChunkRef
	for _, dc := range split {
		ec := adapter.ExtractionContext{Summary: dc.doc.Metadata.Summary, Tags: dc.doc.Metadata.Tags}
		for i, c := range dc.chunks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			upd, aerr := s.ext.AggregateInfo(ctx, c.Text, agg, ec)
			if aerr != nil || upd == nil {
				s.absorb(ctx, job.ID, fmt.Sprintf("document %s chunk %d/%d: metadata aggregation failed: %v", dc.doc.ID, i+1, len(dc.chunks), aerr))
			} else {
				agg = *upd
				relevant = append(relevant, model.ChunkRef{DocID: dc.doc.ID, ChunkIndex: i})
			}
			if ierr := s.store.IncrementCompleted(ctx, job.ID, 1); ierr != nil {
				s.log.Warn().Err(ierr).Str("job_id", job.ID).Msg("failed to increment job progress")
			}
		}
	}

	s.setStage(ctx, job.ID, model.StageMerging, "")
	agg = merge.Info(agg)

	s.setStage(ctx, job.ID, model.StageFinished, "")
	return shapeResult(agg, relevant), nil
}
