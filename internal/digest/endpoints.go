package digest

import (
	"context"
	"fmt"
	"strings"

	"apidoc-digester/internal/chunk"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/extract"
	"apidoc-digester/internal/infra/logging"
	"apidoc-digester/internal/merge"
)

// Token window around an endpoint path when building its verification
// snippet: little context is needed before the path, a lot after it, where
// parameters and response shapes are usually documented.
const (
	verifyTokensBefore = 150
	verifyTokensAfter  = 1000
)

// runEndpoints extracts the HTTP endpoints of one object class, then
// re-checks each merged endpoint against a narrow context window around its
// path. Verification failures keep the unverified endpoint.
func (s *Service) runEndpoints(ctx context.Context, job *model.Job) (map[string]any, error) {
	defer logging.TraceDuration(s.log, "digest.endpoints")()
	in, docs, err := s.loadDocuments(ctx, job)
	if err != nil {
		return nil, err
	}
	ec := adapter.ExtractionContext{ObjectClass: in.ObjectClass, BaseAPIURL: in.BaseAPIURL}

	s.setStage(ctx, job.ID, model.StageProcessingChunks, "")
	results, err := extract.RunOverDocuments(ctx, s.orch, job.ID, docs, func(ctx context.Context, doc model.Document) ([]model.Endpoint, []model.ChunkRef, error) {
		chunks, err := s.splitDoc(doc)
		if err != nil {
			return nil, nil, err
		}
		docEC := ec
		docEC.Summary = doc.Metadata.Summary
		docEC.Tags = doc.Metadata.Tags
		candidates, relevant := extract.RunChunks(ctx, s.orch, job.ID, doc, chunks, func(ctx context.Context, _ model.Document, _ int, c model.Chunk) ([]model.Endpoint, error) {
			got, err := s.ext.ExtractEndpoints(ctx, c.Text, docEC)
			if err != nil {
				return nil, err
			}
			return keepMentionedEndpoints(c.Text, got), nil
		})
		return candidates, relevant, nil
	})
	if err != nil {
		return nil, err
	}

	s.setStage(ctx, job.ID, model.StageMerging, "")
	var candidates []model.Endpoint
	var relevant []model.ChunkRef
	var contents []string
	for _, r := range results {
		candidates = append(candidates, r.Candidates...)
		relevant = append(relevant, r.Relevant...)
	}
	for _, d := range docs {
		contents = append(contents, d.Content)
	}
	merged := merge.Endpoints(candidates)

	merged = s.verifyEndpoints(ctx, job.ID, merged, strings.Join(contents, "\n\n"), ec)

	s.setStage(ctx, job.ID, model.StageFinished, "")
	return shapeResult(merged, docRefs(relevant)), nil
}

// verifyEndpoints runs the per-endpoint verification pass. Every failure is
// non-fatal; the pre-verification endpoint survives it.
func (s *Service) verifyEndpoints(ctx context.Context, jobID string, merged []model.Endpoint, corpus string, ec adapter.ExtractionContext) []model.Endpoint {
	for i, ep := range merged {
		snippet, err := chunk.NeighboringContext(ep.Path, corpus, verifyTokensBefore, verifyTokensAfter, s.cfg.Chunking.Encoding)
		if err != nil || snippet == "" {
			continue
		}
		verified, verr := s.ext.VerifyEndpointParams(ctx, ep, snippet, ec)
		if verr != nil {
			s.absorb(ctx, jobID, fmt.Sprintf("endpoint verification failed for %s %s: %v", ep.Method, ep.Path, verr))
			continue
		}
		if verified == nil || strings.TrimSpace(verified.Path) == "" {
			continue
		}
		merged[i] = *verified
	}
	// verification may rewrite paths or methods; restore the canonical order
	return merge.Endpoints(merged)
}
