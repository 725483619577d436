// Package extract fans extraction work out across documents and chunks
// under bounded concurrency, collecting candidates plus relevance
// provenance and reporting incremental progress to the job store.
package extract

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/repository"
)

// ChunkExtractor invokes the extraction capability for one chunk of one
// document. Returned candidates are attributed to the chunk by the caller.
type ChunkExtractor[T any] func(ctx context.Context, doc model.Document, chunkIndex int, chunk model.Chunk) ([]T, error)

// DocExtractor processes one whole document, usually by chunking it and
// running a ChunkExtractor over the pieces.
type DocExtractor[T any] func(ctx context.Context, doc model.Document) ([]T, []model.ChunkRef, error)

// DocumentResult is the per-document fan-in: the flattened candidate list
// plus the chunks that produced at least one candidate.
type DocumentResult[T any] struct {
	DocID      uuid.UUID
	Candidates []T
	Relevant   []model.ChunkRef
}

// ChunkGroup is a pre-chunked document, for callers that chunk up front.
type ChunkGroup struct {
	DocID  uuid.UUID
	Chunks []model.Chunk
}

// Orchestrator bounds the fan-out width and absorbs per-unit failures into
// the job's non-fatal error list. Concurrency limits bound width only; they
// never change the merged outcome.
type Orchestrator struct {
	jobs             repository.JobStore
	log              *zerolog.Logger
	docConcurrency   int
	chunkConcurrency int
}

func NewOrchestrator(jobs repository.JobStore, log *zerolog.Logger, docConcurrency, chunkConcurrency int) *Orchestrator {
	if docConcurrency < 1 {
		docConcurrency = 1
	}
	if chunkConcurrency < 1 {
		chunkConcurrency = 1
	}
	return &Orchestrator{
		jobs:             jobs,
		log:              log,
		docConcurrency:   docConcurrency,
		chunkConcurrency: chunkConcurrency,
	}
}

// RunOverDocuments processes documents concurrently. Progress totals are
// set before the fan-out; each finished document increments completedUnits
// by exactly one. A failing document is recorded as a non-fatal job error
// and contributes an empty result. Only context cancellation aborts the run.
func RunOverDocuments[T any](ctx context.Context, o *Orchestrator, jobID string, docs []model.Document, perDoc DocExtractor[T]) ([]DocumentResult[T], error) {
	o.resetProgress(ctx, jobID, len(docs))

	results := make([]DocumentResult[T], len(docs))
	sem := make(chan struct{}, o.docConcurrency)
	var wg sync.WaitGroup
	for i := range docs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			doc := docs[i]
			results[i] = DocumentResult[T]{DocID: doc.ID}
			if ctx.Err() != nil {
				return
			}
			candidates, relevant, err := perDoc(ctx, doc)
			if err != nil {
				o.absorb(ctx, jobID, fmt.Sprintf("document %s: %v", doc.ID, err))
			} else {
				results[i].Candidates = candidates
				results[i].Relevant = relevant
			}
			o.completeOne(ctx, jobID)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunOverGroupedChunks is the finer-grained entry point for callers that
// chunked up front: one progress unit per group, chunk-level fan-out inside.
func RunOverGroupedChunks[T any](ctx context.Context, o *Orchestrator, jobID string, groups []ChunkGroup, docs map[uuid.UUID]model.Document, perChunk ChunkExtractor[T]) ([]DocumentResult[T], error) {
	o.resetProgress(ctx, jobID, len(groups))

	results := make([]DocumentResult[T], len(groups))
	sem := make(chan struct{}, o.docConcurrency)
	var wg sync.WaitGroup
	for i := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			g := groups[i]
			doc := docs[g.DocID]
			candidates, relevant := RunChunks(ctx, o, jobID, doc, g.Chunks, perChunk)
			results[i] = DocumentResult[T]{DocID: g.DocID, Candidates: candidates, Relevant: relevant}
			o.completeOne(ctx, jobID)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunChunks fans one document's chunks out under the chunk bound. A failed
// chunk is absorbed as a non-fatal job error and yields nothing; a chunk
// that produced candidates is recorded as relevant. Relevant refs come back
// ordered by chunk index regardless of completion order.
func RunChunks[T any](ctx context.Context, o *Orchestrator, jobID string, doc model.Document, chunks []model.Chunk, perChunk ChunkExtractor[T]) ([]T, []model.ChunkRef) {
	perChunkOut := make([][]T, len(chunks))
	sem := make(chan struct{}, o.chunkConcurrency)
	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}
			got, err := perChunk(ctx, doc, i, chunks[i])
			if err != nil {
				o.absorb(ctx, jobID, fmt.Sprintf("document %s chunk %d: %v", doc.ID, i, err))
				return
			}
			perChunkOut[i] = got
		}(i)
	}
	wg.Wait()

	var candidates []T
	var relevant []model.ChunkRef
	for i, got := range perChunkOut {
		if len(got) == 0 {
			continue
		}
		candidates = append(candidates, got...)
		relevant = append(relevant, model.ChunkRef{DocID: doc.ID, ChunkIndex: i})
	}
	sort.Slice(relevant, func(a, b int) bool { return relevant[a].ChunkIndex < relevant[b].ChunkIndex })
	return candidates, relevant
}

func (o *Orchestrator) resetProgress(ctx context.Context, jobID string, total int) {
	zero := 0
	err := o.jobs.UpdateProgress(ctx, jobID, model.ProgressUpdate{
		TotalUnits:     &total,
		CompletedUnits: &zero,
	})
	if err != nil {
		o.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to reset job progress")
	}
}

// completeOne increments by delta, never sets an absolute value, so sibling
// documents completing concurrently cannot clobber each other.
func (o *Orchestrator) completeOne(ctx context.Context, jobID string) {
	if err := o.jobs.IncrementCompleted(ctx, jobID, 1); err != nil {
		o.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to increment job progress")
	}
}

func (o *Orchestrator) absorb(ctx context.Context, jobID, msg string) {
	o.log.Warn().Str("job_id", jobID).Str("error", msg).Msg("extraction unit failed")
	if err := o.jobs.AppendError(ctx, jobID, msg); err != nil {
		o.log.Error().Err(err).Str("job_id", jobID).Msg("failed to append job error")
	}
}
