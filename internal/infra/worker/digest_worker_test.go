package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"apidoc-digester/internal/config"
	"apidoc-digester/internal/digest"
	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/extract"
	"apidoc-digester/internal/jobs"
)

type emptyDocs struct{}

func (emptyDocs) ListDocuments(context.Context, uuid.UUID) ([]model.Document, error) {
	return nil, nil
}

func (emptyDocs) GetDocument(context.Context, uuid.UUID) (*model.Document, error) {
	return nil, domain.ErrNotFound
}

type nilExtractor struct{}

func (nilExtractor) ExtractObjectClasses(context.Context, string, adapter.ExtractionContext) ([]model.ObjectClass, error) {
	return nil, nil
}

func (nilExtractor) ExtractAttributes(context.Context, string, adapter.ExtractionContext) ([]model.Attribute, error) {
	return nil, nil
}

func (nilExtractor) ExtractEndpoints(context.Context, string, adapter.ExtractionContext) ([]model.Endpoint, error) {
	return nil, nil
}

func (nilExtractor) ExtractAuthMethods(context.Context, string, adapter.ExtractionContext) ([]model.AuthMethod, error) {
	return nil, nil
}

func (nilExtractor) ExtractRelations(context.Context, string, adapter.ExtractionContext) ([]model.Relation, error) {
	return nil, nil
}

func (nilExtractor) VerifyEndpointParams(_ context.Context, ep model.Endpoint, _ string, _ adapter.ExtractionContext) (*model.Endpoint, error) {
	return &ep, nil
}

func (nilExtractor) AggregateInfo(_ context.Context, _ string, agg model.InfoMetadata, _ adapter.ExtractionContext) (*model.InfoMetadata, error) {
	return &agg, nil
}

type nilRanker struct{}

func (nilRanker) RankAuthMethods(_ context.Context, m []model.AuthMethod) ([]model.AuthMethod, error) {
	return m, nil
}

func (nilRanker) ClassifyObjectClasses(context.Context, []model.ObjectClass) ([]model.ClassRelevancy, error) {
	return nil, nil
}

func (nilRanker) RankObjectClasses(_ context.Context, c []model.ObjectClass) ([]model.ObjectClass, error) {
	return c, nil
}

func (nilRanker) ResolveAttributeDuplicates(context.Context, string, map[string][]model.Attribute) (map[string]model.Attribute, error) {
	return nil, errors.New("not scripted")
}

func newWorkerHarness(t *testing.T) (*DigestWorker, *jobs.FileStore) {
	t.Helper()
	log := zerolog.Nop()
	store, err := jobs.NewFileStore(t.TempDir(), &log)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	cfg := config.DigestConfig{
		DocConcurrency:   1,
		ChunkConcurrency: 1,
		Chunking:         config.ChunkingConfig{Encoding: "cl100k_base", MaxTokens: 100},
	}
	runner := jobs.NewRunner(store, &log)
	orch := extract.NewOrchestrator(store, &log, 1, 1)
	svc := digest.NewService(emptyDocs{}, store, runner, orch, nilExtractor{}, nilRanker{}, cfg, &log)
	return NewDigestWorker(store, runner, svc, 20*time.Millisecond, &log), store
}

func TestDigestWorker_ProcessesQueuedJob(t *testing.T) {
	w, store := newWorkerHarness(t)
	ctx := context.Background()

	input := map[string]any{"sessionId": uuid.NewString()}
	jobID, err := store.Create(ctx, digest.JobTypeObjectClasses, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w.processOne(ctx)

	job, err := store.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if job.Status != model.JobStatusFinished {
		t.Fatalf("status = %s, errors = %v", job.Status, job.Errors)
	}
	if _, ok := job.Result["result"]; !ok {
		t.Errorf("finished job lacks a result: %v", job.Result)
	}
}

func TestDigestWorker_BadInputFailsJob(t *testing.T) {
	w, store := newWorkerHarness(t)
	ctx := context.Background()

	jobID, err := store.Create(ctx, digest.JobTypeObjectClasses, map[string]any{"sessionId": "not-a-uuid"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	w.processOne(ctx)

	job, err := store.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if job.Status != model.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if len(job.Errors) == 0 {
		t.Error("failed job has no error message")
	}
}

func TestDigestWorker_NoQueuedJobIsQuiet(t *testing.T) {
	w, _ := newWorkerHarness(t)
	// must not panic or create anything
	w.processOne(context.Background())
}

func TestDigestWorker_PollLoopDrainsQueue(t *testing.T) {
	w, store := newWorkerHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.Create(ctx, digest.JobTypeAuthMethods, map[string]any{"sessionId": uuid.NewString()})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
	}

	log := zerolog.Nop()
	pool := NewPool(2, &log)
	pool.Start(ctx)
	defer pool.Stop()
	go w.Start(ctx, pool)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		done := 0
		for _, id := range ids {
			job, err := store.GetStatus(ctx, id)
			if err != nil {
				t.Fatalf("GetStatus: %v", err)
			}
			if job.Status.Terminal() {
				done++
			}
		}
		if done == len(ids) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("poll loop did not drain the queue")
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	log := zerolog.Nop()
	pool := NewPool(2, &log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var ran int32
	for i := 0; i < 5; i++ {
		if err := pool.Submit(func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && atomic.LoadInt32(&ran) < 5 {
		time.Sleep(5 * time.Millisecond)
	}
	pool.Stop()
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Fatalf("ran %d of 5 tasks", got)
	}
	if err := pool.Submit(nil); err == nil {
		t.Error("nil task accepted")
	}
}
