package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"apidoc-digester/internal/digest"
	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/ports/repository"
	"apidoc-digester/internal/infra/metrics"
	"apidoc-digester/internal/jobs"
)

// DigestWorker polls the job store for queued digest jobs and drives them
// through the pool. Jobs scheduled by this process are already running in
// their own goroutine; the poll loop picks up jobs created by other
// processes.
type DigestWorker struct {
	store  repository.JobStore
	runner *jobs.Runner
	svc    *digest.Service
	poll   time.Duration
	log    *zerolog.Logger
}

func NewDigestWorker(
	store repository.JobStore,
	runner *jobs.Runner,
	svc *digest.Service,
	poll time.Duration,
	log *zerolog.Logger,
) *DigestWorker {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &DigestWorker{store: store, runner: runner, svc: svc, poll: poll, log: log}
}

// Start runs the poll loop until ctx is cancelled. Run it in a goroutine.
func (w *DigestWorker) Start(ctx context.Context, pool *Pool) {
	w.log.Info().Dur("poll_interval", w.poll).Msg("digest worker started")
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("digest worker stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				w.processOne(ctx)
				return nil
			})
		}
	}
}

// processOne claims at most one queued job and runs it to completion.
func (w *DigestWorker) processOne(ctx context.Context) {
	job, err := w.store.Claim(ctx, "")
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			w.log.Error().Err(err).Msg("failed to claim job")
		}
		return
	}

	w.log.Info().Str("job_id", job.ID).Str("type", job.Type).Msg("processing digest job")
	start := time.Now()

	runErr := w.runner.Run(ctx, job, w.svc.Work(job.Type))
	elapsed := time.Since(start)

	status := "finished"
	if runErr != nil {
		status = "failed"
	}
	metrics.IncJobProcessed(job.Type, status)
	metrics.ObserveJobDuration(job.Type, elapsed.Seconds())
	w.log.Info().
		Str("job_id", job.ID).
		Str("type", job.Type).
		Str("status", status).
		Dur("duration_ms", elapsed).
		Msg("digest job finished")
}
