// Package jobs drives background jobs through their lifecycle and provides
// the filesystem backing of the job store contract.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/repository"
)

// RecoveredAtStartupNote is the standard error line attached to jobs found
// still running when the process starts.
const RecoveredAtStartupNote = "Recovered at startup: previous process stopped while job was running."

// WorkFunc is the unit of work bound to a job. It returns the job result on
// success; its error becomes the job's fatal error line.
type WorkFunc func(ctx context.Context, job *model.Job) (map[string]any, error)

// Runner persists job state transitions around the execution of a WorkFunc.
type Runner struct {
	store repository.JobStore
	log   *zerolog.Logger
}

func NewRunner(store repository.JobStore, log *zerolog.Logger) *Runner {
	return &Runner{store: store, log: log}
}

// Schedule creates a queued job and immediately starts driving it on a
// background goroutine, detached from the caller's context so the job
// outlives the request that created it.
func (r *Runner) Schedule(ctx context.Context, jobType string, input map[string]any, work WorkFunc) (string, error) {
	jobID, err := r.store.Create(ctx, jobType, input)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	go func() {
		bg := context.Background()
		job, err := r.store.GetStatus(bg, jobID)
		if err != nil {
			r.log.Error().Err(err).Str("job_id", jobID).Msg("scheduled job vanished before start")
			return
		}
		if err := r.Run(bg, job, work); err != nil {
			r.log.Warn().Err(err).Str("job_id", jobID).Msg("job finished with error")
		}
	}()
	return jobID, nil
}

// Run drives one job through Running into a terminal state. Jobs already
// claimed (status Running) skip the claim transition; queued jobs are
// claimed here, and a lost claim is returned as domain.ErrClaimLost.
// Cancellation marks the job Failed and then propagates to the caller.
func (r *Runner) Run(ctx context.Context, job *model.Job, work WorkFunc) error {
	if job.Status == model.JobStatusQueued {
		if err := r.store.SetRunning(ctx, job.ID); err != nil {
			if errors.Is(err, domain.ErrClaimLost) {
				return domain.ErrClaimLost
			}
			return fmt.Errorf("set running: %w", err)
		}
		job.Status = model.JobStatusRunning
	}

	result, err := work(ctx, job)

	// Terminal transitions must land even when ctx is already cancelled,
	// otherwise a cancelled job stays Running forever on backings that
	// honor the context (the Postgres store opens a transaction with it).
	done := context.WithoutCancel(ctx)
	switch {
	case err == nil:
		if ferr := r.store.SetFinished(done, job.ID, result); ferr != nil {
			return fmt.Errorf("set finished: %w", ferr)
		}
		return nil
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		msg := fmt.Sprintf("Job cancelled/interrupted: %v", err)
		if ferr := r.store.SetFailed(done, job.ID, msg); ferr != nil {
			r.log.Error().Err(ferr).Str("job_id", job.ID).Msg("failed to mark cancelled job")
		}
		return err
	default:
		if ferr := r.store.SetFailed(done, job.ID, err.Error()); ferr != nil {
			r.log.Error().Err(ferr).Str("job_id", job.ID).Msg("failed to mark failed job")
		}
		return err
	}
}

// Recover fails every job left Running by a previous process. Best-effort:
// per-job recovery failures are logged by the store, never returned.
func (r *Runner) Recover(ctx context.Context) int {
	n, err := r.store.RecoverStale(ctx, RecoveredAtStartupNote)
	if err != nil {
		r.log.Error().Err(err).Msg("stale job recovery pass failed")
		return n
	}
	if n > 0 {
		r.log.Info().Int("count", n).Msg("recovered stale jobs at startup")
	}
	return n
}
