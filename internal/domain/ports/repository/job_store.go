package repository

import (
	"context"

	"apidoc-digester/internal/domain/model"
)

// JobStore persists Job and JobProgress records and owns every legal status
// transition. Two backings exist (filesystem with atomic rename, Postgres
// with a transactional conditional update); both satisfy this contract,
// including the single-winner Claim guarantee.
type JobStore interface {
	// Create stores a new job in Queued together with its empty progress
	// record and returns the job id.
	Create(ctx context.Context, jobType string, input map[string]any) (string, error)

	// Claim atomically moves the oldest Queued job (optionally filtered by
	// type) to Running. Exactly one concurrent caller wins a given job; every
	// other caller either claims a different job or gets domain.ErrNotFound.
	Claim(ctx context.Context, jobType string) (*model.Job, error)

	// SetRunning transitions a specific Queued job to Running. Returns
	// domain.ErrClaimLost when the job is no longer claimable.
	SetRunning(ctx context.Context, jobID string) error

	// SetFinished attaches the result and moves Running -> Finished.
	SetFinished(ctx context.Context, jobID string, result map[string]any) error

	// SetFailed appends the given error lines (deduplicated, order kept) and
	// moves the job to Failed.
	SetFailed(ctx context.Context, jobID string, errs ...string) error

	// AppendError records a non-fatal error line without changing status.
	// Appending to an unknown job is a silent no-op.
	AppendError(ctx context.Context, jobID, message string) error

	// UpdateProgress applies a partial progress write. Writes against an
	// unknown job are silently ignored; progress is advisory.
	UpdateProgress(ctx context.Context, jobID string, upd model.ProgressUpdate) error

	// IncrementCompleted adds delta to CompletedUnits. Increment-by-delta is
	// the only legal way to advance the counter under concurrent completions.
	IncrementCompleted(ctx context.Context, jobID string, delta int) error

	// GetStatus returns the job with its progress attached, or
	// domain.ErrJobNotFound.
	GetStatus(ctx context.Context, jobID string) (*model.Job, error)

	// RecoverStale force-fails every job found in Running and returns how
	// many were recovered. Best effort: one failed recovery must not stop
	// the rest.
	RecoverStale(ctx context.Context, note string) (int, error)
}
