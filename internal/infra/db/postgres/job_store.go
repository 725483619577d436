package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/repository"
)

var _ repository.JobStore = (*jobStore)(nil)

// jobStore keeps jobs as rows with a status column. The Queued -> Running
// claim is a single conditional UPDATE over a FOR UPDATE SKIP LOCKED
// subselect, so concurrent claimants never receive the same row.
type jobStore struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewJobStore(pool *pgxpool.Pool, tm repository.TransactionManager) *jobStore {
	return &jobStore{pool: pool, tm: tm}
}

const jobColumns = `id, type, status, input, result, errors,
	created_at, started_at, updated_at, finished_at,
	stage, message, total_units, completed_units`

func (s *jobStore) Create(ctx context.Context, jobType string, input map[string]any) (string, error) {
	jobID := uuid.NewString()
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal job input: %w", err)
	}
	const q = `
INSERT INTO jobs (id, type, status, input, errors, created_at, updated_at)
VALUES ($1, $2, 'queued', $3, '{}', now(), now());`
	if _, err := execSQL(ctx, s.pool, nil, q, jobID, jobType, inputJSON); err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *jobStore) Claim(ctx context.Context, jobType string) (*model.Job, error) {
	const q = `
UPDATE jobs SET status = 'running', started_at = now(), updated_at = now()
WHERE id = (
	SELECT id FROM jobs
	WHERE status = 'queued' AND ($1 = '' OR type = $1)
	ORDER BY created_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED)
RETURNING ` + jobColumns + `;`

	row, err := pickRow(ctx, s.pool, nil, q, jobType)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *jobStore) SetRunning(ctx context.Context, jobID string) error {
	const q = `
UPDATE jobs SET status = 'running', started_at = now(), updated_at = now()
WHERE id = $1 AND status = 'queued';`
	tag, err := execSQL(ctx, s.pool, nil, q, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetStatus(ctx, jobID); err != nil {
		return err
	}
	return domain.ErrClaimLost
}

func (s *jobStore) SetFinished(ctx context.Context, jobID string, result map[string]any) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal job result: %w", err)
	}
	const q = `
UPDATE jobs SET status = 'finished', result = $2, updated_at = now(), finished_at = now()
WHERE id = $1;`
	tag, err := execSQL(ctx, s.pool, nil, q, jobID, resultJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (s *jobStore) SetFailed(ctx context.Context, jobID string, errs ...string) error {
	return s.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := s.lockErrors(ctx, tx, jobID)
		if err != nil {
			return err
		}
		const q = `
UPDATE jobs SET status = 'failed', errors = $2, updated_at = now(), finished_at = now()
WHERE id = $1;`
		_, err = execSQL(ctx, s.pool, tx, q, jobID, appendUnique(existing, errs...))
		return err
	})
}

func (s *jobStore) AppendError(ctx context.Context, jobID, message string) error {
	err := s.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := s.lockErrors(ctx, tx, jobID)
		if err != nil {
			return err
		}
		const q = `UPDATE jobs SET errors = $2, updated_at = now() WHERE id = $1;`
		_, err = execSQL(ctx, s.pool, tx, q, jobID, appendUnique(existing, message))
		return err
	})
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil // advisory write, unknown jobs are ignored
	}
	return err
}

func (s *jobStore) UpdateProgress(ctx context.Context, jobID string, upd model.ProgressUpdate) error {
	const q = `
UPDATE jobs SET
	stage = COALESCE($2, stage),
	message = COALESCE($3, message),
	total_units = COALESCE($4, total_units),
	completed_units = COALESCE($5, completed_units),
	updated_at = now()
WHERE id = $1;`
	var stage *string
	if upd.Stage != nil {
		stage = (*string)(upd.Stage)
	}
	_, err := execSQL(ctx, s.pool, nil, q, jobID, stage, upd.Message, upd.TotalUnits, upd.CompletedUnits)
	return err
}

func (s *jobStore) IncrementCompleted(ctx context.Context, jobID string, delta int) error {
	const q = `
UPDATE jobs SET completed_units = COALESCE(completed_units, 0) + $2, updated_at = now()
WHERE id = $1;`
	_, err := execSQL(ctx, s.pool, nil, q, jobID, delta)
	return err
}

func (s *jobStore) GetStatus(ctx context.Context, jobID string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`
	row, err := pickRow(ctx, s.pool, nil, q, jobID)
	if err != nil {
		return nil, err
	}
	job, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrJobNotFound
	}
	return job, err
}

func (s *jobStore) RecoverStale(ctx context.Context, note string) (int, error) {
	const q = `
UPDATE jobs SET
	status = 'failed',
	errors = CASE WHEN $1 = ANY(errors) THEN errors ELSE array_append(errors, $1) END,
	updated_at = now(),
	finished_at = now()
WHERE status = 'running';`
	tag, err := execSQL(ctx, s.pool, nil, q, note)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// lockErrors reads the job's error list under FOR UPDATE so the append is
// race-free.
func (s *jobStore) lockErrors(ctx context.Context, tx repository.Tx, jobID string) ([]string, error) {
	row, err := pickRow(ctx, s.pool, tx, `SELECT errors FROM jobs WHERE id = $1 FOR UPDATE;`, jobID)
	if err != nil {
		return nil, err
	}
	var existing []string
	if err := row.Scan(&existing); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return existing, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		job            model.Job
		inputJSON      []byte
		resultJSON     []byte
		stage          *string
		message        *string
		totalUnits     *int
		completedUnits *int
		startedAt      *time.Time
		finishedAt     *time.Time
		status         string
	)
	err := row.Scan(
		&job.ID, &job.Type, &status, &inputJSON, &resultJSON, &job.Errors,
		&job.CreatedAt, &startedAt, &job.UpdatedAt, &finishedAt,
		&stage, &message, &totalUnits, &completedUnits,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	job.Status = model.JobStatus(status)
	job.StartedAt = startedAt
	job.FinishedAt = finishedAt
	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &job.Input); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	progress := &model.JobProgress{JobID: job.ID, TotalUnits: totalUnits, CompletedUnits: completedUnits}
	if stage != nil {
		progress.Stage = model.JobStage(*stage)
	}
	if message != nil {
		progress.Message = *message
	}
	job.Progress = progress
	return &job, nil
}

func appendUnique(dst []string, msgs ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, m := range dst {
		seen[m] = true
	}
	for _, m := range msgs {
		if m != "" && !seen[m] {
			seen[m] = true
			dst = append(dst, m)
		}
	}
	return dst
}
