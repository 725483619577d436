package jobs

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/repository"
)

// Directory names double as job states; moving a file between them with an
// atomic rename IS the state transition, which gives the single-winner
// claim guarantee for free.
var stateDirs = map[model.JobStatus]string{
	model.JobStatusQueued:   "queued",
	model.JobStatusRunning:  "running",
	model.JobStatusFinished: "finished",
	model.JobStatusFailed:   "failed",
}

// locateOrder fixes the probe order for lookups. A crash inside finalize can
// leave a job in running plus a terminal directory until the next recovery
// pass; probing in one order keeps reads deterministic in the meantime.
var locateOrder = []model.JobStatus{
	model.JobStatusRunning,
	model.JobStatusFinished,
	model.JobStatusFailed,
	model.JobStatusQueued,
}

// FileStore keeps each job as one JSON file named "<ulid>_<jobID>.json".
// The ULID prefix makes lexical directory order equal creation order, so
// Claim can pick the oldest queued job without opening every file.
type FileStore struct {
	root string
	log  *zerolog.Logger

	// Guards read-modify-write cycles on job files within this process.
	// Cross-process claim safety comes from rename atomicity, not from here.
	mu sync.Mutex
}

var _ repository.JobStore = (*FileStore)(nil)

func NewFileStore(root string, log *zerolog.Logger) (*FileStore, error) {
	for _, dir := range stateDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create job dir %s: %w", dir, err)
		}
	}
	return &FileStore{root: root, log: log}, nil
}

func (s *FileStore) Create(ctx context.Context, jobType string, input map[string]any) (string, error) {
	now := time.Now().UTC()
	jobID := uuid.NewString()
	job := &model.Job{
		ID:        jobID,
		Type:      jobType,
		Status:    model.JobStatusQueued,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  &model.JobProgress{JobID: jobID},
	}
	name := fmt.Sprintf("%s_%s.json", ulid.MustNew(ulid.Timestamp(now), rand.Reader), jobID)
	if err := s.writeJob(filepath.Join(s.root, stateDirs[model.JobStatusQueued], name), job); err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *FileStore) Claim(ctx context.Context, jobType string) (*model.Job, error) {
	queued := filepath.Join(s.root, stateDirs[model.JobStatusQueued])
	names, err := listJobFiles(queued)
	if err != nil {
		return nil, err
	}
	running := filepath.Join(s.root, stateDirs[model.JobStatusRunning])
	for _, name := range names {
		src := filepath.Join(queued, name)
		if jobType != "" {
			job, err := readJob(src)
			if err != nil {
				// claimed or deleted between list and read
				continue
			}
			if job.Type != jobType {
				continue
			}
		}
		dst := filepath.Join(running, name)
		if err := os.Rename(src, dst); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue // another claimant won this one
			}
			return nil, fmt.Errorf("claim rename: %w", err)
		}
		return s.markRunning(dst)
	}
	return nil, domain.ErrNotFound
}

func (s *FileStore) SetRunning(ctx context.Context, jobID string) error {
	queued := filepath.Join(s.root, stateDirs[model.JobStatusQueued])
	name, err := findJobFile(queued, jobID)
	if err != nil {
		if _, _, lerr := s.locate(jobID); lerr == nil {
			return domain.ErrClaimLost
		}
		return domain.ErrJobNotFound
	}
	dst := filepath.Join(s.root, stateDirs[model.JobStatusRunning], name)
	if err := os.Rename(filepath.Join(queued, name), dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrClaimLost
		}
		return fmt.Errorf("set running rename: %w", err)
	}
	_, err = s.markRunning(dst)
	return err
}

func (s *FileStore) SetFinished(ctx context.Context, jobID string, result map[string]any) error {
	return s.finalize(jobID, model.JobStatusFinished, func(job *model.Job) {
		job.Result = result
	})
}

func (s *FileStore) SetFailed(ctx context.Context, jobID string, errs ...string) error {
	return s.finalize(jobID, model.JobStatusFailed, func(job *model.Job) {
		job.Errors = appendUnique(job.Errors, errs...)
	})
}

func (s *FileStore) AppendError(ctx context.Context, jobID, message string) error {
	return s.mutateInPlace(jobID, true, func(job *model.Job) {
		job.Errors = appendUnique(job.Errors, message)
	})
}

func (s *FileStore) UpdateProgress(ctx context.Context, jobID string, upd model.ProgressUpdate) error {
	return s.mutateInPlace(jobID, true, func(job *model.Job) {
		p := ensureProgress(job)
		if upd.Stage != nil {
			p.Stage = *upd.Stage
		}
		if upd.Message != nil {
			p.Message = *upd.Message
		}
		if upd.TotalUnits != nil {
			p.TotalUnits = upd.TotalUnits
		}
		if upd.CompletedUnits != nil {
			p.CompletedUnits = upd.CompletedUnits
		}
	})
}

func (s *FileStore) IncrementCompleted(ctx context.Context, jobID string, delta int) error {
	return s.mutateInPlace(jobID, true, func(job *model.Job) {
		p := ensureProgress(job)
		n := delta
		if p.CompletedUnits != nil {
			n += *p.CompletedUnits
		}
		p.CompletedUnits = &n
	})
}

func (s *FileStore) GetStatus(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, _, err := s.locate(jobID)
	if err != nil {
		return nil, err
	}
	return readJob(path)
}

func (s *FileStore) RecoverStale(ctx context.Context, note string) (int, error) {
	running := filepath.Join(s.root, stateDirs[model.JobStatusRunning])
	names, err := listJobFiles(running)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, name := range names {
		src := filepath.Join(running, name)
		failed, err := s.recoverOne(src, name, note)
		if err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("failed to recover stale job")
			continue
		}
		if failed {
			recovered++
		}
	}
	return recovered, nil
}

func (s *FileStore) recoverOne(src, name, note string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, err := readJob(src)
	if err != nil {
		return false, err
	}
	// A crash between finalize's terminal write and its source removal
	// leaves this running copy next to an already finalized job. The
	// terminal file is authoritative; drop the leftover.
	for _, st := range []model.JobStatus{model.JobStatusFinished, model.JobStatusFailed} {
		if _, ferr := findJobFile(filepath.Join(s.root, stateDirs[st]), job.ID); ferr == nil {
			s.log.Info().Str("job_id", job.ID).Str("status", string(st)).Msg("dropping stale running copy of finalized job")
			return false, os.Remove(src)
		}
	}
	now := time.Now().UTC()
	job.Status = model.JobStatusFailed
	job.Errors = appendUnique(job.Errors, note)
	job.UpdatedAt = now
	job.FinishedAt = &now
	dst := filepath.Join(s.root, stateDirs[model.JobStatusFailed], name)
	if err := s.writeJob(dst, job); err != nil {
		return false, err
	}
	return true, os.Remove(src)
}

// markRunning rewrites the freshly claimed file with Running metadata.
func (s *FileStore) markRunning(path string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, err := readJob(path)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job.Status = model.JobStatusRunning
	job.StartedAt = &now
	job.UpdatedAt = now
	if err := s.writeJob(path, job); err != nil {
		return nil, err
	}
	return job, nil
}

// finalize moves a job to a terminal directory after applying mutate.
func (s *FileStore) finalize(jobID string, status model.JobStatus, mutate func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, _, err := s.locate(jobID)
	if err != nil {
		return err
	}
	job, err := readJob(path)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	mutate(job)
	job.Status = status
	job.UpdatedAt = now
	job.FinishedAt = &now
	dst := filepath.Join(s.root, stateDirs[status], filepath.Base(path))
	if err := s.writeJob(dst, job); err != nil {
		return err
	}
	if dst != path {
		return os.Remove(path)
	}
	return nil
}

// mutateInPlace rewrites a job file without moving it between states.
// With ignoreMissing, writes against unknown jobs are silent no-ops.
func (s *FileStore) mutateInPlace(jobID string, ignoreMissing bool, mutate func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, _, err := s.locate(jobID)
	if err != nil {
		if ignoreMissing && errors.Is(err, domain.ErrJobNotFound) {
			return nil
		}
		return err
	}
	job, err := readJob(path)
	if err != nil {
		return err
	}
	mutate(job)
	job.UpdatedAt = time.Now().UTC()
	return s.writeJob(path, job)
}

// locate finds the job file, probing state directories in locateOrder.
func (s *FileStore) locate(jobID string) (path string, status model.JobStatus, err error) {
	for _, st := range locateOrder {
		full := filepath.Join(s.root, stateDirs[st])
		if name, ferr := findJobFile(full, jobID); ferr == nil {
			return filepath.Join(full, name), st, nil
		}
	}
	return "", "", domain.ErrJobNotFound
}

func (s *FileStore) writeJob(path string, job *model.Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write job file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish job file: %w", err)
	}
	return nil
}

func readJob(path string) (*model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job file %s: %w", filepath.Base(path), err)
	}
	return &job, nil
}

func listJobFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func findJobFile(dir, jobID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*_"+jobID+".json"))
	if err != nil || len(matches) == 0 {
		return "", domain.ErrJobNotFound
	}
	return filepath.Base(matches[0]), nil
}

func ensureProgress(job *model.Job) *model.JobProgress {
	if job.Progress == nil {
		job.Progress = &model.JobProgress{JobID: job.ID}
	}
	return job.Progress
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
