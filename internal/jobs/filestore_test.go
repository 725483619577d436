package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	l := zerolog.Nop()
	s, err := NewFileStore(t.TempDir(), &l)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFileStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("create then claim then finish", func(t *testing.T) {
		s := newTestStore(t)
		id, err := s.Create(ctx, "digest_endpoints", map[string]any{"sessionId": "abc"})
		if err != nil {
			t.Fatal(err)
		}

		job, err := s.Claim(ctx, "digest_endpoints")
		if err != nil {
			t.Fatal(err)
		}
		if job.ID != id || job.Status != model.JobStatusRunning || job.StartedAt == nil {
			t.Fatalf("claimed job in wrong state: %+v", job)
		}

		if err := s.SetFinished(ctx, id, map[string]any{"result": []string{"ok"}}); err != nil {
			t.Fatal(err)
		}
		got, err := s.GetStatus(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.JobStatusFinished || got.FinishedAt == nil || got.Result == nil {
			t.Errorf("finished job in wrong state: %+v", got)
		}
	})

	t.Run("claim respects creation order and type filter", func(t *testing.T) {
		s := newTestStore(t)
		first, _ := s.Create(ctx, "a", nil)
		s.Create(ctx, "b", nil)
		second, _ := s.Create(ctx, "a", nil)

		job, err := s.Claim(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if job.ID != first {
			t.Errorf("want oldest queued job %s, got %s", first, job.ID)
		}
		job, err = s.Claim(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if job.ID != second {
			t.Errorf("want %s next, got %s", second, job.ID)
		}
		if _, err := s.Claim(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("want ErrNotFound on empty queue, got %v", err)
		}
	})

	t.Run("concurrent claims have exactly one winner", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.Create(ctx, "solo", nil); err != nil {
			t.Fatal(err)
		}

		const n = 16
		var wg sync.WaitGroup
		wins := make(chan *model.Job, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if job, err := s.Claim(ctx, "solo"); err == nil {
					wins <- job
				} else if !errors.Is(err, domain.ErrNotFound) {
					t.Errorf("unexpected claim error: %v", err)
				}
			}()
		}
		wg.Wait()
		close(wins)
		if got := len(wins); got != 1 {
			t.Fatalf("want exactly 1 winner, got %d", got)
		}
	})

	t.Run("set running on a claimed job reports claim lost", func(t *testing.T) {
		s := newTestStore(t)
		id, _ := s.Create(ctx, "t", nil)
		if _, err := s.Claim(ctx, "t"); err != nil {
			t.Fatal(err)
		}
		if err := s.SetRunning(ctx, id); !errors.Is(err, domain.ErrClaimLost) {
			t.Errorf("want ErrClaimLost, got %v", err)
		}
		if err := s.SetRunning(ctx, "nope"); !errors.Is(err, domain.ErrJobNotFound) {
			t.Errorf("want ErrJobNotFound, got %v", err)
		}
	})

	t.Run("failed job keeps deduplicated ordered errors", func(t *testing.T) {
		s := newTestStore(t)
		id, _ := s.Create(ctx, "t", nil)
		s.Claim(ctx, "t")
		if err := s.SetFailed(ctx, id, "first", "second", "first"); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetStatus(ctx, id)
		if len(got.Errors) != 2 || got.Errors[0] != "first" || got.Errors[1] != "second" {
			t.Errorf("want deduplicated ordered errors, got %v", got.Errors)
		}

		// Failed -> Failed via appendError stays legal.
		if err := s.AppendError(ctx, id, "late note"); err != nil {
			t.Fatal(err)
		}
		got, _ = s.GetStatus(ctx, id)
		if got.Status != model.JobStatusFailed || len(got.Errors) != 3 {
			t.Errorf("append after failure broke state: %+v", got)
		}
	})

	t.Run("finished job can carry non-fatal errors", func(t *testing.T) {
		s := newTestStore(t)
		id, _ := s.Create(ctx, "t", nil)
		s.Claim(ctx, "t")
		s.AppendError(ctx, id, "chunk 3 failed")
		if err := s.SetFinished(ctx, id, map[string]any{"result": 1}); err != nil {
			t.Fatal(err)
		}
		got, _ := s.GetStatus(ctx, id)
		if got.Status != model.JobStatusFinished || len(got.Errors) != 1 {
			t.Errorf("partial success not representable: %+v", got)
		}
	})

	t.Run("progress writes to unknown jobs are silent no-ops", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.UpdateProgress(ctx, "missing", model.ProgressUpdate{Stage: model.StagePtr(model.StageMerging)}); err != nil {
			t.Errorf("want nil, got %v", err)
		}
		if err := s.AppendError(ctx, "missing", "msg"); err != nil {
			t.Errorf("want nil, got %v", err)
		}
		if err := s.IncrementCompleted(ctx, "missing", 1); err != nil {
			t.Errorf("want nil, got %v", err)
		}
	})

	t.Run("concurrent increments end at the unit count", func(t *testing.T) {
		s := newTestStore(t)
		id, _ := s.Create(ctx, "t", nil)
		s.Claim(ctx, "t")
		total := 25
		s.UpdateProgress(ctx, id, model.ProgressUpdate{TotalUnits: &total, CompletedUnits: model.IntPtr(0)})

		var wg sync.WaitGroup
		for i := 0; i < total; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.IncrementCompleted(ctx, id, 1); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		got, _ := s.GetStatus(ctx, id)
		if got.Progress == nil || got.Progress.CompletedUnits == nil || *got.Progress.CompletedUnits != total {
			t.Errorf("want completed=%d, got %+v", total, got.Progress)
		}
	})
}

func TestFileStoreRecoverStale(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ran, _ := s.Create(ctx, "t", nil)
	s.Claim(ctx, "t")
	queued, _ := s.Create(ctx, "t", nil)

	n, err := s.RecoverStale(ctx, RecoveredAtStartupNote)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 recovered job, got %d", n)
	}

	got, _ := s.GetStatus(ctx, ran)
	if got.Status != model.JobStatusFailed || len(got.Errors) == 0 {
		t.Errorf("stale job not failed with a note: %+v", got)
	}
	if q, _ := s.GetStatus(ctx, queued); q.Status != model.JobStatusQueued {
		t.Errorf("queued job must be untouched, got %s", q.Status)
	}

	// Second pass finds nothing.
	n, err = s.RecoverStale(ctx, RecoveredAtStartupNote)
	if err != nil || n != 0 {
		t.Errorf("second recovery pass: n=%d err=%v, want 0 nil", n, err)
	}
}

// A crash between finalize's terminal write and its source removal leaves the
// same job in running and in a terminal directory. Recovery must drop the
// running leftover instead of force-failing an already finished job.
func TestFileStoreRecoverStaleDropsFinalizedDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, _ := s.Create(ctx, "t", nil)
	if _, err := s.Claim(ctx, "t"); err != nil {
		t.Fatal(err)
	}

	runningDir := filepath.Join(s.root, stateDirs[model.JobStatusRunning])
	name, err := findJobFile(runningDir, id)
	if err != nil {
		t.Fatal(err)
	}
	runningCopy, err := os.ReadFile(filepath.Join(runningDir, name))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetFinished(ctx, id, map[string]any{"result": "kept"}); err != nil {
		t.Fatal(err)
	}
	// Resurrect the running file as if the process died mid-finalize.
	if err := os.WriteFile(filepath.Join(runningDir, name), runningCopy, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := s.RecoverStale(ctx, RecoveredAtStartupNote)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("a finalized duplicate is not a recovery, got n=%d", n)
	}
	if _, err := os.Stat(filepath.Join(runningDir, name)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("running leftover must be removed, stat err=%v", err)
	}
	got, err := s.GetStatus(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.JobStatusFinished || got.Result["result"] != "kept" {
		t.Errorf("finished state must survive recovery: %+v", got)
	}
}
