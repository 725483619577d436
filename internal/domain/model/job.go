package model

import "time"

type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusRunning  JobStatus = "running"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
)

// Terminal reports whether no further status transition is legal,
// except for appending error lines to a failed job.
func (s JobStatus) Terminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

// Stage values written into JobProgress. Progress is advisory only and never
// participates in transition legality checks.
type JobStage string

const (
	StageChunking           JobStage = "chunking"
	StageProcessingChunks   JobStage = "processing_chunks"
	StageMerging            JobStage = "merging"
	StageRelevancyFiltering JobStage = "relevancy_filtering"
	StageResolvingDups      JobStage = "resolving_duplicates"
	StageSorting            JobStage = "sorting"
	StageSortingFinished    JobStage = "sorting_finished"
	StageFinished           JobStage = "finished"
)

// Job is the persistent record of one unit of background work. It is created
// in Queued and mutated only through the JobStore transition methods.
type Job struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Status     JobStatus              `json:"status"`
	Input      map[string]any         `json:"input,omitempty"`
	Result     map[string]any         `json:"result,omitempty"`
	Errors     []string               `json:"errors,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	StartedAt  *time.Time             `json:"startedAt,omitempty"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
	Progress   *JobProgress           `json:"progress,omitempty"`
}

// JobProgress tracks unit counters for a running job (1:1 with Job). Units are
// documents for document-level jobs and chunks for chunk-level jobs.
// CompletedUnits only ever moves forward while the job is running.
type JobProgress struct {
	JobID          string   `json:"jobId"`
	Stage          JobStage `json:"stage,omitempty"`
	Message        string   `json:"message,omitempty"`
	TotalUnits     *int     `json:"totalUnits,omitempty"`
	CompletedUnits *int     `json:"completedUnits,omitempty"`
}

// ProgressUpdate is a partial write against JobProgress; nil fields are left
// untouched. Counter fields here SET absolute values and must only be used for
// initialization; concurrent completions go through IncrementCompleted.
type ProgressUpdate struct {
	Stage          *JobStage
	Message        *string
	TotalUnits     *int
	CompletedUnits *int
}

func StagePtr(s JobStage) *JobStage { return &s }
func StrPtr(s string) *string       { return &s }
func IntPtr(n int) *int             { return &n }
