// Package digest wires the chunker, orchestrator, extraction adapters and
// merge policies into background jobs, one pipeline per entity kind.
package digest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"apidoc-digester/internal/config"
	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/model"
	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/domain/ports/repository"
	"apidoc-digester/internal/extract"
	"apidoc-digester/internal/jobs"
)

// Job types, one per pipeline.
const (
	JobTypeObjectClasses = "digest_object_classes"
	JobTypeAttributes    = "digest_attributes"
	JobTypeEndpoints     = "digest_endpoints"
	JobTypeAuthMethods   = "digest_auth_methods"
	JobTypeRelations     = "digest_relations"
	JobTypeInfo          = "digest_info"
)

// JobTypes lists every job type the service can run, in worker claim order.
var JobTypes = []string{
	JobTypeObjectClasses,
	JobTypeAttributes,
	JobTypeEndpoints,
	JobTypeAuthMethods,
	JobTypeRelations,
	JobTypeInfo,
}

// Input carries pipeline parameters through the job record.
type Input struct {
	SessionID   string              `json:"sessionId"`
	ObjectClass string              `json:"objectClass,omitempty"`
	BaseAPIURL  string              `json:"baseApiUrl,omitempty"`
	Classes     []adapter.ClassHint `json:"classes,omitempty"`
}

// Service owns the digest pipelines. Each Start method queues a job whose
// work function chunks the session's documents, fans extraction out, merges
// candidates, and shapes the job result.
type Service struct {
	docs   repository.DocumentSource
	store  repository.JobStore
	runner *jobs.Runner
	orch   *extract.Orchestrator
	ext    adapter.ExtractionAdapter
	rank   adapter.RankAdapter
	cfg    config.DigestConfig
	log    *zerolog.Logger
}

func NewService(
	docs repository.DocumentSource,
	store repository.JobStore,
	runner *jobs.Runner,
	orch *extract.Orchestrator,
	ext adapter.ExtractionAdapter,
	rank adapter.RankAdapter,
	cfg config.DigestConfig,
	log *zerolog.Logger,
) *Service {
	return &Service{
		docs:   docs,
		store:  store,
		runner: runner,
		orch:   orch,
		ext:    ext,
		rank:   rank,
		cfg:    cfg,
		log:    log,
	}
}

func (s *Service) StartObjectClassDigest(ctx context.Context, sessionID uuid.UUID) (string, error) {
	return s.schedule(ctx, JobTypeObjectClasses, Input{SessionID: sessionID.String()})
}

func (s *Service) StartAttributeDigest(ctx context.Context, sessionID uuid.UUID, objectClass string) (string, error) {
	if objectClass == "" {
		return "", fmt.Errorf("%w: objectClass is required", domain.ErrInvalidArgument)
	}
	return s.schedule(ctx, JobTypeAttributes, Input{SessionID: sessionID.String(), ObjectClass: objectClass})
}

func (s *Service) StartEndpointDigest(ctx context.Context, sessionID uuid.UUID, objectClass, baseAPIURL string) (string, error) {
	if objectClass == "" {
		return "", fmt.Errorf("%w: objectClass is required", domain.ErrInvalidArgument)
	}
	return s.schedule(ctx, JobTypeEndpoints, Input{SessionID: sessionID.String(), ObjectClass: objectClass, BaseAPIURL: baseAPIURL})
}

func (s *Service) StartAuthDigest(ctx context.Context, sessionID uuid.UUID) (string, error) {
	return s.schedule(ctx, JobTypeAuthMethods, Input{SessionID: sessionID.String()})
}

func (s *Service) StartRelationDigest(ctx context.Context, sessionID uuid.UUID, classes []adapter.ClassHint) (string, error) {
	if len(classes) == 0 {
		return "", fmt.Errorf("%w: at least one object class is required", domain.ErrInvalidArgument)
	}
	return s.schedule(ctx, JobTypeRelations, Input{SessionID: sessionID.String(), Classes: classes})
}

func (s *Service) StartInfoDigest(ctx context.Context, sessionID uuid.UUID) (string, error) {
	return s.schedule(ctx, JobTypeInfo, Input{SessionID: sessionID.String()})
}

func (s *Service) schedule(ctx context.Context, jobType string, in Input) (string, error) {
	encoded, err := encodeInput(in)
	if err != nil {
		return "", err
	}
	return s.runner.Schedule(ctx, jobType, encoded, s.Work(jobType))
}

// Work maps a job type to its pipeline; the worker pool uses this to drive
// claimed jobs.
func (s *Service) Work(jobType string) jobs.WorkFunc {
	switch jobType {
	case JobTypeObjectClasses:
		return s.runObjectClasses
	case JobTypeAttributes:
		return s.runAttributes
	case JobTypeEndpoints:
		return s.runEndpoints
	case JobTypeAuthMethods:
		return s.runAuthMethods
	case JobTypeRelations:
		return s.runRelations
	case JobTypeInfo:
		return s.runInfo
	default:
		return func(context.Context, *model.Job) (map[string]any, error) {
			return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrInvalidArgument, jobType)
		}
	}
}

// loadDocuments decodes the job input and lists the session's documents.
func (s *Service) loadDocuments(ctx context.Context, job *model.Job) (Input, []model.Document, error) {
	in, err := decodeInput(job.Input)
	if err != nil {
		return Input{}, nil, err
	}
	scope, err := uuid.Parse(in.SessionID)
	if err != nil {
		return Input{}, nil, fmt.Errorf("%w: bad session id %q", domain.ErrInvalidArgument, in.SessionID)
	}
	docs, err := s.docs.ListDocuments(ctx, scope)
	if err != nil {
		return Input{}, nil, fmt.Errorf("list documents: %w", err)
	}
	return in, docs, nil
}

func (s *Service) setStage(ctx context.Context, jobID string, stage model.JobStage, message string) {
	upd := model.ProgressUpdate{Stage: model.StagePtr(stage)}
	if message != "" {
		upd.Message = model.StrPtr(message)
	}
	if err := s.store.UpdateProgress(ctx, jobID, upd); err != nil {
		s.log.Warn().Err(err).Str("job_id", jobID).Msg("failed to update job stage")
	}
}

// absorb records a non-fatal pipeline error on the job.
func (s *Service) absorb(ctx context.Context, jobID, msg string) {
	s.log.Warn().Str("job_id", jobID).Str("error", msg).Msg("pipeline step degraded")
	if err := s.store.AppendError(ctx, jobID, msg); err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to append job error")
	}
}

func encodeInput(in Input) (map[string]any, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode job input: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode job input: %w", err)
	}
	return m, nil
}

func decodeInput(m map[string]any) (Input, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return Input{}, fmt.Errorf("decode job input: %w", err)
	}
	var in Input
	if err := json.Unmarshal(b, &in); err != nil {
		return Input{}, fmt.Errorf("decode job input: %w", err)
	}
	if in.SessionID == "" {
		return Input{}, fmt.Errorf("%w: job input lacks sessionId", domain.ErrInvalidArgument)
	}
	return in, nil
}

// shapeResult is the common result envelope: the merged entity list plus the
// provenance of every chunk that contributed candidates.
func shapeResult(result any, relevant any) map[string]any {
	return map[string]any{
		"result":         result,
		"relevantChunks": relevant,
	}
}
