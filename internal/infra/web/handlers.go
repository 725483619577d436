package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"apidoc-digester/internal/domain"
	"apidoc-digester/internal/domain/ports/adapter"
)

// The JSON request body shared by all digest-start endpoints. Fields beyond
// sessionId matter only to the pipelines that read them.
type digestStartRequest struct {
	SessionID   string              `json:"sessionId"`
	ObjectClass string              `json:"objectClass"`
	BaseAPIURL  string              `json:"baseApiUrl"`
	Classes     []adapter.ClassHint `json:"classes"`
}

type digestStartResponse struct {
	JobID string `json:"jobId"`
}

func (s *Server) decodeStart(w http.ResponseWriter, r *http.Request) (digestStartRequest, uuid.UUID, bool) {
	var req digestStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, uuid.Nil, false
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		http.Error(w, "Invalid or missing sessionId", http.StatusBadRequest)
		return req, uuid.Nil, false
	}
	return req, sessionID, true
}

func (s *Server) respondStarted(w http.ResponseWriter, jobID string, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Msg("failed to start digest job")
		http.Error(w, "Failed to start digest", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(digestStartResponse{JobID: jobID})
}

func (s *Server) startObjectClasses(w http.ResponseWriter, r *http.Request) {
	_, sessionID, ok := s.decodeStart(w, r)
	if !ok {
		return
	}
	jobID, err := s.digests.StartObjectClassDigest(r.Context(), sessionID)
	s.respondStarted(w, jobID, err)
}

func (s *Server) startAttributes(w http.ResponseWriter, r *http.Request) {
	req, sessionID, ok := s.decodeStart(w, r)
	if !ok {
		return
	}
	jobID, err := s.digests.StartAttributeDigest(r.Context(), sessionID, req.ObjectClass)
	s.respondStarted(w, jobID, err)
}

func (s *Server) startEndpoints(w http.ResponseWriter, r *http.Request) {
	req, sessionID, ok := s.decodeStart(w, r)
	if !ok {
		return
	}
	jobID, err := s.digests.StartEndpointDigest(r.Context(), sessionID, req.ObjectClass, req.BaseAPIURL)
	s.respondStarted(w, jobID, err)
}

func (s *Server) startAuthMethods(w http.ResponseWriter, r *http.Request) {
	_, sessionID, ok := s.decodeStart(w, r)
	if !ok {
		return
	}
	jobID, err := s.digests.StartAuthDigest(r.Context(), sessionID)
	s.respondStarted(w, jobID, err)
}

func (s *Server) startRelations(w http.ResponseWriter, r *http.Request) {
	req, sessionID, ok := s.decodeStart(w, r)
	if !ok {
		return
	}
	jobID, err := s.digests.StartRelationDigest(r.Context(), sessionID, req.Classes)
	s.respondStarted(w, jobID, err)
}

func (s *Server) startInfo(w http.ResponseWriter, r *http.Request) {
	_, sessionID, ok := s.decodeStart(w, r)
	if !ok {
		return
	}
	jobID, err := s.digests.StartInfoDigest(r.Context(), sessionID)
	s.respondStarted(w, jobID, err)
}

// getJob returns the full job record, including progress, errors and the
// result envelope once the job is finished.
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.store.GetStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) || errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to load job")
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(job)
}
