// Package web exposes the digest API: endpoints to start pipelines and to
// poll job status, plus health and Prometheus metrics.
package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"apidoc-digester/internal/domain/ports/adapter"
	"apidoc-digester/internal/domain/ports/repository"
)

// DigestStarter is the slice of the digest service the API needs.
type DigestStarter interface {
	StartObjectClassDigest(ctx context.Context, sessionID uuid.UUID) (string, error)
	StartAttributeDigest(ctx context.Context, sessionID uuid.UUID, objectClass string) (string, error)
	StartEndpointDigest(ctx context.Context, sessionID uuid.UUID, objectClass, baseAPIURL string) (string, error)
	StartAuthDigest(ctx context.Context, sessionID uuid.UUID) (string, error)
	StartRelationDigest(ctx context.Context, sessionID uuid.UUID, classes []adapter.ClassHint) (string, error)
	StartInfoDigest(ctx context.Context, sessionID uuid.UUID) (string, error)
}

type Server struct {
	digests DigestStarter
	store   repository.JobStore
	apiKey  string
	log     *zerolog.Logger
}

func NewServer(digests DigestStarter, store repository.JobStore, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{
		digests: digests,
		store:   store,
		apiKey:  apiKey,
		log:     logger,
	}
}

// Router builds the full route tree. Digest routes are behind bearer auth;
// health and metrics are open.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/digests", func(r chi.Router) {
			r.Post("/object-classes", s.startObjectClasses)
			r.Post("/attributes", s.startAttributes)
			r.Post("/endpoints", s.startEndpoints)
			r.Post("/auth-methods", s.startAuthMethods)
			r.Post("/relations", s.startRelations)
			r.Post("/info", s.startInfo)
		})
		r.Get("/jobs/{jobID}", s.getJob)
	})

	return r
}

// authMiddleware provides simple Bearer token authentication for the API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
