// Package http exposes the JMAP server over HTTP: the API endpoint, the
// session resource and the metrics endpoint. Request-level failures become
// problem documents here; everything per-call stays inside the pipeline's
// response.
package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veldt-dev/veldt/pkg/extension"
	"github.com/veldt-dev/veldt/pkg/jmap"
	"github.com/veldt-dev/veldt/pkg/pipeline"
	"github.com/veldt-dev/veldt/pkg/session"
)

// Server handles the JMAP HTTP surface.
type Server struct {
	pipeline *pipeline.Pipeline
	sessions *session.Builder
	registry *extension.Registry
	auth     Authenticator
	limits   extension.CoreLimits
	logger   *slog.Logger
	metrics  *metrics
}

// NewHandler builds the router. The authenticator runs before the session
// and API endpoints; the pipeline only ever sees an authenticated
// username.
func NewHandler(p *pipeline.Pipeline, sessions *session.Builder, registry *extension.Registry, auth Authenticator, limits extension.CoreLimits, logger *slog.Logger) http.Handler {
	s := &Server{
		pipeline: p,
		sessions: sessions,
		registry: registry,
		auth:     auth,
		limits:   limits,
		logger:   logger,
		metrics:  newMetrics(),
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/.well-known/jmap", s.handleSession)
		r.Post("/api/", s.handleAPI)
		r.Post("/api", s.handleAPI)
	})
	return r
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	username := principal(r.Context())

	doc, err := s.sessions.Build(r.Context(), username)
	if err != nil {
		s.logger.Error("building session resource", "username", username, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// Clients refetch on sessionState change; HTTP caching would mask it.
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.logger.Error("encoding session resource", "err", err)
	}
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.logger.With("requestId", requestID)
	s.metrics.requests.Inc()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.limits.MaxSizeRequest)))
	if err != nil {
		s.metrics.problems.WithLabelValues(string(jmap.ProblemLimit)).Inc()
		s.writeProblem(w, jmap.OverLimit("maxSizeRequest"))
		return
	}

	req, problem := jmap.DecodeRequest(body)
	if problem != nil {
		s.metrics.problems.WithLabelValues(string(problem.Type)).Inc()
		s.writeProblem(w, problem)
		return
	}

	for _, uri := range req.Using {
		if !s.registry.Supports(uri) {
			s.metrics.problems.WithLabelValues(string(jmap.ProblemUnknownCapability)).Inc()
			s.writeProblem(w, jmap.UnknownCapability(uri))
			return
		}
	}

	if uint64(len(req.MethodCalls)) > uint64(s.limits.MaxCallsInRequest) {
		s.metrics.problems.WithLabelValues(string(jmap.ProblemLimit)).Inc()
		s.writeProblem(w, jmap.OverLimit("maxCallsInRequest"))
		return
	}

	resp, err := s.pipeline.Process(r.Context(), principal(r.Context()), req)
	if err != nil {
		logger.Error("processing request", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	for _, inv := range resp.MethodResponses {
		s.metrics.methodCalls.WithLabelValues(inv.Name).Inc()
	}

	out, err := jmap.EncodeResponse(resp)
	if err != nil {
		logger.Error("encoding response", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(out); err != nil {
		logger.Warn("writing response", "err", err)
	}
}

func (s *Server) writeProblem(w http.ResponseWriter, problem *jmap.RequestError) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	if err := json.NewEncoder(w).Encode(problem); err != nil {
		s.logger.Warn("writing problem document", "err", err)
	}
}
