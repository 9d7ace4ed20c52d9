// Package http exposes the engine over a JSON API. Handlers are thin: they
// decode, call the engine, and map domain errors onto status codes; all case
// semantics stay behind the engine interface.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/caseflow"
	"github.com/aretw0/caseflow/pkg/domain"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Command and CommitResult mirror the facade types, so handlers and engine
// speak the same vocabulary.
type (
	Command      = caseflow.Command
	CommitResult = caseflow.CommitResult
)

// Engine is the part of the caseflow facade the HTTP surface needs.
// *caseflow.Engine satisfies it.
type Engine interface {
	CreateInstance(ctx context.Context, definitionKey, businessKey string, vars map[string]any) (*CommitResult, error)
	SubmitCommand(ctx context.Context, cmd Command) (*CommitResult, error)
	GetExecution(ctx context.Context, id string) (*domain.Execution, error)
	DecisionInstance(ctx context.Context, id string) (*domain.HistoricDecisionInstance, error)
}

// Server holds the handler dependencies.
type Server struct {
	engine  Engine
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler mounts a scrape endpoint at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler builds the HTTP handler. It validates the embedded OpenAPI
// document on startup, so a malformed contract fails fast instead of serving
// garbage.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(openapiSpec)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Post("/case-instance", s.handleCreateInstance)
	r.Post("/command", s.handleSubmitCommand)
	r.Get("/execution/{id}", s.handleGetExecution)
	r.Get("/history/decision-instance/{id}", s.handleGetDecisionInstance)

	return r, nil
}

type createInstanceRequest struct {
	DefinitionKey string         `json:"definitionKey"`
	BusinessKey   string         `json:"businessKey,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "InvalidRequestException", "invalid request body")
		return
	}
	if req.DefinitionKey == "" {
		s.writeError(w, http.StatusBadRequest, "InvalidRequestException", "definitionKey is required")
		return
	}

	result, err := s.engine.CreateInstance(r.Context(), req.DefinitionKey, req.BusinessKey, req.Variables)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, commitResultBody(result))
}

type commandRequest struct {
	Trigger   string         `json:"trigger"`
	TargetID  string         `json:"targetId"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (s *Server) handleSubmitCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "InvalidRequestException", "invalid request body")
		return
	}

	result, err := s.engine.SubmitCommand(r.Context(), Command{
		Trigger:   domain.Trigger(req.Trigger),
		TargetID:  req.TargetID,
		Variables: req.Variables,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, commitResultBody(result))
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	exec, err := s.engine.GetExecution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleGetDecisionInstance(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.DecisionInstance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

type commitResultResponse struct {
	CaseInstanceID string                    `json:"caseInstanceId"`
	Execution      *domain.Execution         `json:"execution,omitempty"`
	Transitions    []*domain.TransitionEvent `json:"transitions"`
}

func commitResultBody(result *CommitResult) commitResultResponse {
	return commitResultResponse{
		CaseInstanceID: result.CaseInstanceID,
		Execution:      result.Execution,
		Transitions:    result.Transitions,
	}
}

type errorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// writeDomainError maps the error taxonomy onto status codes. The body shape
// matches what API clients of this class of engine expect: a type name plus
// a human-readable message.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var (
		validation *domain.ValidationError
		illegal    *domain.IllegalTransitionError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "InvalidRequestException", err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		s.writeError(w, http.StatusConflict, "OptimisticLockingException", err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		s.writeError(w, http.StatusForbidden, "AuthorizationException", err.Error())
	case errors.As(err, &illegal):
		s.writeError(w, http.StatusBadRequest, "IllegalTransitionException", err.Error())
	case errors.As(err, &validation):
		s.writeError(w, http.StatusBadRequest, "InvalidRequestException", err.Error())
	default:
		s.logger.Error("unhandled engine error", "err", err)
		s.writeError(w, http.StatusInternalServerError, "InternalException", "internal error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, errorResponse{Type: errType, Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
