// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/promptarena/verdict/internal/adapters/evaluation"
	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/distribution"
	"github.com/promptarena/verdict/internal/domain/gate"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/internal/domain/pool"
	"github.com/promptarena/verdict/internal/domain/progress"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	GetCompetition(ctx context.Context, competitionID string) (*model.Competition, error)
	SetDistributionConfig(ctx context.Context, competitionID string, topN, maxPerJudge int) error

	ReadPool(ctx context.Context, competitionID string, topN int) (pool.Pool, error)
	CurrentMatrix(ctx context.Context, competitionID string) (distribution.Matrix, error)
	Distribute(ctx context.Context, competitionID string, matrix distribution.Matrix, buckets map[string][]string) (distribution.Result, error)

	Progress(ctx context.Context, competitionID string) (progress.Report, error)
	RecordReview(ctx context.Context, competitionID, judgeID, challengeID string) error

	Generate(ctx context.Context, competitionID string, actor gate.Actor, opts gate.Options) (gate.Outcome, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps          Dependencies
	statsProvider StatsProvider
	validate      *validator.Validate

	superadminToken   string
	exposeErrorDetail bool
	rateRPS           float64
	rateBurst         int
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithSuperadminToken sets the bearer token required on privileged routes.
func WithSuperadminToken(token string) ServerOption {
	return func(s *Server) { s.superadminToken = token }
}

// WithErrorDetail includes internal error text in 500 responses.
func WithErrorDetail(expose bool) ServerOption {
	return func(s *Server) { s.exposeErrorDetail = expose }
}

// WithRateLimit shapes the API token bucket.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 {
			s.rateRPS = rps
		}
		if burst > 0 {
			s.rateBurst = burst
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		deps:          deps,
		statsProvider: statsProvider,
		validate:      validator.New(),
		rateRPS:       20,
		rateBurst:     40,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux. Privileged routes sit behind
// the superadmin bearer check; everything passes through the metrics and
// rate-limit middleware.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	limit := RateLimitMiddleware(s.rateRPS, s.rateBurst)
	authed := func(endpoint string, h http.HandlerFunc) http.HandlerFunc {
		return MetricsMiddleware(limit(AuthMiddleware(s.superadminToken, h)), endpoint)
	}
	open := func(endpoint string, h http.HandlerFunc) http.HandlerFunc {
		return MetricsMiddleware(limit(h), endpoint)
	}

	mux.HandleFunc("GET /healthz", open("healthz", s.handleHealth))
	mux.HandleFunc("GET /stats", open("stats", s.handleStats))

	mux.HandleFunc("GET /competitions/{id}", authed("competition", s.handleGetCompetition))
	mux.HandleFunc("GET /competitions/{id}/pool", authed("pool", s.handleGetPool))
	mux.HandleFunc("GET /competitions/{id}/matrix", authed("matrix", s.handleGetMatrix))
	mux.HandleFunc("PUT /competitions/{id}/distribution-config", authed("distribution_config", s.handlePutConfig))
	mux.HandleFunc("POST /competitions/{id}/distribute", authed("distribute", s.handleDistribute))
	mux.HandleFunc("GET /competitions/{id}/progress", authed("progress", s.handleGetProgress))
	mux.HandleFunc("POST /competitions/{id}/reviews", authed("reviews", s.handlePostReview))
	mux.HandleFunc("POST /competitions/{id}/generate-leaderboard", authed("generate", s.handleGenerate))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates domain sentinel errors to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, progress.ErrNotAssigned),
		errors.Is(err, evaluation.ErrUnknownCompetition):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, distribution.ErrInvalidMatrix),
		errors.Is(err, pool.ErrInvalidInput),
		errors.Is(err, progress.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, distribution.ErrDistributionInProgress),
		errors.Is(err, progress.ErrAlreadyComplete),
		errors.Is(err, repository.ErrLeaseHeld):
		writeError(w, http.StatusConflict, "conflict", Wrap(op, err))
	case errors.Is(err, evaluation.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", Wrap(op, err))
	default:
		if s.exposeErrorDetail {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decodeAndValidate decodes the JSON body into v and runs struct validation.
func (s *Server) decodeAndValidate(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind("decode body", ErrBadRequest, err)
	}
	if err := s.validate.StructCtx(r.Context(), v); err != nil {
		return WrapKind("validate body", ErrBadRequest, err)
	}
	return nil
}
