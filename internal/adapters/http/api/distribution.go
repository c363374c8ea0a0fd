// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/promptarena/verdict/internal/domain/distribution"
)

// poolResponse is the read shape for GET /competitions/{id}/pool.
type poolResponse struct {
	ParticipantIDs   []string            `json:"participant_ids"`
	Buckets          map[string][]string `json:"buckets"`
	SubmissionsTotal int                 `json:"submissions_total"`
}

// handleGetPool handles GET /competitions/{id}/pool?top_n=N.
func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_pool"
	topN, err := strconv.Atoi(r.URL.Query().Get("top_n"))
	if err != nil || topN < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := s.deps.ReadPool(r.Context(), r.PathValue("id"), topN)
	if err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		ParticipantIDs:   p.ParticipantIDs,
		Buckets:          p.Buckets,
		SubmissionsTotal: p.SubmissionsTotal,
	})
}

// handleGetMatrix handles GET /competitions/{id}/matrix.
func (s *Server) handleGetMatrix(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matrix"
	matrix, err := s.deps.CurrentMatrix(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matrix": matrix})
}

// distributeRequest mirrors POST /competitions/{id}/distribute.
//
// When UsePoolTopN is set the run slices the cached top-N pool; otherwise
// the executor falls back to re-deriving buckets from every submission.
type distributeRequest struct {
	Matrix      map[string]map[string]int `json:"matrix" validate:"required"`
	UsePoolTopN int                       `json:"use_pool_top_n" validate:"gte=0"`
}

// handleDistribute executes one distribution run.
func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	const op = "api.distribute"
	var req distributeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	competitionID := r.PathValue("id")
	var buckets map[string][]string
	if req.UsePoolTopN > 0 {
		p, err := s.deps.ReadPool(r.Context(), competitionID, req.UsePoolTopN)
		if err != nil {
			s.writeDomainError(w, op, err)
			return
		}
		buckets = p.Buckets
	}

	result, err := s.deps.Distribute(r.Context(), competitionID, distribution.Matrix(req.Matrix), buckets)
	if err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
