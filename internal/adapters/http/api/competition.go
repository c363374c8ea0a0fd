// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"
)

// competitionResponse is the read shape for competition metadata.
type competitionResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	TopN                int       `json:"top_n"`
	MaxPerJudge         int       `json:"max_per_judge"`
	AllJudgeEvaluated   bool      `json:"all_judge_evaluated"`
	HasFinalLeaderboard bool      `json:"has_final_leaderboard"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// handleGetCompetition handles GET /competitions/{id}.
func (s *Server) handleGetCompetition(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competition"
	comp, err := s.deps.GetCompetition(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, competitionResponse{
		ID:                  comp.ID,
		Name:                comp.Name,
		TopN:                comp.TopN,
		MaxPerJudge:         comp.MaxPerJudge,
		AllJudgeEvaluated:   comp.AllJudgeEvaluated,
		HasFinalLeaderboard: comp.HasFinalLeaderboard,
		UpdatedAt:           comp.UpdatedAt,
	})
}

// configRequest mirrors PUT /competitions/{id}/distribution-config.
type configRequest struct {
	TopN        int `json:"top_n" validate:"gt=0"`
	MaxPerJudge int `json:"max_per_judge" validate:"gt=0"`
}

// handlePutConfig persists the operator's distribution parameters.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_distribution_config"
	var req configRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if err := s.deps.SetDistributionConfig(r.Context(), r.PathValue("id"), req.TopN, req.MaxPerJudge); err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"top_n":         req.TopN,
		"max_per_judge": req.MaxPerJudge,
	})
}
