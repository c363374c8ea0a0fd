// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/promptarena/verdict/internal/domain/gate"
)

// generateRequest mirrors POST /competitions/{id}/generate-leaderboard.
// Both flags are explicit operator overrides for the gate's soft stops.
type generateRequest struct {
	AllowNoJudges     bool `json:"allow_no_judges"`
	ConfirmRegenerate bool `json:"confirm_regenerate"`
}

// handleGenerate runs the leaderboard-generation gate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate_leaderboard"
	var req generateRequest
	if r.ContentLength > 0 {
		if err := s.decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
			return
		}
	}

	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "forbidden", NewKind(op, ErrUnauthorized))
		return
	}

	outcome, err := s.deps.Generate(r.Context(), r.PathValue("id"), actor, gate.Options{
		AllowNoJudges:     req.AllowNoJudges,
		ConfirmRegenerate: req.ConfirmRegenerate,
	})
	if err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, gateStatus(outcome.State), outcome)
}

// gateStatus maps a gate state to its HTTP status: success is 200,
// authorization failures 403, and every refusal a 409 so callers can
// distinguish "blocked by policy" from errors.
func gateStatus(state gate.State) int {
	switch state {
	case gate.StateGenerated:
		return http.StatusOK
	case gate.StateNotAuthorized:
		return http.StatusForbidden
	default:
		return http.StatusConflict
	}
}
