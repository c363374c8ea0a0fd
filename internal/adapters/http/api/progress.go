// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// handleGetProgress handles GET /competitions/{id}/progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_progress"
	report, err := s.deps.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// reviewRequest mirrors POST /competitions/{id}/reviews.
type reviewRequest struct {
	JudgeID     string `json:"judge_id" validate:"required"`
	ChallengeID string `json:"challenge_id" validate:"required"`
}

// handlePostReview records one completed review for a judge.
func (s *Server) handlePostReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_review"
	var req reviewRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	if err := s.deps.RecordReview(r.Context(), r.PathValue("id"), req.JudgeID, req.ChallengeID); err != nil {
		s.writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
