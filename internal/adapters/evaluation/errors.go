package evaluation

import "errors"

// Sentinel kinds for evaluation client errors.
var (
	ErrInvalidBaseURL     = errors.New("invalid evaluation base url")
	ErrUnavailable        = errors.New("evaluation service unavailable")
	ErrUnknownCompetition = errors.New("competition unknown to evaluation service")
)
