package distribution

import "errors"

// Sentinel kinds for distribution errors.
var (
	ErrInvalidMatrix          = errors.New("invalid assignment matrix")
	ErrDistributionInProgress = errors.New("distribution already in progress")
)
