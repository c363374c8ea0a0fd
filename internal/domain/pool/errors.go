package pool

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrInvalidInput = errors.New("invalid pool input")
)
