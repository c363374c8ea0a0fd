package progress

import (
	"errors"
)

// Sentinel kinds for progress errors.
var (
	ErrInvalidInput    = errors.New("invalid progress input")
	ErrNotAssigned     = errors.New("review target not assigned")
	ErrAlreadyComplete = errors.New("review already complete")
)
