package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound   = errors.New("document not found")
	ErrTooManyIDs = errors.New("membership query exceeds id limit")
	ErrLeaseHeld  = errors.New("distribution lease held by another owner")
)
