package fixtures

import "errors"

// Sentinel kinds for fixture errors.
var (
	ErrLoadFixture = errors.New("load fixture failed")
)
