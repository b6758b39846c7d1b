package fixture

import "errors"

// Sentinel errors for fixture handling.
var (
	ErrLoadFixture    = errors.New("failed to load fixture")
	ErrInvalidFixture = errors.New("invalid fixture")
)
