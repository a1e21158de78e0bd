package mates

import "errors"

// Stable error kinds surfaced to API callers. Handlers and subsystems wrap
// these with fmt.Errorf("%w: ...") and callers match with errors.Is.
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrPersistenceFailed   = errors.New("persistence failed")
	ErrValidationFailed    = errors.New("validation failed")
)
