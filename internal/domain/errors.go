package domain

import "errors"

// Error kinds shared by every core entry point. Package-specific errors wrap one
// of these so callers (handlers, session commands) can branch with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
