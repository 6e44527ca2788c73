package auth

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenInvalid covers tokens that were never valid: bad signature,
	// unexpected algorithm, malformed or empty. ErrTokenExpired is kept apart
	// so callers can tell a stale token from a forged one.
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
