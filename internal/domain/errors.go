package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Account errors
	ErrDuplicateUsername   = errors.New("username already registered")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientCredits = errors.New("not enough credits")

	// Identity errors
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUnauthorized       = errors.New("missing, malformed, or expired token")

	// Input errors
	ErrInvalidInput = errors.New("invalid request input")
)
