// Package provider wraps the external generative services: Stability AI
// image-to-image, Gemini multimodal text generation, and speech synthesis.
// Each adapter normalizes one provider's request/response shape and failure
// modes behind domain.Adapter.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// ErrKind distinguishes provider failure classes. The distinction is
// load-bearing: the transport boundary maps each kind to its own status
// so callers can tell a timeout from a connectivity failure.
type ErrKind string

const (
	KindUnconfigured ErrKind = "unconfigured" // no credential configured, no I/O attempted
	KindTimeout      ErrKind = "timeout"      // the provider did not answer in time
	KindUnavailable  ErrKind = "unavailable"  // network/connectivity failure
	KindRejected     ErrKind = "rejected"     // remote returned a structured error
	KindBadInput     ErrKind = "bad_input"    // payload did not decode to a usable image
)

// Error is the single error type crossing the adapter boundary.
type Error struct {
	Kind   ErrKind
	Detail string
	Status int // remote HTTP status for KindRejected, 0 otherwise
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("provider %s: %s", e.Kind, e.Detail)
}

// Errf builds a provider error with a formatted detail message.
func Errf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// classifyTransport turns an http.Client error into a timeout or
// connectivity Error.
func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Detail: "request timed out; the provider is responding too slowly"}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Error{Kind: KindTimeout, Detail: "request timed out; the provider is responding too slowly"}
	}
	return &Error{Kind: KindUnavailable, Detail: fmt.Sprintf("network problem reaching provider: %v", err)}
}
