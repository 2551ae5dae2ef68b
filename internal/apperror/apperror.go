// Package apperror defines the typed error kinds surfaced across the
// engine (spec §7) and their HTTP status mapping.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error kinds spec.md §7 names.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNoRoutes            Kind = "no_routes"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindRateLimited         Kind = "rate_limited"
	KindCredentialExhausted Kind = "credential_exhausted"
	KindInternal            Kind = "internal"
)

// Error is the engine's single error type; every request-fatal failure path
// produces one of these so the API layer can branch on Kind instead of
// matching strings.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string // per-field messages for KindInvalidInput

	RetryAfterSeconds int    // KindRateLimited only
	Reason            string // KindRateLimited only

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Status maps the error kind to the HTTP status code spec §6/§7 assigns it.
func (e *Error) Status() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNoRoutes:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable, KindCredentialExhausted, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// InvalidInput builds a KindInvalidInput error carrying per-field detail.
func InvalidInput(message string, fields map[string]string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message, Fields: fields}
}

// NoRoutes builds a KindNoRoutes error.
func NoRoutes() *Error {
	return &Error{Kind: KindNoRoutes, Message: "no eligible routes"}
}

// UpstreamUnavailable wraps an upstream failure as request-fatal.
func UpstreamUnavailable(cause error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: "upstream route-topology service unavailable", cause: cause}
}

// RateLimited builds a KindRateLimited error.
func RateLimited(retryAfterSeconds int, reason string) *Error {
	return &Error{
		Kind:              KindRateLimited,
		Message:           "rate limited",
		RetryAfterSeconds: retryAfterSeconds,
		Reason:            reason,
	}
}

// CredentialExhausted builds a KindCredentialExhausted error.
func CredentialExhausted() *Error {
	return &Error{Kind: KindCredentialExhausted, Message: "no credential available"}
}

// Internal wraps an unexpected failure as a redacted catch-all.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// As is a thin wrapper over errors.As for callers that want the typed form.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
