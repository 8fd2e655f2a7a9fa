// Package apperr defines the error classes shared by the telemetry and
// assistant services.
//
// Packages wrap one of these sentinels with context:
//
//	return fmt.Errorf("%w: device %s", apperr.ErrNotFound, id)
//
// and the HTTP layer maps the class to a status code with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthenticated covers missing, malformed, expired or badly signed
	// credentials. Callers never learn which.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound is returned both for unknown resources and for resources
	// owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks caller-correctable failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks failures of the generation backend or a
	// collaborator service. The caller may retry the whole request.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrStorage marks database failures.
	ErrStorage = errors.New("storage failure")

	// ErrNotConfigured is returned when a feature lacks required
	// configuration, e.g. no generation backend credential.
	ErrNotConfigured = errors.New("not configured")
)

// HTTPStatus returns the status code for err's class.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamUnavailable), errors.Is(err, ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a short machine-readable code for err's class.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "bad_request"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	default:
		return "internal_error"
	}
}
