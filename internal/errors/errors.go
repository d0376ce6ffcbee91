// Package errors defines the error taxonomy shared by the resolution pipeline.
//
// Callers import it as shelferrors to keep the standard library package
// available under its usual name.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidIdentifier is returned when an identifier fails normalization.
	ErrInvalidIdentifier = stdErrors.New("invalid identifier")

	// ErrNotFound is returned when the upstream provider or the catalog has no
	// record for the requested key.
	ErrNotFound = stdErrors.New("not found")

	// ErrAlreadyExists is returned when creating something that collides with
	// an existing catalog entry.
	ErrAlreadyExists = stdErrors.New("already exists")
)

// NewInvalidIdentifierError wraps ErrInvalidIdentifier with the offending input.
func NewInvalidIdentifierError(raw, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidIdentifier, raw, reason)
}

// NewNotFoundError wraps ErrNotFound with a description of what was missing.
func NewNotFoundError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// NewAlreadyExistsError wraps ErrAlreadyExists with a description of the collision.
func NewAlreadyExistsError(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrAlreadyExists)
}

// IsInvalidIdentifier reports whether err wraps ErrInvalidIdentifier.
func IsInvalidIdentifier(err error) bool {
	return stdErrors.Is(err, ErrInvalidIdentifier)
}

// IsNotFound reports whether err wraps ErrNotFound, including 404 upstream errors.
func IsNotFound(err error) bool {
	return stdErrors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err wraps ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	return stdErrors.Is(err, ErrAlreadyExists)
}

// HTTPStatus maps an error from the pipeline onto the status code the API
// layer should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsInvalidIdentifier(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsAlreadyExists(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
