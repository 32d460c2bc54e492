// Package errs defines the error taxonomy used across the secret access
// core: ValidationError, ConfigurationError, and AccessError, matching the
// kinds named in the specification's error handling design.
//
// Each kind carries enough context for a caller-facing message. AccessError
// also implements Unwrap() so callers can use errors.As/errors.Is against
// the wrapped cause; ValidationError and ConfigurationError wrap no cause.
package errs

import (
	"fmt"

	"github.com/systmms/secretaccess/pkg/reference"
)

// ValidationError indicates that caller-supplied data violates an
// invariant: a null/empty field, or a payload shape that doesn't match its
// declared method. Raised synchronously by constructors and setters, and
// never swallowed.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in field %q: %s", e.Field, e.Message)
	}
	return "validation error: " + e.Message
}

// ConfigurationError indicates registration or build-time misuse: a
// duplicate registration name, a missing required collaborator, or a
// reference whose store type no provider in the registry supports.
type ConfigurationError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field %q", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message
	if e.Suggestion != "" {
		msg += " — " + e.Suggestion
	}
	return msg
}

// AccessError indicates a failure to fetch a secret from a backing store:
// network failure, auth denial, "not found", or a transient I/O error. It
// always carries the reference that failed to resolve.
type AccessError struct {
	Reference reference.SecretReference
	Operation string
	Err       error
}

func (e AccessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("access error during %s of %s: %v", e.Operation, e.Reference, e.Err)
	}
	return fmt.Sprintf("access error during %s of %s", e.Operation, e.Reference)
}

func (e AccessError) Unwrap() error { return e.Err }
