// ABOUTME: Error kinds reported by the gateway and their user-facing messages
// ABOUTME: Storage and driver errors are logged but never echoed to the caller

package gateway

import (
	"errors"
	"fmt"

	"github.com/2389/psyflow/internal/auth"
	"github.com/2389/psyflow/internal/store"
)

// ErrorKind classifies a failed command.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// User-facing messages that must not vary with the underlying cause.
const (
	msgInvalidCredentials = "invalid email or password"
	msgRegistrationFailed = "registration failed"
	msgStorageFailure     = "internal storage error"
)

// ValidationError reports a malformed or incomplete request. It is raised
// before any storage access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// notFoundError names the entity a store.ErrNotFound referred to.
type notFoundError struct {
	entity string
}

func (e *notFoundError) Error() string {
	return e.entity + " not found"
}

func (e *notFoundError) Unwrap() error {
	return store.ErrNotFound
}

// scoped replaces a bare store.ErrNotFound with one naming the entity.
func scoped(entity string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &notFoundError{entity: entity}
	}
	return err
}

// classify maps an error to its kind and the message shown to the caller.
func classify(err error) (ErrorKind, string) {
	var ve *ValidationError
	var nf *notFoundError

	switch {
	case errors.As(err, &ve):
		return KindValidation, ve.Error()
	case errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, store.ErrInvalidTimeRange):
		return KindValidation, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return KindUnauthorized, msgInvalidCredentials
	case errors.Is(err, store.ErrEmailExists):
		return KindConflict, msgRegistrationFailed
	case errors.As(err, &nf):
		return KindNotFound, nf.Error()
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound, "not found"
	default:
		return KindStorage, msgStorageFailure
	}
}
