// Package apperrors holds the domain error taxonomy shared by the core packages.
// Only the HTTP layer translates these into status codes.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailure covers bad credentials and invalid, expired or missing tokens.
	ErrAuthFailure = errors.New("incorrect password or email")
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("object does not exist")
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a write would violate a uniqueness constraint.
	ErrConflict = errors.New("already exists")
	// ErrForbidden is returned when the principal lacks the required authority.
	ErrForbidden = errors.New("authority failed")
)

// StorageError wraps a failure of the underlying store (connection, statement, scan).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for the named operation. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Validation builds an ErrValidation carrying a human readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsStorage reports whether err is, or wraps, a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
