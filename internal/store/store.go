// Package store holds the failure categories shared by every storage
// backend. Backends wrap driver errors in *Error so callers can match the
// category with errors.Is without knowing the driver.
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the write broke a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means storage failed for reasons unrelated to the request.
	ErrUnavailable = errors.New("storage unavailable")
)

// Error attaches a category and operation name to a storage failure.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the category and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound builds a not-found error for op.
func NotFound(op string) error {
	return &Error{Op: op, Kind: ErrNotFound}
}

// Conflict wraps err as a uniqueness conflict.
func Conflict(op string, err error) error {
	return &Error{Op: op, Kind: ErrConflict, Err: err}
}

// Unavailable wraps err as a storage failure.
func Unavailable(op string, err error) error {
	return &Error{Op: op, Kind: ErrUnavailable, Err: err}
}
